package db

import "context"

// User is one API key registration: the public prefix, the bcrypt hash of the full
// key and the validity window.
type User struct {
	EmailAddress string `json:"email_address"`
	Prefix       string `json:"prefix"`
	Token        string `json:"token"`
	GeneratedAt  string `json:"generated_at"`
	ExpiredAt    string `json:"expired_at"`
}

const getUser = `SELECT email_address, prefix, token, generated_at, expired_at
FROM registrar WHERE prefix = $1`

func (store *SQLStore) GetUser(ctx context.Context, prefix string) (User, error) {
	var u User
	err := store.db.QueryRowContext(ctx, getUser, prefix).
		Scan(&u.EmailAddress, &u.Prefix, &u.Token, &u.GeneratedAt, &u.ExpiredAt)
	return u, err
}
