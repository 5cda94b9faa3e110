// Package db persists calibrated model parameter sets and API key registrations in
// postgres behind the Store interface consumed by the HTTP server.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store defines the persistence operations of the pricing service.
type Store interface {
	SaveParameterSet(ctx context.Context, arg SaveParameterSetParams) (ParameterSet, error)
	GetParameterSet(ctx context.Context, modelID, date string) (ParameterSet, error)
	GetLatestParameterSet(ctx context.Context, modelID string) (ParameterSet, error)
	GetUser(ctx context.Context, prefix string) (User, error)
}

// SQLStore executes the Store queries against a postgres connection.
type SQLStore struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given connection.
func NewStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ConnectDB opens and pings a postgres connection with the lib/pq driver.
func ConnectDB(host string, port int, user, password, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return conn, nil
}
