package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/marc-henrard/murisq-ir-models/api"
	db "github.com/marc-henrard/murisq-ir-models/db/sqlc"
)

const defaultAddress = "0.0.0.0:8080"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file, using process environment")
	}

	port, err := strconv.Atoi(envOr("DB_PORT", "5432"))
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	conn, err := db.ConnectDB(
		envOr("DB_HOST", "localhost"),
		port,
		envOr("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		envOr("DB_NAME", "murisq"),
	)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	defer conn.Close()

	server := api.NewServer(db.NewStore(conn))
	if err := server.Start(envOr("SERVER_ADDRESS", defaultAddress)); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
