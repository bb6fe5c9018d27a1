// Command migrate applies the invoicer schema (invoices and payment
// tokens) to the database named by DATABASE_URL.
//
//	go run ./cmd/migrate up       # apply everything pending
//	go run ./cmd/migrate status   # show what has run
//	go run ./cmd/migrate down     # roll back one step
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <command> [args]")
	fmt.Fprintln(os.Stderr, "commands: up, up-to <version>, down, down-to <version>, redo, status, version")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	command, args := os.Args[1], os.Args[2:]

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	if err := goose.RunContext(context.Background(), command, db, migrationsDir, args...); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}
}
