package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"warehouse-inventory-api/db"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("DB_DSN"), "Postgres connection string (defaults to DB_DSN)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [-dsn=...] up|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dsn == "" {
		log.Fatal("DB_DSN or -dsn is required")
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	conn, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	switch cmd {
	case "up":
		if err := db.Migrate(conn); err != nil {
			log.Fatal(err)
		}
		fallthrough
	case "version":
		v, err := db.Version(conn)
		if err != nil {
			log.Fatal("Failed to read schema version:", err)
		}
		fmt.Printf("Schema version: %d\n", v)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
