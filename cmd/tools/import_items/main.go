package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"warehouse-inventory-api/internal/store"
	"warehouse-inventory-api/pkg/importer"
)

func usage() {
	fmt.Println("Usage: import_items --file=items.xlsx [--mapping=mapping.yaml] [--max-errors=50] [--dry-run]")
	fmt.Println("Reads DB_DSN for the target database.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var filePath, mappingPath string
	maxErrors := 50
	dryRun := false

	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "--file="):
			filePath = strings.TrimPrefix(arg, "--file=")
		case strings.HasPrefix(arg, "--mapping="):
			mappingPath = strings.TrimPrefix(arg, "--mapping=")
		case strings.HasPrefix(arg, "--max-errors="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--max-errors="))
			if err != nil || n < 0 {
				log.Fatalf("Invalid max-errors: %s", arg)
			}
			maxErrors = n
		case arg == "--dry-run":
			dryRun = true
		}
	}

	if filePath == "" {
		fmt.Println("Error: file is required")
		usage()
		os.Exit(1)
	}

	format, err := importer.DetectFormat(filePath)
	if err != nil {
		log.Fatal(err)
	}
	mapping, err := importer.LoadMapping(mappingPath)
	if err != nil {
		log.Fatal(err)
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	ctx := context.Background()
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Importing from %s (dry_run=%v)\n", filePath, dryRun)
	fmt.Println("=" + strings.Repeat("=", 60))

	summary, err := importer.Import(ctx, store.NewPostgres(conn, pool), file, importer.ImportOptions{
		Format:    format,
		Mapping:   mapping,
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})
	if err != nil && !errors.Is(err, importer.ErrTooManyErrors) {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("IMPORT SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Total inserted: %d\n", summary.Inserted)
	fmt.Printf("Total skipped: %d\n", summary.Skipped)
	fmt.Printf("Total errors: %d\n", summary.Errors)
	fmt.Printf("Dry run: %v\n", summary.DryRun)

	if len(summary.Samples) > 0 {
		fmt.Printf("\nError samples:\n")
		for _, sample := range summary.Samples {
			fmt.Printf("  Row %d: %s\n", sample.Row, sample.Message)
		}
	}
	if err != nil {
		log.Fatalf("Import aborted, nothing written: %v", err)
	}
}
