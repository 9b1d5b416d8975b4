package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

// Dialect uses numbered placeholders and row-level FOR UPDATE locks.
var Dialect = sqlstore.Dialect{
	Name:                 "postgres",
	NumberedPlaceholders: true,
	LockClause:           " FOR UPDATE",
}

// Open connects to Postgres at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return sqlstore.New(db, Dialect), nil
}

// NewPostgresLedgerStore wraps an already-open handle without touching the schema.
func NewPostgresLedgerStore(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
