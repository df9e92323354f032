package database

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path         string
	MaxOpenConns int
}

// Open opens the SQLite database and applies connection pragmas
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, eris.Wrap(err, "database: open")
	}

	// Set connection pool settings
	maxOpen := cfg.MaxOpenConns
	if maxOpen < 1 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "database: ping")
	}

	zap.L().Info("database initialized", zap.String("path", cfg.Path))
	return db, nil
}

// dsn attaches the connection pragmas so every pooled connection gets them.
// Transactions take the write lock up front so busy_timeout applies to them.
func dsn(path string) string {
	pragmas := url.Values{}
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", "busy_timeout(5000)")
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Set("_txlock", "immediate")
	return "file:" + path + "?" + pragmas.Encode()
}

// Transaction executes fn within a database transaction
func Transaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "database: begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return eris.Wrapf(err, "database: rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "database: commit transaction")
	}

	return nil
}
