// Package mysql provides a MySQL-backed contestcrawl.ContestStore for the
// shared contests table used in production.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents a MySQL connection pool.
type DB struct {
	db  *sql.DB
	cfg Config
}

// NewDB creates a new DB for cfg.
func NewDB(cfg Config) *DB {
	return &DB{cfg: cfg}
}

// Open connects to the server and creates the contests table if needed.
func (db *DB) Open(ctx context.Context) error {
	conn, err := sql.Open("mysql", db.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A crawl runs one transaction at a time.
	conn.SetMaxOpenConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.db = conn

	if err := db.createSchema(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// BeginTx starts a database transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// createSchema matches the columns of the table owned by the web backend.
// The key columns compare byte for byte, the same way ContestKey does.
func (db *DB) createSchema(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS contests (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			organization_name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			categories VARCHAR(512) NOT NULL DEFAULT '',
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			image_url VARCHAR(1024) NOT NULL,
			site_url VARCHAR(1024) NOT NULL,
			award_scale VARCHAR(255) NOT NULL DEFAULT '',
			benefits VARCHAR(512) NOT NULL DEFAULT '',
			additional_benefits VARCHAR(1024) NOT NULL DEFAULT '',
			target_participants VARCHAR(255) NOT NULL DEFAULT '',
			company_type VARCHAR(255) NOT NULL DEFAULT '',
			views INT NOT NULL DEFAULT 0,
			UNIQUE KEY uk_contests_name_org (name, organization_name),
			KEY idx_contests_end_date (end_date)
		) DEFAULT CHARSET = utf8mb4
	`)
	return err
}
