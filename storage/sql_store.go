package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"coinafrique-scraper/models"
)

const (
	rawTable     = "animaux_scraped"
	cleanedTable = "animaux_cleaned"
)

// SQLStore persists listings to PostgreSQL or SQLite. The raw table is
// append-only; the cleaned table is overwritten on every write.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens a connection with the given driver ("postgres" or
// "sqlite3"), waits for the server and creates the tables if needed.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != "postgres" && driver != "sqlite3" {
		return nil, fmt.Errorf("sql: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql: open: %w", err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	// Only a server is retried; a local SQLite file opens on the first try or not at all.
	attempts := 10
	if driver == "sqlite3" {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				_ = db.Close()
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
		if err = db.PingContext(ctx); err == nil {
			break
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql: ping failed after retries: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	if s.driver == "sqlite3" {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + rawTable + ` (
			` + idColumn + `,
			details   TEXT,
			price_raw TEXT,
			location  TEXT,
			image_ref TEXT,
			category  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + cleanedTable + ` (
			` + idColumn + `,
			details    TEXT,
			price_raw  TEXT,
			location   TEXT,
			image_ref  TEXT,
			source_url TEXT,
			category   TEXT NOT NULL,
			price      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_animaux_scraped_category ON ` + rawTable + `(category)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendRaw inserts one row per scraped listing.
func (s *SQLStore) AppendRaw(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertBatches(ctx, tx, rawTable, LayoutRaw, listings)
	})
	if err != nil {
		return &PersistenceError{Sink: s.driver, Table: rawTable, Err: err}
	}
	return nil
}

// ReplaceCleaned swaps the cleaned snapshot in a single transaction.
func (s *SQLStore) ReplaceCleaned(ctx context.Context, listings []*models.Listing) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+cleanedTable); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		return s.insertBatches(ctx, tx, cleanedTable, LayoutCleaned, listings)
	})
	if err != nil {
		return &PersistenceError{Sink: s.driver, Table: cleanedTable, Err: err}
	}
	return nil
}

// FetchRaw retrieves every scraped row in insertion order.
func (s *SQLStore) FetchRaw(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT details, price_raw, location, image_ref, category
		FROM `+rawTable+`
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sql: fetch raw: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		var details, price, location, image sql.NullString
		var category string
		if err := rows.Scan(&details, &price, &location, &image, &category); err != nil {
			return nil, fmt.Errorf("sql: scan row: %w", err)
		}
		l := &models.Listing{
			Details:  nullable(details),
			RawPrice: nullable(price),
			Location: nullable(location),
			ImageURL: nullable(image),
			Category: models.Category(category),
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

func (s *SQLStore) insertBatches(ctx context.Context, tx *sql.Tx, table string, layout Layout, listings []*models.Listing) error {
	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		query, args := insertQuery(s.driver, table, layout, listings[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
	}
	return nil
}

// insertQuery builds a multi-row INSERT with the placeholder style of the driver.
func insertQuery(driver, table string, layout Layout, batch []*models.Listing) (string, []any) {
	cols := layout.Columns()
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*len(cols))

	n := 0
	for _, l := range batch {
		ph := make([]string, len(cols))
		for i := range cols {
			n++
			if driver == "postgres" {
				ph[i] = "$" + strconv.Itoa(n)
			} else {
				ph[i] = "?"
			}
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs, rowArgs(layout, l)...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), strings.Join(valueStrings, ","))
	return query, valueArgs
}

// rowArgs stores nil fields as SQL NULL and everything else as text.
func rowArgs(layout Layout, l *models.Listing) []any {
	args := []any{
		nullString(l.Details),
		nullString(l.RawPrice),
		nullString(l.Location),
		nullString(l.ImageURL),
	}
	if layout == LayoutCleaned {
		args = append(args, nullString(l.SourceURL), string(l.Category), priceText(l.Price))
		return args
	}
	return append(args, string(l.Category))
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func priceText(p models.Price) sql.NullString {
	if !p.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: p.String(), Valid: true}
}

func parseStoredPrice(s string) (models.Price, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing, fmt.Errorf("parse price %q: %w", s, err)
	}
	return models.PriceOf(v), nil
}
