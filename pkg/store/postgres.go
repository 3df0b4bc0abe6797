package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/duo/internal/models"
)

type PostgresConfig struct {
	ConnString string
	TableName  string
}

// PostgresStore records indexed PDFs by content hash.
type PostgresStore struct {
	config PostgresConfig
	table  string
	pool   *pgxpool.Pool
}

func NewPostgres(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if config.ConnString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.TableName == "" {
		config.TableName = "indexed_documents"
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ps := &PostgresStore{
		config: config,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
		pool:   pool,
	}

	if err := ps.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PostgresStore) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			store_id   TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			sha256     TEXT NOT NULL,
			size       BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ps.table)

	if _, err := ps.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s (sha256, created_at DESC)`,
		pgx.Identifier{ps.config.TableName + "_sha256_idx"}.Sanitize(), ps.table)

	if _, err := ps.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (ps *PostgresStore) Record(ctx context.Context, doc models.IndexedDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (store_id, filename, sha256, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id) DO UPDATE SET
			filename = EXCLUDED.filename,
			created_at = EXCLUDED.created_at`,
		ps.table)

	_, err := ps.pool.Exec(ctx, stmt, doc.StoreID, doc.Filename, doc.SHA256, doc.Size, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record document: %w", err)
	}

	return nil
}

// Lookup returns the newest document with the given hash recorded at or
// after since, or nil when there is none.
func (ps *PostgresStore) Lookup(ctx context.Context, sha256 string, since time.Time) (*models.IndexedDocument, error) {
	query := fmt.Sprintf(`
		SELECT store_id, filename, sha256, size, created_at
		FROM %s
		WHERE sha256 = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`,
		ps.table)

	var doc models.IndexedDocument
	err := ps.pool.QueryRow(ctx, query, sha256, since).Scan(
		&doc.StoreID,
		&doc.Filename,
		&doc.SHA256,
		&doc.Size,
		&doc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	return &doc, nil
}

func (ps *PostgresStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}
