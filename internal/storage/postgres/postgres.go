// Package postgres stores documents in PostgreSQL via a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storeforge/storeforge/internal/storage"
	"github.com/storeforge/storeforge/internal/store"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS store_documents (
	id TEXT PRIMARY KEY,
	brand_name TEXT NOT NULL,
	marketplace TEXT,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_store_documents_brand ON store_documents(brand_name);
`

// New creates a Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, doc *store.StoreDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("postgres: marshal document: %w", err)
	}

	query := `
	INSERT INTO store_documents (id, brand_name, marketplace, document, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		brand_name = EXCLUDED.brand_name,
		marketplace = EXCLUDED.marketplace,
		document = EXCLUDED.document,
		updated_at = EXCLUDED.updated_at
	`

	_, err = b.pool.Exec(ctx, query,
		doc.ID,
		doc.BrandName,
		doc.Marketplace,
		data,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save document: %w", err)
	}
	return nil
}

func (b *postgresBackend) Get(ctx context.Context, id string) (*store.StoreDocument, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, `SELECT document FROM store_documents WHERE id = $1`, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get document: %w", err)
	}

	var doc store.StoreDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("postgres: decode document: %w", err)
	}
	return &doc, nil
}

func (b *postgresBackend) List(ctx context.Context, filter storage.Filter) ([]*store.StoreDocument, error) {
	query := `SELECT document FROM store_documents WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.BrandName != "" {
		query += ` AND brand_name = ` + arg(filter.BrandName)
	}
	if filter.Marketplace != "" {
		query += ` AND marketplace = ` + arg(filter.Marketplace)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + arg(*filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []*store.StoreDocument
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		var doc store.StoreDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("postgres: decode document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate rows: %w", err)
	}
	return docs, nil
}

func (b *postgresBackend) Delete(ctx context.Context, id string) error {
	tag, err := b.pool.Exec(ctx, `DELETE FROM store_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
