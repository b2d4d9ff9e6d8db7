// Package sqlite stores documents in an embedded SQLite database. The
// document itself is kept as a JSON blob with indexed columns for the
// fields List filters on.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/storeforge/storeforge/internal/storage"
	"github.com/storeforge/storeforge/internal/store"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS store_documents (
	id TEXT PRIMARY KEY,
	brand_name TEXT NOT NULL,
	marketplace TEXT,
	document TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_store_documents_brand ON store_documents(brand_name);
`

// New creates a SQLite-backed storage.Backend at dsn.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, doc *store.StoreDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: marshal document: %w", err)
	}

	query := `
	INSERT INTO store_documents (id, brand_name, marketplace, document, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		brand_name = excluded.brand_name,
		marketplace = excluded.marketplace,
		document = excluded.document,
		updated_at = excluded.updated_at
	`

	_, err = b.db.ExecContext(ctx, query,
		doc.ID,
		doc.BrandName,
		doc.Marketplace,
		string(data),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save document: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Get(ctx context.Context, id string) (*store.StoreDocument, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT document FROM store_documents WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get document: %w", err)
	}

	var doc store.StoreDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("sqlite: decode document: %w", err)
	}
	return &doc, nil
}

func (b *sqliteBackend) List(ctx context.Context, filter storage.Filter) ([]*store.StoreDocument, error) {
	query := `SELECT document FROM store_documents WHERE 1=1`
	args := []any{}

	if filter.BrandName != "" {
		query += ` AND brand_name = ?`
		args = append(args, filter.BrandName)
	}
	if filter.Marketplace != "" {
		query += ` AND marketplace = ?`
		args = append(args, filter.Marketplace)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	defer rows.Close()

	var docs []*store.StoreDocument
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		var doc store.StoreDocument
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("sqlite: decode document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate rows: %w", err)
	}
	return docs, nil
}

func (b *sqliteBackend) Delete(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM store_documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
