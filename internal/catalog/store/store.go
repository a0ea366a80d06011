// Package store keeps the authoritative catalog in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE catalog_items (
//	    id    UUID PRIMARY KEY,
//	    name  TEXT NOT NULL,
//	    size  TEXT NOT NULL,
//	    color TEXT NOT NULL
//	);
//
// size and color hold lowercase wire names.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/resilience"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
	id    UUID PRIMARY KEY,
	name  TEXT NOT NULL,
	size  TEXT NOT NULL,
	color TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS catalog_items_facets ON catalog_items (size, color)`,
}

type Store struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Retryable:    retryable,
		},
		logger: slog.Default().With("component", "catalog-store"),
	}
}

// retryable excludes failures that another attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, apperrors.ErrInvalidInput) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.Exec(ctx, schema...)
}

// Load reads the whole catalog. The result is never nil. A row whose size or
// color is not a known value fails the load with ErrInvalidInput.
func (s *Store) Load(ctx context.Context) ([]catalog.Item, error) {
	start := time.Now()
	var items []catalog.Item
	err := resilience.Retry(ctx, "catalog-load", s.retry, func() error {
		var err error
		items, err = s.load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog loaded", "items", len(items), "took", time.Since(start))
	return items, nil
}

func (s *Store) load(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT id, name, size, color FROM catalog_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	items := make([]catalog.Item, 0)
	for rows.Next() {
		var id uuid.UUID
		var name, size, color string
		if err := rows.Scan(&id, &name, &size, &color); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		item, err := decodeRow(id, name, size, color)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog rows: %w", err)
	}
	return items, nil
}

func decodeRow(id uuid.UUID, name, size, color string) (catalog.Item, error) {
	sz, err := catalog.ParseSize(size)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("catalog item %s: %w", id, err)
	}
	c, err := catalog.ParseColor(color)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("catalog item %s: %w", id, err)
	}
	return catalog.Item{ID: id, Name: name, Size: sz, Color: c}, nil
}

// Save bulk-inserts items with COPY inside one transaction. Items with
// unknown facet values are rejected before anything is written.
func (s *Store) Save(ctx context.Context, items []catalog.Item) error {
	for _, it := range items {
		if !it.Size.Valid() || !it.Color.Valid() {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "item %s has size %v and color %v", it.ID, it.Size, it.Color)
		}
	}
	start := time.Now()
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("catalog_items", "id", "name", "size", "color"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		for _, it := range items {
			if _, err := stmt.ExecContext(ctx, it.ID.String(), it.Name, it.Size.WireName(), it.Color.WireName()); err != nil {
				stmt.Close()
				return fmt.Errorf("copying item %s: %w", it.ID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy: %w", err)
		}
		return stmt.Close()
	})
	if err != nil {
		return err
	}
	s.logger.Info("catalog saved", "items", len(items), "took", time.Since(start))
	return nil
}

// Truncate deletes every catalog row.
func (s *Store) Truncate(ctx context.Context) error {
	return s.db.Exec(ctx, `TRUNCATE catalog_items`)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting catalog: %w", err)
	}
	return n, nil
}
