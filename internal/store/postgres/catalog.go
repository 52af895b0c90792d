package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/pricing"
)

// CatalogStore implements pricing.CatalogSource.
type CatalogStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogStore creates a postgres-backed product catalog.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{
		pool:   pool,
		logger: log.With().Str("store", "catalog").Logger(),
	}
}

// ProductByID returns the product, or nil when missing.
func (s *CatalogStore) ProductByID(ctx context.Context, id string) (*pricing.Product, error) {
	var p pricing.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, price, category_id, active
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Price, &p.CategoryID, &p.Active)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying product %s: %w", id, err)
	}
	return &p, nil
}

// ProductsByIDs returns the products found for the given ids, keyed by id.
// Missing ids are simply absent from the result.
func (s *CatalogStore) ProductsByIDs(ctx context.Context, ids []string) (map[string]*pricing.Product, error) {
	out := make(map[string]*pricing.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, price, category_id, active
		FROM products WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p pricing.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.CategoryID, &p.Active); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}
