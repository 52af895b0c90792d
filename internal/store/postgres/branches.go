package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/branch"
)

// haversineKm is the great-circle distance expression used for spatial
// ordering. acos is clamped to avoid NaN on identical coordinates.
const haversineKm = `
	6371 * acos(least(1.0,
		cos(radians($2)) * cos(radians(lat)) * cos(radians(lng) - radians($1))
		+ sin(radians($2)) * sin(radians(lat))))`

// BranchStore implements branch.SpatialQuerier over SQL haversine
// ordering. The locator falls back to an in-process scan when these
// queries fail.
type BranchStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBranchStore creates a postgres-backed branch store.
func NewBranchStore(pool *pgxpool.Pool) *BranchStore {
	return &BranchStore{
		pool:   pool,
		logger: log.With().Str("store", "branches").Logger(),
	}
}

// NearestBranch returns the closest active branch within maxDistanceKm,
// or nil when none qualifies.
func (s *BranchStore) NearestBranch(ctx context.Context, lng, lat, maxDistanceKm float64) (*branch.Branch, error) {
	var b branch.Branch
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, active, lng, lat
		FROM branches
		WHERE active AND `+haversineKm+` <= $3
		ORDER BY `+haversineKm+`
		LIMIT 1
	`, lng, lat, maxDistanceKm).Scan(&b.ID, &b.Name, &b.Active, &b.Lng, &b.Lat)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying nearest branch: %w", err)
	}
	return &b, nil
}

// BranchesWithin returns active branches within radiusKm, nearest first.
func (s *BranchStore) BranchesWithin(ctx context.Context, lng, lat, radiusKm float64) ([]*branch.Branch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, active, lng, lat
		FROM branches
		WHERE active AND `+haversineKm+` <= $3
		ORDER BY `+haversineKm+`
	`, lng, lat, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("querying branches within radius: %w", err)
	}
	defer rows.Close()
	return collectBranches(rows)
}

// ActiveBranches returns every active branch. Used by the locator's
// fallback scan and by the CLI.
func (s *BranchStore) ActiveBranches(ctx context.Context) ([]*branch.Branch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, active, lng, lat
		FROM branches WHERE active ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying active branches: %w", err)
	}
	defer rows.Close()
	return collectBranches(rows)
}

func collectBranches(rows pgx.Rows) ([]*branch.Branch, error) {
	var out []*branch.Branch
	for rows.Next() {
		var b branch.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Active, &b.Lng, &b.Lat); err != nil {
			return nil, fmt.Errorf("scanning branch: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
