// Package branch locates physical fulfillment branches near a requester.
package branch

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/geo"
)

// Branch is a physical fulfillment point.
type Branch struct {
	ID     string
	Name   string
	Active bool
	Lng    float64
	Lat    float64
}

// Point returns the branch's coordinates.
func (b *Branch) Point() geo.Point {
	return geo.Point{Lat: b.Lat, Lng: b.Lng}
}

// SpatialQuerier is the spatial-query port the locator runs against. The
// postgres adapter answers with an indexed query; the in-memory adapter
// answers with a brute-force scan. Both must rank by the same haversine
// distance.
type SpatialQuerier interface {
	// NearestBranch returns the closest active branch within maxDistanceKm,
	// or nil when none qualifies.
	NearestBranch(ctx context.Context, lng, lat, maxDistanceKm float64) (*Branch, error)

	// BranchesWithin returns all active branches within radiusKm.
	BranchesWithin(ctx context.Context, lng, lat, radiusKm float64) ([]*Branch, error)

	// ActiveBranches returns every active branch. Used by the fallback scan.
	ActiveBranches(ctx context.Context) ([]*Branch, error)
}

// Locator finds the nearest eligible branch, preferring the spatial query
// and falling back to a full scan when the query fails or finds nothing.
type Locator struct {
	spatial SpatialQuerier
	logger  zerolog.Logger
}

// NewLocator creates a branch locator.
func NewLocator(spatial SpatialQuerier) *Locator {
	return &Locator{
		spatial: spatial,
		logger:  log.With().Str("component", "branch_locator").Logger(),
	}
}

// Nearest returns the nearest active branch within maxDistanceKm, or nil
// when no active branch is in range.
func (l *Locator) Nearest(ctx context.Context, lng, lat, maxDistanceKm float64) (*Branch, error) {
	b, err := l.spatial.NearestBranch(ctx, lng, lat, maxDistanceKm)
	if err == nil && b != nil {
		return b, nil
	}
	if err != nil {
		l.logger.Warn().Err(err).Msg("spatial nearest query failed, falling back to full scan")
	}
	return l.nearestByScan(ctx, lng, lat, maxDistanceKm)
}

// nearestByScan computes the nearest branch by linear haversine comparison
// over all active branches.
func (l *Locator) nearestByScan(ctx context.Context, lng, lat, maxDistanceKm float64) (*Branch, error) {
	branches, err := l.spatial.ActiveBranches(ctx)
	if err != nil {
		return nil, err
	}

	var best *Branch
	var bestDist float64
	for _, b := range branches {
		d := geo.HaversineKm(lat, lng, b.Lat, b.Lng)
		if d > maxDistanceKm {
			continue
		}
		if best == nil || d < bestDist {
			best = b
			bestDist = d
		}
	}
	return best, nil
}

// Within returns all active branches inside radiusKm of the point.
func (l *Locator) Within(ctx context.Context, lng, lat, radiusKm float64) ([]*Branch, error) {
	branches, err := l.spatial.BranchesWithin(ctx, lng, lat, radiusKm)
	if err == nil {
		return branches, nil
	}
	l.logger.Warn().Err(err).Msg("spatial radius query failed, falling back to full scan")

	all, scanErr := l.spatial.ActiveBranches(ctx)
	if scanErr != nil {
		return nil, scanErr
	}
	var out []*Branch
	for _, b := range all {
		if geo.HaversineKm(lat, lng, b.Lat, b.Lng) <= radiusKm {
			out = append(out, b)
		}
	}
	return out, nil
}
