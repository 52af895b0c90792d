// Package memory provides deterministic in-memory implementations of the
// store ports. The spatial queries are brute-force haversine scans, so
// tests never depend on a live geospatial index.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/geo"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

// Store holds campaigns, products and branches in memory. Safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	campaigns map[string]*pricing.Campaign
	products  map[string]*pricing.Product
	branches  map[string]*branch.Branch
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		campaigns: make(map[string]*pricing.Campaign),
		products:  make(map[string]*pricing.Product),
		branches:  make(map[string]*branch.Branch),
	}
}

// PutCampaign inserts or replaces a campaign.
func (s *Store) PutCampaign(c *pricing.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p *pricing.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutBranch inserts or replaces a branch.
func (s *Store) PutBranch(b *branch.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[b.ID] = b
}

// ActiveCampaigns implements pricing.CampaignSource. Results are ordered
// by id for determinism.
func (s *Store) ActiveCampaigns(ctx context.Context, now time.Time) ([]*pricing.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*pricing.Campaign
	for _, c := range s.campaigns {
		if c.ActiveAt(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CampaignByID implements pricing.CampaignSource.
func (s *Store) CampaignByID(ctx context.Context, id string) (*pricing.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.campaigns[id], nil
}

// List returns all campaigns, highest priority first.
func (s *Store) List(ctx context.Context) ([]*pricing.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*pricing.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Create stores a new campaign, rejecting duplicate ids.
func (s *Store) Create(ctx context.Context, c *pricing.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.campaigns[c.ID]; exists {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}
	s.campaigns[c.ID] = c
	return nil
}

// Update replaces an existing campaign.
func (s *Store) Update(ctx context.Context, c *pricing.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.campaigns[c.ID]; !exists {
		return fmt.Errorf("campaign %s not found", c.ID)
	}
	s.campaigns[c.ID] = c
	return nil
}

// Deactivate soft-disables a campaign.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, exists := s.campaigns[id]
	if !exists {
		return fmt.Errorf("campaign %s not found", id)
	}
	clone := *c
	clone.Active = false
	s.campaigns[id] = &clone
	return nil
}

// ProductByID implements pricing.CatalogSource.
func (s *Store) ProductByID(ctx context.Context, id string) (*pricing.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id], nil
}

// ProductsByIDs implements pricing.CatalogSource.
func (s *Store) ProductsByIDs(ctx context.Context, ids []string) (map[string]*pricing.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*pricing.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// NearestBranch implements branch.SpatialQuerier by brute-force scan.
func (s *Store) NearestBranch(ctx context.Context, lng, lat, maxDistanceKm float64) (*branch.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *branch.Branch
	var bestDist float64
	for _, b := range s.branches {
		if !b.Active {
			continue
		}
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

// BranchesWithin implements branch.SpatialQuerier.
func (s *Store) BranchesWithin(ctx context.Context, lng, lat, radiusKm float64) ([]*branch.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*branch.Branch
	for _, b := range s.branches {
		if b.Active && geo.HaversineKm(lat, lng, b.Lat, b.Lng) <= radiusKm {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return geo.HaversineKm(lat, lng, out[i].Lat, out[i].Lng) < geo.HaversineKm(lat, lng, out[j].Lat, out[j].Lng)
	})
	return out, nil
}

// ActiveBranches implements branch.SpatialQuerier.
func (s *Store) ActiveBranches(ctx context.Context) ([]*branch.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*branch.Branch
	for _, b := range s.branches {
		if b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
