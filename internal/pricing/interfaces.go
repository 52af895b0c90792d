package pricing

import (
	"context"
	"time"
)

// Clock supplies wall-clock time for temporal filtering. Injectable for
// deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CampaignSource defines read access to persisted campaigns. The temporal
// window filter is pushed down; spatial/organizational admission happens in
// the targeting filter so the OR-union semantics stay auditable.
type CampaignSource interface {
	// ActiveCampaigns returns campaigns whose active flag is set and whose
	// time window contains now.
	ActiveCampaigns(ctx context.Context, now time.Time) ([]*Campaign, error)

	// CampaignByID returns the campaign or nil when missing.
	CampaignByID(ctx context.Context, id string) (*Campaign, error)
}

// CatalogSource defines read access to products.
type CatalogSource interface {
	// ProductByID returns the product or nil when missing.
	ProductByID(ctx context.Context, id string) (*Product, error)

	// ProductsByIDs returns the found subset keyed by id; missing ids are
	// simply absent.
	ProductsByIDs(ctx context.Context, ids []string) (map[string]*Product, error)
}
