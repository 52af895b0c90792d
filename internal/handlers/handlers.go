// Package handlers contains the gin HTTP handlers for the public and
// internal API surfaces.
package handlers

import (
	"context"
	"time"

	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/geoip"
	"github.com/BhataDev/mtc-server/internal/order"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

// CampaignStoreAPI is the campaign surface the admin endpoints need:
// reads for conflict checks plus the write operations.
type CampaignStoreAPI interface {
	ActiveCampaigns(ctx context.Context, now time.Time) ([]*pricing.Campaign, error)
	CampaignByID(ctx context.Context, id string) (*pricing.Campaign, error)
	List(ctx context.Context) ([]*pricing.Campaign, error)
	Create(ctx context.Context, c *pricing.Campaign) error
	Update(ctx context.Context, c *pricing.Campaign) error
	Deactivate(ctx context.Context, id string) error
}

var (
	pricingService *pricing.Service
	orderService   *order.Service
	branchLocator  *branch.Locator
	ipResolver     *geoip.Resolver
	campaignStore  CampaignStoreAPI
	clock          pricing.Clock
)

// Init wires the handler package to its services. Must be called before
// any route is registered. A nil clk falls back to the system clock.
func Init(
	ps *pricing.Service,
	ordersvc *order.Service,
	bl *branch.Locator,
	ip *geoip.Resolver,
	cs CampaignStoreAPI,
	clk pricing.Clock,
) {
	pricingService = ps
	orderService = ordersvc
	branchLocator = bl
	ipResolver = ip
	campaignStore = cs
	clock = clk
	if clock == nil {
		clock = pricing.SystemClock{}
	}
}
