package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ResolveMetadata describes how a resolution request was answered.
type ResolveMetadata struct {
	TotalActive int       `json:"totalActive"`
	Eligible    int       `json:"eligible"`
	Accepted    int       `json:"accepted"`
	Degraded    bool      `json:"degraded"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// ResolvedOffers is the result of the campaign resolution listing.
type ResolvedOffers struct {
	Offers []*Campaign
	Meta   ResolveMetadata
}

// Service orchestrates targeting, pricing and stacking over the campaign
// and catalog sources. Stateless between requests; every call recomputes
// from the current persisted state so promotions reflect the latest edit
// immediately.
type Service struct {
	campaigns CampaignSource
	catalog   CatalogSource
	clock     Clock
	metrics   *MetricsRecorder
	logger    zerolog.Logger
}

// NewService creates a pricing service.
func NewService(campaigns CampaignSource, catalog CatalogSource, clock Clock, metrics *MetricsRecorder) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		campaigns: campaigns,
		catalog:   catalog,
		clock:     clock,
		metrics:   metrics,
		logger:    log.With().Str("component", "pricing_service").Logger(),
	}
}

// activeCampaigns loads the temporally active campaigns. A store failure
// degrades to an empty set (global/unscoped behavior) instead of failing
// the request.
func (s *Service) activeCampaigns(ctx context.Context, now time.Time) ([]*Campaign, bool) {
	campaigns, err := s.campaigns.ActiveCampaigns(ctx, now)
	if err != nil {
		s.logger.Warn().Err(err).Msg("campaign source unavailable, degrading to no offers")
		s.metrics.RecordSourceFailure("campaigns")
		return nil, true
	}
	return campaigns, false
}

// ResolveOffers returns the campaigns relevant to a location context,
// prioritized and reduced to a stacking-consistent set. When a cart is
// supplied its contents contribute a relevance tiebreaker to the ordering.
func (s *Service) ResolveOffers(ctx context.Context, loc LocationContext, cart []CartProduct) (*ResolvedOffers, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordResolveDuration("resolve_offers", time.Since(start))
	}()

	now := s.clock.Now()
	all, degraded := s.activeCampaigns(ctx, now)

	eligible := FilterActive(all, now, loc)
	s.metrics.RecordCandidateCampaigns(len(eligible))

	SortForResolution(eligible, cart)
	accepted := ResolveStacking(eligible)
	s.metrics.RecordStackingRejections(len(eligible) - len(accepted))

	return &ResolvedOffers{
		Offers: accepted,
		Meta: ResolveMetadata{
			TotalActive: len(all),
			Eligible:    len(eligible),
			Accepted:    len(accepted),
			Degraded:    degraded,
			ResolvedAt:  now,
		},
	}, nil
}

// PriceProducts computes the effective price for each requested product
// under the location context. Missing or inactive products are silently
// excluded, and a campaign source failure degrades to undiscounted prices,
// matching read-path semantics. The campaign and catalog fetches run
// concurrently.
func (s *Service) PriceProducts(ctx context.Context, productIDs []string, loc LocationContext) ([]PricedProduct, error) {
	return s.priceProducts(ctx, productIDs, loc, false)
}

// PriceProductsStrict is PriceProducts for write paths: a campaign source
// failure is returned as an error instead of degrading, so callers never
// charge prices computed against a partial view.
func (s *Service) PriceProductsStrict(ctx context.Context, productIDs []string, loc LocationContext) ([]PricedProduct, error) {
	return s.priceProducts(ctx, productIDs, loc, true)
}

func (s *Service) priceProducts(ctx context.Context, productIDs []string, loc LocationContext, strict bool) ([]PricedProduct, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordResolveDuration("price_products", time.Since(start))
	}()

	now := s.clock.Now()

	var (
		campaigns []*Campaign
		products  map[string]*Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if strict {
			var err error
			campaigns, err = s.campaigns.ActiveCampaigns(gctx, now)
			if err != nil {
				s.metrics.RecordSourceFailure("campaigns")
				return fmt.Errorf("loading campaigns: %w", err)
			}
			return nil
		}
		campaigns, _ = s.activeCampaigns(gctx, now)
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.catalog.ProductsByIDs(gctx, productIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eligible := FilterActive(campaigns, now, loc)
	s.metrics.RecordCandidateCampaigns(len(eligible))

	// Higher-priority campaigns are evaluated first so the contributor list
	// reflects the priority ranking, not store order.
	SortForResolution(eligible, nil)

	priced := make([]PricedProduct, 0, len(productIDs))
	discounted := 0
	for _, id := range productIDs {
		p, ok := products[id]
		if !ok || !p.Active {
			continue
		}
		pp := PriceFor(p, eligible)
		if pp.HasOffer {
			discounted++
		}
		priced = append(priced, pp)
	}
	s.metrics.RecordProductsPriced(len(priced), discounted)

	return priced, nil
}

// PriceProduct prices a single product under the location context. Returns
// nil when the product is missing or inactive.
func (s *Service) PriceProduct(ctx context.Context, productID string, loc LocationContext) (*PricedProduct, error) {
	priced, err := s.PriceProducts(ctx, []string{productID}, loc)
	if err != nil {
		return nil, err
	}
	if len(priced) == 0 {
		return nil, nil
	}
	return &priced[0], nil
}
