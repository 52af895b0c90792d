// Package order assembles and persists customer orders, re-deriving every
// price server-side before anything is committed.
package order

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/geo"
	"github.com/BhataDev/mtc-server/internal/geoip"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

var (
	orderOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Order creation attempts by outcome",
	}, []string{"outcome"}) // outcome: created, price_mismatch, rejected, error

	branchAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_branch_assignment_total",
		Help: "Branch assignment outcomes at checkout",
	}, []string{"source"}) // source: device, ip, none
)

// Config holds order assembly settings.
type Config struct {
	// AssignmentRadiusKm is the nearest-branch search radius at checkout.
	// Deliberately wide: pick the nearest branch regardless of distance.
	AssignmentRadiusKm float64
}

// DefaultConfig returns order assembly defaults.
func DefaultConfig() Config {
	return Config{AssignmentRadiusKm: 5000}
}

// Service performs order assembly: server-side price re-validation, branch
// assignment and atomic persistence.
type Service struct {
	pricer   *pricing.Service
	catalog  pricing.CatalogSource
	locator  *branch.Locator
	resolver *geoip.Resolver
	uow      UnitOfWork
	clock    pricing.Clock
	cfg      Config
	logger   zerolog.Logger
}

// NewService creates an order service.
func NewService(pricer *pricing.Service, catalog pricing.CatalogSource, locator *branch.Locator, resolver *geoip.Resolver, uow UnitOfWork, clock pricing.Clock, cfg Config) *Service {
	if clock == nil {
		clock = pricing.SystemClock{}
	}
	if cfg.AssignmentRadiusKm <= 0 {
		cfg.AssignmentRadiusKm = DefaultConfig().AssignmentRadiusKm
	}
	return &Service{
		pricer:   pricer,
		catalog:  catalog,
		locator:  locator,
		resolver: resolver,
		uow:      uow,
		clock:    clock,
		cfg:      cfg,
		logger:   log.With().Str("component", "order_service").Logger(),
	}
}

// Create validates, prices, assigns and persists an order. The whole
// sequence is atomic: any failure leaves no order or address behind.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if len(in.Items) == 0 {
		orderOutcomes.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyOrder
	}

	loc := s.locationContext(in)

	items, subtotal, err := s.priceItems(ctx, in.Items, loc)
	if err != nil {
		orderOutcomes.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if math.Abs(subtotal-in.Subtotal) > PriceTolerance {
		s.logger.Warn().
			Str("customer", in.CustomerID).
			Float64("submitted", in.Subtotal).
			Float64("recomputed", subtotal).
			Msg("order subtotal mismatch")
		orderOutcomes.WithLabelValues("price_mismatch").Inc()
		return nil, ErrPriceMismatch
	}
	total := pricing.Round2(subtotal + in.ShippingFee)
	if math.Abs(total-in.Total) > PriceTolerance {
		orderOutcomes.WithLabelValues("price_mismatch").Inc()
		return nil, ErrPriceMismatch
	}

	assigned := s.assignBranch(ctx, in)

	o := &Order{
		ID:          uuid.New(),
		CustomerID:  in.CustomerID,
		Items:       items,
		Subtotal:    subtotal,
		ShippingFee: in.ShippingFee,
		Total:       total,
		BranchID:    assigned,
		CreatedAt:   s.clock.Now(),
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		number, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("issuing order number: %w", err)
		}
		o.Number = number

		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("persisting order: %w", err)
		}

		if in.Address.Save {
			addr := in.Address
			addr.ID = uuid.New()
			addr.CustomerID = in.CustomerID
			if err := tx.SaveAddress(ctx, &addr); err != nil {
				return fmt.Errorf("persisting address: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		orderOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}

	orderOutcomes.WithLabelValues("created").Inc()
	s.logger.Info().
		Str("order", o.Number).
		Str("branch", o.BranchID).
		Float64("total", o.Total).
		Int("items", len(o.Items)).
		Msg("order created")
	return o, nil
}

// locationContext derives the pricing context from the order submission.
// Explicit branch wins, then device coordinates, then IP lookup; absent all
// three, pricing runs against global campaigns only.
func (s *Service) locationContext(in CreateInput) pricing.LocationContext {
	loc := pricing.LocationContext{BranchID: in.BranchID}
	if in.Coordinates != nil {
		loc.Coordinates = &geo.Point{Lat: in.Coordinates.Lat, Lng: in.Coordinates.Lng}
	}
	return loc
}

// priceItems recomputes the authoritative price of every submitted line.
// A missing or inactive product rejects the whole order.
func (s *Service) priceItems(ctx context.Context, submitted []SubmittedItem, loc pricing.LocationContext) ([]LineItem, float64, error) {
	ids := make([]string, len(submitted))
	for i, it := range submitted {
		ids[i] = it.ProductID
	}

	products, err := s.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("loading products: %w", err)
	}

	// Strict pricing: a campaign source failure rejects the order instead
	// of silently re-pricing against zero campaigns.
	priced, err := s.pricer.PriceProductsStrict(ctx, ids, loc)
	if err != nil {
		return nil, 0, fmt.Errorf("pricing products: %w", err)
	}
	pricedByID := make(map[string]pricing.PricedProduct, len(priced))
	for _, pp := range priced {
		pricedByID[pp.ProductID] = pp
	}

	items := make([]LineItem, 0, len(submitted))
	subtotal := 0.0
	for _, it := range submitted {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			return nil, 0, ErrProductUnavailable{ProductID: it.ProductID}
		}
		if it.Quantity <= 0 {
			return nil, 0, fmt.Errorf("invalid quantity for product %s", it.ProductID)
		}
		pp, ok := pricedByID[it.ProductID]
		if !ok {
			return nil, 0, ErrProductUnavailable{ProductID: it.ProductID}
		}

		line := LineItem{
			ProductID:  p.ID,
			Title:      p.Title,
			Price:      pp.OriginalPrice,
			OfferPrice: pp.EffectivePrice,
			Quantity:   it.Quantity,
			Subtotal:   pricing.Round2(pp.EffectivePrice * float64(it.Quantity)),
		}
		items = append(items, line)
		subtotal += line.Subtotal
	}
	return items, pricing.Round2(subtotal), nil
}

// assignBranch picks the fulfillment branch. Device coordinates are
// preferred over IP-derived ones; failure to resolve leaves the order
// unassigned instead of failing it.
func (s *Service) assignBranch(ctx context.Context, in CreateInput) string {
	if in.Coordinates != nil {
		b, err := s.locator.Nearest(ctx, in.Coordinates.Lng, in.Coordinates.Lat, s.cfg.AssignmentRadiusKm)
		if err == nil && b != nil {
			branchAssignments.WithLabelValues("device").Inc()
			return b.ID
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("branch assignment from device coordinates failed")
		}
	}

	if in.ClientIP != "" && s.resolver != nil {
		if loc := s.resolver.Resolve(ctx, in.ClientIP); loc != nil {
			b, err := s.locator.Nearest(ctx, loc.Lng, loc.Lat, s.cfg.AssignmentRadiusKm)
			if err == nil && b != nil {
				branchAssignments.WithLabelValues("ip").Inc()
				return b.ID
			}
		}
	}

	branchAssignments.WithLabelValues("none").Inc()
	return ""
}
