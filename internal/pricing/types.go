package pricing

import (
	"fmt"
	"time"

	"github.com/BhataDev/mtc-server/internal/geo"
)

// CreatorRole identifies who manages a campaign.
type CreatorRole string

const (
	RoleAdmin          CreatorRole = "admin"
	RoleBranchOperator CreatorRole = "branch_operator"
)

// PricingMode is the tagged union of the three mutually exclusive pricing
// modes a campaign can carry. Invalid combinations (a percent on an
// amount-mode campaign and so on) are unrepresentable.
type PricingMode interface {
	ModeName() string
}

// PerItem prices each covered item from its own override entry.
type PerItem struct{}

// BulkPercent applies a single percent to every covered item.
type BulkPercent struct {
	Percent float64
}

// BulkAmount subtracts a flat amount from every covered item's price,
// floored at zero.
type BulkAmount struct {
	Amount float64
}

func (PerItem) ModeName() string     { return "perItem" }
func (BulkPercent) ModeName() string { return "bulkPercent" }
func (BulkAmount) ModeName() string  { return "bulkAmount" }

// ItemOverride is per-item coverage with its own pricing data. Only
// meaningful under PerItem mode; an entry with neither a fixed price nor a
// percent grants no discount.
type ItemOverride struct {
	ProductID  string
	FixedPrice *float64
	Percent    *float64
}

// Geofence restricts a campaign to a geographic region. Exactly one of the
// circle (Center+RadiusM) or Polygon forms is populated.
type Geofence struct {
	Center  *geo.Point
	RadiusM float64
	Polygon []geo.Point
}

// Contains reports whether p falls inside the fence.
func (g *Geofence) Contains(p geo.Point) bool {
	if g == nil {
		return false
	}
	if g.Center != nil {
		return geo.InCircle(p, *g.Center, g.RadiusM)
	}
	return geo.InPolygon(p, g.Polygon)
}

// Campaign is a promotional pricing rule with temporal bounds, coverage and
// targeting dimensions.
type Campaign struct {
	ID          string
	Title       string
	CreatedBy   string
	CreatorRole CreatorRole

	StartsAt *time.Time // nil = unbounded
	EndsAt   *time.Time // nil = unbounded
	Active   bool

	Mode PricingMode

	// Coverage
	Items       []ItemOverride // per-item overrides (PerItem mode)
	ProductIDs  []string       // explicit coverage without override data (bulk modes)
	CategoryIDs []string       // coverage by category membership

	// Targeting; an empty dimension is unrestricted on that axis.
	BranchIDs []string
	Cities    []string
	Geofence  *Geofence
	// LegacyBranch is the retained single-branch field. Equivalent to a
	// one-element branch set when non-empty.
	LegacyBranch string

	Priority  int
	Stackable bool
}

// ActiveAt reports whether the campaign is temporally valid at the given
// instant. The active flag and the time window must both hold.
func (c *Campaign) ActiveAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartsAt != nil && c.StartsAt.After(now) {
		return false
	}
	if c.EndsAt != nil && c.EndsAt.Before(now) {
		return false
	}
	return true
}

// Unrestricted reports whether the campaign has no targeting at all and is
// therefore visible globally.
func (c *Campaign) Unrestricted() bool {
	return len(c.BranchIDs) == 0 && c.LegacyBranch == "" &&
		len(c.Cities) == 0 && c.Geofence == nil
}

// CoveredProductIDs returns the product ids the campaign names directly,
// from both the override list and the explicit id list. Category coverage
// is not expanded here; it requires the catalog.
func (c *Campaign) CoveredProductIDs() []string {
	ids := make([]string, 0, len(c.Items)+len(c.ProductIDs))
	seen := make(map[string]struct{}, len(c.Items)+len(c.ProductIDs))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; !ok {
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}
	for _, id := range c.ProductIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// itemOverride returns the override entry for a product id, if any.
func (c *Campaign) itemOverride(productID string) (ItemOverride, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return ItemOverride{}, false
}

func (c *Campaign) coversExplicitProduct(productID string) bool {
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

func (c *Campaign) coversCategory(categoryID string) bool {
	if categoryID == "" {
		return false
	}
	for _, id := range c.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// LocationContext describes where a request originates. Derived per request
// from explicit parameters, device geolocation or IP lookup, in that order.
// Never persisted. Any subset of fields may be present.
type LocationContext struct {
	BranchID    string
	City        string
	Coordinates *geo.Point
}

// Product is the catalog view the calculator needs.
type Product struct {
	ID         string
	Title      string
	Price      float64
	CategoryID string
	Active     bool
}

// AppliedCampaign records one campaign that contributed a price improvement
// for a product.
type AppliedCampaign struct {
	CampaignID      string  `json:"campaignId"`
	Title           string  `json:"title"`
	Price           float64 `json:"price"`
	DiscountAmount  float64 `json:"discountAmount"`
	DiscountPercent float64 `json:"discountPercent"`
}

// PricedProduct is the derived per-product pricing view. Recomputed on
// every request, never persisted.
type PricedProduct struct {
	ProductID       string            `json:"productId"`
	OriginalPrice   float64           `json:"originalPrice"`
	EffectivePrice  float64           `json:"effectivePrice"`
	HasOffer        bool              `json:"hasOffer"`
	DiscountAmount  float64           `json:"discountAmount,omitempty"`
	DiscountPercent float64           `json:"discountPercent,omitempty"`
	Applied         []AppliedCampaign `json:"appliedCampaigns,omitempty"`
}

// CartProduct is a cart line used for relevance ranking and order pricing.
type CartProduct struct {
	ProductID  string
	CategoryID string
	Quantity   int
}

// ErrInvalidCampaign is returned when a campaign fails write-time validation.
type ErrInvalidCampaign struct {
	Field  string
	Reason string
}

func (e ErrInvalidCampaign) Error() string {
	return e.Field + ": " + e.Reason
}

// ProductConflict names one existing campaign contesting products with a
// candidate campaign.
type ProductConflict struct {
	CampaignID string   `json:"campaignId"`
	Title      string   `json:"title"`
	ProductIDs []string `json:"productIds"`
}

// ConflictError rejects a campaign write because its products are already
// claimed by other active non-stackable campaigns.
type ConflictError struct {
	Conflicts []ProductConflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("campaign conflicts with %d existing campaign(s)", len(e.Conflicts))
}
