package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BhataDev/mtc-server/internal/geo"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

// ItemOverrideParam is one per-item price override.
type ItemOverrideParam struct {
	ProductID  string   `json:"productId" binding:"required"`
	FixedPrice *float64 `json:"fixedPrice,omitempty"`
	Percent    *float64 `json:"percent,omitempty"`
}

// GeofenceParam is a circle (center + radius) or polygon fence. Exactly
// one of the two shapes must be supplied.
type GeofenceParam struct {
	Center  *CoordinatesParam  `json:"center,omitempty"`
	RadiusM float64            `json:"radiusM,omitempty"`
	Polygon []CoordinatesParam `json:"polygon,omitempty"`
}

// CampaignRequest represents a campaign create or update body.
type CampaignRequest struct {
	Title       string              `json:"title" binding:"required"`
	CreatedBy   string              `json:"createdBy" binding:"required"`
	CreatorRole string              `json:"creatorRole" binding:"required"`
	StartsAt    *time.Time          `json:"startsAt,omitempty"`
	EndsAt      *time.Time          `json:"endsAt,omitempty"`
	Active      bool                `json:"active"`
	Mode        string              `json:"mode" binding:"required,oneof=perItem bulkPercent bulkAmount"`
	Percent     *float64            `json:"percent,omitempty"`
	Amount      *float64            `json:"amount,omitempty"`
	Items       []ItemOverrideParam `json:"items,omitempty"`
	ProductIDs  []string            `json:"productIds,omitempty"`
	CategoryIDs []string            `json:"categoryIds,omitempty"`
	BranchIDs   []string            `json:"branchIds,omitempty"`
	Cities      []string            `json:"cities,omitempty"`
	Geofence    *GeofenceParam      `json:"geofence,omitempty"`
	Priority    int                 `json:"priority"`
	Stackable   bool                `json:"stackable"`
}

// CampaignView is the admin-facing shape of a stored campaign.
type CampaignView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Mode        string     `json:"mode"`
	Active      bool       `json:"active"`
	Priority    int        `json:"priority"`
	Stackable   bool       `json:"stackable"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	ProductIDs  []string   `json:"productIds,omitempty"`
	CategoryIDs []string   `json:"categoryIds,omitempty"`
	BranchIDs   []string   `json:"branchIds,omitempty"`
	Cities      []string   `json:"cities,omitempty"`
}

func campaignView(c *pricing.Campaign) CampaignView {
	return CampaignView{
		ID:          c.ID,
		Title:       c.Title,
		Mode:        c.Mode.ModeName(),
		Active:      c.Active,
		Priority:    c.Priority,
		Stackable:   c.Stackable,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		ProductIDs:  c.ProductIDs,
		CategoryIDs: c.CategoryIDs,
		BranchIDs:   c.BranchIDs,
		Cities:      c.Cities,
	}
}

func (r *CampaignRequest) toCampaign(id string) (*pricing.Campaign, error) {
	c := &pricing.Campaign{
		ID:          id,
		Title:       r.Title,
		CreatedBy:   r.CreatedBy,
		CreatorRole: pricing.CreatorRole(r.CreatorRole),
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		Active:      r.Active,
		ProductIDs:  r.ProductIDs,
		CategoryIDs: r.CategoryIDs,
		BranchIDs:   r.BranchIDs,
		Cities:      r.Cities,
		Priority:    r.Priority,
		Stackable:   r.Stackable,
	}

	switch r.Mode {
	case "perItem":
		c.Mode = pricing.PerItem{}
	case "bulkPercent":
		if r.Percent == nil {
			return nil, pricing.ErrInvalidCampaign{Field: "percent", Reason: "required for bulkPercent mode"}
		}
		c.Mode = pricing.BulkPercent{Percent: *r.Percent}
	case "bulkAmount":
		if r.Amount == nil {
			return nil, pricing.ErrInvalidCampaign{Field: "amount", Reason: "required for bulkAmount mode"}
		}
		c.Mode = pricing.BulkAmount{Amount: *r.Amount}
	}

	for _, it := range r.Items {
		c.Items = append(c.Items, pricing.ItemOverride{
			ProductID:  it.ProductID,
			FixedPrice: it.FixedPrice,
			Percent:    it.Percent,
		})
	}

	if g := r.Geofence; g != nil {
		fence := &pricing.Geofence{RadiusM: g.RadiusM}
		if g.Center != nil {
			fence.Center = &geo.Point{Lat: g.Center.Lat, Lng: g.Center.Lng}
		}
		for _, pt := range g.Polygon {
			fence.Polygon = append(fence.Polygon, geo.Point{Lat: pt.Lat, Lng: pt.Lng})
		}
		c.Geofence = fence
	}

	return c, nil
}

// ListCampaigns returns all stored campaigns.
// GET /internal/campaigns
func ListCampaigns(c *gin.Context) {
	campaigns, err := campaignStore.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list campaigns"})
		return
	}

	views := make([]CampaignView, 0, len(campaigns))
	for _, cm := range campaigns {
		views = append(views, campaignView(cm))
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": views, "total": len(views)})
}

// CreateCampaign validates and stores a new campaign. Non-stackable
// campaigns are rejected when their products are already claimed by an
// overlapping active campaign.
// POST /internal/campaigns
func CreateCampaign(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := req.toCampaign(uuid.NewString())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validateAndCheckConflicts(c, campaign) {
		return
	}

	if err := campaignStore.Create(c.Request.Context(), campaign); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign"})
		return
	}
	c.JSON(http.StatusCreated, campaignView(campaign))
}

// UpdateCampaign validates and replaces an existing campaign.
// PUT /internal/campaigns/:id
func UpdateCampaign(c *gin.Context) {
	id := c.Param("id")

	existing, err := campaignStore.CampaignByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}

	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := req.toCampaign(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validateAndCheckConflicts(c, campaign) {
		return
	}

	if err := campaignStore.Update(c.Request.Context(), campaign); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update campaign"})
		return
	}
	c.JSON(http.StatusOK, campaignView(campaign))
}

// DeactivateCampaign soft-disables a campaign.
// DELETE /internal/campaigns/:id
func DeactivateCampaign(c *gin.Context) {
	id := c.Param("id")
	if err := campaignStore.Deactivate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// validateAndCheckConflicts runs write-time validation and the
// non-stackable conflict check, writing the error response itself.
// Returns false when the campaign was rejected.
func validateAndCheckConflicts(c *gin.Context, campaign *pricing.Campaign) bool {
	if err := pricing.ValidateCampaign(campaign); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	if err := pricing.CheckProductConflicts(c.Request.Context(), campaignStore, clock, campaign); err != nil {
		var conflict *pricing.ConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Campaign conflicts with existing campaigns",
				"conflicts": conflict.Conflicts,
			})
			return false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check conflicts"})
		return false
	}
	return true
}
