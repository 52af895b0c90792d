package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BhataDev/mtc-server/internal/pricing"
)

// CartItem is one cart line submitted for relevance ranking.
type CartItem struct {
	ProductID  string `json:"productId" binding:"required"`
	CategoryID string `json:"categoryId"`
	Quantity   int    `json:"quantity" binding:"min=1"`
}

// ResolveOffersRequest represents the offer resolution request
type ResolveOffersRequest struct {
	LocationParams
	Cart []CartItem `json:"cart,omitempty" binding:"max=200"`
}

// OfferView is the client-facing shape of one resolved campaign.
type OfferView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Mode      string     `json:"mode"`
	Priority  int        `json:"priority"`
	Stackable bool       `json:"stackable"`
	StartsAt  *time.Time `json:"startsAt,omitempty"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
}

// ResolveOffersResponse represents the offer resolution response
type ResolveOffersResponse struct {
	Offers []OfferView             `json:"offers"`
	Meta   pricing.ResolveMetadata `json:"meta"`
}

// ResolveOffers returns the campaigns applicable to the caller's location,
// ranked and filtered for stacking.
// POST /api/v1/offers/resolve
func ResolveOffers(c *gin.Context) {
	var req ResolveOffersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := locationContext(c, req.LocationParams)

	cart := make([]pricing.CartProduct, 0, len(req.Cart))
	for _, it := range req.Cart {
		cart = append(cart, pricing.CartProduct{
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			Quantity:   it.Quantity,
		})
	}

	resolved, err := pricingService.ResolveOffers(c.Request.Context(), loc, cart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve offers"})
		return
	}

	offers := make([]OfferView, 0, len(resolved.Offers))
	for _, o := range resolved.Offers {
		offers = append(offers, OfferView{
			ID:        o.ID,
			Title:     o.Title,
			Mode:      o.Mode.ModeName(),
			Priority:  o.Priority,
			Stackable: o.Stackable,
			StartsAt:  o.StartsAt,
			EndsAt:    o.EndsAt,
		})
	}

	c.JSON(http.StatusOK, ResolveOffersResponse{Offers: offers, Meta: resolved.Meta})
}
