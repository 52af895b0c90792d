package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PriceProductsRequest represents the effective-price request
type PriceProductsRequest struct {
	LocationParams
	ProductIDs []string `json:"productIds" binding:"required,min=1,max=500"`
}

// PriceProducts returns the effective price for each requested product
// under the caller's location context.
// POST /api/v1/products/price
func PriceProducts(c *gin.Context) {
	var req PriceProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := locationContext(c, req.LocationParams)

	priced, err := pricingService.PriceProducts(c.Request.Context(), req.ProductIDs, loc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to price products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": priced})
}
