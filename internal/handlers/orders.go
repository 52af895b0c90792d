package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BhataDev/mtc-server/internal/order"
)

// OrderItemParam is one client-supplied cart line.
type OrderItemParam struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// AddressParam is the shipping address submitted at checkout.
type AddressParam struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Save       bool   `json:"save"`
}

// CreateOrderRequest represents the checkout request. Totals are
// re-validated server-side and never trusted.
type CreateOrderRequest struct {
	CustomerID  string            `json:"customerId" binding:"required"`
	Items       []OrderItemParam  `json:"items" binding:"required,min=1,max=200"`
	Subtotal    float64           `json:"subtotal" binding:"min=0"`
	ShippingFee float64           `json:"shippingFee" binding:"min=0"`
	Total       float64           `json:"total" binding:"min=0"`
	Address     AddressParam      `json:"address" binding:"required"`
	BranchID    string            `json:"branchId,omitempty"`
	Coordinates *CoordinatesParam `json:"coordinates,omitempty"`
}

// CreateOrderResponse represents a committed order.
type CreateOrderResponse struct {
	ID       string           `json:"id"`
	Number   string           `json:"number"`
	Items    []order.LineItem `json:"items"`
	Subtotal float64          `json:"subtotal"`
	Total    float64          `json:"total"`
	BranchID string           `json:"branchId,omitempty"`
}

// CreateOrder validates and persists a checkout.
// POST /api/v1/orders
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := order.CreateInput{
		CustomerID:  req.CustomerID,
		Subtotal:    req.Subtotal,
		ShippingFee: req.ShippingFee,
		Total:       req.Total,
		BranchID:    req.BranchID,
		ClientIP:    c.ClientIP(),
		Address: order.Address{
			CustomerID: req.CustomerID,
			Line1:      req.Address.Line1,
			Line2:      req.Address.Line2,
			City:       req.Address.City,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
			Save:       req.Address.Save,
		},
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, order.SubmittedItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if req.Coordinates != nil {
		in.Coordinates = &order.Coordinates{Lng: req.Coordinates.Lng, Lat: req.Coordinates.Lat}
	}

	o, err := orderService.Create(c.Request.Context(), in)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateOrderResponse{
		ID:       o.ID.String(),
		Number:   o.Number,
		Items:    o.Items,
		Subtotal: o.Subtotal,
		Total:    o.Total,
		BranchID: o.BranchID,
	})
}

// writeOrderError maps service errors to responses. The price-mismatch
// message stays generic so the response cannot be used to probe which
// side disagreed.
func writeOrderError(c *gin.Context, err error) {
	var unavailable order.ErrProductUnavailable
	switch {
	case errors.Is(err, order.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order has no items"})
	case errors.Is(err, order.ErrPriceMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "Order could not be verified"})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product unavailable", "productId": unavailable.ProductID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
	}
}
