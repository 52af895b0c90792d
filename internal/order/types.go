package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PriceTolerance is the maximum allowed disagreement, in currency units,
// between a client-submitted amount and the server recomputation.
const PriceTolerance = 0.01

// ErrPriceMismatch rejects an order whose submitted totals disagree with
// the server-side recomputation. Deliberately generic: it does not reveal
// which side was wrong or by how much.
var ErrPriceMismatch = errors.New("order totals could not be verified")

// ErrEmptyOrder rejects an order with no line items.
var ErrEmptyOrder = errors.New("order has no items")

// ErrProductUnavailable rejects an order referencing a missing or inactive
// product. Write paths never silently skip.
type ErrProductUnavailable struct {
	ProductID string
}

func (e ErrProductUnavailable) Error() string {
	return "product unavailable: " + e.ProductID
}

// LineItem is a frozen snapshot of one ordered product at purchase time.
type LineItem struct {
	ProductID  string  `json:"productId"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	OfferPrice float64 `json:"offerPrice"`
	Quantity   int     `json:"quantity"`
	Subtotal   float64 `json:"subtotal"`
}

// Address is a shipping address, optionally persisted for reuse.
type Address struct {
	ID         uuid.UUID
	CustomerID string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	Save       bool
}

// Order is the persisted result of a successful checkout. Immutable after
// commit.
type Order struct {
	ID          uuid.UUID
	Number      string
	CustomerID  string
	Items       []LineItem
	Subtotal    float64
	ShippingFee float64
	Total       float64
	BranchID    string // empty when no branch could be assigned
	CreatedAt   time.Time
}

// SubmittedItem is a client-supplied cart line.
type SubmittedItem struct {
	ProductID string
	Quantity  int
}

// CreateInput is everything the client submits at checkout. The subtotal
// and total are cross-checked against the server recomputation, never
// trusted.
type CreateInput struct {
	CustomerID  string
	Items       []SubmittedItem
	Subtotal    float64
	ShippingFee float64
	Total       float64
	Address     Address

	// Optional location hints for pricing context and branch assignment.
	BranchID    string
	Coordinates *Coordinates
	ClientIP    string
}

// Coordinates is a device-supplied position.
type Coordinates struct {
	Lng float64
	Lat float64
}

// Tx is the transactional persistence surface for one order creation.
type Tx interface {
	// NextOrderNumber issues the next human-readable order number. Must be
	// atomic with respect to concurrent order creations.
	NextOrderNumber(ctx context.Context) (string, error)

	// InsertOrder persists the order and its line items.
	InsertOrder(ctx context.Context, o *Order) error

	// SaveAddress persists a reusable address.
	SaveAddress(ctx context.Context, a *Address) error
}

// UnitOfWork runs fn inside a single transaction. The transaction commits
// only when fn returns nil; any error rolls everything back, leaving no
// partial order or address state.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
