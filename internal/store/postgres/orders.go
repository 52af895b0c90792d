package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/order"
)

// OrderStore implements order.UnitOfWork over pgx transactions.
type OrderStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderStore creates a postgres-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{
		pool:   pool,
		logger: log.With().Str("store", "orders").Logger(),
	}
}

// WithinTx runs fn inside a single transaction. Rollback on any error,
// commit only when fn returns nil.
func (s *OrderStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order transaction: %w", err)
	}
	return nil
}

type orderTx struct {
	tx pgx.Tx
}

// NextOrderNumber issues the next order number from a dedicated sequence,
// so concurrent checkouts never collide.
func (t *orderTx) NextOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("fetching order number: %w", err)
	}
	return fmt.Sprintf("ORD-%06d", seq), nil
}

// InsertOrder persists the order header and its line items in one batch.
func (t *orderTx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, number, customer_id, subtotal, shipping_fee, total, branch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`, o.ID, o.Number, o.CustomerID, o.Subtotal, o.ShippingFee, o.Total, o.BranchID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting order %s: %w", o.Number, err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, title, price, offer_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, o.ID, it.ProductID, it.Title, it.Price, it.OfferPrice, it.Quantity, it.Subtotal)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting order items for %s: %w", o.Number, err)
		}
	}
	return nil
}

// SaveAddress persists a reusable shipping address.
func (t *orderTx) SaveAddress(ctx context.Context, a *order.Address) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO addresses (id, customer_id, line1, line2, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.CustomerID, a.Line1, a.Line2, a.City, a.PostalCode, a.Country)
	if err != nil {
		return fmt.Errorf("saving address: %w", err)
	}
	return nil
}
