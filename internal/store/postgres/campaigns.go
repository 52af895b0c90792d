// Package postgres implements the store ports over a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BhataDev/mtc-server/internal/geo"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

// CampaignStore implements pricing.CampaignSource plus the write surface
// used by the admin endpoints and CLI.
type CampaignStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCampaignStore creates a postgres-backed campaign store.
func NewCampaignStore(pool *pgxpool.Pool) *CampaignStore {
	return &CampaignStore{
		pool:   pool,
		logger: log.With().Str("store", "campaigns").Logger(),
	}
}

const campaignColumns = `
	id, title, created_by, creator_role, starts_at, ends_at, active,
	mode, percent, amount, items, product_ids, category_ids,
	branch_ids, cities, geofence, legacy_branch, priority, stackable`

// ActiveCampaigns returns campaigns whose active flag is set and whose
// time window contains now. Spatial admission is left to the targeting
// filter.
func (s *CampaignStore) ActiveCampaigns(ctx context.Context, now time.Time) ([]*pricing.Campaign, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE active
		  AND (starts_at IS NULL OR starts_at <= $1)
		  AND (ends_at IS NULL OR ends_at >= $1)
		ORDER BY priority DESC, id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("querying active campaigns: %w", err)
	}
	defer rows.Close()

	var out []*pricing.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to scan campaign row")
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CampaignByID returns the campaign, or nil when missing.
func (s *CampaignStore) CampaignByID(ctx context.Context, id string) (*pricing.Campaign, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying campaign: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanCampaign(rows)
}

// Create persists a new campaign.
func (s *CampaignStore) Create(ctx context.Context, c *pricing.Campaign) error {
	cols, err := encodeCampaign(c)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, cols...)
	if err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}
	s.logger.Info().Str("campaign", c.ID).Str("title", c.Title).Msg("campaign created")
	return nil
}

// Update replaces an existing campaign.
func (s *CampaignStore) Update(ctx context.Context, c *pricing.Campaign) error {
	cols, err := encodeCampaign(c)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE campaigns SET
			title = $2, created_by = $3, creator_role = $4, starts_at = $5,
			ends_at = $6, active = $7, mode = $8, percent = $9, amount = $10,
			items = $11, product_ids = $12, category_ids = $13, branch_ids = $14,
			cities = $15, geofence = $16, legacy_branch = $17, priority = $18,
			stackable = $19
		WHERE id = $1
	`, cols...)
	if err != nil {
		return fmt.Errorf("updating campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s not found", c.ID)
	}
	return nil
}

// Deactivate soft-disables a campaign. Campaigns are never hard-deleted in
// normal flows.
func (s *CampaignStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE campaigns SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s not found", id)
	}
	return nil
}

// List returns all campaigns, newest priority first. Used by the CLI.
func (s *CampaignStore) List(ctx context.Context) ([]*pricing.Campaign, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY priority DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var out []*pricing.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// itemOverrideRow is the jsonb shape of one per-item override.
type itemOverrideRow struct {
	ProductID  string   `json:"productId"`
	FixedPrice *float64 `json:"fixedPrice,omitempty"`
	Percent    *float64 `json:"percent,omitempty"`
}

// geofenceRow is the jsonb shape of a geofence. Type is "circle" or
// "polygon"; coordinates are [lng, lat] pairs.
type geofenceRow struct {
	Type        string       `json:"type"`
	Center      *[2]float64  `json:"center,omitempty"`
	RadiusM     float64      `json:"radiusM,omitempty"`
	Coordinates [][2]float64 `json:"coordinates,omitempty"`
}

func scanCampaign(rows pgx.Rows) (*pricing.Campaign, error) {
	var (
		c               pricing.Campaign
		mode            string
		percent, amount *float64
		itemsJSON       []byte
		geofenceJSON    []byte
	)
	err := rows.Scan(
		&c.ID, &c.Title, &c.CreatedBy, &c.CreatorRole, &c.StartsAt, &c.EndsAt, &c.Active,
		&mode, &percent, &amount, &itemsJSON, &c.ProductIDs, &c.CategoryIDs,
		&c.BranchIDs, &c.Cities, &geofenceJSON, &c.LegacyBranch, &c.Priority, &c.Stackable,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning campaign: %w", err)
	}

	switch mode {
	case "perItem":
		c.Mode = pricing.PerItem{}
	case "bulkPercent":
		if percent == nil {
			return nil, fmt.Errorf("campaign %s: bulkPercent row without percent", c.ID)
		}
		c.Mode = pricing.BulkPercent{Percent: *percent}
	case "bulkAmount":
		if amount == nil {
			return nil, fmt.Errorf("campaign %s: bulkAmount row without amount", c.ID)
		}
		c.Mode = pricing.BulkAmount{Amount: *amount}
	default:
		return nil, fmt.Errorf("campaign %s: unknown pricing mode %q", c.ID, mode)
	}

	if len(itemsJSON) > 0 {
		var items []itemOverrideRow
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			return nil, fmt.Errorf("campaign %s: decoding items: %w", c.ID, err)
		}
		for _, it := range items {
			c.Items = append(c.Items, pricing.ItemOverride{
				ProductID:  it.ProductID,
				FixedPrice: it.FixedPrice,
				Percent:    it.Percent,
			})
		}
	}

	if len(geofenceJSON) > 0 {
		var g geofenceRow
		if err := json.Unmarshal(geofenceJSON, &g); err != nil {
			return nil, fmt.Errorf("campaign %s: decoding geofence: %w", c.ID, err)
		}
		switch g.Type {
		case "circle":
			if g.Center != nil {
				c.Geofence = &pricing.Geofence{
					Center:  &geo.Point{Lng: g.Center[0], Lat: g.Center[1]},
					RadiusM: g.RadiusM,
				}
			}
		case "polygon":
			fence := &pricing.Geofence{}
			for _, pt := range g.Coordinates {
				fence.Polygon = append(fence.Polygon, geo.Point{Lng: pt[0], Lat: pt[1]})
			}
			c.Geofence = fence
		}
	}

	return &c, nil
}

// encodeCampaign flattens a campaign into the positional column values
// shared by Create and Update.
func encodeCampaign(c *pricing.Campaign) ([]any, error) {
	var (
		mode            string
		percent, amount *float64
	)
	switch m := c.Mode.(type) {
	case pricing.PerItem:
		mode = "perItem"
	case pricing.BulkPercent:
		mode = "bulkPercent"
		percent = &m.Percent
	case pricing.BulkAmount:
		mode = "bulkAmount"
		amount = &m.Amount
	default:
		return nil, fmt.Errorf("campaign %s: unsupported pricing mode", c.ID)
	}

	var itemsJSON []byte
	if len(c.Items) > 0 {
		items := make([]itemOverrideRow, len(c.Items))
		for i, it := range c.Items {
			items[i] = itemOverrideRow{ProductID: it.ProductID, FixedPrice: it.FixedPrice, Percent: it.Percent}
		}
		var err error
		itemsJSON, err = json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encoding items: %w", err)
		}
	}

	var geofenceJSON []byte
	if g := c.Geofence; g != nil {
		row := geofenceRow{}
		if g.Center != nil {
			row.Type = "circle"
			row.Center = &[2]float64{g.Center.Lng, g.Center.Lat}
			row.RadiusM = g.RadiusM
		} else {
			row.Type = "polygon"
			for _, pt := range g.Polygon {
				row.Coordinates = append(row.Coordinates, [2]float64{pt.Lng, pt.Lat})
			}
		}
		var err error
		geofenceJSON, err = json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encoding geofence: %w", err)
		}
	}

	return []any{
		c.ID, c.Title, c.CreatedBy, c.CreatorRole, c.StartsAt, c.EndsAt, c.Active,
		mode, percent, amount, itemsJSON, c.ProductIDs, c.CategoryIDs,
		c.BranchIDs, c.Cities, geofenceJSON, c.LegacyBranch, c.Priority, c.Stackable,
	}, nil
}
