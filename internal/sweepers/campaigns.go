// Package sweepers contains periodic background maintenance jobs.
package sweepers

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// CampaignSweeper periodically flags expired campaigns inactive. The read
// path filters by time window on every request, so this is housekeeping
// for listings and reporting, not a correctness requirement.
type CampaignSweeper struct {
	pool     *pgxpool.Pool
	logger   *zerolog.Logger
	interval time.Duration
	stopChan chan struct{}
}

// NewCampaignSweeper creates a sweeper for campaign expiry maintenance
func NewCampaignSweeper(pool *pgxpool.Pool, logger *zerolog.Logger, interval time.Duration) *CampaignSweeper {
	return &CampaignSweeper{
		pool:     pool,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic expiry sweep
func (s *CampaignSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting campaign sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Campaign sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Campaign sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.DeactivateExpired(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to deactivate expired campaigns")
			}
		}
	}
}

// Stop signals the sweeper to stop
func (s *CampaignSweeper) Stop() {
	close(s.stopChan)
}

// DeactivateExpired flags active campaigns whose window has passed
func (s *CampaignSweeper) DeactivateExpired(ctx context.Context) error {
	s.logger.Debug().Msg("Running campaign expiry sweep")

	tag, err := s.pool.Exec(ctx, `
		UPDATE campaigns
		SET active = false
		WHERE active AND ends_at IS NOT NULL AND ends_at < NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to deactivate expired campaigns: %w", err)
	}

	if n := tag.RowsAffected(); n > 0 {
		s.logger.Info().Int64("count", n).Msg("Deactivated expired campaigns")
	}

	return nil
}
