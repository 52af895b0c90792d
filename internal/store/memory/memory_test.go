package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BhataDev/mtc-server/internal/branch"
	"github.com/BhataDev/mtc-server/internal/pricing"
)

func tptr(t time.Time) *time.Time { return &t }

func TestActiveCampaignsFiltersByWindow(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	s.PutCampaign(&pricing.Campaign{
		ID: "live", Active: true, Mode: pricing.BulkPercent{Percent: 10},
		StartsAt: tptr(now.Add(-time.Hour)), EndsAt: tptr(now.Add(time.Hour)),
	})
	s.PutCampaign(&pricing.Campaign{
		ID: "expired", Active: true, Mode: pricing.BulkPercent{Percent: 10},
		EndsAt: tptr(now.Add(-time.Minute)),
	})
	s.PutCampaign(&pricing.Campaign{
		ID: "disabled", Active: false, Mode: pricing.BulkPercent{Percent: 10},
	})

	active, err := s.ActiveCampaigns(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "live", active[0].ID)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	s := NewStore()
	c := &pricing.Campaign{ID: "c1", Active: true, Mode: pricing.PerItem{}}

	require.NoError(t, s.Create(context.Background(), c))
	assert.Error(t, s.Create(context.Background(), c))
}

func TestDeactivateDoesNotMutateCaller(t *testing.T) {
	s := NewStore()
	c := &pricing.Campaign{ID: "c1", Active: true, Mode: pricing.PerItem{}}
	s.PutCampaign(c)

	require.NoError(t, s.Deactivate(context.Background(), "c1"))

	stored, err := s.CampaignByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.True(t, c.Active)
}

func TestListOrdersByPriority(t *testing.T) {
	s := NewStore()
	s.PutCampaign(&pricing.Campaign{ID: "b", Priority: 1, Mode: pricing.PerItem{}})
	s.PutCampaign(&pricing.Campaign{ID: "a", Priority: 9, Mode: pricing.PerItem{}})

	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
}

func TestNearestBranchScan(t *testing.T) {
	s := NewStore()
	s.PutBranch(&branch.Branch{ID: "zagreb", Active: true, Lat: 45.815, Lng: 15.9819})
	s.PutBranch(&branch.Branch{ID: "split", Active: true, Lat: 43.5081, Lng: 16.4402})
	s.PutBranch(&branch.Branch{ID: "closed", Active: false, Lat: 45.8, Lng: 15.97})

	b, err := s.NearestBranch(context.Background(), 15.97, 45.8, 50)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "zagreb", b.ID)

	none, err := s.NearestBranch(context.Background(), -30, 0, 50)
	require.NoError(t, err)
	assert.Nil(t, none)
}
