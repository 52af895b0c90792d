package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func testProduct(id string, price float64) *Product {
	return &Product{ID: id, Title: "Product " + id, Price: price, CategoryID: "cat-1", Active: true}
}

// TestPriceForNoCampaigns verifies that an uncovered product keeps its
// original price.
func TestPriceForNoCampaigns(t *testing.T) {
	p := testProduct("p1", 19.99)

	priced := PriceFor(p, nil)

	assert.Equal(t, 19.99, priced.OriginalPrice)
	assert.Equal(t, 19.99, priced.EffectivePrice)
	assert.False(t, priced.HasOffer)
	assert.Empty(t, priced.Applied)
}

// TestPriceForSingleCampaign verifies each pricing mode formula.
func TestPriceForSingleCampaign(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		campaign *Campaign
		want     float64
	}{
		{
			name:  "bulk percent",
			price: 20,
			campaign: &Campaign{
				ID: "c1", Title: "Ten percent", Active: true,
				Mode:       BulkPercent{Percent: 10},
				ProductIDs: []string{"p1"},
			},
			want: 18,
		},
		{
			name:  "bulk amount",
			price: 20,
			campaign: &Campaign{
				ID: "c2", Title: "Two off", Active: true,
				Mode:       BulkAmount{Amount: 2},
				ProductIDs: []string{"p1"},
			},
			want: 18,
		},
		{
			name:  "bulk amount floors at zero",
			price: 5,
			campaign: &Campaign{
				ID: "c3", Title: "Big flat", Active: true,
				Mode:       BulkAmount{Amount: 10},
				ProductIDs: []string{"p1"},
			},
			want: 0,
		},
		{
			name:  "per item fixed price",
			price: 20,
			campaign: &Campaign{
				ID: "c4", Title: "Fixed five", Active: true,
				Mode:  PerItem{},
				Items: []ItemOverride{{ProductID: "p1", FixedPrice: fptr(5)}},
			},
			want: 5,
		},
		{
			name:  "per item percent",
			price: 20,
			campaign: &Campaign{
				ID: "c5", Title: "Quarter off", Active: true,
				Mode:  PerItem{},
				Items: []ItemOverride{{ProductID: "p1", Percent: fptr(25)}},
			},
			want: 15,
		},
		{
			name:  "bulk percent via category",
			price: 20,
			campaign: &Campaign{
				ID: "c6", Title: "Category sale", Active: true,
				Mode:        BulkPercent{Percent: 50},
				CategoryIDs: []string{"cat-1"},
			},
			want: 10,
		},
		{
			name:  "rounding to two decimals",
			price: 9.99,
			campaign: &Campaign{
				ID: "c7", Title: "Third off", Active: true,
				Mode:       BulkPercent{Percent: 33},
				ProductIDs: []string{"p1"},
			},
			want: 6.69, // 9.99 * 0.67 = 6.6933
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProduct("p1", tt.price)
			priced := PriceFor(p, []*Campaign{tt.campaign})

			assert.Equal(t, tt.want, priced.EffectivePrice)
			if tt.want < tt.price {
				assert.True(t, priced.HasOffer)
				assert.Len(t, priced.Applied, 1)
				assert.Equal(t, tt.campaign.ID, priced.Applied[0].CampaignID)
			}
		})
	}
}

// TestPriceForLowestWins verifies that among several applicable campaigns
// the lowest candidate price becomes the effective price.
func TestPriceForLowestWins(t *testing.T) {
	p := testProduct("p1", 20)

	campaigns := []*Campaign{
		{ID: "a", Title: "A", Active: true, Mode: BulkAmount{Amount: 1}, ProductIDs: []string{"p1"}},   // 19
		{ID: "b", Title: "B", Active: true, Mode: BulkPercent{Percent: 30}, ProductIDs: []string{"p1"}}, // 14
		{ID: "c", Title: "C", Active: true, Mode: BulkAmount{Amount: 3}, ProductIDs: []string{"p1"}},    // 17
	}

	priced := PriceFor(p, campaigns)

	assert.Equal(t, 14.0, priced.EffectivePrice)
	assert.Equal(t, 6.0, priced.DiscountAmount)
	assert.Equal(t, 30.0, priced.DiscountPercent)
	// a improves on 20, b improves on 19; c does not improve on 14.
	assert.Len(t, priced.Applied, 2)
	assert.Equal(t, "a", priced.Applied[0].CampaignID)
	assert.Equal(t, "b", priced.Applied[1].CampaignID)
}

// TestPriceForPriorityOrderedInput reproduces the branch scenario: a global
// 10% bulk campaign at priority 0 and a per-item fixed $5 campaign at
// priority 5 both cover a $20 product. With priority-ordered input only the
// per-item campaign is recorded.
func TestPriceForPriorityOrderedInput(t *testing.T) {
	p := testProduct("p1", 20)

	a := &Campaign{
		ID: "a", Title: "Global ten percent", Active: true, Priority: 0,
		Mode: BulkPercent{Percent: 10}, ProductIDs: []string{"p1"},
	}
	b := &Campaign{
		ID: "b", Title: "Branch fixed five", Active: true, Priority: 5,
		BranchIDs: []string{"branch-x"},
		Mode:      PerItem{},
		Items:     []ItemOverride{{ProductID: "p1", FixedPrice: fptr(5)}},
	}

	campaigns := []*Campaign{a, b}
	SortForResolution(campaigns, nil)
	priced := PriceFor(p, campaigns)

	assert.Equal(t, 5.0, priced.EffectivePrice)
	assert.Len(t, priced.Applied, 1)
	assert.Equal(t, "b", priced.Applied[0].CampaignID)
}

// TestPriceForStackableSingleBestDiscount verifies the split between the
// stacking listing and the charged price: two stackable flat discounts are
// both accepted by the resolver but the effective price takes the single
// best discount, not the sum.
func TestPriceForStackableSingleBestDiscount(t *testing.T) {
	p := testProduct("p1", 20)

	a := &Campaign{ID: "a", Title: "A", Active: true, Stackable: true, Mode: BulkAmount{Amount: 2}, ProductIDs: []string{"p1"}}
	b := &Campaign{ID: "b", Title: "B", Active: true, Stackable: true, Mode: BulkAmount{Amount: 2}, ProductIDs: []string{"p1"}}

	accepted := ResolveStacking([]*Campaign{a, b})
	assert.Len(t, accepted, 2)

	priced := PriceFor(p, []*Campaign{a, b})
	assert.Equal(t, 18.0, priced.EffectivePrice)
}

// TestPriceForItemOverrideWithoutPricingData verifies that an override
// entry with neither fixed price nor percent grants no discount.
func TestPriceForItemOverrideWithoutPricingData(t *testing.T) {
	p := testProduct("p1", 20)

	c := &Campaign{
		ID: "c", Title: "Empty override", Active: true,
		Mode:  PerItem{},
		Items: []ItemOverride{{ProductID: "p1"}},
	}

	priced := PriceFor(p, []*Campaign{c})

	assert.Equal(t, 20.0, priced.EffectivePrice)
	assert.False(t, priced.HasOffer)
	assert.Empty(t, priced.Applied)
}

// TestPriceForPerItemCoverageOnlyViaOverrides verifies that explicit and
// category coverage grant nothing under perItem mode.
func TestPriceForPerItemCoverageOnlyViaOverrides(t *testing.T) {
	p := testProduct("p1", 20)

	c := &Campaign{
		ID: "c", Title: "Per item elsewhere", Active: true,
		Mode:        PerItem{},
		Items:       []ItemOverride{{ProductID: "other", FixedPrice: fptr(1)}},
		ProductIDs:  []string{"p1"},
		CategoryIDs: []string{"cat-1"},
	}

	priced := PriceFor(p, []*Campaign{c})

	assert.Equal(t, 20.0, priced.EffectivePrice)
	assert.False(t, priced.HasOffer)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 6.69, Round2(6.6933))
	assert.Equal(t, 6.7, Round2(6.696))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 10.0, Round2(10.0001))
}
