package pricing

import (
	"sort"
	"time"
)

// Relevance weights for cart-aware ranking. Internal only, never exposed.
const (
	relevanceItemMatch     = 10
	relevanceProductMatch  = 8
	relevanceCategoryMatch = 5
)

// RelevanceScore sums the cart-match score for a campaign: item-override
// matches weigh most, explicit product-id matches next, category matches
// least. Zero when the cart is empty.
func RelevanceScore(c *Campaign, cart []CartProduct) int {
	score := 0
	for _, cp := range cart {
		if _, ok := c.itemOverride(cp.ProductID); ok {
			score += relevanceItemMatch
			continue
		}
		if c.coversExplicitProduct(cp.ProductID) {
			score += relevanceProductMatch
			continue
		}
		if c.coversCategory(cp.CategoryID) {
			score += relevanceCategoryMatch
		}
	}
	return score
}

// SortForResolution orders campaigns for stacking resolution: priority
// descending, relevance descending (only meaningful when a cart was
// supplied), then start date ascending, then end date ascending. Unbounded
// dates sort before bounded ones. The input slice is sorted in place.
func SortForResolution(campaigns []*Campaign, cart []CartProduct) {
	scores := make(map[string]int, len(campaigns))
	if len(cart) > 0 {
		for _, c := range campaigns {
			scores[c.ID] = RelevanceScore(c, cart)
		}
	}

	sort.SliceStable(campaigns, func(i, j int) bool {
		a, b := campaigns[i], campaigns[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if sa, sb := scores[a.ID], scores[b.ID]; sa != sb {
			return sa > sb
		}
		if cmp := compareTimePtr(a.StartsAt, b.StartsAt); cmp != 0 {
			return cmp < 0
		}
		return compareTimePtr(a.EndsAt, b.EndsAt) < 0
	})
}

// compareTimePtr orders optional times ascending with nil (unbounded) first.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}

// claim records one campaign currently holding a product in the stacking
// resolver.
type claim struct {
	campaignID string
	priority   int
	stackable  bool
}

// ResolveStacking decides which of the pre-sorted campaigns are ultimately
// applied, honoring the stackable/non-stackable exclusivity rule:
//
//   - a stackable campaign is always accepted and appended to every covered
//     product's claim list;
//   - a non-stackable campaign is accepted only if no product it covers is
//     already claimed by a non-stackable campaign of equal or higher
//     priority; on acceptance it evicts all prior claims on its products.
//
// The output preserves the input order of the accepted campaigns. Product
// coverage is the campaign's directly named product ids; category-only
// coverage holds no per-product claims.
func ResolveStacking(sorted []*Campaign) []*Campaign {
	claims := make(map[string][]claim)
	accepted := make([]*Campaign, 0, len(sorted))

	for _, c := range sorted {
		covered := c.CoveredProductIDs()

		if c.Stackable {
			accepted = append(accepted, c)
			for _, pid := range covered {
				claims[pid] = append(claims[pid], claim{c.ID, c.Priority, true})
			}
			continue
		}

		blocked := false
		for _, pid := range covered {
			for _, cl := range claims[pid] {
				if !cl.stackable && cl.priority >= c.Priority {
					blocked = true
					break
				}
			}
			if blocked {
				break
			}
		}
		if blocked {
			continue
		}

		accepted = append(accepted, c)
		for _, pid := range covered {
			claims[pid] = []claim{{c.ID, c.Priority, false}}
		}
	}

	return accepted
}
