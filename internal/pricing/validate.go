package pricing

import "context"

// ValidateCampaign enforces write-time invariants on a campaign. Malformed
// pricing mode combinations are rejected here; the tagged mode type already
// prevents cross-mode value mixing.
func ValidateCampaign(c *Campaign) error {
	if c.Title == "" {
		return ErrInvalidCampaign{Field: "title", Reason: "cannot be empty"}
	}

	switch m := c.Mode.(type) {
	case PerItem:
		if len(c.Items) == 0 {
			return ErrInvalidCampaign{Field: "items", Reason: "perItem campaign requires at least one item override"}
		}
		for _, it := range c.Items {
			if it.ProductID == "" {
				return ErrInvalidCampaign{Field: "items", Reason: "item override requires a product id"}
			}
			if it.Percent != nil && (*it.Percent <= 0 || *it.Percent > 100) {
				return ErrInvalidCampaign{Field: "items", Reason: "item percent must be in (0, 100]"}
			}
			if it.FixedPrice != nil && *it.FixedPrice < 0 {
				return ErrInvalidCampaign{Field: "items", Reason: "item fixed price cannot be negative"}
			}
		}
	case BulkPercent:
		if m.Percent <= 0 || m.Percent > 100 {
			return ErrInvalidCampaign{Field: "percent", Reason: "bulkPercent campaign requires a percent in (0, 100]"}
		}
		if len(c.ProductIDs) == 0 && len(c.CategoryIDs) == 0 && len(c.Items) == 0 {
			return ErrInvalidCampaign{Field: "coverage", Reason: "bulk campaign requires product or category coverage"}
		}
	case BulkAmount:
		if m.Amount <= 0 {
			return ErrInvalidCampaign{Field: "amount", Reason: "bulkAmount campaign requires a positive amount"}
		}
		if len(c.ProductIDs) == 0 && len(c.CategoryIDs) == 0 && len(c.Items) == 0 {
			return ErrInvalidCampaign{Field: "coverage", Reason: "bulk campaign requires product or category coverage"}
		}
	case nil:
		return ErrInvalidCampaign{Field: "mode", Reason: "pricing mode is required"}
	default:
		return ErrInvalidCampaign{Field: "mode", Reason: "unknown pricing mode " + c.Mode.ModeName()}
	}

	if c.StartsAt != nil && c.EndsAt != nil && c.StartsAt.After(*c.EndsAt) {
		return ErrInvalidCampaign{Field: "startsAt", Reason: "start must not be after end"}
	}

	if g := c.Geofence; g != nil {
		if g.Center != nil && len(g.Polygon) > 0 {
			return ErrInvalidCampaign{Field: "geofence", Reason: "geofence must be a circle or a polygon, not both"}
		}
		if g.Center != nil && g.RadiusM <= 0 {
			return ErrInvalidCampaign{Field: "geofence", Reason: "circular geofence requires a positive radius"}
		}
		if g.Center == nil && len(g.Polygon) < 3 {
			return ErrInvalidCampaign{Field: "geofence", Reason: "polygon geofence requires at least three vertices"}
		}
	}

	return nil
}

// branchScopesOverlap reports whether two campaigns contest the same branch
// scope. A campaign with no branch restriction is global and overlaps with
// everything, including other global campaigns.
func branchScopesOverlap(a, b *Campaign) bool {
	aBranches := branchSet(a)
	bBranches := branchSet(b)
	if len(aBranches) == 0 || len(bBranches) == 0 {
		return true
	}
	for id := range aBranches {
		if _, ok := bBranches[id]; ok {
			return true
		}
	}
	return false
}

func branchSet(c *Campaign) map[string]struct{} {
	set := make(map[string]struct{}, len(c.BranchIDs)+1)
	for _, id := range c.BranchIDs {
		set[id] = struct{}{}
	}
	if c.LegacyBranch != "" {
		set[c.LegacyBranch] = struct{}{}
	}
	return set
}

// CheckProductConflicts rejects a candidate campaign whose directly covered
// products are already claimed by another active non-stackable campaign in
// an overlapping branch scope. Stackable candidates never conflict, and
// stackable existing campaigns never block. The returned ConflictError
// names each conflicting campaign and the specific overlapping products.
func CheckProductConflicts(ctx context.Context, source CampaignSource, clock Clock, candidate *Campaign) error {
	if candidate.Stackable {
		return nil
	}

	existing, err := source.ActiveCampaigns(ctx, clock.Now())
	if err != nil {
		return err
	}

	covered := make(map[string]struct{})
	for _, id := range candidate.CoveredProductIDs() {
		covered[id] = struct{}{}
	}

	var conflicts []ProductConflict
	for _, other := range existing {
		if other.ID == candidate.ID || other.Stackable {
			continue
		}
		if !branchScopesOverlap(candidate, other) {
			continue
		}
		var overlap []string
		for _, pid := range other.CoveredProductIDs() {
			if _, ok := covered[pid]; ok {
				overlap = append(overlap, pid)
			}
		}
		if len(overlap) > 0 {
			conflicts = append(conflicts, ProductConflict{
				CampaignID: other.ID,
				Title:      other.Title,
				ProductIDs: overlap,
			})
		}
	}

	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}
