package pricing

import "math"

// Round2 rounds a currency amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// candidatePrice computes the price a single campaign would charge for the
// product, in applicability precedence: item override, explicit product id,
// category membership. Bulk formulas only apply to the latter two. Returns
// false when the campaign does not apply to the product at all.
func candidatePrice(c *Campaign, p *Product) (float64, bool) {
	if ov, ok := c.itemOverride(p.ID); ok {
		if _, isPerItem := c.Mode.(PerItem); isPerItem {
			switch {
			case ov.FixedPrice != nil:
				return Round2(*ov.FixedPrice), true
			case ov.Percent != nil:
				return Round2(p.Price * (1 - *ov.Percent/100)), true
			default:
				// Override entry with no pricing data grants no discount.
				return p.Price, true
			}
		}
		// Item listed under a bulk campaign is treated as explicit coverage.
		return bulkPrice(c.Mode, p.Price)
	}

	if c.coversExplicitProduct(p.ID) {
		return bulkPrice(c.Mode, p.Price)
	}

	if c.coversCategory(p.CategoryID) {
		return bulkPrice(c.Mode, p.Price)
	}

	return 0, false
}

func bulkPrice(mode PricingMode, price float64) (float64, bool) {
	switch m := mode.(type) {
	case BulkPercent:
		return Round2(price * (1 - m.Percent/100)), true
	case BulkAmount:
		return Round2(math.Max(0, price-m.Amount)), true
	default:
		// PerItem coverage without an override entry grants nothing.
		return 0, false
	}
}

// PriceFor computes the effective price of a product under a set of already
// filtered, active campaigns. Every applicable campaign is evaluated; the
// lowest resulting price wins, and each campaign that improves on the
// running best is recorded as a contributor. This runs independently of
// stacking resolution: stacking governs which campaigns are listed as
// applied by the resolution endpoint, while the charged price is always the
// minimum achievable price.
func PriceFor(p *Product, campaigns []*Campaign) PricedProduct {
	out := PricedProduct{
		ProductID:      p.ID,
		OriginalPrice:  Round2(p.Price),
		EffectivePrice: Round2(p.Price),
	}

	best := out.OriginalPrice
	for _, c := range campaigns {
		price, ok := candidatePrice(c, p)
		if !ok {
			continue
		}
		if price >= best {
			continue
		}
		best = price
		out.Applied = append(out.Applied, AppliedCampaign{
			CampaignID:      c.ID,
			Title:           c.Title,
			Price:           price,
			DiscountAmount:  Round2(out.OriginalPrice - price),
			DiscountPercent: discountPercent(out.OriginalPrice, price),
		})
	}

	if best < out.OriginalPrice {
		out.EffectivePrice = best
		out.HasOffer = true
		out.DiscountAmount = Round2(out.OriginalPrice - best)
		out.DiscountPercent = discountPercent(out.OriginalPrice, best)
	}
	return out
}

func discountPercent(original, price float64) float64 {
	if original <= 0 {
		return 0
	}
	return Round2((original - price) / original * 100)
}
