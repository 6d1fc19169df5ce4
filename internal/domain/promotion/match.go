package promotion

import (
	"sort"
	"time"

	"github.com/shopkart/promo-engine/internal/domain/cart"
)

// MatchProduct returns the promotion that applies to a single
// (product, variant) pair, for on-page badges. Candidates are filtered in
// order: validity window, usage ceiling, exclusion list, then variant-level
// targeting when declared (an exact pair match, bypassing product targeting),
// then the product allow-list, then specific-product conditions. A promotion
// with no targeting and no specific-product condition is cart-level only and
// never matches here.
//
// Among all matches the highest priority wins; ties keep the first-declared
// promotion so the result is deterministic.
func MatchProduct(productID, variantID string, now time.Time, promos []Promotion) *Promotion {
	var best *Promotion
	for i := range promos {
		p := &promos[i]
		if !p.ActiveAt(now) || p.Exhausted() {
			continue
		}
		if p.Targeting.Excludes(productID) {
			continue
		}
		if !matchesProductLevel(p, productID, variantID) {
			continue
		}
		if best == nil || p.Priority > best.Priority {
			best = p
		}
	}
	return best
}

func matchesProductLevel(p *Promotion, productID, variantID string) bool {
	// Variant targeting takes precedence: it requires an exact pair match
	// and bypasses the product allow-list entirely.
	if len(p.Targeting.Variants) > 0 {
		return p.Targeting.MatchesVariant(productID, variantID)
	}
	if len(p.Targeting.Products) > 0 {
		for _, id := range p.Targeting.Products {
			if id == productID {
				return true
			}
		}
		return false
	}
	for _, c := range p.Conditions {
		if c.MatchesProduct(productID) {
			return true
		}
	}
	return false
}

// MatchCart returns the promotions whose conditions are all satisfied by the
// cart, ordered by priority descending (stable within equal priorities).
// Non-stackable matches covering overlapping line items are pruned, keeping
// only the highest-priority one per overlapping group.
func MatchCart(items []cart.Item, customerTags []string, now time.Time, promos []Promotion) ([]Promotion, error) {
	var matches []Promotion
	for _, p := range promos {
		if !p.ActiveAt(now) || p.Exhausted() {
			continue
		}
		covered := coverage(p.Targeting, items)
		if len(covered) == 0 {
			continue
		}
		ok, err := conditionsMet(p, pick(items, covered), customerTags)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, p)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority > matches[j].Priority
	})

	return pruneNonStackable(matches, items), nil
}

// conditionsMet reports whether every condition holds. A promotion with no
// conditions matches as long as it covers at least one line item.
func conditionsMet(p Promotion, covered []cart.Item, customerTags []string) (bool, error) {
	for _, c := range p.Conditions {
		ok, err := c.Met(covered, customerTags)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// pruneNonStackable drops non-stackable matches whose line coverage overlaps
// a higher-priority non-stackable match. Stackable promotions are never
// pruned. The input must be sorted by priority descending.
func pruneNonStackable(matches []Promotion, items []cart.Item) []Promotion {
	claimed := make(map[int]bool)
	kept := matches[:0]
	for _, p := range matches {
		if p.Stackable {
			kept = append(kept, p)
			continue
		}
		idx := coverage(p.Targeting, items)
		overlap := false
		for _, i := range idx {
			if claimed[i] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, i := range idx {
			claimed[i] = true
		}
		kept = append(kept, p)
	}
	return kept
}

// coverage returns the indexes of the cart items the targeting admits.
func coverage(t Targeting, items []cart.Item) []int {
	var idx []int
	for i, item := range items {
		if t.Covers(item) {
			idx = append(idx, i)
		}
	}
	return idx
}

// CoveredItems returns the subset of items the targeting admits, preserving
// cart order.
func CoveredItems(t Targeting, items []cart.Item) []cart.Item {
	covered := make([]cart.Item, 0, len(items))
	for _, item := range items {
		if t.Covers(item) {
			covered = append(covered, item)
		}
	}
	return covered
}

func pick(items []cart.Item, idx []int) []cart.Item {
	out := make([]cart.Item, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
