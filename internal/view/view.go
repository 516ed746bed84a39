// Package view builds deterministic, renderable warrant lists from a
// fetched collection: a fixed conjunction of inclusion predicates and
// a single-key sort with direction toggle.
package view

import (
	"sort"

	"warrant-sniper/internal/models"
)

// Mode selects which collection a view is built from.
type Mode int

const (
	// ModeMarket shows filtered search results for the active tab.
	ModeMarket Mode = iota
	// ModeFavorites shows the favorites collection, unfiltered.
	ModeFavorites
)

// SortKey is a sortable warrant attribute.
type SortKey string

const (
	SortByVolume   SortKey = "volume"
	SortByLeverage SortKey = "effectiveLeverage"
	SortByTheta    SortKey = "thetaPercent"
	SortByDays     SortKey = "daysToMaturity"

	// legacyThetaKey is the field name older payload versions used.
	legacyThetaKey SortKey = "dailyThetaCostPercent"
)

// Direction is a sort direction.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// SortSpec is a single-key sort with direction.
type SortSpec struct {
	Key       SortKey
	Direction Direction
}

// DefaultSortSpec sorts by volume, heaviest first.
func DefaultSortSpec() SortSpec {
	return SortSpec{Key: SortByVolume, Direction: Descending}
}

// Toggle returns the spec after clicking key: the same key flips the
// direction, a different key resets to descending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	key = canonicalKey(key)
	if s.Key == key {
		if s.Direction == Descending {
			return SortSpec{Key: key, Direction: Ascending}
		}
		return SortSpec{Key: key, Direction: Descending}
	}
	return SortSpec{Key: key, Direction: Descending}
}

// ParseSortKey maps a user-supplied key name, including the legacy
// theta alias, onto a canonical SortKey. Unknown keys fall back to
// volume.
func ParseSortKey(s string) SortKey {
	return canonicalKey(SortKey(s))
}

func canonicalKey(key SortKey) SortKey {
	switch key {
	case SortByVolume, SortByLeverage, SortByTheta, SortByDays:
		return key
	case legacyThetaKey:
		return SortByTheta
	default:
		return SortByVolume
	}
}

// sortValue extracts the numeric sort attribute; absent values are 0
// by construction of the normalizer.
func sortValue(w models.Warrant, key SortKey) float64 {
	switch key {
	case SortByLeverage:
		return w.EffectiveLeverage
	case SortByTheta:
		return w.ThetaPercent
	case SortByDays:
		return float64(w.DaysToMaturity)
	default:
		return w.Volume
	}
}

// FilterPolicy is the strict screen applied to search results. The
// thresholds are configuration, not protocol.
type FilterPolicy struct {
	ExcludedBrokers   []string
	MinDaysToMaturity int
	MinLeverage       float64
	MaxLeverage       float64
	MaxThetaPercent   float64
	MinVolume         float64
	MinPrice          float64
	MaxPrice          float64
	MaxSpread         float64
}

// DefaultFilterPolicy returns the reference thresholds.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		ExcludedBrokers:   []string{"統一"},
		MinDaysToMaturity: 90,
		MinLeverage:       2.5,
		MaxLeverage:       9.0,
		MaxThetaPercent:   2.5,
		MinVolume:         10,
		MinPrice:          0.25,
		MaxPrice:          3.0,
		MaxSpread:         0.03,
	}
}

// Admit reports whether a warrant passes the full conjunction for the
// active tab. Every predicate must hold independently.
func (p FilterPolicy) Admit(w models.Warrant, tab models.WarrantType) bool {
	if w.Type != tab {
		return false
	}
	for _, broker := range p.ExcludedBrokers {
		if w.Broker == broker {
			return false
		}
	}
	if w.DaysToMaturity < p.MinDaysToMaturity {
		return false
	}
	if w.EffectiveLeverage < p.MinLeverage || w.EffectiveLeverage > p.MaxLeverage {
		return false
	}
	if abs(w.ThetaPercent) > p.MaxThetaPercent {
		return false
	}
	if w.Volume < p.MinVolume {
		return false
	}
	if w.Price < p.MinPrice || w.Price > p.MaxPrice {
		return false
	}
	return p.spreadOK(w)
}

// spreadOK enforces ask-bid <= MaxSpread. A zero side means the book
// side was not reported, so the check is skipped, not failed.
func (p FilterPolicy) spreadOK(w models.Warrant) bool {
	if w.BestBidPrice <= 0 || w.BestAskPrice <= 0 {
		return true
	}
	return w.BestAskPrice-w.BestBidPrice <= p.MaxSpread
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Request describes one view construction.
type Request struct {
	Mode       Mode
	Tab        models.WarrantType
	Sort       SortSpec
	Unfiltered bool // bypass the policy thresholds, tab still applies
}

// Build constructs the display list. Favorites mode shows the whole
// favorites collection regardless of type; market mode filters the
// search results and always enforces the tab. Sort runs last and is
// stable, so tie order is deterministic given identical input.
func Build(warrants, favorites []models.Warrant, policy FilterPolicy, req Request) []models.Warrant {
	var out []models.Warrant

	if req.Mode == ModeFavorites {
		out = append(out, favorites...)
	} else {
		for _, w := range warrants {
			if req.Unfiltered {
				if w.Type == req.Tab {
					out = append(out, w)
				}
				continue
			}
			if policy.Admit(w, req.Tab) {
				out = append(out, w)
			}
		}
	}

	key := canonicalKey(req.Sort.Key)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortValue(out[i], key), sortValue(out[j], key)
		if req.Sort.Direction == Ascending {
			return a < b
		}
		return a > b
	})

	return out
}
