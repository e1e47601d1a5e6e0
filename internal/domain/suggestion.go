package domain

import (
	"fmt"
	"sort"
	"strings"
)

// BinSuggestion is an ephemeral ranking result. Suggestions are recomputed
// on demand and never persisted; capacity may change between suggestion and
// execution.
type BinSuggestion struct {
	BinID             string  `json:"binId"`
	BinCode           string  `json:"binCode"`
	Zone              string  `json:"zone"`
	ZoneType          string  `json:"zoneType,omitempty"`
	Score             float64 `json:"score"`
	Reason            string  `json:"reason"`
	AvailableCapacity int     `json:"availableCapacity"`
	HasSameSKU        bool    `json:"hasSameSku"`
	IsEmpty           bool    `json:"isEmpty"`
}

// ScoringWeights are the tunable policy constants for bin ranking.
// The ordering contract (same-SKU or sufficient-capacity bins never rank
// below bins with neither signal, more free capacity never ranks lower)
// holds for any non-negative weights.
type ScoringWeights struct {
	// SufficientCapacity is awarded when the bin can take the full quantity.
	SufficientCapacity float64
	// SameSKU is awarded when the bin already holds the requested SKU.
	SameSKU float64
	// SameSKUPreferred is added on top of SameSKU when the caller asked to
	// consolidate.
	SameSKUPreferred float64
	// EmptyBin is awarded when the bin holds nothing.
	EmptyBin float64
	// EmptyBinPreferred is added on top of EmptyBin when the caller asked
	// for empty bins.
	EmptyBinPreferred float64
	// ZoneMismatchPenalty is subtracted when the bin's zone type does not
	// match the preferred zone type for the request.
	ZoneMismatchPenalty float64
	// FreeCapacityPerUnit scales the free-capacity tiebreaker. Kept small
	// relative to the bonuses so capacity refines rather than dominates.
	FreeCapacityPerUnit float64
}

// DefaultScoringWeights returns the default ranking policy
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		SufficientCapacity:  50,
		SameSKU:             20,
		SameSKUPreferred:    15,
		EmptyBin:            10,
		EmptyBinPreferred:   15,
		ZoneMismatchPenalty: 10,
		FreeCapacityPerUnit: 0.01,
	}
}

// SuggestionRequest holds the inputs for a bin ranking
type SuggestionRequest struct {
	SKUID             string
	Quantity          int
	PreferSameSKU     bool
	PreferEmpty       bool
	PreferredZoneType string
}

// RankBins scores and orders candidate bins for a putaway request.
// Bins without free capacity are skipped. The result is ordered by score
// descending with ties broken by bin code so repeated calls over unchanged
// state return the same order.
func RankBins(bins []Bin, req SuggestionRequest, w ScoringWeights) []BinSuggestion {
	suggestions := make([]BinSuggestion, 0, len(bins))

	for i := range bins {
		bin := &bins[i]
		available := bin.AvailableCapacity()
		if !bin.Active || available < 1 {
			continue
		}

		hasSameSKU := bin.HoldsSKU(req.SKUID)
		isEmpty := bin.IsEmpty()

		score := float64(available) * w.FreeCapacityPerUnit
		var factors []string

		if available >= req.Quantity {
			score += w.SufficientCapacity
			factors = append(factors, fmt.Sprintf("fits all %d units", req.Quantity))
		} else {
			factors = append(factors, fmt.Sprintf("partial fit, %d of %d units", available, req.Quantity))
		}

		if hasSameSKU {
			score += w.SameSKU
			if req.PreferSameSKU {
				score += w.SameSKUPreferred
			}
			factors = append(factors, "same SKU")
		}

		if isEmpty {
			score += w.EmptyBin
			if req.PreferEmpty {
				score += w.EmptyBinPreferred
			}
			factors = append(factors, "empty bin")
		}

		if req.PreferredZoneType != "" && bin.ZoneType != "" && bin.ZoneType != req.PreferredZoneType {
			score -= w.ZoneMismatchPenalty
			factors = append(factors, "zone mismatch")
		}

		if bin.Capacity > 0 {
			pctFree := available * 100 / bin.Capacity
			factors = append(factors, fmt.Sprintf("%d%% capacity free", pctFree))
		}

		suggestions = append(suggestions, BinSuggestion{
			BinID:             bin.BinID,
			BinCode:           bin.BinCode,
			Zone:              bin.Zone,
			ZoneType:          bin.ZoneType,
			Score:             score,
			Reason:            strings.Join(factors, ", "),
			AvailableCapacity: available,
			HasSameSKU:        hasSameSKU,
			IsEmpty:           isEmpty,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].BinCode < suggestions[j].BinCode
	})

	return suggestions
}
