package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateBins() []Bin {
	return []Bin{
		{BinID: "b1", BinCode: "A-01", Zone: "A", Capacity: 100, CurrentQuantity: 90, Active: true},
		{BinID: "b2", BinCode: "A-02", Zone: "A", Capacity: 100, CurrentQuantity: 20, Contents: map[string]int{"SKU-100": 20}, Active: true},
		{BinID: "b3", BinCode: "B-01", Zone: "B", Capacity: 100, Active: true},
		{BinID: "b4", BinCode: "B-02", Zone: "B", Capacity: 100, CurrentQuantity: 100, Active: true},
		{BinID: "b5", BinCode: "C-01", Zone: "C", Capacity: 100, CurrentQuantity: 50, Active: true},
	}
}

func TestRankBins(t *testing.T) {
	weights := DefaultScoringWeights()
	req := SuggestionRequest{SKUID: "SKU-100", Quantity: 30}

	t.Run("skips full and inactive bins", func(t *testing.T) {
		bins := candidateBins()
		bins[4].Active = false

		result := RankBins(bins, req, weights)

		codes := make([]string, 0)
		for _, s := range result {
			codes = append(codes, s.BinCode)
		}
		assert.NotContains(t, codes, "B-02")
		assert.NotContains(t, codes, "C-01")
	})

	t.Run("same-SKU bin ranks above plain bin", func(t *testing.T) {
		result := RankBins(candidateBins(), req, weights)

		require.NotEmpty(t, result)
		assert.Equal(t, "A-02", result[0].BinCode)
		assert.True(t, result[0].HasSameSKU)
	})

	t.Run("partial-capacity bins stay eligible but rank lower", func(t *testing.T) {
		result := RankBins(candidateBins(), req, weights)

		var partial *BinSuggestion
		for i := range result {
			if result[i].BinCode == "A-01" {
				partial = &result[i]
			}
		}
		require.NotNil(t, partial)
		assert.Equal(t, 10, partial.AvailableCapacity)
		assert.Equal(t, result[len(result)-1].BinCode, "A-01")
	})

	t.Run("empty-bin preference boosts empty bins", func(t *testing.T) {
		prefEmpty := req
		prefEmpty.PreferEmpty = true
		prefEmpty.PreferSameSKU = false

		base := RankBins(candidateBins(), req, weights)
		boosted := RankBins(candidateBins(), prefEmpty, weights)

		scoreOf := func(result []BinSuggestion, code string) float64 {
			for _, s := range result {
				if s.BinCode == code {
					return s.Score
				}
			}
			t.Fatalf("bin %s missing from result", code)
			return 0
		}

		assert.Greater(t, scoreOf(boosted, "B-01"), scoreOf(base, "B-01"))
	})

	t.Run("reason names the scoring factors", func(t *testing.T) {
		result := RankBins(candidateBins(), req, weights)

		require.NotEmpty(t, result)
		assert.Contains(t, result[0].Reason, "same SKU")
		assert.Contains(t, result[0].Reason, "capacity free")
	})

	t.Run("empty input yields empty result", func(t *testing.T) {
		result := RankBins(nil, req, weights)
		assert.Empty(t, result)
	})
}

func TestRankBinsCapacityMonotonicity(t *testing.T) {
	weights := DefaultScoringWeights()
	req := SuggestionRequest{SKUID: "SKU-100", Quantity: 10}

	// Identical flags, strictly more free capacity must never score lower.
	bins := []Bin{
		{BinID: "lo", BinCode: "Z-01", Zone: "Z", Capacity: 100, CurrentQuantity: 60, Contents: map[string]int{"SKU-100": 60}, Active: true},
		{BinID: "hi", BinCode: "Z-02", Zone: "Z", Capacity: 100, CurrentQuantity: 30, Contents: map[string]int{"SKU-100": 30}, Active: true},
	}

	result := RankBins(bins, req, weights)
	require.Len(t, result, 2)

	var hi, lo BinSuggestion
	for _, s := range result {
		if s.BinID == "hi" {
			hi = s
		} else {
			lo = s
		}
	}
	assert.GreaterOrEqual(t, hi.Score, lo.Score)
}

func TestRankBinsDeterminism(t *testing.T) {
	weights := DefaultScoringWeights()
	req := SuggestionRequest{SKUID: "SKU-100", Quantity: 30, PreferSameSKU: true}

	first := RankBins(candidateBins(), req, weights)
	for i := 0; i < 5; i++ {
		again := RankBins(candidateBins(), req, weights)
		require.Equal(t, first, again)
	}
}

func TestRankBinsTieBreakByBinCode(t *testing.T) {
	weights := DefaultScoringWeights()
	req := SuggestionRequest{SKUID: "SKU-100", Quantity: 10}

	bins := []Bin{
		{BinID: "b2", BinCode: "D-02", Zone: "D", Capacity: 50, Active: true},
		{BinID: "b1", BinCode: "D-01", Zone: "D", Capacity: 50, Active: true},
	}

	result := RankBins(bins, req, weights)
	require.Len(t, result, 2)
	assert.Equal(t, "D-01", result[0].BinCode)
	assert.Equal(t, "D-02", result[1].BinCode)
}
