package scoring

import (
	"math"
	"sort"
)

// LanguageDistributionEntry is one language's byte-weighted share across the
// sampled repositories. Percentages over a non-empty aggregate sum to
// 100.0 within 0.1.
type LanguageDistributionEntry struct {
	Language   string  `json:"language"`
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// Distribute converts summed per-language byte counts into a distribution
// sorted by share, largest first. An empty aggregate yields an empty
// distribution.
func Distribute(byteTotals map[string]int64) []LanguageDistributionEntry {
	var total int64
	for _, b := range byteTotals {
		total += b
	}
	if total == 0 {
		return []LanguageDistributionEntry{}
	}

	entries := make([]LanguageDistributionEntry, 0, len(byteTotals))
	for lang, b := range byteTotals {
		entries = append(entries, LanguageDistributionEntry{
			Language:   lang,
			Bytes:      b,
			Percentage: math.Round(float64(b)/float64(total)*1000) / 10,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Bytes != entries[j].Bytes {
			return entries[i].Bytes > entries[j].Bytes
		}
		return entries[i].Language < entries[j].Language
	})
	return entries
}
