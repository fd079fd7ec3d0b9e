package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistribute(t *testing.T) {
	entries := Distribute(map[string]int64{
		"Go":         60000,
		"TypeScript": 30000,
		"Shell":      10000,
	})

	assert.Len(t, entries, 3)
	assert.Equal(t, "Go", entries[0].Language)
	assert.Equal(t, 60.0, entries[0].Percentage)
	assert.Equal(t, "TypeScript", entries[1].Language)
	assert.Equal(t, 30.0, entries[1].Percentage)
	assert.Equal(t, "Shell", entries[2].Language)
	assert.Equal(t, 10.0, entries[2].Percentage)
}

func TestDistributePercentagesSumToHundred(t *testing.T) {
	testCases := []struct {
		name   string
		totals map[string]int64
	}{
		{"even thirds", map[string]int64{"Go": 1, "Rust": 1, "Zig": 1}},
		{"skewed", map[string]int64{"Go": 987654, "Rust": 321, "Zig": 77, "Shell": 9999}},
		{"single language", map[string]int64{"Go": 42}},
		{"sevenths", map[string]int64{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1, "f": 1, "g": 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var sum float64
			for _, e := range Distribute(tc.totals) {
				sum += e.Percentage
			}
			assert.InDelta(t, 100.0, sum, 0.1)
		})
	}
}

func TestDistributeEmptyAggregate(t *testing.T) {
	assert.Empty(t, Distribute(nil))
	assert.Empty(t, Distribute(map[string]int64{}))
	assert.NotNil(t, Distribute(nil))
}
