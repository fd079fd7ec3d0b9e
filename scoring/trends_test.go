package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedNow() time.Time {
	return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func TestBuildTrendsTopLanguage(t *testing.T) {
	dist := []LanguageDistributionEntry{
		{Language: "Go", Bytes: 60000, Percentage: 60.0},
		{Language: "TypeScript", Bytes: 30000, Percentage: 30.0},
		{Language: "Shell", Bytes: 10000, Percentage: 10.0},
	}

	trends := BuildTrends(dist, fixedNow())
	assert.Len(t, trends, 3)

	// Rank 0 compares against zero: growth = clamp(60-0,-5,25) = 25 → rising.
	top := trends[0]
	assert.Equal(t, "Go", top.Technology)
	assert.Equal(t, "rising", top.Trend)
	assert.Equal(t, 25.0, top.Growth)
	// base = 70+min(25,60) = 95; start = clamp(95-12.5, 50, 95) = 82.5
	// points: 82.5, 87.5, 92.5, 97.5, 100, 100 (clamped)
	values := make([]float64, 0, len(top.Points))
	for _, p := range top.Points {
		values = append(values, p.Value)
	}
	assert.Equal(t, []float64{82.5, 87.5, 92.5, 97.5, 100, 100}, values)

	// Rank 1: growth = clamp(30-60,-5,25) = -5 → declining.
	second := trends[1]
	assert.Equal(t, "declining", second.Trend)
	assert.Equal(t, -5.0, second.Growth)

	// Rank 2: growth = clamp(10-30,-5,25) = -5 → declining.
	assert.Equal(t, "declining", trends[2].Trend)
}

func TestBuildTrendsStable(t *testing.T) {
	dist := []LanguageDistributionEntry{
		{Language: "Go", Percentage: 52.0},
		{Language: "Rust", Percentage: 51.0},
	}

	trends := BuildTrends(dist, fixedNow())
	// growth = clamp(51-52,-5,25) = -1 → neither rising nor declining.
	assert.Equal(t, "stable", trends[1].Trend)
}

func TestBuildTrendsBounds(t *testing.T) {
	dist := []LanguageDistributionEntry{
		{Language: "Go", Percentage: 100.0},
		{Language: "Rust", Percentage: 0.1},
		{Language: "Zig", Percentage: 0.1},
	}

	for _, trend := range BuildTrends(dist, fixedNow()) {
		assert.Len(t, trend.Points, 6)
		for _, p := range trend.Points {
			assert.GreaterOrEqual(t, p.Value, 40.0, trend.Technology)
			assert.LessOrEqual(t, p.Value, 100.0, trend.Technology)
		}
	}
}

func TestBuildTrendsMonthLabels(t *testing.T) {
	dist := []LanguageDistributionEntry{{Language: "Go", Percentage: 100.0}}

	cases := []struct {
		name string
		now  time.Time
		want []string
	}{
		{
			name: "mid month",
			now:  fixedNow(),
			want: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"},
		},
		{
			// Day-31 clocks must not normalize into short months and
			// skip labels.
			name: "month end",
			now:  time.Date(2025, time.July, 31, 23, 0, 0, 0, time.UTC),
			want: []string{"Feb", "Mar", "Apr", "May", "Jun", "Jul"},
		},
		{
			name: "leap february end",
			now:  time.Date(2024, time.February, 29, 8, 0, 0, 0, time.UTC),
			want: []string{"Sep", "Oct", "Nov", "Dec", "Jan", "Feb"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trends := BuildTrends(dist, tc.now)
			months := make([]string, 0, 6)
			for _, p := range trends[0].Points {
				months = append(months, p.Month)
			}
			assert.Equal(t, tc.want, months)
		})
	}
}

func TestBuildTrendsExactPointValues(t *testing.T) {
	// Growth -1.7 yields 2-decimal intermediates; the series must carry
	// them through unrounded.
	dist := []LanguageDistributionEntry{
		{Language: "Go", Percentage: 14.1},
		{Language: "Rust", Percentage: 12.4},
	}

	trends := BuildTrends(dist, fixedNow())
	// growth = clamp(12.4-14.1,-5,25) = -1.7; base = 70+min(25,12) = 82
	// start = clamp(82+0.85, 50, 95) = 82.85; step = -0.34
	want := []float64{82.85, 82.51, 82.17, 81.83, 81.49, 81.15}
	for i, p := range trends[1].Points {
		assert.InDelta(t, want[i], p.Value, 1e-9)
	}
}

func TestBuildTrendsDeterministic(t *testing.T) {
	dist := []LanguageDistributionEntry{
		{Language: "Go", Percentage: 47.3},
		{Language: "Python", Percentage: 31.1},
		{Language: "Shell", Percentage: 21.6},
	}

	first := BuildTrends(dist, fixedNow())
	second := BuildTrends(dist, fixedNow())
	assert.Equal(t, first, second)
}

func TestBuildTrendsTruncatesToTopThree(t *testing.T) {
	dist := []LanguageDistributionEntry{
		{Language: "Go", Percentage: 40},
		{Language: "Rust", Percentage: 30},
		{Language: "Zig", Percentage: 20},
		{Language: "Shell", Percentage: 10},
	}
	assert.Len(t, BuildTrends(dist, fixedNow()), 3)
}
