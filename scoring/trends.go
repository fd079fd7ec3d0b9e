package scoring

import (
	"math"
	"time"
)

// TrendPoint is one month of a technology's projected trajectory.
type TrendPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// TechnologyTrend is a 6-point heuristic projection for one language. The
// smoothing formula is a presentation heuristic over the current
// distribution, not a forecasting model; it only sees rank-adjacent
// percentages, never historical data.
type TechnologyTrend struct {
	Technology string       `json:"technology"`
	Trend      string       `json:"trend"` // rising, stable, or declining
	Growth     float64      `json:"growth"`
	Points     []TrendPoint `json:"points"`
}

const trendMonths = 6

// BuildTrends projects the top 3 languages by byte share. Growth compares
// each language's percentage against the previous ranked entry; the top
// entry compares against zero.
func BuildTrends(distribution []LanguageDistributionEntry, now time.Time) []TechnologyTrend {
	top := distribution
	if len(top) > 3 {
		top = top[:3]
	}

	// Anchor to the first of the month: AddDate on a day-31 clock would
	// normalize short months and skip labels.
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	months := make([]string, trendMonths)
	for i := range months {
		months[i] = anchor.AddDate(0, -(trendMonths - 1 - i), 0).Format("Jan")
	}

	trends := make([]TechnologyTrend, 0, len(top))
	for i, entry := range top {
		var prev float64
		if i > 0 {
			prev = top[i-1].Percentage
		}
		growth := clamp(entry.Percentage-prev, -5, 25)
		base := 70 + math.Min(25, math.Round(entry.Percentage))

		direction := "stable"
		switch {
		case growth > 5:
			direction = "rising"
		case growth < -2:
			direction = "declining"
		}

		start := clamp(base-growth/2, 50, 95)
		points := make([]TrendPoint, trendMonths)
		for m := 0; m < trendMonths; m++ {
			points[m] = TrendPoint{
				Month: months[m],
				Value: clamp(start+(growth/5)*float64(m), 40, 100),
			}
		}

		trends = append(trends, TechnologyTrend{
			Technology: entry.Language,
			Trend:      direction,
			Growth:     round1(growth),
			Points:     points,
		})
	}
	return trends
}
