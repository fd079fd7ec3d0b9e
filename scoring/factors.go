package scoring

import (
	"math"
	"time"

	"github.com/gitgauge/gitgauge/gateway"
)

// FactorScore is one independent 0-100 factor with its sub-factor inputs.
type FactorScore struct {
	Score   int                `json:"score"`
	Factors map[string]float64 `json:"factors"`
}

// ProfileScoreBreakdown is the weighted composite quality score.
type ProfileScoreBreakdown struct {
	OverallScore  int                `json:"overall_score"`
	Quality       FactorScore        `json:"quality"`
	Consistency   FactorScore        `json:"consistency"`
	Engagement    FactorScore        `json:"engagement"`
	Documentation FactorScore        `json:"documentation"`
	Weights       map[string]float64 `json:"weights"`
}

// Weights sum to 1.0; OverallScore = round(sum of factor score x weight).
func Weights() map[string]float64 {
	return map[string]float64{
		"quality":       0.30,
		"consistency":   0.25,
		"engagement":    0.25,
		"documentation": 0.20,
	}
}

const recentActivityWindow = 6 * 30 * 24 * time.Hour

const consistencyWindow = 30 * 24 * time.Hour

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func pct(matching, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matching) / float64(total) * 100
}

// RepositoryQuality scores the overall health of a repository portfolio:
// star traction, language breadth, recency of maintenance, and hygiene
// signals (description, topics, not a fork).
func RepositoryQuality(repos []gateway.RepositorySummary, now time.Time) FactorScore {
	if len(repos) == 0 {
		return zeroFactor("avg_stars_per_repo", "repo_diversity", "recent_activity", "code_quality_indicators")
	}

	var totalStars, recent, hygienic int
	languages := make(map[string]struct{})
	for _, r := range repos {
		totalStars += r.Stars
		if r.Language != "" {
			languages[r.Language] = struct{}{}
		}
		if now.Sub(r.UpdatedAt) <= recentActivityWindow {
			recent++
		}
		if r.Description != "" && len(r.Topics) > 0 && !r.IsFork {
			hygienic++
		}
	}

	avgStars := float64(totalStars) / float64(len(repos))
	diversity := math.Min(float64(len(languages))*10, 100)
	recentPct := pct(recent, len(repos))
	hygienePct := pct(hygienic, len(repos))

	score := math.Round(0.3*math.Min(avgStars*2, 25) +
		0.25*diversity +
		0.25*recentPct +
		0.2*hygienePct)

	return FactorScore{
		Score: int(score),
		Factors: map[string]float64{
			"avg_stars_per_repo":      round1(avgStars),
			"repo_diversity":          diversity,
			"recent_activity":         round1(recentPct),
			"code_quality_indicators": round1(hygienePct),
		},
	}
}

// ContributionConsistency scores activity over the trailing 30 days of the
// event stream: cadence, volume, and variety of event types.
func ContributionConsistency(events []gateway.Event, now time.Time) FactorScore {
	var count int
	types := make(map[string]struct{})
	for _, e := range events {
		if now.Sub(e.CreatedAt) > consistencyWindow {
			continue
		}
		count++
		types[e.Type] = struct{}{}
	}

	perDay := float64(count) / 30
	frequency := math.Min(perDay*20, 100)
	volume := math.Min(float64(count)*2, 100)
	variety := math.Min(float64(len(types))*15, 100)

	score := math.Round(0.4*frequency + 0.3*volume + 0.3*variety)

	return FactorScore{
		Score: int(score),
		Factors: map[string]float64{
			"contribution_frequency": round1(frequency),
			"activity_volume":        round1(volume),
			"event_diversity":        round1(variety),
		},
	}
}

// NeutralConsistency is the fallback when the event stream cannot be
// fetched: neutral 50 everywhere.
func NeutralConsistency() FactorScore {
	return FactorScore{
		Score: 50,
		Factors: map[string]float64{
			"contribution_frequency": 50,
			"activity_volume":        50,
			"event_diversity":        50,
		},
	}
}

// CommunityEngagement scores audience and reach: follower ratio, accumulated
// forks and watchers, and how many repositories draw issue traffic.
func CommunityEngagement(profile *gateway.Profile, repos []gateway.RepositorySummary) FactorScore {
	if len(repos) == 0 {
		return zeroFactor("follower_ratio", "repo_popularity", "community_involvement")
	}

	var forksAndWatchers, withIssues int
	for _, r := range repos {
		forksAndWatchers += r.Forks + r.Watchers
		if r.OpenIssues > 0 {
			withIssues++
		}
	}

	following := profile.Following
	if following < 1 {
		following = 1
	}
	ratio := math.Min(float64(profile.Followers)/float64(following)*20, 100)
	popularity := math.Min(float64(forksAndWatchers)/10, 100)
	involvement := math.Min(pct(withIssues, len(repos)), 100)

	score := math.Round(0.4*ratio + 0.35*popularity + 0.25*involvement)

	return FactorScore{
		Score: int(score),
		Factors: map[string]float64{
			"follower_ratio":        round1(ratio),
			"repo_popularity":       round1(popularity),
			"community_involvement": round1(involvement),
		},
	}
}

// DocumentationCompleteness scores how consistently repositories carry
// meaningful descriptions, topics, and wikis.
func DocumentationCompleteness(repos []gateway.RepositorySummary) FactorScore {
	if len(repos) == 0 {
		return zeroFactor("has_description", "detailed_documentation", "wiki_enabled")
	}

	var described, detailed, wiki int
	for _, r := range repos {
		if len(r.Description) > 10 {
			described++
		}
		if len(r.Description) > 20 && len(r.Topics) > 0 {
			detailed++
		}
		if r.HasWiki {
			wiki++
		}
	}

	describedPct := pct(described, len(repos))
	detailedPct := pct(detailed, len(repos))
	wikiPct := pct(wiki, len(repos))

	score := math.Round(0.5*describedPct + 0.3*detailedPct + 0.2*wikiPct)

	return FactorScore{
		Score: int(score),
		Factors: map[string]float64{
			"has_description":        round1(describedPct),
			"detailed_documentation": round1(detailedPct),
			"wiki_enabled":           round1(wikiPct),
		},
	}
}

// Overall combines the four factor scores under the fixed weights.
func Overall(quality, consistency, engagement, documentation FactorScore) int {
	w := Weights()
	return int(math.Round(float64(quality.Score)*w["quality"] +
		float64(consistency.Score)*w["consistency"] +
		float64(engagement.Score)*w["engagement"] +
		float64(documentation.Score)*w["documentation"]))
}

func zeroFactor(names ...string) FactorScore {
	factors := make(map[string]float64, len(names))
	for _, n := range names {
		factors[n] = 0
	}
	return FactorScore{Score: 0, Factors: factors}
}

// zeroBreakdown is the result for an account with no repositories.
func zeroBreakdown() *ProfileScoreBreakdown {
	return &ProfileScoreBreakdown{
		OverallScore:  0,
		Quality:       zeroFactor("avg_stars_per_repo", "repo_diversity", "recent_activity", "code_quality_indicators"),
		Consistency:   zeroFactor("contribution_frequency", "activity_volume", "event_diversity"),
		Engagement:    zeroFactor("follower_ratio", "repo_popularity", "community_involvement"),
		Documentation: zeroFactor("has_description", "detailed_documentation", "wiki_enabled"),
		Weights:       Weights(),
	}
}
