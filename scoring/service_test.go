package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitgauge/gitgauge/cache"
	"github.com/gitgauge/gitgauge/gateway"
	"github.com/gitgauge/gitgauge/logger"
)

func init() {
	_ = logger.Initialize("error")
}

type fakePlatform struct {
	profile   *gateway.Profile
	repos     []gateway.RepositorySummary
	events    []gateway.Event
	eventsErr error
	languages map[string]map[string]int
	langErrs  map[string]error
	readme    *gateway.Readme
	calendar  *gateway.ContributionCalendar

	mu         sync.Mutex
	langCalls  int
	eventCalls int
	repoCalls  int
}

func (f *fakePlatform) GetProfile(ctx context.Context, login string) (*gateway.Profile, error) {
	return f.profile, nil
}

func (f *fakePlatform) ListRepositories(ctx context.Context, login string) ([]gateway.RepositorySummary, error) {
	f.repoCalls++
	return f.repos, nil
}

func (f *fakePlatform) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	f.mu.Lock()
	f.langCalls++
	f.mu.Unlock()
	if err, ok := f.langErrs[repo]; ok {
		return nil, err
	}
	return f.languages[repo], nil
}

func (f *fakePlatform) ListRecentEvents(ctx context.Context, login string) ([]gateway.Event, error) {
	f.eventCalls++
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakePlatform) GetReadme(ctx context.Context, owner, repo string) (*gateway.Readme, error) {
	return f.readme, nil
}

func (f *fakePlatform) ContributionCalendar(ctx context.Context, login string, year int) (*gateway.ContributionCalendar, error) {
	return f.calendar, nil
}

func newTestService(t *testing.T, platform *fakePlatform) *Service {
	t.Helper()
	backend, err := cache.NewMemory(64)
	require.NoError(t, err)
	return NewService(platform, cache.New(backend, "test"), Options{})
}

func TestProfileScoreEmptyRepositorySet(t *testing.T) {
	platform := &fakePlatform{profile: &gateway.Profile{Login: "ghost", Followers: 3}}
	svc := newTestService(t, platform)

	breakdown, err := svc.ProfileScore(context.Background(), "ghost")

	require.NoError(t, err)
	assert.Equal(t, 0, breakdown.OverallScore)
	assert.Equal(t, 0, breakdown.Quality.Score)
	assert.Equal(t, 0, breakdown.Consistency.Score)
	assert.Equal(t, 0, breakdown.Engagement.Score)
	assert.Equal(t, 0, breakdown.Documentation.Score)
	// Event stream is not consulted for an empty account.
	assert.Equal(t, 0, platform.eventCalls)
}

func TestProfileScoreNeutralFallbackOnEventFailure(t *testing.T) {
	platform := &fakePlatform{
		profile: &gateway.Profile{Login: "dev", Followers: 10, Following: 2},
		repos: []gateway.RepositorySummary{
			{Name: "one", Stars: 4, UpdatedAt: time.Now(), Description: "something useful here", Topics: []string{"go"}, Language: "Go"},
		},
		eventsErr: errors.New("events unavailable"),
	}
	svc := newTestService(t, platform)

	breakdown, err := svc.ProfileScore(context.Background(), "dev")

	require.NoError(t, err)
	assert.Equal(t, 50, breakdown.Consistency.Score)
	assert.NotEqual(t, 0, breakdown.OverallScore)
}

func TestProfileScoreIsCached(t *testing.T) {
	platform := &fakePlatform{
		profile: &gateway.Profile{Login: "dev"},
		repos:   []gateway.RepositorySummary{{Name: "one", Language: "Go", UpdatedAt: time.Now()}},
	}
	svc := newTestService(t, platform)

	first, err := svc.ProfileScore(context.Background(), "dev")
	require.NoError(t, err)
	second, err := svc.ProfileScore(context.Background(), "dev")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, platform.repoCalls)
}

func TestLanguageDistributionSkipsFailedRepos(t *testing.T) {
	now := time.Now()
	platform := &fakePlatform{
		repos: []gateway.RepositorySummary{
			{Name: "good", UpdatedAt: now},
			{Name: "broken", UpdatedAt: now.Add(-time.Hour)},
			{Name: "other", UpdatedAt: now.Add(-2 * time.Hour)},
		},
		languages: map[string]map[string]int{
			"good":  {"Go": 7500},
			"other": {"Go": 1500, "Shell": 1000},
		},
		langErrs: map[string]error{"broken": errors.New("boom")},
	}
	svc := newTestService(t, platform)

	dist, err := svc.LanguageDistribution(context.Background(), "dev")

	require.NoError(t, err)
	require.Len(t, dist, 2)
	assert.Equal(t, "Go", dist[0].Language)
	assert.Equal(t, int64(9000), dist[0].Bytes)
	assert.Equal(t, 90.0, dist[0].Percentage)
	assert.Equal(t, 10.0, dist[1].Percentage)
	assert.Equal(t, 3, platform.langCalls)
}

func TestLanguageDistributionBoundsExternalCalls(t *testing.T) {
	now := time.Now()
	var repos []gateway.RepositorySummary
	for i := 0; i < 45; i++ {
		repos = append(repos, gateway.RepositorySummary{
			Name:      "repo",
			UpdatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	platform := &fakePlatform{repos: repos}
	svc := newTestService(t, platform)

	_, err := svc.LanguageDistribution(context.Background(), "dev")

	require.NoError(t, err)
	assert.Equal(t, 30, platform.langCalls)
}

func TestAnalyzeRepositories(t *testing.T) {
	now := time.Now()
	platform := &fakePlatform{
		repos: []gateway.RepositorySummary{
			{Name: "alpha", Stars: 10, Forks: 2, Size: 100, Language: "Go", Topics: []string{"cli", "tools"}, UpdatedAt: now.Add(-time.Hour)},
			{Name: "beta", Stars: 25, Forks: 1, Size: 50, Language: "Go", Topics: []string{"cli"}, UpdatedAt: now},
			{Name: "gamma", Stars: 2, Size: 10, Language: "Rust", UpdatedAt: now.Add(-2 * time.Hour)},
		},
		readme: &gateway.Readme{Path: "README.md", Content: "hi"},
	}
	svc := newTestService(t, platform)

	analysis, err := svc.AnalyzeRepositories(context.Background(), "dev")

	require.NoError(t, err)
	assert.Equal(t, 3, analysis.RepoCount)
	assert.Equal(t, 37, analysis.TotalStars)
	assert.Equal(t, 3, analysis.TotalForks)
	assert.Equal(t, 160, analysis.TotalSize)
	assert.Equal(t, map[string]int{"Go": 2, "Rust": 1}, analysis.Languages)
	assert.Equal(t, []string{"cli", "tools"}, analysis.Topics)
	assert.Equal(t, "beta", analysis.TopStarred.Name)
	assert.Equal(t, "beta", analysis.RecentlyUpdated.Name)
	assert.Equal(t, 12.3, analysis.AvgRepoQuality)
	assert.True(t, analysis.HasProfileReadme)
}

func TestContributionsZeroFillsMissingDays(t *testing.T) {
	platform := &fakePlatform{
		calendar: &gateway.ContributionCalendar{
			Year:  2024,
			Total: 7,
			Days:  map[string]int{"2024-03-01": 4, "2024-12-31": 3},
		},
	}
	svc := newTestService(t, platform)

	summary, err := svc.Contributions(context.Background(), "dev", 2024)

	require.NoError(t, err)
	assert.Equal(t, 366, len(summary.Days)) // 2024 is a leap year
	assert.Equal(t, 7, summary.Total)
	assert.Equal(t, "2024-01-01", summary.Days[0].Date)
	assert.Equal(t, 0, summary.Days[0].Count)
	assert.Equal(t, 4, summary.Days[60].Count) // Mar 1 in a leap year
	assert.Equal(t, 3, summary.Days[365].Count)
}
