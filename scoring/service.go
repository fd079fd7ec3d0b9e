package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gitgauge/gitgauge/cache"
	"github.com/gitgauge/gitgauge/gateway"
	"github.com/gitgauge/gitgauge/logger"
)

// Platform is the slice of the gateway the scoring engine consumes.
type Platform interface {
	GetProfile(ctx context.Context, login string) (*gateway.Profile, error)
	ListRepositories(ctx context.Context, login string) ([]gateway.RepositorySummary, error)
	ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error)
	ListRecentEvents(ctx context.Context, login string) ([]gateway.Event, error)
	GetReadme(ctx context.Context, owner, repo string) (*gateway.Readme, error)
	ContributionCalendar(ctx context.Context, login string, year int) (*gateway.ContributionCalendar, error)
}

// languageFetchConcurrency bounds simultaneous per-repo language calls.
const languageFetchConcurrency = 5

// Options tunes a scoring Service.
type Options struct {
	ScoreTTL         time.Duration // default 1h
	AnalysisTTL      time.Duration // default 30m
	LanguageFetchMax int           // default 30
}

// Service converts raw platform data into the composite score and the
// derived analyses. Results are always fully recomputed and overwritten in
// the cache, never merged.
type Service struct {
	platform Platform
	cache    *cache.Cache
	opts     Options

	now func() time.Time
}

func NewService(platform Platform, c *cache.Cache, opts Options) *Service {
	if opts.ScoreTTL == 0 {
		opts.ScoreTTL = time.Hour
	}
	if opts.AnalysisTTL == 0 {
		opts.AnalysisTTL = 30 * time.Minute
	}
	if opts.LanguageFetchMax == 0 {
		opts.LanguageFetchMax = 30
	}
	return &Service{platform: platform, cache: c, opts: opts, now: time.Now}
}

// ProfileScore computes the weighted composite score for login. An account
// with no repositories scores zero everywhere; an unreachable event stream
// degrades only the consistency factor to its neutral fallback.
func (s *Service) ProfileScore(ctx context.Context, login string) (*ProfileScoreBreakdown, error) {
	return cache.GetOrSet(ctx, s.cache, "score:"+login, s.opts.ScoreTTL,
		func(ctx context.Context) (*ProfileScoreBreakdown, error) {
			return s.computeProfileScore(ctx, login)
		})
}

func (s *Service) computeProfileScore(ctx context.Context, login string) (*ProfileScoreBreakdown, error) {
	profile, err := s.platform.GetProfile(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", login, err)
	}
	repos, err := s.platform.ListRepositories(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("fetch repositories %s: %w", login, err)
	}
	if len(repos) == 0 {
		return zeroBreakdown(), nil
	}

	now := s.now()

	consistency := NeutralConsistency()
	events, err := s.platform.ListRecentEvents(ctx, login)
	if err != nil {
		logger.Warn("event fetch failed, using neutral consistency",
			zap.String("login", login), zap.Error(err))
	} else {
		consistency = ContributionConsistency(events, now)
	}

	quality := RepositoryQuality(repos, now)
	engagement := CommunityEngagement(profile, repos)
	documentation := DocumentationCompleteness(repos)

	return &ProfileScoreBreakdown{
		OverallScore:  Overall(quality, consistency, engagement, documentation),
		Quality:       quality,
		Consistency:   consistency,
		Engagement:    engagement,
		Documentation: documentation,
		Weights:       Weights(),
	}, nil
}

// AnalyzeRepositories aggregates login's repository set.
func (s *Service) AnalyzeRepositories(ctx context.Context, login string) (*RepositoryAnalysis, error) {
	return cache.GetOrSet(ctx, s.cache, "analysis:"+login, s.opts.AnalysisTTL,
		func(ctx context.Context) (*RepositoryAnalysis, error) {
			repos, err := s.platform.ListRepositories(ctx, login)
			if err != nil {
				return nil, fmt.Errorf("fetch repositories %s: %w", login, err)
			}
			analysis := AggregateRepositories(repos)

			// The login/login convention repo holds the profile readme.
			readme, err := s.platform.GetReadme(ctx, login, login)
			if err != nil {
				return nil, fmt.Errorf("fetch profile readme %s: %w", login, err)
			}
			analysis.HasProfileReadme = readme != nil
			return &analysis, nil
		})
}

// LanguageDistribution computes the byte-weighted language share across up
// to LanguageFetchMax of the most recently updated repositories. Individual
// per-repository fetch failures are skipped, not fatal.
func (s *Service) LanguageDistribution(ctx context.Context, login string) ([]LanguageDistributionEntry, error) {
	return cache.GetOrSet(ctx, s.cache, "languages:"+login, s.opts.AnalysisTTL,
		func(ctx context.Context) ([]LanguageDistributionEntry, error) {
			return s.computeLanguageDistribution(ctx, login)
		})
}

func (s *Service) computeLanguageDistribution(ctx context.Context, login string) ([]LanguageDistributionEntry, error) {
	repos, err := s.platform.ListRepositories(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("fetch repositories %s: %w", login, err)
	}

	sort.Slice(repos, func(i, j int) bool {
		return repos[i].UpdatedAt.After(repos[j].UpdatedAt)
	})
	if len(repos) > s.opts.LanguageFetchMax {
		repos = repos[:s.opts.LanguageFetchMax]
	}

	perRepo := make([]map[string]int, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(languageFetchConcurrency)
	for i, repo := range repos {
		g.Go(func() error {
			langs, err := s.platform.ListLanguages(gctx, login, repo.Name)
			if err != nil {
				// One unreadable repository must not sink the distribution.
				logger.Debug("language fetch skipped",
					zap.String("repo", repo.FullName), zap.Error(err))
				return nil
			}
			perRepo[i] = langs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, langs := range perRepo {
		for lang, bytes := range langs {
			totals[lang] += int64(bytes)
		}
	}
	return Distribute(totals), nil
}

// TechnologyTrends projects 6-month series for the top 3 languages.
func (s *Service) TechnologyTrends(ctx context.Context, login string) ([]TechnologyTrend, error) {
	return cache.GetOrSet(ctx, s.cache, "trends:"+login, s.opts.AnalysisTTL,
		func(ctx context.Context) ([]TechnologyTrend, error) {
			distribution, err := s.LanguageDistribution(ctx, login)
			if err != nil {
				return nil, err
			}
			return BuildTrends(distribution, s.now()), nil
		})
}

// DailyContribution is one day of the densified calendar.
type DailyContribution struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ContributionSummary is a full calendar year of daily counts with missing
// days zero-filled.
type ContributionSummary struct {
	Year  int                 `json:"year"`
	Total int                 `json:"total"`
	Days  []DailyContribution `json:"days"`
}

// Contributions fetches and densifies the contribution calendar for one
// calendar year; the platform response is sparse at the edges of the window.
func (s *Service) Contributions(ctx context.Context, login string, year int) (*ContributionSummary, error) {
	key := fmt.Sprintf("calendar:%s:%d", login, year)
	return cache.GetOrSet(ctx, s.cache, key, s.opts.AnalysisTTL,
		func(ctx context.Context) (*ContributionSummary, error) {
			cal, err := s.platform.ContributionCalendar(ctx, login, year)
			if err != nil {
				return nil, fmt.Errorf("fetch contribution calendar %s/%d: %w", login, year, err)
			}

			summary := &ContributionSummary{Year: year, Total: cal.Total}
			day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			for day.Year() == year {
				date := day.Format("2006-01-02")
				summary.Days = append(summary.Days, DailyContribution{
					Date:  date,
					Count: cal.Days[date],
				})
				day = day.AddDate(0, 0, 1)
			}
			return summary, nil
		})
}
