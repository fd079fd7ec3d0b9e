package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gitgauge/gitgauge/cache"
	"github.com/gitgauge/gitgauge/config"
	"github.com/gitgauge/gitgauge/gateway"
	"github.com/gitgauge/gitgauge/logger"
	"github.com/gitgauge/gitgauge/publish"
	"github.com/gitgauge/gitgauge/ratelimit"
	"github.com/gitgauge/gitgauge/redis"
	"github.com/gitgauge/gitgauge/scoring"
)

func main() {
	if err := logger.Initialize("info"); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.NewLoader("GITGAUGE").Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}
	if cfg.LogLevel != "info" {
		if err := logger.Initialize(cfg.LogLevel); err != nil {
			logger.Fatal("logger init", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := chooseBackend(cfg)
	scoreCache := cache.New(backend, "scoring")

	gw, err := gateway.New(gatewayOptions(cfg))
	if err != nil {
		logger.Fatal("gateway init", zap.Error(err))
	}

	svc := scoring.NewService(gw, scoreCache, scoring.Options{
		ScoreTTL:         cfg.ScoreTTL,
		AnalysisTTL:      cfg.AnalysisTTL,
		LanguageFetchMax: cfg.LanguageFetchMax,
	})

	if cfg.SearchQuery != "" {
		hits, err := gw.SearchRepositories(ctx, cfg.SearchQuery)
		if err != nil {
			logger.Warn("search failed", zap.String("query", cfg.SearchQuery), zap.Error(err))
		}
		for _, hit := range hits {
			logger.Info("search hit", zap.String("repo", hit.FullName), zap.Int("stars", hit.Stars))
		}
	}

	breakdown, err := svc.ProfileScore(ctx, cfg.TargetLogin)
	if err != nil {
		logger.Fatal("profile score", zap.String("login", cfg.TargetLogin), zap.Error(err))
	}
	logger.Info("profile scored",
		zap.String("login", cfg.TargetLogin),
		zap.Int("overall", breakdown.OverallScore),
		zap.Int("quality", breakdown.Quality.Score),
		zap.Int("consistency", breakdown.Consistency.Score),
		zap.Int("engagement", breakdown.Engagement.Score),
		zap.Int("documentation", breakdown.Documentation.Score))

	analysis, err := svc.AnalyzeRepositories(ctx, cfg.TargetLogin)
	if err != nil {
		logger.Fatal("repository analysis", zap.Error(err))
	}
	logger.Info("repositories analyzed",
		zap.Int("repos", analysis.RepoCount),
		zap.Int("stars", analysis.TotalStars),
		zap.Float64("avg_repo_quality", analysis.AvgRepoQuality))

	trends, err := svc.TechnologyTrends(ctx, cfg.TargetLogin)
	if err != nil {
		logger.Fatal("technology trends", zap.Error(err))
	}
	for _, t := range trends {
		logger.Info("trend", zap.String("technology", t.Technology), zap.String("direction", t.Trend))
	}

	contributions, err := svc.Contributions(ctx, cfg.TargetLogin, time.Now().UTC().Year())
	if err != nil {
		logger.Warn("contribution calendar", zap.Error(err))
	} else {
		logger.Info("contributions", zap.Int("year", contributions.Year), zap.Int("total", contributions.Total))
	}

	snapshot := gw.Snapshot()
	logger.Info("rate limit", zap.Int("remaining", snapshot.Remaining), zap.Int("used", snapshot.Used))

	if cfg.PublishOwner != "" && cfg.PublishRepo != "" {
		publishSummary(ctx, cfg, gw, breakdown)
	}
}

func gatewayOptions(cfg config.Config) gateway.Options {
	opts := gateway.Options{
		HTTPTimeout: cfg.HTTPClientTimeout,
		Limiter:     ratelimit.New(cfg.RestRateLimit, cfg.GraphqlRateLimit),
	}
	if cfg.HasTokenAuth() {
		opts.Token = cfg.GithubToken
	} else {
		opts.AppPrivateKey = []byte(cfg.GithubPrivateKey)
		opts.AppClientID = cfg.GithubClientID
		opts.AppInstallationID = cfg.GithubInstallationID
	}
	return opts
}

// chooseBackend prefers Redis when configured and falls back to the
// in-process store; scoring only runs slower without Redis, never worse.
func chooseBackend(cfg config.Config) cache.Backend {
	var (
		client *goredis.Client
		err    error
	)
	switch {
	case cfg.RedisURL != "":
		client, err = redis.ConnectToRedisURL(cfg.RedisURL, cfg.RedisConnTimeout)
	case cfg.RedisAddr != "":
		client, err = redis.ConnectToRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisConnTimeout)
	}
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	if client != nil {
		return redis.NewStore(client)
	}

	memory, err := cache.NewMemory(cfg.CacheSize)
	if err != nil {
		logger.Fatal("memory cache init", zap.Error(err))
	}
	return memory
}

func publishSummary(ctx context.Context, cfg config.Config, gw *gateway.Gateway, breakdown *scoring.ProfileScoreBreakdown) {
	content, err := json.MarshalIndent(breakdown, "", "  ")
	if err != nil {
		logger.Error("marshal summary", zap.Error(err))
		return
	}

	executor := publish.NewExecutor(gw)
	result, err := executor.Publish(ctx, publish.Request{
		Owner:   cfg.PublishOwner,
		Repo:    cfg.PublishRepo,
		Path:    cfg.PublishPath,
		Branch:  cfg.PublishBranch,
		Message: cfg.PublishMessage,
		Content: content,
	})
	if err != nil {
		logger.Error("publish failed", zap.Error(err))
		return
	}
	logger.Info("summary published",
		zap.String("action", result.Action),
		zap.Int("attempts", result.Attempts),
		zap.String("commit", result.Commit.SHA))
}
