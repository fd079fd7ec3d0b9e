package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/gitgauge/gitgauge/logger"

	"go.uber.org/zap"
)

func NewLoader(prefix string) *Loader {
	return &Loader{Prefix: prefix, Validate: validator.New()}
}

func (l *Loader) Load() (Config, error) {
	var cfg Config

	if err := loadDotEnv(); err != nil {
		logger.Debug("dotenv", zap.Error(err))
	}
	if err := envconfig.Process(l.Prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env load: %w", err)
	}

	if err := l.Validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	if !cfg.HasTokenAuth() && !cfg.HasAppAuth() {
		return cfg, fmt.Errorf("config validation: either %s_GITHUB_TOKEN or App credentials are required", l.Prefix)
	}

	logger.Info("config loaded",
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
		zap.String("target", cfg.TargetLogin),
		zap.Bool("redis_set", cfg.RedisURL != "" || cfg.RedisAddr != ""))

	return cfg, nil
}

func loadDotEnv() error {
	files := []string{".env"}

	if appEnv := strings.TrimSpace(os.Getenv("APP_ENV")); appEnv != "" {
		files = append(files, ".env."+appEnv)
	}
	if goEnv := strings.TrimSpace(os.Getenv("GO_ENV")); goEnv != "" && goEnv != os.Getenv("APP_ENV") {
		files = append(files, ".env."+goEnv)
	}

	var loadedAny bool
	for _, f := range files {
		if fileExists(f) {
			if err := godotenv.Overload(f); err != nil {
				logger.Warn("dotenv load failed", zap.String("file", f), zap.Error(err))
				continue
			}
			loadedAny = true
		}
	}

	if !loadedAny {
		return fmt.Errorf("no .env files found (looked for: %s)", strings.Join(files, ", "))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
