package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// App
	Env      string `split_words:"true" default:"prod" validate:"oneof=dev staging prod"`
	LogLevel string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`

	// Subject whose footprint is scored.
	TargetLogin string `split_words:"true" validate:"required"`

	// GitHub auth: either a personal token, or App credentials.
	GithubToken          string `split_words:"true"`
	GithubPrivateKey     string `envconfig:"GITGAUGE_GITHUB_PRIVATE_KEY"`
	GithubClientID       string `split_words:"true"`
	GithubInstallationID int64  `split_words:"true"`

	// Redis; when neither URL nor Addr is set the in-memory backend is used.
	RedisURL      string `split_words:"true"`
	RedisAddr     string `split_words:"true"`
	RedisPassword string `split_words:"true"`
	RedisDB       int    `split_words:"true" default:"0"`

	// Performance tuning
	RestRateLimit     int           `split_words:"true" default:"80" validate:"gt=0"`
	GraphqlRateLimit  int           `split_words:"true" default:"50" validate:"gt=0"`
	CacheSize         int           `split_words:"true" default:"1000" validate:"gt=0"`
	HTTPClientTimeout time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	LanguageFetchMax  int           `split_words:"true" default:"30" validate:"gt=0"`
	ScoreTTL          time.Duration `split_words:"true" default:"1h" validate:"gt=0"`
	AnalysisTTL       time.Duration `split_words:"true" default:"30m" validate:"gt=0"`
	RedisConnTimeout  time.Duration `split_words:"true" default:"3s" validate:"gt=0"`

	// Optional discovery query logged at startup.
	SearchQuery string `split_words:"true"`

	// Optional publish target for the score summary file.
	PublishOwner   string `split_words:"true"`
	PublishRepo    string `split_words:"true"`
	PublishPath    string `split_words:"true" default:"SCORE.json"`
	PublishBranch  string `split_words:"true" default:"main"`
	PublishMessage string `split_words:"true" default:"chore: update profile score"`
}

// HasTokenAuth reports whether a personal access token is configured.
func (c Config) HasTokenAuth() bool { return c.GithubToken != "" }

// HasAppAuth reports whether GitHub App installation credentials are configured.
func (c Config) HasAppAuth() bool {
	return c.GithubPrivateKey != "" && c.GithubClientID != "" && c.GithubInstallationID != 0
}

type Loader struct {
	Prefix   string
	Validate *validator.Validate
}
