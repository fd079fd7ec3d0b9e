package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gitgauge/gitgauge/gateway"
	"github.com/gitgauge/gitgauge/logger"
)

// FileWriter is the slice of the gateway the executor consumes.
type FileWriter interface {
	GetFileSHA(ctx context.Context, owner, repo, path, branch string) (string, error)
	CommitFile(ctx context.Context, owner, repo, path, branch, message string, content []byte, sha string) (*gateway.CommitDescriptor, error)
}

const maxAttempts = 3

// Request describes one create-or-update of a remote text resource.
type Request struct {
	Owner   string
	Repo    string
	Path    string
	Branch  string
	Message string
	Content []byte
}

// Result reports the committed write and which path it took.
type Result struct {
	Commit   *gateway.CommitDescriptor
	Action   string // "created" or "updated"
	Attempts int
}

// Executor performs a create-or-update safely under transient failure. Each
// attempt re-reads the current version token before writing, so a retry can
// never silently overwrite a concurrent change: the platform rejects a
// stale token.
type Executor struct {
	writer FileWriter
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewExecutor(writer FileWriter) *Executor {
	return &Executor{writer: writer, sleep: sleepCtx}
}

// Publish runs up to 3 attempts. Non-retryable failures (4xx other than 429)
// abort immediately; 429 waits the server-specified interval or 2^attempt
// seconds; everything else backs off exponentially (2s, 4s, 8s). Exhausting
// the attempts surfaces one classified error from the last failure.
func (e *Executor) Publish(ctx context.Context, req Request) (*Result, error) {
	contentHash := sha256.Sum256(req.Content)
	hash := hex.EncodeToString(contentHash[:8])

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := e.attempt(ctx, req, attempt, hash)
		if err == nil {
			return result, nil
		}
		lastErr = err

		apiErr := gateway.Classify(err)
		if !apiErr.Retryable() {
			logger.Warn("publish aborted",
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.String("kind", string(apiErr.Kind)))
			return nil, apiErr
		}
		if attempt == maxAttempts {
			break
		}

		wait := backoff(apiErr, attempt)
		logger.Info("publish attempt failed, backing off",
			zap.String("path", req.Path),
			zap.Int("attempt", attempt),
			zap.String("kind", string(apiErr.Kind)),
			zap.Duration("wait", wait))
		if serr := e.sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}
	return nil, gateway.Classify(fmt.Errorf("publish %s: retries exhausted: %w", req.Path, lastErr))
}

func (e *Executor) attempt(ctx context.Context, req Request, attempt int, hash string) (*Result, error) {
	sha, err := e.writer.GetFileSHA(ctx, req.Owner, req.Repo, req.Path, req.Branch)
	if err != nil {
		return nil, err
	}

	action := "updated"
	if sha == "" {
		action = "created"
	}
	logger.Debug("publish attempt",
		zap.String("path", req.Path),
		zap.String("content_hash", hash),
		zap.String("version_token", sha),
		zap.Int("attempt", attempt),
		zap.String("action", action))

	commit, err := e.writer.CommitFile(ctx, req.Owner, req.Repo, req.Path, req.Branch, req.Message, req.Content, sha)
	if err != nil {
		return nil, err
	}
	return &Result{Commit: commit, Action: action, Attempts: attempt}, nil
}

func backoff(apiErr *gateway.APIError, attempt int) time.Duration {
	if apiErr.Kind == gateway.KindRateLimited {
		if retryAfter := gateway.RetryAfter(apiErr.Err); retryAfter > 0 {
			return retryAfter
		}
	}
	// 2s, 4s, 8s; also the 2^attempt fallback when 429 gave no interval.
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
