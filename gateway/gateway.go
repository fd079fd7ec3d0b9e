package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/jferrl/go-githubauth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gitgauge/gitgauge/logger"
	"github.com/gitgauge/gitgauge/ratelimit"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

// maxResetWait bounds the automatic rate-limit sleep. Resets further out
// than this propagate as errors instead of blocking the caller.
const maxResetWait = time.Hour

// Options configures a Gateway. Exactly one auth path is used: Token when
// set, otherwise App credentials.
type Options struct {
	Token string

	AppPrivateKey     []byte
	AppClientID       string
	AppInstallationID int64

	HTTPTimeout time.Duration
	Limiter     *ratelimit.Limiter

	// Overridable endpoints, used by tests.
	BaseURL    string
	GraphQLURL string
}

// Gateway is the single point of contact to the GitHub API for one
// credential. It owns that credential's rate-limit tracking; concurrent
// sessions should each hold their own Gateway.
type Gateway struct {
	gh         *github.Client
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	graphqlURL string

	mu       sync.RWMutex
	snapshot RateLimitSnapshot

	now func() time.Time
}

func New(opts Options) (*Gateway, error) {
	timeout := opts.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var src oauth2.TokenSource
	switch {
	case opts.Token != "":
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	case len(opts.AppPrivateKey) > 0:
		appSrc, err := githubauth.NewApplicationTokenSource(opts.AppClientID, opts.AppPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("app token source: %w", err)
		}
		src = githubauth.NewInstallationTokenSource(opts.AppInstallationID, appSrc)
	}

	httpClient := &http.Client{Timeout: timeout}
	if src != nil {
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = timeout
	}

	gh := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
		gh.BaseURL = base
	}

	graphqlURL := opts.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = defaultGraphQLURL
	}

	return &Gateway{
		gh:         gh,
		httpClient: httpClient,
		limiter:    opts.Limiter,
		graphqlURL: graphqlURL,
		now:        time.Now,
	}, nil
}

// Snapshot returns the most recently observed rate-limit state.
func (g *Gateway) Snapshot() RateLimitSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshot
}

func (g *Gateway) record(resp *github.Response) {
	if resp == nil {
		return
	}
	g.recordRate(resp.Rate.Limit, resp.Rate.Remaining, resp.Rate.Reset.Unix())
}

func (g *Gateway) recordRate(limit, remaining int, resetEpoch int64) {
	if limit == 0 && remaining == 0 && resetEpoch == 0 {
		return
	}
	g.mu.Lock()
	g.snapshot = RateLimitSnapshot{
		Limit:      limit,
		Remaining:  remaining,
		ResetEpoch: resetEpoch,
		Used:       limit - remaining,
	}
	g.mu.Unlock()
}

// resetWait returns how long to sleep before the one automatic retry, or
// false when the error is not a limit exhaustion worth waiting out.
func (g *Gateway) resetWait(err error) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if !errors.As(err, &rateErr) {
		return 0, false
	}
	wait := time.Duration(rateErr.Rate.Reset.Unix()*1000-g.now().UnixMilli()) * time.Millisecond
	if wait <= 0 || wait >= maxResetWait {
		return 0, false
	}
	return wait, true
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

// do runs one REST call, records rate headers, and retries exactly once when
// the quota is exhausted and resets within the hour. Every other failure
// propagates classified but otherwise unchanged.
func do[T any](ctx context.Context, g *Gateway, fn func() (T, *github.Response, error)) (T, error) {
	var zero T
	if g.limiter != nil {
		if err := g.limiter.WaitREST(ctx); err != nil {
			return zero, err
		}
	}

	v, resp, err := fn()
	g.record(resp)
	if err == nil {
		return v, nil
	}

	if wait, ok := g.resetWait(err); ok {
		logger.Warn("rate limit exhausted, waiting for reset",
			zap.Duration("wait", wait),
			zap.Int("limit", g.Snapshot().Limit))
		if serr := sleepCtx(ctx, wait); serr != nil {
			return zero, serr
		}
		v, resp, err = fn()
		g.record(resp)
		if err == nil {
			return v, nil
		}
	}
	return zero, Classify(err)
}

// GetProfile fetches the account profile for login.
func (g *Gateway) GetProfile(ctx context.Context, login string) (*Profile, error) {
	user, err := do(ctx, g, func() (*github.User, *github.Response, error) {
		return g.gh.Users.Get(ctx, login)
	})
	if err != nil {
		return nil, err
	}
	return &Profile{
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		Bio:         user.GetBio(),
		AvatarURL:   user.GetAvatarURL(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		PublicRepos: user.GetPublicRepos(),
		CreatedAt:   user.GetCreatedAt().Time,
	}, nil
}

// ListRepositories fetches up to 100 of login's repositories, most recently
// updated first.
func (g *Gateway) ListRepositories(ctx context.Context, login string) ([]RepositorySummary, error) {
	repos, err := do(ctx, g, func() ([]*github.Repository, *github.Response, error) {
		return g.gh.Repositories.ListByUser(ctx, login, &github.RepositoryListByUserOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: 100},
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]RepositorySummary, 0, len(repos))
	for _, r := range repos {
		if r == nil {
			continue
		}
		out = append(out, toSummary(r))
	}
	return out, nil
}

func toSummary(r *github.Repository) RepositorySummary {
	return RepositorySummary{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Watchers:    r.GetWatchersCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		Size:        r.GetSize(),
		Topics:      r.Topics,
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
		IsFork:      r.GetFork(),
		HasWiki:     r.GetHasWiki(),
		Permissions: r.GetPermissions(),
	}
}

// ListLanguages fetches the byte counts per language for one repository.
func (g *Gateway) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	return do(ctx, g, func() (map[string]int, *github.Response, error) {
		return g.gh.Repositories.ListLanguages(ctx, owner, repo)
	})
}

// ListRecentEvents fetches up to 100 recent public events performed by login.
func (g *Gateway) ListRecentEvents(ctx context.Context, login string) ([]Event, error) {
	raw, err := do(ctx, g, func() ([]*github.Event, *github.Response, error) {
		return g.gh.Activity.ListEventsPerformedByUser(ctx, login, true, &github.ListOptions{PerPage: 100})
	})
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		if e == nil {
			continue
		}
		events = append(events, Event{
			Type:      e.GetType(),
			Repo:      e.GetRepo().GetName(),
			CreatedAt: e.GetCreatedAt().Time,
		})
	}
	return events, nil
}

// GetReadme fetches a repository readme. A missing readme is a soft miss:
// (nil, nil), not an error.
func (g *Gateway) GetReadme(ctx context.Context, owner, repo string) (*Readme, error) {
	content, err := do(ctx, g, func() (*github.RepositoryContent, *github.Response, error) {
		return g.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	decoded, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode readme: %w", err)
	}
	return &Readme{
		Path:    content.GetPath(),
		Content: decoded,
		SHA:     content.GetSHA(),
	}, nil
}

// SearchRepositories runs a repository search and returns the top hits.
func (g *Gateway) SearchRepositories(ctx context.Context, query string) ([]RepositorySummary, error) {
	result, err := do(ctx, g, func() (*github.RepositoriesSearchResult, *github.Response, error) {
		return g.gh.Search.Repositories(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: 10},
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]RepositorySummary, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		if r == nil {
			continue
		}
		out = append(out, toSummary(r))
	}
	return out, nil
}

// GetFileSHA reads the current version token for a file. A missing file is a
// soft miss: ("", nil) selects the create path for the next write.
func (g *Gateway) GetFileSHA(ctx context.Context, owner, repo, path, branch string) (string, error) {
	content, err := do(ctx, g, func() (*github.RepositoryContent, *github.Response, error) {
		file, _, resp, err := g.gh.Repositories.GetContents(ctx, owner, repo, path,
			&github.RepositoryContentGetOptions{Ref: branch})
		return file, resp, err
	})
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if content == nil {
		return "", &APIError{Kind: KindValidation, Err: fmt.Errorf("%s is a directory, not a file", path)}
	}
	return content.GetSHA(), nil
}

// CommitFile creates the file when sha is empty, otherwise updates the
// version identified by sha. The platform rejects a stale sha, which is what
// makes retrying this call safe.
func (g *Gateway) CommitFile(ctx context.Context, owner, repo, path, branch, message string, content []byte, sha string) (*CommitDescriptor, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(branch),
	}
	if sha != "" {
		opts.SHA = github.Ptr(sha)
	}
	resp, err := do(ctx, g, func() (*github.RepositoryContentResponse, *github.Response, error) {
		if sha == "" {
			return g.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
		}
		return g.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	})
	if err != nil {
		return nil, err
	}
	return &CommitDescriptor{
		SHA:     resp.Commit.GetSHA(),
		HTMLURL: resp.Commit.GetHTMLURL(),
		Path:    path,
		FileSHA: resp.Content.GetSHA(),
	}, nil
}
