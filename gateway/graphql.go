package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v74/github"
	"go.uber.org/zap"

	"github.com/gitgauge/gitgauge/logger"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

const calendarQuery = `
query($login: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $login) {
    contributionsCollection(from: $from, to: $to) {
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            date
            contributionCount
          }
        }
      }
    }
  }
}`

// ContributionCalendar fetches per-day contribution counts for the fixed
// [Jan 1, Dec 31] window of year. The response is sparse; callers zero-fill
// missing leading and trailing days.
func (g *Gateway) ContributionCalendar(ctx context.Context, login string, year int) (*ContributionCalendar, error) {
	variables := map[string]any{
		"login": login,
		"from":  time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"to":    time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC).Format(time.RFC3339),
	}

	var payload struct {
		User struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					TotalContributions int `json:"totalContributions"`
					Weeks              []struct {
						ContributionDays []struct {
							Date              string `json:"date"`
							ContributionCount int    `json:"contributionCount"`
						} `json:"contributionDays"`
					} `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	}
	if err := g.doGraphQL(ctx, calendarQuery, variables, &payload); err != nil {
		return nil, err
	}

	cal := &ContributionCalendar{
		Year:  year,
		Total: payload.User.ContributionsCollection.ContributionCalendar.TotalContributions,
		Days:  make(map[string]int),
	}
	for _, week := range payload.User.ContributionsCollection.ContributionCalendar.Weeks {
		for _, day := range week.ContributionDays {
			cal.Days[day.Date] = day.ContributionCount
		}
	}
	return cal, nil
}

// doGraphQL posts one {query, variables} request, recording rate headers and
// honoring the same single limit-triggered retry as the REST path.
func (g *Gateway) doGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	if g.limiter != nil {
		if err := g.limiter.WaitGraphQL(ctx); err != nil {
			return err
		}
	}

	err := g.postGraphQL(ctx, query, variables, out)
	if err == nil {
		return nil
	}

	if wait, ok := g.resetWait(err); ok {
		logger.Warn("graphql rate limit exhausted, waiting for reset", zap.Duration("wait", wait))
		if serr := sleepCtx(ctx, wait); serr != nil {
			return serr
		}
		err = g.postGraphQL(ctx, query, variables, out)
		if err == nil {
			return nil
		}
	}
	return Classify(err)
}

func (g *Gateway) postGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	g.recordHeaders(resp)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read graphql response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if limitErr, ok := rateLimitFromResponse(resp, raw); ok {
			return limitErr
		}
		return &APIError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("graphql status %d: %s", resp.StatusCode, raw),
		}
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(raw, &gqlResp); err != nil {
		return fmt.Errorf("parse graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		kind := KindConflictOrUnknown
		if gqlResp.Errors[0].Type == "NOT_FOUND" {
			kind = KindNotFound
		}
		return &APIError{Kind: kind, Err: fmt.Errorf("graphql: %s", gqlResp.Errors[0].Message)}
	}

	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

// rateLimitFromResponse rebuilds a rate-limit error from raw headers so the
// GraphQL path shares the REST path's retry handling.
func rateLimitFromResponse(resp *http.Response, body []byte) (*github.RateLimitError, bool) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil, false
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		return nil, false
	}
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	return &github.RateLimitError{
		Rate: github.Rate{
			Limit:     limit,
			Remaining: 0,
			Reset:     github.Timestamp{Time: time.Unix(reset, 0)},
		},
		Response: resp,
		Message:  string(body),
	}, true
}

func (g *Gateway) recordHeaders(resp *http.Response) {
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	remaining, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	g.recordRate(limit, remaining, reset)
}
