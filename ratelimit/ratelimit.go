package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound GitHub calls client-side so the server-side
// quota is rarely exhausted in the first place. REST and GraphQL quotas are
// tracked separately by the platform, so they get separate limiters.
type Limiter struct {
	rest    *rate.Limiter
	graphql *rate.Limiter
}

func New(restReqPerMin, graphqlReqPerMin int) *Limiter {
	return &Limiter{
		rest:    rate.NewLimiter(rate.Limit(float64(restReqPerMin)/60.0), restReqPerMin),
		graphql: rate.NewLimiter(rate.Limit(float64(graphqlReqPerMin)/60.0), graphqlReqPerMin),
	}
}

func (l *Limiter) WaitREST(ctx context.Context) error {
	return l.rest.Wait(ctx)
}

func (l *Limiter) WaitGraphQL(ctx context.Context) error {
	return l.graphql.Wait(ctx)
}
