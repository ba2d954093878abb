package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external services we send requests to
type API string

const (
	// APIFinviz represents the quote page service
	APIFinviz API = "finviz"
)

// Limiter manages outbound request rates per API. It is shared by every
// batch running in the process, so concurrent jobs in server mode draw from
// the same budget.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// NewLimiter returns a Limiter allowing perSecond requests per second to
// every known API. A rate of zero or less disables limiting.
func NewLimiter(perSecond float64) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter),
	}

	l.Set(APIFinviz, perSecond)

	return l
}

// For returns the limiter for api, or nil when the API is not limited.
func (l *Limiter) For(api API) *rate.Limiter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiters[api]
}

// Set replaces the rate for api.
func (l *Limiter) Set(api API, perSecond float64) {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.limiters[api]; ok {
		existing.SetLimit(limit)
		return
	}
	l.limiters[api] = rate.NewLimiter(limit, 1)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	limiter := l.For(api)
	if limiter == nil {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Gate returns a waiter bound to api, suitable for a single fetcher.
func (l *Limiter) Gate(api API) *Gate {
	return &Gate{limiter: l, api: api}
}

// Gate blocks callers until the shared limiter admits a request to one API.
type Gate struct {
	limiter *Limiter
	api     API
}

// Wait blocks until a request may be sent or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx, g.api)
}
