package airtable

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

// Airtable allows five requests per second per base and answers 429 with a
// 30 second penalty when that is exceeded.
const requestsPerSecond = 5

// requestTimeout bounds one attempt. The client deadline covers both attempts
// plus the wait between them.
const requestTimeout = 30 * time.Second

var defaultRetryAfter = 30 * time.Second

type RateLimiter struct {
	limiter     *rate.Limiter
	retryAfter  time.Duration
	retryStatus int
}

func NewRateLimiter(rps float64) *RateLimiter {
	return &RateLimiter{
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		retryAfter:  defaultRetryAfter,
		retryStatus: http.StatusTooManyRequests,
	}
}

// clientTimeout is the overall deadline for a request that may be retried once.
func (r *RateLimiter) clientTimeout() time.Duration {
	return 2*requestTimeout + r.retryAfter
}

// retryDelay never exceeds retryAfter so the retry fits in clientTimeout.
func (r *RateLimiter) retryDelay(headers http.Header) time.Duration {
	if retry := headers.Get("Retry-After"); retry != "" {
		if seconds, err := strconv.Atoi(retry); err == nil {
			return min(time.Duration(seconds)*time.Second, r.retryAfter)
		}
	}
	return r.retryAfter
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Middleware paces requests and retries a throttled one exactly once.
func (r *RateLimiter) Middleware(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := r.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}

		resp, err := next.RoundTrip(req)
		if err != nil {
			logger.Error("Network error in RoundTrip: %v", err)
			return nil, err
		}

		// * Retry on 429
		if resp.StatusCode != r.retryStatus {
			return resp, nil
		}

		delay := r.retryDelay(resp.Header)
		resp.Body.Close()
		logger.Warn("[RateLimiter] Received 429. Retrying after %v...", delay)

		if err := sleep(req.Context(), delay); err != nil {
			return nil, err
		}

		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			retry.Body = body
		}
		return next.RoundTrip(retry)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
