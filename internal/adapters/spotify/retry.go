package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

// retryPolicy bounds how often a GET is attempted and how long to wait
// between attempts. The zero value uses the defaults.
type retryPolicy struct {
	attempts int
	base     time.Duration
}

// policyFromEnv reads SPOTIFY_MAX_RETRIES and SPOTIFY_RETRY_BACKOFF_MS.
// Missing or non-positive values keep the defaults.
func policyFromEnv() retryPolicy {
	return retryPolicy{
		attempts: positiveEnv("SPOTIFY_MAX_RETRIES", defaultAttempts),
		base:     time.Duration(positiveEnv("SPOTIFY_RETRY_BACKOFF_MS", int(defaultBackoff/time.Millisecond))) * time.Millisecond,
	}
}

func positiveEnv(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (p retryPolicy) maxAttempts() int {
	if p.attempts <= 0 {
		return defaultAttempts
	}
	return p.attempts
}

// delay doubles the base wait on every attempt. The server's Retry-After
// hint wins when present.
func (p retryPolicy) delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}
	base := p.base
	if base <= 0 {
		base = defaultBackoff
	}
	return base << attempt
}

// transient reports whether a response is worth another attempt: transport
// failures, 429 and any 5xx.
func transient(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

// send performs req under the client's retry policy. A non-transient
// response is returned to the caller as is.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempts := c.retry.maxAttempts()

	var failure error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify adapter: request canceled: %w", err)
		}

		// #nosec G107 -- URL is built from the configured API base URL
		resp, err := c.httpClient.Do(req)
		if !transient(resp, err) {
			return resp, nil
		}

		var hint time.Duration
		if err != nil {
			failure = err
		} else {
			hint = parseRetryAfter(resp)
			failure = fmt.Errorf("status %d", resp.StatusCode)
			_ = resp.Body.Close()
		}
		slog.Warn("spotify adapter: transient failure",
			"path", req.URL.Path, "attempt", attempt+1, "of", attempts, "error", failure)

		if attempt+1 < attempts {
			if err := wait(ctx, c.retry.delay(attempt, hint)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("spotify adapter: giving up after %d attempts: %w", attempts, failure)
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(raw); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	}
}
