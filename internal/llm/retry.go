package llm

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// MaxRetries bounds attempts per call, the first included.
const MaxRetries = 3

const (
	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

// RetryableError is a 429 or 5xx answer. RetryAfter is the server's hint,
// zero when it sent none.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func newRetryableError(resp *http.Response, body []byte) *RetryableError {
	return &RetryableError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date. Hints beyond
// backoffCap are clamped.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(now)
	}
	if d <= 0 {
		return 0
	}
	return min(d, backoffCap)
}

func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// retryAfter returns the server hint carried by err, if any.
func retryAfter(err error) time.Duration {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.RetryAfter
	}
	return 0
}

// Backoff is exponential from one second, capped at 30s, plus up to 50%
// jitter. attempt is 0-indexed.
func Backoff(attempt int) time.Duration {
	base := min(backoffBase<<uint(min(attempt, 5)), backoffCap)
	return base + time.Duration(rand.Int64N(int64(base)/2))
}
