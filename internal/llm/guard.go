package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/lexdoc/internal/metrics"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned without calling the service while its breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// GuardConfig tunes a Guard. Zero values select the defaults in NewGuard.
type GuardConfig struct {
	Name              string
	RequestsPerMinute int // 0 disables rate limiting.
	MaxRetries        int
	FailureThreshold  uint32        // consecutive failures that open the breaker
	OpenTimeout       time.Duration // how long the breaker stays open
	Backoff           func(attempt int) time.Duration
}

// Guard wraps outbound calls with rate limiting, retries of transient
// errors and a circuit breaker. It records every attempt in Stats.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retries int
	backoff func(int) time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics

	Stats *LLMStats
}

func NewGuard(cfg GuardConfig, log *slog.Logger, m *metrics.Metrics) *Guard {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = MaxRetries
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = Backoff
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := min(cfg.RequestsPerMinute, 10)
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), burst)
	}

	g := &Guard{
		name:    cfg.Name,
		limiter: limiter,
		retries: cfg.MaxRetries,
		backoff: cfg.Backoff,
		log:     log.With("component", "guard", "service", cfg.Name),
		metrics: m,
		Stats:   NewLLMStats(time.Hour),
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about service health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			g.metrics.BreakerOpen(name, to == gobreaker.StateOpen)
		},
	})
	return g
}

// Do runs fn under the guard. Transient failures are retried with backoff
// until the retry budget or ctx runs out.
func (g *Guard) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := range g.retries {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limit: %w", g.name, err)
		}

		start := time.Now()
		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		elapsed := time.Since(start)
		g.Stats.RecordCall(operation, elapsed.Milliseconds(), err)
		g.metrics.ObserveCall(g.name+"."+operation, elapsed, err)

		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", g.name, ErrCircuitOpen)
		}
		lastErr = err
		if !IsRetryable(err) || attempt == g.retries-1 {
			break
		}

		wait := max(g.backoff(attempt), retryAfter(err))
		g.log.Warn("retryable error", "operation", operation, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GuardedGenerator runs a Generator under a Guard.
type GuardedGenerator struct {
	next  Generator
	guard *Guard
}

func NewGuardedGenerator(next Generator, guard *Guard) *GuardedGenerator {
	return &GuardedGenerator{next: next, guard: guard}
}

func (g *GuardedGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var out string
	err := g.guard.Do(ctx, opts.Operation, func(ctx context.Context) error {
		var err error
		out, err = g.next.Generate(ctx, prompt, opts)
		return err
	})
	return out, err
}

// Stats returns the guard's call statistics.
func (g *GuardedGenerator) Stats() *LLMStats { return g.guard.Stats }

// VectorEmbedder embeds a batch of texts.
type VectorEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GuardedEmbedder runs a VectorEmbedder under a Guard.
type GuardedEmbedder struct {
	next  VectorEmbedder
	guard *Guard
}

func NewGuardedEmbedder(next VectorEmbedder, guard *Guard) *GuardedEmbedder {
	return &GuardedEmbedder{next: next, guard: guard}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.guard.Do(ctx, "embed", func(ctx context.Context) error {
		var err error
		out, err = e.next.Embed(ctx, texts)
		return err
	})
	return out, err
}
