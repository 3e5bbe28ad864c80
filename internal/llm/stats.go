package llm

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	operation  string
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates the samples of one operation, or of all of them.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Report is the overall snapshot plus one per operation.
type Report struct {
	Overall     StatsSnapshot            `json:"overall"`
	ByOperation map[string]StatsSnapshot `json:"by_operation"`
}

// LLMStats keeps call samples within a rolling window. Latency figures
// cover successful calls only.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds a successful call.
func (s *LLMStats) Record(durationMs int64) {
	s.RecordCall("", durationMs, nil)
}

// RecordCall adds one call of operation; err marks it failed.
func (s *LLMStats) RecordCall(operation string, durationMs int64, err error) {
	if s == nil {
		return
	}
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		at:         now,
		operation:  operation,
		durationMs: durationMs,
		failed:     err != nil,
	})
}

// Snapshot aggregates every sample in the window.
func (s *LLMStats) Snapshot() StatsSnapshot {
	return s.Report().Overall
}

// Report aggregates the window overall and per named operation.
func (s *LLMStats) Report() Report {
	rep := Report{ByOperation: map[string]StatsSnapshot{}}
	if s == nil {
		return rep
	}
	now := time.Now()

	s.mu.Lock()
	s.pruneLocked(now)
	all := append([]sample(nil), s.samples...)
	s.mu.Unlock()

	rep.Overall = aggregate(all)
	byOp := map[string][]sample{}
	for _, sm := range all {
		if sm.operation != "" {
			byOp[sm.operation] = append(byOp[sm.operation], sm)
		}
	}
	for op, samples := range byOp {
		rep.ByOperation[op] = aggregate(samples)
	}
	return rep
}

func aggregate(samples []sample) StatsSnapshot {
	var snap StatsSnapshot
	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		snap.Count++
		if sm.failed {
			snap.Failures++
			continue
		}
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	if len(values) == 0 {
		return snap
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	keep := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	s.samples = keep
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	idx := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := idx - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
