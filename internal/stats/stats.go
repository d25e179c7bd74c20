// Package stats keeps rolling-window parse latency and size figures.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at    time.Time
	us    int64
	nodes int
}

// Snapshot aggregates the parses currently inside the window.
type Snapshot struct {
	Count    int     `json:"count"`
	MinUs    int64   `json:"min_us"`
	MaxUs    int64   `json:"max_us"`
	AvgUs    float64 `json:"avg_us"`
	P50Us    float64 `json:"p50_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
	Nodes    int     `json:"nodes"`
	MaxNodes int     `json:"max_nodes"`
}

// ParseStats records how long parses take and how many nodes they yield.
type ParseStats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func New(window time.Duration) *ParseStats {
	if window <= 0 {
		window = time.Hour
	}
	return &ParseStats{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

func (s *ParseStats) Record(d time.Duration, nodes int) {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	if nodes < 0 {
		nodes = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, us: us, nodes: nodes})
}

// Time runs fn, records its duration and node count, and passes its result
// through.
func (s *ParseStats) Time(fn func() (int, error)) error {
	start := time.Now()
	nodes, err := fn()
	if err != nil {
		return err
	}
	s.Record(time.Since(start), nodes)
	return nil
}

func (s *ParseStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	var snap Snapshot
	for _, sm := range s.samples {
		values = append(values, sm.us)
		sum += sm.us
		snap.Nodes += sm.nodes
		if sm.nodes > snap.MaxNodes {
			snap.MaxNodes = sm.nodes
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinUs = values[0]
	snap.MaxUs = values[len(values)-1]
	snap.AvgUs = float64(sum) / float64(len(values))
	snap.P50Us = percentile(values, 50)
	snap.P95Us = percentile(values, 95)
	snap.P99Us = percentile(values, 99)
	return snap
}

func (s *ParseStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	keep := 0
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			s.samples[keep] = sm
			keep++
		}
	}
	s.samples = s.samples[:keep]
}

// percentile interpolates linearly between the two nearest ranks.
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

	rank := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := rank - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
