// Package profiler - Timing statistics for the stages of a detection run.
package profiler

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxSamples bounds the samples kept per stage.
const DefaultMaxSamples = 600

// Stats summarizes the samples of one stage.
type Stats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	// P50 and P95 are taken over the retained samples only.
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
}

// TimeTracker tracks timing statistics for one stage. Min, max, count and
// total cover every sample; only the newest maxSamples are retained.
type TimeTracker struct {
	durations []time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

func (t *TimeTracker) record(d time.Duration, maxSamples int) {
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.count++
	t.total += d

	t.durations = append(t.durations, d)
	if len(t.durations) > maxSamples {
		t.durations = t.durations[1:]
	}
}

func (t *TimeTracker) stats() Stats {
	s := Stats{Count: t.count, Total: t.total, Min: t.min, Max: t.max}
	if t.count > 0 {
		s.Mean = t.total / time.Duration(t.count)
	}
	if len(t.durations) > 0 {
		sorted := append([]time.Duration(nil), t.durations...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		s.P50 = percentile(sorted, 50)
		s.P95 = percentile(sorted, 95)
	}
	return s
}

// percentile returns the nearest-rank percentile of sorted samples.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// Profiler collects stage timings. It is safe for concurrent use.
type Profiler struct {
	mu         sync.Mutex
	maxSamples int
	stages     map[string]*TimeTracker
}

// New creates a profiler keeping up to maxSamples samples per stage.
// A non-positive maxSamples uses DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		maxSamples: maxSamples,
		stages:     make(map[string]*TimeTracker),
	}
}

// Record adds one sample to a stage.
func (p *Profiler) Record(stage string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.stages[stage]
	if !ok {
		t = &TimeTracker{}
		p.stages[stage] = t
	}
	t.record(d, p.maxSamples)
}

// StartOperation starts timing a stage and returns the function that stops it.
//
// @example
// done := p.StartOperation("inference")
// outputs, err := session.Run(ctx, input)
// done()
func (p *Profiler) StartOperation(stage string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		p.Record(stage, d)
		return d
	}
}

// Stats returns the statistics of a stage and whether it has samples.
func (p *Profiler) Stats(stage string) (Stats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.stages[stage]
	if !ok {
		return Stats{}, false
	}
	return t.stats(), true
}

// Stages returns the recorded stage names in sorted order.
func (p *Profiler) Stages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.stages))
	for name := range p.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report logs one line per stage.
func (p *Profiler) Report(logger logrus.FieldLogger) {
	for _, stage := range p.Stages() {
		s, _ := p.Stats(stage)
		logger.WithFields(logrus.Fields{
			"stage": stage,
			"count": s.Count,
			"mean":  s.Mean,
			"min":   s.Min,
			"max":   s.Max,
			"p50":   s.P50,
			"p95":   s.P95,
		}).Info("timing")
	}
}
