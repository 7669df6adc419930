package metrics

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Reporter periodically logs request totals and runtime statistics.
type Reporter struct {
	collector *Collector
	interval  time.Duration
	logger    *slog.Logger
}

// NewReporter creates a Reporter. A non-positive interval makes Run a no-op
// that waits for cancellation.
func NewReporter(collector *Collector, interval time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{collector: collector, interval: interval, logger: logger}
}

// Run logs a report every interval until ctx is canceled.
func (r *Reporter) Run(ctx context.Context) {
	if r.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}

// Report logs a single snapshot.
func (r *Reporter) Report() {
	snap := TakeSnapshot(r.collector)
	r.logger.Info("status report",
		"requests", snap.Requests,
		"errors", snap.Errors,
		"goroutines", snap.Goroutines,
		"heap_mb", snap.HeapMB,
		"uptime", snap.Uptime.Round(time.Second).String(),
	)
}

// Snapshot is a point-in-time view of the process, used by /status.
type Snapshot struct {
	Requests   uint64
	Errors     uint64
	Goroutines int
	HeapMB     float64
	SysMB      float64
	Uptime     time.Duration
}

// TakeSnapshot reads the collector counters and runtime memory statistics.
func TakeSnapshot(c *Collector) Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Snapshot{
		Goroutines: runtime.NumGoroutine(),
		HeapMB:     toMB(mem.HeapAlloc),
		SysMB:      toMB(mem.Sys),
	}
	if c != nil {
		s.Requests = c.Total()
		s.Errors = c.Errors()
		s.Uptime = c.Uptime()
	}
	return s
}

func toMB(b uint64) float64 {
	return float64(b*100/(1024*1024)) / 100
}
