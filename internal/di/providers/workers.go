package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
	"github.com/livraria/livraria-api/internal/metrics"
	"github.com/livraria/livraria-api/internal/ratelimit"
)

// ProvideMetrics provides the request metrics collector, or nil when
// metrics are disabled.
func ProvideMetrics(i do.Injector) (*metrics.Collector, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Metrics.Enabled {
		log.Info("Metrics disabled by configuration")
		return nil, nil
	}
	collector := metrics.NewCollector(log.Logger, cfg.Metrics.ReportEvery)
	trackLifecycle(do.MustInvoke[*lifecycle.Manager](i), collector)
	return collector, nil
}

// trackLifecycle mirrors manager state transitions into the collector.
func trackLifecycle(manager *lifecycle.Manager, collector *metrics.Collector) {
	collector.SetLifecycleState(string(manager.State()))
	manager.OnTransition(func(_, to lifecycle.State) {
		collector.SetLifecycleState(string(to))
	})
}

// ReporterHandle stops the periodic metrics report on shutdown.
type ReporterHandle struct {
	*metrics.Reporter
	cancel context.CancelFunc
}

// Shutdown stops the reporter.
func (h *ReporterHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideReporter starts the periodic metrics report.
func ProvideReporter(i do.Injector) (*ReporterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	collector := do.MustInvoke[*metrics.Collector](i)
	manager := do.MustInvoke[*lifecycle.Manager](i)
	run := do.MustInvoke[RunContext](i)
	log := do.MustInvoke[*logger.Logger](i)

	if collector == nil || cfg.Metrics.ReportInterval <= 0 {
		return &ReporterHandle{}, nil
	}

	reporter := metrics.NewReporter(collector, cfg.Metrics.ReportInterval, log.Logger)
	ctx, cancel := context.WithCancel(run)
	manager.Go(ctx, "metrics reporter", func(ctx context.Context) error {
		reporter.Run(ctx)
		return nil
	})

	handle := &ReporterHandle{Reporter: reporter, cancel: cancel}
	manager.OnShutdown("metrics reporter", func(context.Context) error {
		return handle.Shutdown()
	})

	log.Info("Metrics reporter started", "interval", cfg.Metrics.ReportInterval)
	return handle, nil
}

// ProvideAuthLimiter provides the per-IP limiter for the public credential
// endpoints, or nil when the limit is disabled.
func ProvideAuthLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	manager := do.MustInvoke[*lifecycle.Manager](i)
	log := do.MustInvoke[*logger.Logger](i)

	rl := cfg.RateLimit
	if rl.AuthRequests <= 0 || rl.AuthInterval <= 0 {
		log.Warn("Authentication rate limit disabled")
		return nil, nil
	}

	burst := rl.AuthBurst
	if burst <= 0 {
		burst = rl.AuthRequests
	}
	limiter := ratelimit.NewPerInterval(rl.AuthRequests, rl.AuthInterval, burst)
	manager.OnShutdown("rate limiter", func(context.Context) error {
		limiter.Stop()
		return nil
	})

	log.Info("Authentication rate limit configured",
		"requests", rl.AuthRequests,
		"interval", rl.AuthInterval,
		"burst", burst,
	)
	return limiter, nil
}

// authRetryAfter is how long a limited client waits for the next token,
// rounded up to whole seconds.
func authRetryAfter(rl config.RateLimitConfig) time.Duration {
	if rl.AuthRequests <= 0 {
		return 0
	}
	d := rl.AuthInterval / time.Duration(rl.AuthRequests)
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}
