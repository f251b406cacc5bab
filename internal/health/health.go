// Package health runs named dependency checks and reports them over HTTP
// and the gRPC health protocol.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc returns nil when the dependency is usable
type CheckFunc func(ctx context.Context) error

// Report is the outcome of one round of checks
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	CheckedAt time.Time         `json:"checkedAt"`
}

// Healthy reports whether every check passed
func (r Report) Healthy() bool {
	return r.Status == "ok"
}

// Checker holds the registered checks
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	observe func(name string, healthy bool)
	logger  *zap.Logger
}

// NewChecker creates a checker; every check gets timeout to finish
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds or replaces a named check
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// OnResult sets a callback invoked with each check result, used for metrics
func (c *Checker) OnResult(fn func(name string, healthy bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observe = fn
}

// Run executes every check concurrently
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]CheckFunc, len(names))
	for i, name := range names {
		checks[i] = c.checks[name]
	}
	observe := c.observe
	c.mu.RUnlock()

	// a failing check never cancels the others, so the group only waits
	results := make([]error, len(names))
	var g errgroup.Group
	for i := range names {
		i := i
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			results[i] = checks[i](cctx)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: "ok", Checks: make(map[string]string, len(names)), CheckedAt: time.Now().UTC()}
	for i, name := range names {
		err := results[i]
		if err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			c.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
		} else {
			report.Checks[name] = "ok"
		}
		if observe != nil {
			observe(name, err == nil)
		}
	}
	return report
}

// ServeHTTP writes the report as JSON, 503 when any check failed
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := c.Run(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(report)
}

// Watch runs the checks every interval and mirrors the overall result into
// the gRPC health server until ctx is done
func (c *Checker) Watch(ctx context.Context, srv *grpchealth.Server, interval time.Duration) {
	c.update(ctx, srv)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			c.update(ctx, srv)
		}
	}
}

func (c *Checker) update(ctx context.Context, srv *grpchealth.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if !c.Run(ctx).Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", status)
}
