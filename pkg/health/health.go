// Package health runs dependency probes concurrently and serves liveness and
// readiness endpoints. A failing critical probe marks the service down; a
// failing optional probe (such as the result cache) only degrades it.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Probe returns nil when the dependency is usable.
type Probe func(ctx context.Context) error

type ComponentHealth struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type check struct {
	probe    Probe
	critical bool
}

type Checker struct {
	mu     sync.RWMutex
	checks map[string]check
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]check),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a probe that takes the service down when it fails.
func (c *Checker) Register(name string, probe Probe) {
	c.add(name, probe, true)
}

// RegisterOptional adds a probe whose failure only degrades the service.
func (c *Checker) RegisterOptional(name string, probe Probe) {
	c.add(name, probe, false)
}

func (c *Checker) add(name string, probe Probe, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check{probe: probe, critical: critical}
}

// Run executes every probe in parallel and folds the results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]check, len(c.checks))
	for name, ch := range c.checks {
		checks[name] = ch
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, ch := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := ch.probe(ctx)
			result := ComponentHealth{
				Status:   StatusUp,
				Critical: ch.critical,
				Latency:  time.Since(start).Round(time.Microsecond).String(),
			}
			if err != nil {
				result.Status = StatusDegraded
				if ch.critical {
					result.Status = StatusDown
				}
				result.Message = err.Error()
				c.logger.Warn("health probe failed", "check", name, "critical", ch.critical, "error", err)
			}
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			return report
		case StatusDegraded:
			report.Status = StatusDegraded
		}
	}
	return report
}

// LiveHandler reports that the process is serving HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 200 while no critical probe fails, 503 otherwise.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
