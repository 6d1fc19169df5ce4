// Package health implements liveness and readiness probes. Checks run on a
// background ticker; probe endpoints serve the cached results so a slow
// dependency can never stall the probe itself.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// Check probes one dependency. It must respect ctx cancellation.
type Check func(ctx context.Context) error

type probe struct {
	name    string
	timeout time.Duration
	check   Check
}

// Service evaluates registered checks and serves probe endpoints.
type Service struct {
	mu        sync.RWMutex
	liveness  []probe
	readiness []probe
	failures  map[string]string

	ready  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an empty health service. Register checks, then call Start.
func New() *Service {
	return &Service{failures: make(map[string]string)}
}

// AddLivenessCheck registers a check that gates the /livez probe.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, probe{name: name, timeout: timeout, check: check})
}

// AddReadinessCheck registers a check that gates the /readyz probe.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, probe{name: name, timeout: timeout, check: check})
}

// Start launches the background evaluation loop. All checks run once
// immediately and then at every interval.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.runChecks(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runChecks(ctx)
			}
		}
	}()
}

// Stop halts the evaluation loop and waits for it to exit.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// SetReady flips the manual readiness gate. The server sets it to false
// before draining so load balancers stop routing new traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Service) runChecks(ctx context.Context) {
	s.mu.RLock()
	probes := make([]probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.RUnlock()

	failures := make(map[string]string)
	for _, p := range probes {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(checkCtx)
		cancel()
		if err != nil {
			failures[p.name] = err.Error()
		}
	}

	s.mu.Lock()
	s.failures = failures
	s.mu.Unlock()
}

func (s *Service) failed(probes []probe) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range probes {
		if msg, ok := s.failures[p.name]; ok {
			out[p.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := s.liveness
	s.mu.RUnlock()
	writeProbe(w, s.failed(probes), true)
}

// ReadyEndpoint serves the readiness probe. It fails when any readiness or
// liveness check fails, or when the manual gate is down.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.RUnlock()

	failures := s.failed(probes)
	if !s.ready.Load() {
		failures["ready"] = "not accepting traffic"
	}
	writeProbe(w, failures, len(failures) == 0)
}

func writeProbe(w http.ResponseWriter, failures map[string]string, healthy bool) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if len(failures) > 0 {
		healthy = false
	}
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}
	if len(failures) > 0 {
		body["failures"] = failures
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// GoroutineCountCheck fails when the process exceeds max goroutines,
// signalling a leak.
func GoroutineCountCheck(max int) Check {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("%d goroutines running, limit %d", n, max)
		}
		return nil
	}
}
