package cluster

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Liveness is the body served by LivenessHandler.
type Liveness struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
}

// LivenessHandler answers 200 while the process serves HTTP. It runs no
// dependency checks.
func LivenessHandler(service string) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(Liveness{
			Service: service,
			Status:  "alive",
			Uptime:  time.Since(started).Truncate(time.Second).String(),
		})
	}
}

// CheckFunc returns an error when the checked dependency is unhealthy.
type CheckFunc func() error

// HealthAggregator runs named checks behind one endpoint.
type HealthAggregator struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewHealthAggregator() *HealthAggregator {
	return &HealthAggregator{
		checks: make(map[string]CheckFunc),
	}
}

func (h *HealthAggregator) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Handler answers 200 when every check passes and 503 with the failing
// checks otherwise.
func (h *HealthAggregator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		failed := make(map[string]string)
		for name, check := range h.checks {
			if err := check(); err != nil {
				failed[name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(failed)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}
