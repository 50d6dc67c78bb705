package manager

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/monitor"
)

// StatusResponse is the JSON body of the status endpoint.
type StatusResponse struct {
	Healthy bool                 `json:"healthy"`
	Network string               `json:"network"`
	Breaker BreakerResponse      `json:"circuit_breaker"`
	Queue   QueueResponse        `json:"queue"`
	Metrics MetricsResponse      `json:"metrics"`
	History []TransitionResponse `json:"history,omitempty"`
}

// BreakerResponse describes the circuit breaker in a status response.
type BreakerResponse struct {
	State    string     `json:"state"`
	Failures int        `json:"failures"`
	OpenedAt *time.Time `json:"opened_at,omitempty"`
}

// QueueResponse describes queue throughput in a status response.
type QueueResponse struct {
	Queued    int   `json:"queued"`
	Active    int   `json:"active"`
	Processed int64 `json:"processed"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
}

// MetricsResponse describes network counters in a status response.
type MetricsResponse struct {
	TotalRequests       int64  `json:"total_requests"`
	SuccessfulRequests  int64  `json:"successful_requests"`
	FailedRequests      int64  `json:"failed_requests"`
	RetriedRequests     int64  `json:"retried_requests"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	AverageResponseTime string `json:"average_response_time"`
}

// TransitionResponse is one network status change in a status response.
type TransitionResponse struct {
	At     time.Time `json:"at"`
	Status string    `json:"status"`
}

// LivenessHandler reports that the process is alive. Always 200.
func (m *Manager) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// ReadinessHandler reports whether requests are likely to succeed: 200
// when healthy, 503 when the network is down or the breaker is open.
func (m *Manager) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if m.IsHealthy() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("UNAVAILABLE"))
	}
}

// StatusHandler returns the full resilience snapshot as JSON. The HTTP
// status mirrors IsHealthy so dashboards can alert on it directly.
func (m *Manager) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := m.Status()

		resp := StatusResponse{
			Healthy: m.IsHealthy(),
			Network: snap.Network.String(),
			Breaker: BreakerResponse{
				State:    snap.Breaker.State.String(),
				Failures: snap.Breaker.Failures,
			},
			Queue: QueueResponse{
				Queued:    snap.Queue.Queued,
				Active:    snap.Queue.Active,
				Processed: snap.Queue.Processed,
				Succeeded: snap.Queue.Succeeded,
				Failed:    snap.Queue.Failed,
				Retried:   snap.Queue.Retried,
			},
			Metrics: MetricsResponse{
				TotalRequests:       snap.Metrics.TotalRequests,
				SuccessfulRequests:  snap.Metrics.SuccessfulRequests,
				FailedRequests:      snap.Metrics.FailedRequests,
				RetriedRequests:     snap.Metrics.RetriedRequests,
				ConsecutiveFailures: snap.Metrics.ConsecutiveFailures,
				AverageResponseTime: snap.Metrics.AverageResponseTime.String(),
			},
			History: transitionsJSON(snap.History),
		}
		if !snap.Breaker.OpenedAt.IsZero() {
			openedAt := snap.Breaker.OpenedAt
			resp.Breaker.OpenedAt = &openedAt
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// CheckHandler forces a connectivity check and reports the verdict.
func (m *Manager) CheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := m.ForceConnectivityCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if !connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]bool{"connected": connected})
	}
}

// RegisterHandlers mounts the diagnostic endpoints on mux:
//
//	/livez   - process liveness
//	/readyz  - request readiness
//	/status  - full JSON snapshot
//	/check   - forced connectivity check
func (m *Manager) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/livez", m.LivenessHandler())
	mux.HandleFunc("/readyz", m.ReadinessHandler())
	mux.HandleFunc("/status", m.StatusHandler())
	mux.HandleFunc("/check", m.CheckHandler())
}

func transitionsJSON(history []monitor.Transition) []TransitionResponse {
	if len(history) == 0 {
		return nil
	}
	out := make([]TransitionResponse, len(history))
	for i, tr := range history {
		out[i] = TransitionResponse{At: tr.At, Status: tr.Status.String()}
	}
	return out
}
