package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"turtle-trader/config"
	"turtle-trader/logging"
	"turtle-trader/models"
)

type statusResponse struct {
	Time  time.Time             `json:"time"`
	Risk  models.RiskSnapshot   `json:"risk"`
	Cycle *models.CycleSnapshot `json:"cycle,omitempty"`
}

// StartServer starts a local HTTP status server for diagnostics. It serves
// the latest risk and cycle snapshots at /status, liveness at /healthz, and
// prometheus exposition at /metrics.
func StartServer(cfg *config.Config, state *models.EngineState, logger logging.LoggerInterface) *http.Server {
	addr := strings.TrimSpace(cfg.StatusAddr)
	if addr == "" || strings.EqualFold(addr, "off") || strings.EqualFold(addr, "disabled") {
		logger.Info("Status server disabled")
		return nil
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(state, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Status server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server stopped: %v", err)
		}
	}()

	return srv
}

// Handler builds the status routes.
func Handler(state *models.EngineState, logger logging.LoggerInterface) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Time: time.Now(),
			Risk: state.Risk(),
		}
		cycle := state.Cycle()
		if !cycle.Time.IsZero() {
			resp.Cycle = &cycle
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warning("Status encode failed: %v", err)
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
