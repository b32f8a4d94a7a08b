package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/pool"
	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/internal/registry"
	"github.com/quorumtrade/poolarb/internal/reserve"
	"github.com/quorumtrade/poolarb/internal/risk"
	"github.com/quorumtrade/poolarb/internal/storage"
	"github.com/quorumtrade/poolarb/pkg/healthprobe"
	"github.com/quorumtrade/poolarb/pkg/types"
)

// Server provides HTTP endpoints for metrics, health checks, and read-only
// views of the pool, reserve, risk gate, validator network, and products.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Ledger        *pool.Ledger
	Reserve       *reserve.Reserve
	Gate          *risk.Gate
	Network       *quorum.Network
	Registry      *registry.Registry
	Store         storage.Store // optional audit trail for claim endpoints
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	if cfg.Ledger != nil {
		r.Get("/api/pool", handlePool(cfg.Ledger))
	}
	if cfg.Reserve != nil && cfg.Ledger != nil {
		r.Get("/api/reserve", handleReserve(cfg.Reserve, cfg.Ledger))
		r.Get("/api/claims", handleClaimsList(cfg.Reserve))
		r.Post("/api/claims", handleClaimFile(cfg))
		r.Post("/api/claims/{claimID}/approve", handleClaimApprove(cfg))
		r.Post("/api/claims/{claimID}/deny", handleClaimDeny(cfg))
	}
	if cfg.Gate != nil {
		r.Get("/api/risk", handleRisk(cfg.Gate))
	}
	if cfg.Network != nil {
		r.Get("/api/validators", handleValidators(cfg.Network))
	}
	if cfg.Registry != nil {
		r.Get("/api/products", handleProducts(cfg.Registry))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func handlePool(ledger *pool.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ledger.Stats())
	}
}

func handleReserve(rsv *reserve.Reserve, ledger *pool.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, rsv.Health(ledger.Stats().LifetimeCapital))
	}
}

func handleRisk(gate *risk.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, gate.CurrentStatus())
	}
}

type validatorView struct {
	ID          string  `json:"id"`
	Role        string  `json:"role"`
	Decisions   int     `json:"decisions"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

type validatorsResponse struct {
	Validators []validatorView `json:"validators"`
	Pending    int             `json:"pending"`
	Approved   int             `json:"approved"`
	Rejected   int             `json:"rejected"`
	Executed   int             `json:"executed"`
	Cancelled  int             `json:"cancelled"`
}

func handleValidators(network *quorum.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := network.NetworkStats()

		resp := validatorsResponse{
			Validators: make([]validatorView, 0, len(stats.Validators)),
			Pending:    stats.Pending,
			Approved:   stats.Approved,
			Rejected:   stats.Rejected,
			Executed:   stats.Executed,
			Cancelled:  stats.Cancelled,
		}
		for i := range stats.Validators {
			v := stats.Validators[i]
			resp.Validators = append(resp.Validators, validatorView{
				ID:          v.ID,
				Role:        v.Role.String(),
				Decisions:   v.Decisions,
				AccuracyPct: v.AccuracyPct(),
			})
		}

		writeJSON(w, resp)
	}
}

func handleProducts(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reg.List())
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// claimStatusCode maps claim errors onto HTTP statuses.
func claimStatusCode(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNotPending),
		errors.Is(err, types.ErrInsufficientReserve),
		errors.Is(err, types.ErrReserveHealthLow):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// recordReserveEvent writes the claim audit trail. Store is optional; a
// write failure never fails the claim itself.
func recordReserveEvent(ctx context.Context, cfg *Config, ev storage.ReserveEvent) {
	if cfg.Store == nil {
		return
	}
	err := cfg.Store.StoreReserveEvent(ctx, ev)
	if err != nil {
		cfg.Logger.Error("store-reserve-event-failed",
			zap.String("kind", ev.Kind),
			zap.String("claim-id", ev.ClaimID),
			zap.Error(err))
	}
}

func handleClaimsList(rsv *reserve.Reserve) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := reserve.ClaimStatus(r.URL.Query().Get("status"))
		writeJSON(w, map[string][]reserve.Claim{"claims": rsv.Claims(filter)})
	}
}

type fileClaimRequest struct {
	Member string  `json:"member"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

func handleClaimFile(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fileClaimRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		claim, err := cfg.Reserve.FileClaim(req.Member, req.Amount, req.Reason)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		recordReserveEvent(r.Context(), cfg, storage.ReserveEvent{
			At:      time.Now(),
			Kind:    "claim_filed",
			ClaimID: claim.ID,
			Member:  claim.Member,
			Amount:  claim.Amount,
		})
		writeJSON(w, claim)
	}
}

func handleClaimApprove(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claimID")

		claim, err := cfg.Reserve.ApproveClaim(claimID, cfg.Ledger.Stats().LifetimeCapital)
		if err != nil {
			writeError(w, claimStatusCode(err), err)
			return
		}

		recordReserveEvent(r.Context(), cfg, storage.ReserveEvent{
			At:      time.Now(),
			Kind:    "claim_paid",
			ClaimID: claim.ID,
			Member:  claim.Member,
			Amount:  claim.Amount,
		})
		writeJSON(w, claim)
	}
}

func handleClaimDeny(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claimID")

		var req struct {
			Reason string `json:"reason"`
		}
		// An empty body denies with no reason.
		_ = json.NewDecoder(r.Body).Decode(&req)

		err := cfg.Reserve.DenyClaim(claimID, req.Reason)
		if err != nil {
			writeError(w, claimStatusCode(err), err)
			return
		}

		recordReserveEvent(r.Context(), cfg, storage.ReserveEvent{
			At:      time.Now(),
			Kind:    "claim_denied",
			ClaimID: claimID,
		})
		writeJSON(w, map[string]string{"claim_id": claimID, "status": string(reserve.ClaimDenied)})
	}
}
