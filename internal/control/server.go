// Package control serves the HTTP control surface of a running bot: settings
// reads and updates, live stats and positions, close-all, backtest progress
// and Prometheus metrics.
package control

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-autotrader/internal/backtest/progress"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/position"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/live"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// DefaultUpdateTimeout bounds how long a settings update waits for the main
// loop's verdict.
const DefaultUpdateTimeout = 10 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SettingsService reads settings and submits updates to the owning loop.
type SettingsService interface {
	Get() config.Settings
	Update(ctx context.Context, key string, value any) error
}

// Trader is the live side of the bot.
type Trader interface {
	Stats(ctx context.Context) (live.Stats, error)
	Positions() []position.View
	RequestCloseAll(ctx context.Context) (position.CloseAllResult, error)
}

// ProgressService reads and resets backtest progress.
type ProgressService interface {
	Status(ctx context.Context, symbol string, strategy string, months int) (progress.Status, error)
	Reset(ctx context.Context, symbol string, strategy string) error
}

// Dependencies are the services behind the routes. A nil service leaves its
// routes unregistered.
type Dependencies struct {
	Settings SettingsService
	Trader   Trader
	Progress ProgressService
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// SettingsUpdate is the body of POST /settings.
type SettingsUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// CloseAllResponse is the body of POST /positions/close-all.
type CloseAllResponse struct {
	Closed  int      `json:"closed"`
	PnL     string   `json:"pnl"`
	Skipped []string `json:"skipped"`
}

// Server routes control requests to the bot's services.
type Server struct {
	deps          Dependencies
	router        *mux.Router
	updateTimeout time.Duration
	logger        *logger.Logger
}

func NewServer(deps Dependencies, logger *logger.Logger) *Server {
	s := &Server{
		deps:          deps,
		router:        mux.NewRouter(),
		updateTimeout: DefaultUpdateTimeout,
		logger:        logger,
	}

	s.routes()

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Control API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return errors.Wrap(errors.ErrCodeUnknown, "control API stopped", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.router.Use(s.recovery)
	s.router.Use(s.logging)

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if s.deps.Settings != nil {
		s.router.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
		s.router.HandleFunc("/settings", s.updateSettings).Methods(http.MethodPost)
	}

	if s.deps.Trader != nil {
		s.router.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
		s.router.HandleFunc("/positions", s.positions).Methods(http.MethodGet)
		s.router.HandleFunc("/positions/close-all", s.closeAll).Methods(http.MethodPost)
	}

	if s.deps.Progress != nil && s.deps.Settings != nil {
		s.router.HandleFunc("/progress/{symbol}/{strategy}", s.progressStatus).Methods(http.MethodGet)
		s.router.HandleFunc("/progress/{symbol}/{strategy}/reset", s.resetProgress).Methods(http.MethodPost)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err))

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.updateTimeout)
	defer cancel()

	if err := s.deps.Settings.Update(ctx, req.Key, req.Value); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Trader.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) positions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Trader.Positions())
}

func (s *Server) closeAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Trader.RequestCloseAll(r.Context())
	if err != nil {
		s.writeError(w, err)

		return
	}

	total := result.PnL()

	s.writeJSON(w, http.StatusOK, CloseAllResponse{
		Closed:  len(result.Closed),
		PnL:     types.FormatPnL(total),
		Skipped: result.Skipped,
	})
}

func (s *Server) progressStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	months := s.deps.Settings.Get().Backtest.SessionDurationMonths

	status, err := s.deps.Progress.Status(r.Context(), vars["symbol"], vars["strategy"], months)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) resetProgress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.deps.Progress.Reset(r.Context(), vars["symbol"], vars["strategy"]); err != nil {
		s.writeError(w, err)

		return
	}

	s.logger.Info("Progress reset via control API",
		zap.String("symbol", vars["symbol"]),
		zap.String("strategy", vars["strategy"]))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)

	s.writeJSON(w, statusFor(code), ErrorResponse{Error: err.Error(), Code: int(code)})
}

// statusFor maps error code ranges onto HTTP statuses.
func statusFor(code errors.ErrorCode) int {
	switch {
	case code == errors.ErrCodePairLocked:
		return http.StatusConflict
	case code >= 100 && code < 200:
		return http.StatusBadRequest
	case code == errors.ErrCodeDataNotFound, code == errors.ErrCodeSymbolNotFound, code == errors.ErrCodeStrategyNotFound:
		return http.StatusNotFound
	case errors.IsRetryable(errors.New(code, "")):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
