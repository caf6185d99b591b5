package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/adapter"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/audio"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

// BatchSweeper runs a synchronous sweep over all non-terminal thoughts
type BatchSweeper interface {
	Sweep(ctx context.Context, requesterID string) (processed, failed int, err error)
}

// AudioHandler ingests storage finalize events
type AudioHandler interface {
	HandleObject(ctx context.Context, ev audio.ObjectEvent) error
}

// Config holds HTTP server settings
type Config struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Server is the stateless HTTP entry point: a synchronous alternative to
// the record-based batch trigger, plus the storage event sink
type Server struct {
	cfg     Config
	auth    adapter.Auth
	sweeper BatchSweeper
	audio   AudioHandler
}

// New creates a new Server
func New(cfg Config, authClient adapter.Auth, sweeper BatchSweeper, audioHandler AudioHandler) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{
		cfg:     cfg,
		auth:    authClient,
		sweeper: sweeper,
		audio:   audioHandler,
	}
}

// Router builds the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/batch", s.handleBatch)
	r.Post("/events/storage", s.handleStorageEvent)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// corsMiddleware handles preflight requests and sets the allow headers on
// every response
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handleBatch validates the bearer credential and runs the same sweep as
// the record-triggered reconciler, synchronously
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing credential"})
		return
	}

	ownerID, err := s.auth.VerifyToken(ctx, token)
	if err != nil {
		logger.Debug("credential rejected", "error", err)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": model.ErrInvalidCredential.Error()})
		return
	}

	processed, failed, err := s.sweeper.Sweep(ctx, ownerID)
	if err != nil {
		logger.Error("synchronous sweep failed", "owner", ownerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "batch processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{
			"message": model.SweepSummary(processed, failed),
		},
	})
}

// handleStorageEvent accepts object finalize notifications and feeds them
// to the audio worker. Non-audio objects are acknowledged without action.
func (s *Server) handleStorageEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	var ev audio.ObjectEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}

	if err := s.audio.HandleObject(ctx, ev); err != nil {
		logger.Error("storage event handling failed", "object", ev.Name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
