package statusapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mistvane/distrans/internal/version"
)

// Server exposes the run tracker over a local, read-only HTTP API. It is
// meant for an operator to poll during a long-running transfer, not as a
// general-purpose service: no auth, no write paths.
type Server struct {
	addr       string
	router     *chi.Mux
	api        huma.API
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a Server bound to addr, serving tracker's snapshots at
// GET /status.
func NewServer(addr string, tracker *Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)

	humaConfig := huma.DefaultConfig("distrans status API", version.Version)
	humaConfig.Info.Description = "Read-only progress reporting for the run in flight"
	api := humachi.New(router, humaConfig)

	huma.Register(api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Get run status",
		Description: "Returns the current progress of the run in flight",
		Tags:        []string{"Status"},
	}, func(_ context.Context, _ *struct{}) (*StatusOutput, error) {
		return &StatusOutput{Body: tracker.Snapshot()}, nil
	})

	return &Server{
		addr:   addr,
		router: router,
		api:    api,
		logger: logger,
	}
}

// StatusOutput wraps Snapshot in the response envelope huma expects.
type StatusOutput struct {
	Body Snapshot
}

// ListenAndServe starts the server and blocks until ctx is cancelled, at
// which point it shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status endpoint listening", slog.String("addr", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("status server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
