// Package web exposes the local read API over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
	"github.com/emiliopalmerini/agentsync/internal/realtime"
)

// SessionReader reads session state, cache-first.
type SessionReader interface {
	List(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
}

// NotificationReader reads notification state, cache-first.
type NotificationReader interface {
	List(ctx context.Context, unreadOnly bool) ([]domain.Notification, error)
}

// SyncController exposes the parts of the realtime engine the API needs.
type SyncController interface {
	ConnState() realtime.ConnState
	Retry()
	PendingKeys() int
}

type Server struct {
	addr          string
	sessions      SessionReader
	notifications NotificationReader
	sync          SyncController
	store         *cache.Store
	logger        *slog.Logger
}

func NewServer(addr string, sr SessionReader, nr NotificationReader, sc SyncController, store *cache.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:          addr,
		sessions:      sr,
		notifications: nr,
		sync:          sc,
		store:         store,
		logger:        logger,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Get("/notifications", s.handleListNotifications)
	r.Get("/status", s.handleStatus)
	r.Post("/retry", s.handleRetry)

	return r
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting read API", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown", "error", err)
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
