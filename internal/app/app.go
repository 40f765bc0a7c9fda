// Package app wires the sync engine, services, persistence and the
// read API into a single process.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emiliopalmerini/agentsync/internal/adapters/otel"
	"github.com/emiliopalmerini/agentsync/internal/adapters/turso"
	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/cache"
	"github.com/emiliopalmerini/agentsync/internal/domain"
	"github.com/emiliopalmerini/agentsync/internal/migrate"
	"github.com/emiliopalmerini/agentsync/internal/notice"
	"github.com/emiliopalmerini/agentsync/internal/notifications"
	"github.com/emiliopalmerini/agentsync/internal/ports"
	"github.com/emiliopalmerini/agentsync/internal/realtime"
	"github.com/emiliopalmerini/agentsync/internal/sessions"
	"github.com/emiliopalmerini/agentsync/internal/web"
)

const (
	snapshotKeySessions      = "sessions:all"
	snapshotKeyNotifications = "notifications:all"
	snapshotRetention        = 7 * 24 * time.Hour
)

// Run starts the engine and blocks until SIGINT or SIGTERM. SIGUSR1
// moves the engine to background (stream disconnected), SIGUSR2 back
// to foreground.
func Run(cfg *Config) error {
	if cfg.APIBaseURL == "" || cfg.StreamURL == "" {
		return errors.New("AGENTSYNC_API_BASE_URL and AGENTSYNC_STREAM_URL must be set")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		snapRepo ports.SnapshotRepository
		readRepo ports.ReadMarkRepository
	)
	if cfg.TursoDatabaseURL != "" {
		db, err := turso.NewDB(cfg.TursoDatabaseURL, cfg.TursoAuthToken)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrate.RunAll(ctx, db); err != nil {
			return err
		}
		snapRepo = turso.NewSnapshotRepository(db)
		readRepo = turso.NewReadMarkRepository(db)
	}

	var metrics ports.MetricsExporter = ports.NoopMetrics{}
	if otelCfg := otel.LoadConfig(); otelCfg.Enabled {
		exporter, err := otel.NewExporter(ctx, otelCfg)
		if err != nil {
			logger.Warn("metrics export disabled", "error", err)
		} else {
			metrics = exporter
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				if err := exporter.Shutdown(shutdownCtx); err != nil {
					logger.Error("metrics shutdown", "error", err)
				}
			}()
		}
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken)
	store := cache.NewStore(cfg.CacheTTL)
	sessionSvc := sessions.NewService(client, store, metrics, logger)
	notificationSvc := notifications.NewService(client, store, readRepo, metrics, logger)

	emitter := notice.NewEmitter(func(sessionID string) {
		logger.Info("notice tapped", "session_id", sessionID)
	})
	reconciler := cache.NewReconciler(store, func(sessionName, sessionID string) {
		emitter.Show(sessionName+" is awaiting review", sessionID)
	})

	transport := realtime.NewTransport(realtime.TransportConfig{
		StreamURL: cfg.StreamURL,
		Token:     cfg.APIToken,
		BaseDelay: cfg.BackoffBase,
		Logger:    logger,
	})

	engine := realtime.NewEngine(realtime.EngineConfig{
		Transport: transport,
		Applier:   reconciler,
		Cache:     store,
		Metrics:   metrics,
		Logger:    logger,
		OnForeground: func(ctx context.Context) {
			if _, err := sessionSvc.Refresh(ctx, ""); err != nil {
				logger.Error("session refresh", "error", err)
			}
			if _, err := notificationSvc.List(ctx, false); err != nil {
				logger.Error("notification refresh", "error", err)
			}
			saveSnapshots(store, snapRepo, cfg.ShutdownTimeout, logger)
		},
	})
	defer engine.Close()

	warmStart(ctx, store, snapRepo, cfg.CacheTTL, logger)
	engine.Foreground(ctx)

	server := web.NewServer(cfg.Addr, sessionSvc, notificationSvc, engine, store, logger)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	for {
		select {
		case err := <-serverErr:
			return err
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				logger.Info("moving to background")
				engine.Background()
			case syscall.SIGUSR2:
				logger.Info("moving to foreground")
				engine.Foreground(ctx)
			default:
				logger.Info("shutting down", "signal", sig.String())
				engine.Background()
				saveSnapshots(store, snapRepo, cfg.ShutdownTimeout, logger)
				cancel()

				select {
				case err := <-serverErr:
					return err
				case <-time.After(cfg.ShutdownTimeout):
					return nil
				}
			}
		}
	}
}

// warmStart seeds the cache from persisted snapshots so the first
// render after a restart does not need the network. Snapshots older
// than the cache TTL are ignored.
func warmStart(ctx context.Context, store *cache.Store, repo ports.SnapshotRepository, ttl time.Duration, logger *slog.Logger) {
	if repo == nil {
		return
	}

	if snap, err := repo.Load(ctx, snapshotKeySessions); err != nil {
		logger.Warn("loading session snapshot", "error", err)
	} else if snap != nil && time.Since(snap.FetchedAt) <= ttl {
		var sessionList []domain.Session
		if err := json.Unmarshal(snap.Payload, &sessionList); err != nil {
			logger.Warn("decoding session snapshot", "error", err)
		} else {
			store.SetSessionList(cache.SessionListView{}, sessionList)
		}
	}

	if snap, err := repo.Load(ctx, snapshotKeyNotifications); err != nil {
		logger.Warn("loading notification snapshot", "error", err)
	} else if snap != nil && time.Since(snap.FetchedAt) <= ttl {
		var notificationList []domain.Notification
		if err := json.Unmarshal(snap.Payload, &notificationList); err != nil {
			logger.Warn("decoding notification snapshot", "error", err)
		} else {
			store.SetNotificationList(cache.NotificationListView{}, notificationList)
		}
	}

	if err := repo.Prune(ctx, time.Now().Add(-snapshotRetention)); err != nil {
		logger.Warn("pruning snapshots", "error", err)
	}
}

// saveSnapshots persists the unfiltered list views on shutdown.
func saveSnapshots(store *cache.Store, repo ports.SnapshotRepository, timeout time.Duration, logger *slog.Logger) {
	if repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if sessionList, _, ok := store.SessionList(cache.SessionListView{}); ok {
		payload, err := json.Marshal(sessionList)
		if err == nil {
			err = repo.Save(ctx, ports.Snapshot{ViewKey: snapshotKeySessions, Payload: payload, FetchedAt: time.Now()})
		}
		if err != nil {
			logger.Warn("saving session snapshot", "error", err)
		}
	}

	if notificationList, _, ok := store.NotificationList(cache.NotificationListView{}); ok {
		payload, err := json.Marshal(notificationList)
		if err == nil {
			err = repo.Save(ctx, ports.Snapshot{ViewKey: snapshotKeyNotifications, Payload: payload, FetchedAt: time.Now()})
		}
		if err != nil {
			logger.Warn("saving notification snapshot", "error", err)
		}
	}
}
