// Package app composes the whole client: store, embedded engine, outbox
// flusher, optional remote feed, presence heartbeat and the TUI shell.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dalmofelipe/zapzap/internal/bus"
	"github.com/dalmofelipe/zapzap/internal/config"
	"github.com/dalmofelipe/zapzap/internal/engine"
	"github.com/dalmofelipe/zapzap/internal/engine/local"
	"github.com/dalmofelipe/zapzap/internal/lock"
	"github.com/dalmofelipe/zapzap/internal/logging"
	"github.com/dalmofelipe/zapzap/internal/model"
	"github.com/dalmofelipe/zapzap/internal/presence"
	"github.com/dalmofelipe/zapzap/internal/remote"
	"github.com/dalmofelipe/zapzap/internal/roomlist"
	"github.com/dalmofelipe/zapzap/internal/session"
	"github.com/dalmofelipe/zapzap/internal/store"
	"github.com/dalmofelipe/zapzap/internal/tui"
)

// Params holds the resolved profile and configuration passed to the fx
// module.
type Params struct {
	Profile string
	Config  *config.Config
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("zapzap",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideEngine,
			provideFeed,
			provideFlusher,
			provideHeartbeat,
			provideUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(session.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideEngine builds the embedded engine and also exposes it under the
// boundary interface the view-models depend on.
func provideEngine(p Params, db *store.DB, b *bus.Bus, logger *zap.Logger) (*local.Engine, engine.Engine) {
	eng := local.New(db, b, logger.Named("engine"), local.Options{
		UserID:  p.Config.UserID,
		BlobDir: session.BlobDir(p.Profile),
	})
	return eng, eng
}

// provideFeed returns the websocket sync feed, or nil when no sync_url is
// configured and the engine runs fully local.
func provideFeed(p Params, eng *local.Engine, logger *zap.Logger) *remote.Feed {
	if p.Config.SyncURL == "" {
		return nil
	}
	return remote.NewFeed(p.Config.SyncURL, eng, logger.Named("feed"))
}

func provideFlusher(eng *local.Engine, feed *remote.Feed, logger *zap.Logger) *local.Flusher {
	var transport local.Transport
	if feed != nil {
		transport = feed
	}
	return local.NewFlusher(eng, transport, logger.Named("outbox"), 0)
}

func provideHeartbeat(p Params, eng *local.Engine, logger *zap.Logger) *presence.Heartbeat {
	interval := time.Duration(p.Config.PresenceIntervalSeconds) * time.Second
	return presence.NewHeartbeat(eng, logger.Named("presence"), interval)
}

func provideUI(p Params, eng engine.Engine, logger *zap.Logger) *tui.App {
	policy := roomlist.PolicyNotify
	if p.Config.IdentityFailure == config.IdentityFailureIgnore {
		policy = roomlist.PolicyIgnore
	}
	return tui.NewApp(eng, p.Profile, policy, logger.Named("tui"))
}

func registerLifecycle(lc fx.Lifecycle, p Params, eng *local.Engine, flusher *local.Flusher, feed *remote.Feed, hb *presence.Heartbeat, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Make sure the configured identity exists locally so member
			// joins and presence have a row to land on.
			if p.Config.UserID != "" {
				_, err := eng.SaveUser(ctx, &model.User{
					ID:   p.Config.UserID,
					Name: p.Config.UserName,
				})
				if err != nil {
					return err
				}
			}

			if feed != nil {
				feed.Start(context.Background())
			}
			flusher.Start(context.Background())
			hb.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			hb.Stop()
			flusher.Stop()
			if feed != nil {
				feed.Stop()
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
