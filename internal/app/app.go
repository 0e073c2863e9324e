// Package app assembles the sync engine from a GlobalConfig.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/history"
	"github.com/aleister1102/imgsync/internal/notifier"
	"github.com/aleister1102/imgsync/internal/notifier/discord"
	"github.com/aleister1102/imgsync/internal/reconciler"
	"github.com/aleister1102/imgsync/internal/registry"
	"github.com/aleister1102/imgsync/internal/status"
	"github.com/aleister1102/imgsync/internal/transfer"
	"github.com/aleister1102/imgsync/internal/watcher"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component. Close releases them.
type App struct {
	cfg        *config.GlobalConfig
	session    *transfer.Session
	watcher    *watcher.Watcher
	dispatcher *notifier.Dispatcher
	reconciler *reconciler.Reconciler
	journal    *history.DB
	status     *status.Server
	logger     zerolog.Logger
}

// New wires the engine. Nothing connects to the network until Run.
func New(cfg *config.GlobalConfig, logger zerolog.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger.With().Str("module", "app").Logger(),
	}

	desc := cfg.SFTP.Descriptor()
	dialer := transfer.NewSFTPDialer(desc, cfg.SFTP.DialTimeout(), cfg.SFTP.Keepalive(), logger)
	a.session = transfer.NewSession(dialer, transfer.Options{
		Target:          desc.Address(),
		IdleTimeout:     cfg.SFTP.IdleTimeout(),
		ConnectAttempts: cfg.SFTP.ConnectAttempts,
		RetryDelay:      cfg.SFTP.ConnectRetryDelay(),
	}, logger)

	registryClient, err := registry.NewClient(cfg.Registry, logger)
	if err != nil {
		return nil, err
	}

	a.dispatcher = notifier.NewDispatcher(logger)
	if cfg.Discord.Enabled() {
		handles, err := notifier.OpenHandleStore(cfg.Discord.IDsFile)
		if err != nil {
			return nil, err
		}
		a.logger.Debug().Str("ids_file", cfg.Discord.IDsFile).Int("handles", handles.Len()).Msg("Loaded message handles")
		webhook, err := discord.NewWebhookNotifier(cfg.Discord, handles, logger)
		if err != nil {
			return nil, err
		}
		a.dispatcher.Register(webhook)
	} else {
		a.logger.Warn().Msg("No notification backend configured")
	}

	deps := reconciler.Deps{
		Registry:      registryClient,
		Transfer:      a.session,
		Notifications: a.dispatcher,
		RemoteDir:     cfg.SFTP.RemotePath,
	}
	if cfg.History.Enabled {
		a.journal, err = history.NewDB(cfg.History.DBPath, logger)
		if err != nil {
			return nil, common.WrapError(err, "opening history journal")
		}
		deps.Journal = a.journal
	}
	a.reconciler = reconciler.New(deps, logger)

	a.watcher, err = watcher.New(cfg.SFTP.LocalPath, cfg.Watch, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Status.Listen != "" {
		a.status = status.NewServer(cfg.Status, a.snapshot, logger)
	}

	a.logger.Info().
		Str("sftp", desc.String()).
		Str("remote_path", cfg.SFTP.RemotePath).
		Str("registry", registryClient.BaseURL()).
		Int("notifiers", a.dispatcher.Len()).
		Bool("history", a.journal != nil).
		Msg("Sync engine assembled")
	return a, nil
}

// Run watches and reconciles until ctx is cancelled. The event being
// processed when ctx ends still completes.
func (a *App) Run(ctx context.Context) error {
	if a.status != nil {
		if err := a.status.Start(); err != nil {
			return err
		}
	}

	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.watcher.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Error closing watcher")
		}
	}()

	a.logger.Info().Str("local_path", a.cfg.SFTP.LocalPath).Msg("Sync engine running")
	a.reconciler.Run(ctx, a.watcher.Events())
	a.logger.Info().Msg("Sync engine stopped")
	return nil
}

// Close stops the watcher, disconnects the transfer session and releases
// the journal and status server. Safe to call after a failed New.
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, a.status.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) snapshot() status.Snapshot {
	stats := a.reconciler.Stats()
	return status.Snapshot{
		Connected:   a.session.State().Connected(),
		Processed:   stats.Processed,
		Failed:      stats.Failed,
		LastEventAt: stats.LastEventAt,
	}
}
