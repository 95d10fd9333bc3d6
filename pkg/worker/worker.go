// Package worker dispatches platform events to the component that handles
// them: fetches to the strategy router, lifecycle events to the lifecycle
// controller, sync to the background syncer, push and clicks to notify.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flix-app/flix-cache/pkg/bgsync"
	"github.com/flix-app/flix-cache/pkg/connectivity"
	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/flix-app/flix-cache/pkg/notify"
	"github.com/flix-app/flix-cache/pkg/strategy"
	"github.com/rs/zerolog"
)

// MessageSkipWaiting forces a waiting version to activate.
const MessageSkipWaiting = "SKIP_WAITING"

// ErrNoHandler is returned when the component for an event is not configured.
var ErrNoHandler = errors.New("no handler configured")

// Config configures a Worker. Every component is optional; events for a
// missing component fail with ErrNoHandler.
type Config struct {
	Router     *strategy.Router
	Controller *lifecycle.Controller
	Syncer     *bgsync.Syncer
	Notify     *notify.Handler
	Logger     *zerolog.Logger
}

// Worker routes events.
type Worker struct {
	router     *strategy.Router
	controller *lifecycle.Controller
	syncer     *bgsync.Syncer
	notify     *notify.Handler
	logger     zerolog.Logger

	background sync.WaitGroup
}

// New creates a worker.
func New(cfg Config) *Worker {
	logger := logging.NewLogger("worker")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Worker{
		router:     cfg.Router,
		controller: cfg.Controller,
		syncer:     cfg.Syncer,
		notify:     cfg.Notify,
		logger:     logger,
	}
}

// Dispatch handles ev.
func (w *Worker) Dispatch(ctx context.Context, ev Event) error {
	err := w.dispatch(ctx, ev)

	result := "ok"
	switch {
	case errors.Is(err, errIgnored):
		result, err = "ignored", nil
	case err != nil:
		result = "error"
		w.logger.Error().Err(err).Str("event", ev.Kind()).Msg("Event failed")
	}
	Events.WithLabelValues(ev.Kind(), result).Inc()

	return err
}

var errIgnored = errors.New("ignored")

func (w *Worker) dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case InstallEvent:
		return w.handleInstall(ctx)
	case ActivateEvent:
		return w.handleActivate(ctx)
	case FetchEvent:
		return w.handleFetch(ctx, e)
	case SyncEvent:
		return w.handleSync(ctx, e)
	case PushEvent:
		return w.handlePush(ctx, e)
	case NotificationClickEvent:
		return w.handleClick(ctx, e)
	case MessageEvent:
		return w.handleMessage(ctx, e)
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
}

func (w *Worker) handleInstall(ctx context.Context) error {
	if w.controller == nil {
		return fmt.Errorf("install: %w", ErrNoHandler)
	}
	report, err := w.controller.Install(ctx)
	w.logger.Info().
		Int("cached", len(report.Cached)).
		Int("failed", len(report.Failed)).
		Str("state", w.controller.State().String()).
		Msg("Install event handled")
	if errors.Is(err, lifecycle.ErrAlreadyInstalled) {
		return err
	}
	if err != nil {
		// Pre-cache failures never fail the install.
		w.logger.Warn().Err(err).Msg("Install completed with errors")
	}
	return nil
}

func (w *Worker) handleActivate(ctx context.Context) error {
	if w.controller == nil {
		return fmt.Errorf("activate: %w", ErrNoHandler)
	}
	deleted, err := w.controller.Activate(ctx)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	w.logger.Info().Strs("deleted", deleted).Bool("claimed", w.controller.Claimed()).Msg("Activate event handled")
	return nil
}

func (w *Worker) handleFetch(ctx context.Context, e FetchEvent) error {
	if w.router == nil {
		return fmt.Errorf("fetch: %w", ErrNoHandler)
	}
	if e.Request == nil {
		return errors.New("fetch: nil request")
	}
	resp := w.router.Route(ctx, e.Request)
	if e.RespondWith != nil {
		e.RespondWith(resp)
	}
	return nil
}

func (w *Worker) handleSync(ctx context.Context, e SyncEvent) error {
	if w.syncer == nil {
		return fmt.Errorf("sync: %w", ErrNoHandler)
	}
	if e.Tag != bgsync.TagWatchlist {
		w.logger.Debug().Str("tag", e.Tag).Msg("Ignoring sync tag")
		return errIgnored
	}
	if _, err := w.syncer.HandleSync(ctx, e.Tag); err != nil {
		return fmt.Errorf("sync %s: %w", e.Tag, err)
	}
	return nil
}

func (w *Worker) handlePush(ctx context.Context, e PushEvent) error {
	if w.notify == nil {
		return fmt.Errorf("push: %w", ErrNoHandler)
	}
	_, err := w.notify.HandlePush(ctx, notify.PushEvent{Data: e.Data})
	return err
}

func (w *Worker) handleClick(ctx context.Context, e NotificationClickEvent) error {
	if w.notify == nil {
		return fmt.Errorf("notificationclick: %w", ErrNoHandler)
	}
	_, err := w.notify.HandleClick(ctx, notify.ClickEvent{Action: e.Action, Notification: e.Notification})
	return err
}

func (w *Worker) handleMessage(ctx context.Context, e MessageEvent) error {
	if e.Type != MessageSkipWaiting {
		w.logger.Debug().Str("type", e.Type).Msg("Ignoring message")
		return errIgnored
	}
	if w.controller == nil {
		return fmt.Errorf("message %s: %w", e.Type, ErrNoHandler)
	}
	if _, err := w.controller.SkipWaiting(ctx); err != nil {
		return fmt.Errorf("skip waiting: %w", err)
	}
	return nil
}

// SyncOnRestore dispatches a watchlist SyncEvent every time tracker
// reports connectivity restored. The sync runs in the background under
// ctx; Wait blocks until running syncs finish.
func (w *Worker) SyncOnRestore(ctx context.Context, tracker *connectivity.Tracker) {
	tracker.OnRestore(func() {
		w.background.Add(1)
		go func() {
			defer w.background.Done()
			w.logger.Info().Msg("Connectivity restored, syncing watchlist")
			_ = w.Dispatch(ctx, SyncEvent{Tag: bgsync.TagWatchlist})
		}()
	})
}

// Wait blocks until background syncs started by SyncOnRestore return.
func (w *Worker) Wait() {
	w.background.Wait()
}
