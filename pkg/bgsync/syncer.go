package bgsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// TagWatchlist is the sync tag that drains pending watchlist changes.
const TagWatchlist = "watchlist-sync"

// DrainReport summarises one drain.
type DrainReport struct {
	Pending   int // queued when the drain started
	Forwarded int // delivered and removed
	Failed    int // delivery attempted and failed (0 or 1, the drain stops there)
	Kept      int // left queued
}

// Syncer drains the queue to a Forwarder.
type Syncer struct {
	queue     *Queue
	forwarder Forwarder
	logger    zerolog.Logger
}

// NewSyncer creates a syncer. forwarder may be nil, in which case drains
// only log the pending changes and keep them queued.
func NewSyncer(queue *Queue, forwarder Forwarder, logger zerolog.Logger) *Syncer {
	if queue == nil {
		panic("queue cannot be nil")
	}
	return &Syncer{
		queue:     queue,
		forwarder: forwarder,
		logger:    logger,
	}
}

// HandleSync reacts to a background sync event. Only TagWatchlist drains;
// other tags are ignored.
func (s *Syncer) HandleSync(ctx context.Context, tag string) (DrainReport, error) {
	s.logger.Debug().Str("tag", tag).Msg("Background sync")

	if tag != TagWatchlist {
		return DrainReport{}, nil
	}
	return s.Drain(ctx)
}

// Drain forwards pending mutations oldest first. A delivered mutation is
// removed; the first failure records an attempt and stops the drain so
// later changes are never applied ahead of earlier ones. Delivery is at
// least once.
func (s *Syncer) Drain(ctx context.Context) (DrainReport, error) {
	pending, err := s.queue.Pending(ctx, 0)
	if err != nil {
		return DrainReport{}, fmt.Errorf("load pending mutations: %w", err)
	}

	report := DrainReport{Pending: len(pending)}
	if len(pending) == 0 {
		return report, nil
	}

	if s.forwarder == nil {
		for _, m := range pending {
			s.logger.Info().
				Str("id", m.ID.String()).
				Str("kind", string(m.Kind)).
				Int64("item_id", m.ItemID).
				Msg("Syncing watchlist change (no remote configured)")
		}
		report.Kept = len(pending)
		return report, nil
	}

	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return s.finish(report), err
		}

		if err := s.forwarder.Forward(ctx, m); err != nil {
			SyncForwarded.WithLabelValues("error").Inc()
			report.Failed++
			s.logger.Warn().
				Err(err).
				Str("id", m.ID.String()).
				Int("attempts", m.Attempts+1).
				Msg("Failed to forward watchlist change")

			if markErr := s.queue.MarkAttempt(ctx, m.ID, err); markErr != nil {
				s.logger.Error().Err(markErr).Str("id", m.ID.String()).Msg("Failed to record attempt")
			}
			return s.finish(report), nil
		}

		SyncForwarded.WithLabelValues("ok").Inc()
		if _, err := s.queue.Remove(ctx, m.ID); err != nil {
			// Delivered but still queued: it will be sent again.
			return s.finish(report), fmt.Errorf("remove forwarded mutation %s: %w", m.ID, err)
		}
		report.Forwarded++
	}

	return s.finish(report), nil
}

func (s *Syncer) finish(report DrainReport) DrainReport {
	report.Kept = report.Pending - report.Forwarded
	s.logger.Info().
		Int("pending", report.Pending).
		Int("forwarded", report.Forwarded).
		Int("failed", report.Failed).
		Int("kept", report.Kept).
		Msg("Watchlist sync finished")
	return report
}
