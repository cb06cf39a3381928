package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/sync/errgroup"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/middleware/metrics"
)

type OutboxStorage interface {
	ListPendingSends(ctx context.Context, limit int) ([]domain.MessageId, error)
}

// Sender is the part of MessageService the outbox drives.
type Sender interface {
	Send(ctx context.Context, id domain.MessageId) (SendStats, error)
}

type OutboxConfig struct {
	Cron        string
	Concurrency int
	BatchSize   int
}

// FlushStats tracks one run of FlushPendingSends.
type FlushStats struct {
	RunAt      time.Time
	Pending    int
	Sent       int
	Skipped    int
	Failed     int
	Emails     int
	Delivered  int
	DurationMs int64
	Errors     []string
}

// Outbox sends every message queued with RequestSend.
type Outbox struct {
	storage OutboxStorage
	sender  Sender
	cfg     OutboxConfig

	mu        sync.Mutex
	lastStats FlushStats
}

func NewOutbox(storage OutboxStorage, sender Sender, cfg OutboxConfig) *Outbox {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Outbox{storage: storage, sender: sender, cfg: cfg}
}

// FlushPendingSends sends the queued messages with bounded parallelism. A
// failing message is logged and counted and never stops the others.
// Messages that turn out to be sent already, or to have no recipients, are
// skipped.
func (o *Outbox) FlushPendingSends(ctx context.Context) (FlushStats, error) {
	start := time.Now()
	stats := FlushStats{RunAt: start, Errors: []string{}}
	log := logger.Component("outbox")

	ids, err := o.storage.ListPendingSends(ctx, o.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list pending sends: %w", err)
	}
	stats.Pending = len(ids)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := o.sender.Send(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			stats.Emails += res.Total
			stats.Delivered += res.Delivered
			switch {
			case err == nil:
				stats.Sent++
				metrics.FlushRuns.WithLabelValues("sent").Inc()
			case errors.Is(err, internal_errors.AlreadySent), errors.Is(err, internal_errors.NoRecipients):
				stats.Skipped++
				metrics.FlushRuns.WithLabelValues("skipped").Inc()
				log.Info("skipped queued message", "message_id", id, "reason", err)
			default:
				stats.Failed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", id, err))
				metrics.FlushRuns.WithLabelValues("failed").Inc()
				log.Error("failed to send queued message", "message_id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.DurationMs = time.Since(start).Milliseconds()
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	o.mu.Lock()
	o.lastStats = stats
	o.mu.Unlock()

	log.Info("outbox flushed",
		"pending", stats.Pending, "sent", stats.Sent, "skipped", stats.Skipped, "failed", stats.Failed,
		"emails", stats.Emails, "delivered", stats.Delivered, "duration_ms", stats.DurationMs)
	return stats, ctx.Err()
}

func (o *Outbox) LastStats() FlushStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastStats
}

// StartSchedule flushes the outbox on every tick of the cron expression
// until ctx is done.
func (o *Outbox) StartSchedule(ctx context.Context) error {
	if !gronx.IsValid(o.cfg.Cron) {
		return fmt.Errorf("invalid outbox cron expression %q", o.cfg.Cron)
	}
	log := logger.Component("outbox")
	log.Info("started outbox schedule", "cron", o.cfg.Cron, "concurrency", o.cfg.Concurrency)

	go func() {
		for {
			next, err := gronx.NextTickAfter(o.cfg.Cron, time.Now(), false)
			if err != nil {
				log.Error("failed to compute next outbox tick", "error", err)
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				if _, err := o.FlushPendingSends(ctx); err != nil {
					log.Error("outbox flush error", "error", err)
				}
			case <-ctx.Done():
				timer.Stop()
				log.Info("outbox schedule shutting down")
				return
			}
		}
	}()
	return nil
}
