// Package snapshot moves accumulated tokens between the in-memory store and
// the durable per-meeting snapshot files.
package snapshot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	domainrepo "github.com/johnquangdev/focus-group-analyzer/internal/domain/repositories"
	"github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/metrics"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// Service snapshots and reloads meetings. Every meeting is an independent
// unit: one meeting's failure never blocks or corrupts another's.
type Service struct {
	store   domainrepo.ResponseRepository
	files   domainrepo.SnapshotRepository
	cfg     config.SnapshotConfig
	metrics *metrics.Metrics
	logger  *zap.Logger

	locks sync.Map // entities.MeetingKey -> *sync.Mutex

	mu        sync.Mutex
	scheduler gocron.Scheduler
}

// NewService constructs a snapshot service
func NewService(
	store domainrepo.ResponseRepository,
	files domainrepo.SnapshotRepository,
	cfg config.SnapshotConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Service{
		store:   store,
		files:   files,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

func (s *Service) lock(key entities.MeetingKey) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// SnapshotMeeting writes the meeting's not yet persisted tokens into its
// snapshot file. Transient write failures are retried with backoff.
func (s *Service) SnapshotMeeting(ctx context.Context, key entities.MeetingKey) error {
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	pending, mark := s.store.PendingTokens(key)
	if len(pending) == 0 {
		return nil
	}

	start := time.Now()
	op := func() error {
		err := s.files.Save(ctx, key, pending)
		if err == nil {
			return nil
		}
		if stdErrors.Is(err, entities.ErrMalformedSnapshot) || stdErrors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = s.cfg.MaxRetryElapsed

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	s.metrics.ObserveSnapshot(start, err)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Snapshot failed",
				zap.Int64("corp_id", key.CorpID),
				zap.Int64("meeting_id", key.MeetingID),
				zap.Error(err),
			)
		}
		return fmt.Errorf("snapshot %s: %w", key, err)
	}

	s.store.MarkPersisted(key, mark)
	if s.logger != nil {
		s.logger.Debug("💾 Snapshot written",
			zap.Int64("corp_id", key.CorpID),
			zap.Int64("meeting_id", key.MeetingID),
			zap.Int("tokens", pending.Len()),
		)
	}
	return nil
}

// SnapshotAll snapshots every known meeting with bounded parallelism. All
// meetings are attempted; failures are combined into the returned error.
func (s *Service) SnapshotAll(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(s.cfg.Parallelism)

	for _, key := range s.store.Partitions() {
		key := key
		g.Go(func() error {
			if err := s.SnapshotMeeting(ctx, key); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// ReloadAll restores every discoverable snapshot into the store and returns
// what was restored. Malformed partitions are skipped and reported.
func (s *Service) ReloadAll(ctx context.Context) (map[entities.MeetingKey]entities.TokenMap, error) {
	loaded, errs := s.files.LoadAll(ctx)

	restored := make(map[entities.MeetingKey]entities.TokenMap, len(loaded))
	for key, tokens := range loaded {
		if err := s.store.Restore(key, tokens); err != nil {
			errs = multierr.Append(errs, &entities.SnapshotRestoreError{Key: key, Err: err})
			continue
		}
		restored[key] = tokens
	}

	if s.logger != nil {
		fields := []zap.Field{zap.Int("meetings", len(restored))}
		if errs != nil {
			fields = append(fields, zap.Int("failed", len(multierr.Errors(errs))), zap.Error(errs))
			s.logger.Warn("⚠️ Snapshots reloaded with failures", fields...)
		} else {
			s.logger.Info("✅ Snapshots reloaded", fields...)
		}
	}
	return restored, errs
}

// Start schedules SnapshotAll every configured interval
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return nil
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			if err := s.SnapshotAll(ctx); err != nil && s.logger != nil {
				s.logger.Warn("⚠️ Periodic snapshot had failures", zap.Error(err))
			}
		}),
		gocron.WithName("snapshot_all"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule snapshots: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	if s.logger != nil {
		s.logger.Info("⏰ Snapshot scheduler started", zap.Duration("interval", s.cfg.Interval))
	}
	return nil
}

// Stop stops the scheduler and, when configured, flushes every meeting once more
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	var errs error
	if scheduler != nil {
		errs = multierr.Append(errs, scheduler.Shutdown())
	}
	if s.cfg.FlushOnShutdown {
		errs = multierr.Append(errs, s.SnapshotAll(ctx))
	}
	return errs
}
