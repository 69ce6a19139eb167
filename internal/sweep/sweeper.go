// Package sweep periodically re-runs badge evaluation for recently active users, picking
// up awards lost between a session save and the award that should have followed it.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"example.com/gamification/internal/domain"
)

// DefaultLookback bounds the first sweep after start-up.
const DefaultLookback = 24 * time.Hour

// ActivitySource lists users with workout activity since a point in time.
type ActivitySource interface {
	ListUserIDsWithActivitySince(ctx context.Context, since time.Time) ([]string, error)
}

// Reevaluator awards every badge a user is currently eligible for.
type Reevaluator interface {
	ReevaluateUser(ctx context.Context, userID string) ([]domain.UserBadge, error)
}

// Result summarises one sweep.
type Result struct {
	Since  time.Time
	Users  int
	Awards int
	Failed int
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithLogger overrides the sweeper logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLookback sets how far back the first sweep looks.
func WithLookback(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.lookback = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// Sweeper re-evaluates users active since the last successful sweep.
type Sweeper struct {
	source      ActivitySource
	reevaluator Reevaluator
	logger      *log.Logger
	lookback    time.Duration
	now         func() time.Time

	mu        sync.Mutex
	watermark time.Time
}

// New constructs a Sweeper.
func New(source ActivitySource, reevaluator Reevaluator, opts ...Option) *Sweeper {
	s := &Sweeper{
		source:      source,
		reevaluator: reevaluator,
		logger:      log.New(log.Writer(), "[sweep] ", log.LstdFlags|log.Lshortfile),
		lookback:    DefaultLookback,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce sweeps every user active since the watermark. The watermark only advances
// when every user was re-evaluated, so failed users are picked up again next time.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	since := s.watermark
	if since.IsZero() {
		since = started.Add(-s.lookback)
	}
	result := Result{Since: since}

	userIDs, err := s.source.ListUserIDsWithActivitySince(ctx, since)
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		return result, fmt.Errorf("list active users: %w", err)
	}
	result.Users = len(userIDs)

	var errs error
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			errs = errors.Join(errs, err)
			break
		}
		awards, err := s.reevaluator.ReevaluateUser(ctx, userID)
		result.Awards += len(awards)
		if err != nil {
			result.Failed++
			errs = errors.Join(errs, fmt.Errorf("user %s: %w", userID, err))
		}
	}
	sweptUsers.Add(float64(result.Users))
	repairedAwards.Add(float64(result.Awards))

	if errs != nil {
		sweepRuns.WithLabelValues("partial").Inc()
		return result, errs
	}
	s.watermark = started
	sweepRuns.WithLabelValues("ok").Inc()
	return result, nil
}

// Run schedules RunOnce on the cron schedule and blocks until ctx is cancelled.
// A sweep still in progress when the next tick fires causes that tick to be skipped.
func (s *Sweeper) Run(ctx context.Context, schedule string) error {
	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		result, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Printf("sweep since %s: %d users, %d awards, %d failed: %v",
				result.Since.Format(time.RFC3339), result.Users, result.Awards, result.Failed, err)
			return
		}
		if result.Awards > 0 {
			s.logger.Printf("sweep since %s repaired %d awards across %d users",
				result.Since.Format(time.RFC3339), result.Awards, result.Users)
		}
	}); err != nil {
		return fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	c.Start()
	s.logger.Printf("sweeper started (schedule=%q)", schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
