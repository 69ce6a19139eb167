package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"example.com/gamification/internal/observability"
)

// ParticipationStore persists participation records.
type ParticipationStore interface {
	FindByUserID(ctx context.Context, userID string) ([]Participation, error)
	FindByID(ctx context.Context, id string) (*Participation, error)
	// Save creates or replaces the record. Implementations reject a stale Version with
	// ErrConcurrentUpdate and return the stored value with its new Version.
	Save(ctx context.Context, participation Participation) (Participation, error)
}

// BadgeStore reads badge definitions.
type BadgeStore interface {
	FindActive(ctx context.Context) ([]Badge, error)
	FindByID(ctx context.Context, id string) (*Badge, error)
}

// AwardStore persists award records. Create must enforce uniqueness of (user, badge)
// and report a duplicate with ErrAlreadyAwarded; the existence check alone cannot
// prevent duplicates under concurrent callers.
type AwardStore interface {
	ExistsForUserAndBadge(ctx context.Context, userID, badgeID string) (bool, error)
	Create(ctx context.Context, award UserBadge) (UserBadge, error)
}

// NotificationSink delivers user-facing notifications. Errors are logged by callers,
// never propagated.
type NotificationSink interface {
	NotifyBadgeEarned(ctx context.Context, userID, badgeName, badgeID string) error
}

// Option tunes Awarder and Service construction.
type Option func(*settings)

type settings struct {
	logger      *log.Logger
	now         func() time.Time
	concurrency int
}

func newSettings(prefix string, opts []Option) settings {
	s := settings{
		logger:      log.New(log.Writer(), prefix, log.LstdFlags|log.Lshortfile),
		now:         func() time.Time { return time.Now().UTC() },
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger overrides the logger used to report swallowed errors.
func WithLogger(logger *log.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConcurrency bounds the parallel award-existence lookups per evaluation.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// AwardInput identifies an award to create.
type AwardInput struct {
	TenantID           string
	UserID             string
	BadgeID            string
	RelatedChallengeID string
	Metadata           map[string]string
}

// BadgeProgressReport summarises a user's standing against one badge.
type BadgeProgressReport struct {
	Badge       Badge
	Earned      bool
	Percent     float64
	Eligibility Eligibility
}

// Awarder evaluates active badges for a user and records awards.
type Awarder struct {
	badges         BadgeStore
	awards         AwardStore
	participations ParticipationStore
	notifier       NotificationSink
	settings
}

// NewAwarder constructs an Awarder from its collaborators.
func NewAwarder(badges BadgeStore, awards AwardStore, participations ParticipationStore, notifier NotificationSink, opts ...Option) *Awarder {
	return &Awarder{
		badges:         badges,
		awards:         awards,
		participations: participations,
		notifier:       notifier,
		settings:       newSettings("[awards] ", opts),
	}
}

// UserStats recomputes the activity snapshot from all of the user's participations.
func (a *Awarder) UserStats(ctx context.Context, userID string) (ActivityStats, error) {
	participations, err := a.participations.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load participations: %w", err)
	}
	return AggregateStats(participations, a.now()), nil
}

// GetEligibleBadges returns active badges the user qualifies for and does not hold yet.
func (a *Awarder) GetEligibleBadges(ctx context.Context, userID string) ([]Badge, error) {
	start := time.Now()
	defer func() { observability.ObserveEvaluation(time.Since(start)) }()

	stats, err := a.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.eligible(ctx, userID, stats)
}

func (a *Awarder) eligible(ctx context.Context, userID string, stats ActivityStats) ([]Badge, error) {
	active, err := a.badges.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active badges: %w", err)
	}

	candidates := make([]Badge, 0, len(active))
	for _, badge := range active {
		if badge.IsActive && Evaluate(badge, stats).Eligible {
			candidates = append(candidates, badge)
		}
	}

	held := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, badge := range candidates {
		g.Go(func() error {
			exists, err := a.awards.ExistsForUserAndBadge(gctx, userID, badge.ID)
			if err != nil {
				return fmt.Errorf("check award %s: %w", badge.ID, err)
			}
			held[i] = exists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Badge, 0, len(candidates))
	for i, badge := range candidates {
		if !held[i] {
			out = append(out, badge)
		}
	}
	return out, nil
}

// AwardBadgeToUser records the award unless the user already holds the badge, in
// which case it returns (nil, false, nil). Notification is best-effort.
func (a *Awarder) AwardBadgeToUser(ctx context.Context, input AwardInput) (*UserBadge, bool, error) {
	exists, err := a.awards.ExistsForUserAndBadge(ctx, input.UserID, input.BadgeID)
	if err != nil {
		return nil, false, fmt.Errorf("check award: %w", err)
	}
	if exists {
		observability.RecordDuplicateAward()
		return nil, false, nil
	}

	badge, err := a.badges.FindByID(ctx, input.BadgeID)
	if err != nil {
		return nil, false, fmt.Errorf("load badge: %w", err)
	}
	if badge == nil {
		return nil, false, ErrBadgeNotFound
	}

	award := UserBadge{
		ID:                 uuid.NewString(),
		TenantID:           input.TenantID,
		UserID:             input.UserID,
		BadgeID:            badge.ID,
		BadgeName:          badge.Name,
		EarnedAt:           a.now(),
		RelatedChallengeID: input.RelatedChallengeID,
		Metadata:           cloneMetadata(input.Metadata),
	}
	created, err := a.awards.Create(ctx, award)
	if errors.Is(err, ErrAlreadyAwarded) {
		observability.RecordDuplicateAward()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create award: %w", err)
	}
	observability.RecordBadgeAwarded(created.BadgeID, created.EarnedAt)

	if err := a.notifier.NotifyBadgeEarned(ctx, created.UserID, badge.Name, badge.ID); err != nil {
		observability.RecordNotificationFailure()
		a.logger.Printf("badge notification failed (user=%s, badge=%s): %v", created.UserID, badge.ID, err)
	}
	return &created, true, nil
}

// EvaluateAndAward awards every badge the user newly qualifies for. A failure on one
// badge does not stop the others; all failures are returned joined. Awards take the
// tenant of the participation in relatedChallengeID, or of the user's earliest
// participation when there is no related challenge.
func (a *Awarder) EvaluateAndAward(ctx context.Context, userID, relatedChallengeID string) ([]UserBadge, error) {
	return a.evaluateAndAward(ctx, userID, func(participations []Participation) (string, string) {
		tenantID := ""
		if len(participations) > 0 {
			tenantID = participations[0].TenantID
		}
		for _, p := range participations {
			if relatedChallengeID != "" && p.ChallengeID == relatedChallengeID {
				tenantID = p.TenantID
				break
			}
		}
		return tenantID, relatedChallengeID
	})
}

// EvaluateAndAwardFor runs EvaluateAndAward for the owner of trigger, attributing
// awards to its tenant and challenge.
func (a *Awarder) EvaluateAndAwardFor(ctx context.Context, trigger Participation) ([]UserBadge, error) {
	return a.evaluateAndAward(ctx, trigger.UserID, func([]Participation) (string, string) {
		return trigger.TenantID, trigger.ChallengeID
	})
}

func (a *Awarder) evaluateAndAward(ctx context.Context, userID string, attribute func([]Participation) (string, string)) ([]UserBadge, error) {
	start := time.Now()
	participations, err := a.participations.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load participations: %w", err)
	}
	stats := AggregateStats(participations, a.now())
	eligible, err := a.eligible(ctx, userID, stats)
	observability.ObserveEvaluation(time.Since(start))
	if err != nil {
		return nil, err
	}

	tenantID, relatedChallengeID := attribute(participations)

	var errs error
	awarded := make([]UserBadge, 0, len(eligible))
	for _, badge := range eligible {
		award, created, err := a.AwardBadgeToUser(ctx, AwardInput{
			TenantID:           tenantID,
			UserID:             userID,
			BadgeID:            badge.ID,
			RelatedChallengeID: relatedChallengeID,
		})
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("award %s: %w", badge.ID, err))
			continue
		}
		if created {
			awarded = append(awarded, *award)
		}
	}
	return awarded, errs
}

// BadgeProgress reports how close the user is to one badge.
func (a *Awarder) BadgeProgress(ctx context.Context, userID, badgeID string) (BadgeProgressReport, error) {
	badge, err := a.badges.FindByID(ctx, badgeID)
	if err != nil {
		return BadgeProgressReport{}, fmt.Errorf("load badge: %w", err)
	}
	if badge == nil {
		return BadgeProgressReport{}, ErrBadgeNotFound
	}
	earned, err := a.awards.ExistsForUserAndBadge(ctx, userID, badgeID)
	if err != nil {
		return BadgeProgressReport{}, fmt.Errorf("check award: %w", err)
	}
	stats, err := a.UserStats(ctx, userID)
	if err != nil {
		return BadgeProgressReport{}, err
	}
	return BadgeProgressReport{
		Badge:       *badge,
		Earned:      earned,
		Percent:     BadgeProgress(*badge, stats),
		Eligibility: Evaluate(*badge, stats),
	}, nil
}
