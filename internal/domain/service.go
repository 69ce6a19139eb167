// Package domain defines the business logic for the gamification service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/gamification/internal/observability"
)

// Service orchestrates participation workflows and triggers badge evaluation.
type Service struct {
	participations ParticipationStore
	awarder        *Awarder
	settings
}

// NewService constructs a Service.
func NewService(participations ParticipationStore, awarder *Awarder, opts ...Option) *Service {
	return &Service{
		participations: participations,
		awarder:        awarder,
		settings:       newSettings("[participation] ", opts),
	}
}

// JoinChallengeInput captures a challenge enrollment.
type JoinChallengeInput struct {
	TenantID    string
	ChallengeID string
	UserID      string
}

// LogWorkoutInput captures a workout logged by a user against a participation.
type LogWorkoutInput struct {
	ParticipationID string
	UserID          string
	Session         SessionInput
}

// LogWorkoutResult reports the saved participation and any badges earned on the way.
type LogWorkoutResult struct {
	Participation Participation
	Awards        []UserBadge
	Replay        bool
}

// JoinChallenge enrolls the user unless they already hold a non-abandoned participation.
func (s *Service) JoinChallenge(ctx context.Context, input JoinChallengeInput) (*Participation, error) {
	if strings.TrimSpace(input.ChallengeID) == "" || strings.TrimSpace(input.UserID) == "" {
		return nil, validationError("challenge_id and user_id are required")
	}
	existing, err := s.participations.FindByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.ChallengeID == input.ChallengeID && p.Status != ParticipationAbandoned {
			return nil, ErrAlreadyJoined
		}
	}

	saved, err := s.participations.Save(ctx, NewParticipation(input.TenantID, input.ChallengeID, input.UserID, s.now()))
	if err != nil {
		return nil, err
	}
	observability.RecordStatusTransition(string(ParticipationActive))
	return &saved, nil
}

// GetParticipation fetches by ID.
func (s *Service) GetParticipation(ctx context.Context, id string) (*Participation, error) {
	p, err := s.participations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipationNotFound
	}
	return p, nil
}

// ListUserParticipations returns every participation of the user.
func (s *Service) ListUserParticipations(ctx context.Context, userID string) ([]Participation, error) {
	return s.participations.FindByUserID(ctx, userID)
}

// LogWorkoutSession appends a session, recalculates progress, saves, and awards any
// newly earned badges. A session ID that is already present is treated as a replay.
func (s *Service) LogWorkoutSession(ctx context.Context, input LogWorkoutInput) (*LogWorkoutResult, error) {
	current, err := s.owned(ctx, input.ParticipationID, input.UserID)
	if err != nil {
		return nil, err
	}

	result := &LogWorkoutResult{Participation: *current}
	if id := strings.TrimSpace(input.Session.ID); id != "" {
		if _, found := current.Session(id); found {
			result.Replay = true
		}
	}

	if !result.Replay {
		now := s.now()
		updated, err := current.AddWorkoutSession(input.Session, now)
		if err != nil {
			return nil, err
		}
		updated = updated.RecalculateProgress(now)

		saved, err := s.participations.Save(ctx, updated)
		if err != nil {
			return nil, err
		}
		observability.RecordSessionLogged()
		if saved.Status != current.Status {
			observability.RecordStatusTransition(string(saved.Status))
		}
		result.Participation = saved
	}

	awards, err := s.awarder.EvaluateAndAwardFor(ctx, *current)
	result.Awards = awards
	if err != nil {
		return result, fmt.Errorf("badge evaluation: %w", err)
	}
	return result, nil
}

// UpdateWorkoutSession patches a session. Progress depends only on the session count
// and is left untouched.
func (s *Service) UpdateWorkoutSession(ctx context.Context, participationID, userID, sessionID string, patch SessionPatch) (*Participation, error) {
	current, err := s.owned(ctx, participationID, userID)
	if err != nil {
		return nil, err
	}
	updated, err := current.UpdateWorkoutSession(sessionID, patch, s.now())
	if err != nil {
		return nil, err
	}
	saved, err := s.participations.Save(ctx, updated)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// RemoveWorkoutSession deletes a session without recalculating progress, so a
// completed challenge is never demoted.
func (s *Service) RemoveWorkoutSession(ctx context.Context, participationID, userID, sessionID string) (*Participation, error) {
	current, err := s.owned(ctx, participationID, userID)
	if err != nil {
		return nil, err
	}
	updated, err := current.RemoveWorkoutSession(sessionID, s.now())
	if err != nil {
		return nil, err
	}
	saved, err := s.participations.Save(ctx, updated)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// AbandonParticipation moves an active participation to abandoned.
func (s *Service) AbandonParticipation(ctx context.Context, participationID, userID string) (*Participation, error) {
	current, err := s.owned(ctx, participationID, userID)
	if err != nil {
		return nil, err
	}
	if current.Status == ParticipationAbandoned {
		return current, nil
	}
	updated, err := current.Abandon(s.now())
	if err != nil {
		return nil, err
	}
	saved, err := s.participations.Save(ctx, updated)
	if err != nil {
		return nil, err
	}
	observability.RecordStatusTransition(string(ParticipationAbandoned))
	return &saved, nil
}

// UserStats returns the user's current activity snapshot.
func (s *Service) UserStats(ctx context.Context, userID string) (ActivityStats, error) {
	return s.awarder.UserStats(ctx, userID)
}

// ReevaluateUser re-runs badge awarding outside of a session write, e.g. from a sweep.
func (s *Service) ReevaluateUser(ctx context.Context, userID string) ([]UserBadge, error) {
	awards, err := s.awarder.EvaluateAndAward(ctx, userID, "")
	if err != nil {
		s.logger.Printf("re-evaluation for user %s finished with errors: %v", userID, err)
	}
	return awards, err
}

func (s *Service) owned(ctx context.Context, participationID, userID string) (*Participation, error) {
	p, err := s.GetParticipation(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

// IsRetryable reports whether err is worth retrying with fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}
