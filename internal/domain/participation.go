package domain

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequiredSessions is the number of logged workouts that completes a challenge.
const RequiredSessions = 10

// ParticipationStatus tracks where a participation sits in its lifecycle.
type ParticipationStatus string

const (
	ParticipationActive    ParticipationStatus = "active"
	ParticipationCompleted ParticipationStatus = "completed"
	ParticipationAbandoned ParticipationStatus = "abandoned"
)

// WorkoutSession is a single workout logged against a participation.
type WorkoutSession struct {
	ID                 string    `json:"id"`
	Date               time.Time `json:"date"`
	DurationMin        int       `json:"duration_min" validate:"gt=0"`
	CaloriesBurned     int       `json:"calories_burned" validate:"gte=0"`
	ExercisesCompleted []string  `json:"exercises_completed" validate:"min=1,dive,required"`
	Notes              string    `json:"notes,omitempty"`
	SourceActivityID   string    `json:"source_activity_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SessionInput carries the caller-provided fields of a new workout session.
// ID and Date are optional; they default to a fresh uuid and the current time.
// SourceActivityID names the tracked activity the session was derived from.
type SessionInput struct {
	ID                 string    `json:"id"`
	Date               time.Time `json:"date"`
	DurationMin        int       `json:"duration_min" validate:"gt=0"`
	CaloriesBurned     int       `json:"calories_burned" validate:"gte=0"`
	ExercisesCompleted []string  `json:"exercises_completed" validate:"min=1,dive,required"`
	Notes              string    `json:"notes"`
	SourceActivityID   string    `json:"source_activity_id"`
}

// SessionPatch lists the optional fields of a workout session update.
type SessionPatch struct {
	Date               *time.Time
	DurationMin        *int
	CaloriesBurned     *int
	ExercisesCompleted []string
	Notes              *string
}

// Participation is a user's enrollment in one challenge. Engine methods never mutate
// the receiver; they return an updated copy.
type Participation struct {
	ID              string
	TenantID        string
	ChallengeID     string
	UserID          string
	Status          ParticipationStatus
	Progress        float64
	WorkoutSessions []WorkoutSession
	JoinedAt        time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
	Version         int
}

// NewParticipation creates the record written when a user joins a challenge.
func NewParticipation(tenantID, challengeID, userID string, now time.Time) Participation {
	now = now.UTC()
	return Participation{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		ChallengeID: challengeID,
		UserID:      userID,
		Status:      ParticipationActive,
		JoinedAt:    now,
		UpdatedAt:   now,
	}
}

// AddWorkoutSession appends a validated session. Progress is not recomputed here.
func (p Participation) AddWorkoutSession(in SessionInput, now time.Time) (Participation, error) {
	if p.Status != ParticipationActive {
		return Participation{}, ErrParticipationInactive
	}
	if err := validateStruct(in); err != nil {
		return Participation{}, err
	}

	now = now.UTC()
	session := WorkoutSession{
		ID:                 strings.TrimSpace(in.ID),
		Date:               in.Date.UTC(),
		DurationMin:        in.DurationMin,
		CaloriesBurned:     in.CaloriesBurned,
		ExercisesCompleted: slices.Clone(in.ExercisesCompleted),
		Notes:              in.Notes,
		SourceActivityID:   strings.TrimSpace(in.SourceActivityID),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	} else if p.sessionIndex(session.ID) >= 0 {
		return Participation{}, validationError("session %s already logged", session.ID)
	}
	if in.Date.IsZero() {
		session.Date = now
	}

	next := p.clone()
	next.WorkoutSessions = append(next.WorkoutSessions, session)
	next.UpdatedAt = now
	return next, nil
}

// UpdateWorkoutSession replaces a session with a patched version carrying a refreshed UpdatedAt.
func (p Participation) UpdateWorkoutSession(sessionID string, patch SessionPatch, now time.Time) (Participation, error) {
	if p.Status == ParticipationAbandoned {
		return Participation{}, ErrParticipationInactive
	}
	idx := p.sessionIndex(sessionID)
	if idx < 0 {
		return Participation{}, ErrSessionNotFound
	}

	now = now.UTC()
	next := p.clone()
	session := next.WorkoutSessions[idx]
	if patch.Date != nil {
		session.Date = patch.Date.UTC()
	}
	if patch.DurationMin != nil {
		session.DurationMin = *patch.DurationMin
	}
	if patch.CaloriesBurned != nil {
		session.CaloriesBurned = *patch.CaloriesBurned
	}
	if patch.ExercisesCompleted != nil {
		session.ExercisesCompleted = slices.Clone(patch.ExercisesCompleted)
	}
	if patch.Notes != nil {
		session.Notes = *patch.Notes
	}
	if err := validateStruct(session); err != nil {
		return Participation{}, err
	}
	session.UpdatedAt = now

	next.WorkoutSessions[idx] = session
	next.UpdatedAt = now
	return next, nil
}

// RemoveWorkoutSession drops a session. A completed participation is not demoted;
// callers decide whether to recalculate.
func (p Participation) RemoveWorkoutSession(sessionID string, now time.Time) (Participation, error) {
	if p.Status == ParticipationAbandoned {
		return Participation{}, ErrParticipationInactive
	}
	idx := p.sessionIndex(sessionID)
	if idx < 0 {
		return Participation{}, ErrSessionNotFound
	}

	next := p.clone()
	next.WorkoutSessions = slices.Delete(next.WorkoutSessions, idx, idx+1)
	next.UpdatedAt = now.UTC()
	return next, nil
}

// RecalculateProgress derives progress from the session count and completes the
// participation once it reaches 100. Completed and abandoned records are returned unchanged.
func (p Participation) RecalculateProgress(now time.Time) Participation {
	if p.Status != ParticipationActive {
		return p
	}

	progress := math.Min(100, float64(len(p.WorkoutSessions))/RequiredSessions*100)
	progress = math.Max(0, progress)

	next := p.clone()
	next.Progress = progress
	next.UpdatedAt = now.UTC()
	if progress >= 100 {
		completedAt := now.UTC()
		next.Progress = 100
		next.Status = ParticipationCompleted
		next.CompletedAt = &completedAt
	}
	return next
}

// Abandon moves an active participation to the terminal abandoned state.
func (p Participation) Abandon(now time.Time) (Participation, error) {
	switch p.Status {
	case ParticipationCompleted:
		return Participation{}, ErrCannotAbandonCompleted
	case ParticipationAbandoned:
		return p, nil
	}
	next := p.clone()
	next.Status = ParticipationAbandoned
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Session looks up a session by ID.
func (p Participation) Session(sessionID string) (WorkoutSession, bool) {
	idx := p.sessionIndex(sessionID)
	if idx < 0 {
		return WorkoutSession{}, false
	}
	return p.WorkoutSessions[idx], true
}

// RecentSessions returns up to limit sessions, most recent workout date first.
func (p Participation) RecentSessions(limit int) []WorkoutSession {
	out := slices.Clone(p.WorkoutSessions)
	slices.SortStableFunc(out, func(a, b WorkoutSession) int {
		return b.Date.Compare(a.Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TotalCalories sums calories across all sessions.
func (p Participation) TotalCalories() int {
	total := 0
	for _, s := range p.WorkoutSessions {
		total += s.CaloriesBurned
	}
	return total
}

// TotalWorkoutTime sums session durations in minutes.
func (p Participation) TotalWorkoutTime() int {
	total := 0
	for _, s := range p.WorkoutSessions {
		total += s.DurationMin
	}
	return total
}

func (p Participation) sessionIndex(sessionID string) int {
	return slices.IndexFunc(p.WorkoutSessions, func(s WorkoutSession) bool {
		return s.ID == sessionID
	})
}

// clone copies the record so the returned value shares no slices with the receiver.
func (p Participation) clone() Participation {
	next := p
	next.WorkoutSessions = make([]WorkoutSession, len(p.WorkoutSessions))
	for i, s := range p.WorkoutSessions {
		s.ExercisesCompleted = slices.Clone(s.ExercisesCompleted)
		next.WorkoutSessions[i] = s
	}
	if p.CompletedAt != nil {
		completedAt := *p.CompletedAt
		next.CompletedAt = &completedAt
	}
	return next
}
