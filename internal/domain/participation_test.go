package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sessionOn(day int) SessionInput {
	return SessionInput{
		Date:               baseTime.AddDate(0, 0, day),
		DurationMin:        45,
		CaloriesBurned:     300,
		ExercisesCompleted: []string{"squat", "deadlift"},
	}
}

func TestParticipationCompletesAfterRequiredSessions(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)

	for i := 0; i < RequiredSessions; i++ {
		var err error
		p, err = p.AddWorkoutSession(sessionOn(i), baseTime.AddDate(0, 0, i))
		require.NoError(t, err)
		p = p.RecalculateProgress(baseTime.AddDate(0, 0, i))
		if i < RequiredSessions-1 {
			require.Equal(t, ParticipationActive, p.Status)
			require.InDelta(t, float64(i+1)*10, p.Progress, 0.0001)
		}
	}

	require.Equal(t, float64(100), p.Progress)
	require.Equal(t, ParticipationCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	require.Equal(t, baseTime.AddDate(0, 0, RequiredSessions-1), *p.CompletedAt)
}

func TestAddWorkoutSessionLeavesReceiverUntouched(t *testing.T) {
	original := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)

	updated, err := original.AddWorkoutSession(sessionOn(0), baseTime)
	require.NoError(t, err)

	require.Len(t, updated.WorkoutSessions, 1)
	require.Empty(t, original.WorkoutSessions)
	require.NotEmpty(t, updated.WorkoutSessions[0].ID)
	require.Equal(t, float64(0), updated.Progress, "progress is only derived by RecalculateProgress")

	updated.WorkoutSessions[0].ExercisesCompleted[0] = "changed"
	again, err := updated.AddWorkoutSession(sessionOn(1), baseTime)
	require.NoError(t, err)
	again.WorkoutSessions[0].ExercisesCompleted[0] = "mutated"
	require.Equal(t, "changed", updated.WorkoutSessions[0].ExercisesCompleted[0])
}

func TestAddWorkoutSessionDefaultsDate(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	in := sessionOn(0)
	in.Date = time.Time{}

	updated, err := p.AddWorkoutSession(in, baseTime.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, baseTime.Add(time.Hour), updated.WorkoutSessions[0].Date)
}

func TestAddWorkoutSessionValidation(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)

	cases := map[string]func(*SessionInput){
		"zero duration":       func(in *SessionInput) { in.DurationMin = 0 },
		"negative calories":   func(in *SessionInput) { in.CaloriesBurned = -1 },
		"no exercises":        func(in *SessionInput) { in.ExercisesCompleted = nil },
		"blank exercise name": func(in *SessionInput) { in.ExercisesCompleted = []string{""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := sessionOn(0)
			mutate(&in)
			_, err := p.AddWorkoutSession(in, baseTime)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAddWorkoutSessionRejectsDuplicateID(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	in := sessionOn(0)
	in.ID = "session-1"

	p, err := p.AddWorkoutSession(in, baseTime)
	require.NoError(t, err)

	_, err = p.AddWorkoutSession(in, baseTime)
	require.ErrorIs(t, err, ErrValidation)
}

func TestAddWorkoutSessionRequiresActive(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	abandoned, err := p.Abandon(baseTime)
	require.NoError(t, err)

	_, err = abandoned.AddWorkoutSession(sessionOn(0), baseTime)
	require.ErrorIs(t, err, ErrParticipationInactive)
	require.ErrorIs(t, err, ErrInvalidState)

	completed := p
	completed.Status = ParticipationCompleted
	_, err = completed.AddWorkoutSession(sessionOn(0), baseTime)
	require.ErrorIs(t, err, ErrParticipationInactive)
}

func TestUpdateWorkoutSession(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	in := sessionOn(0)
	in.ID = "session-1"
	p, err := p.AddWorkoutSession(in, baseTime)
	require.NoError(t, err)

	later := baseTime.Add(2 * time.Hour)
	duration := 60
	notes := "felt strong"
	updated, err := p.UpdateWorkoutSession("session-1", SessionPatch{DurationMin: &duration, Notes: &notes}, later)
	require.NoError(t, err)

	session, ok := updated.Session("session-1")
	require.True(t, ok)
	require.Equal(t, 60, session.DurationMin)
	require.Equal(t, "felt strong", session.Notes)
	require.Equal(t, 300, session.CaloriesBurned)
	require.Equal(t, later, session.UpdatedAt)
	require.Equal(t, baseTime, session.CreatedAt)

	original, _ := p.Session("session-1")
	require.Equal(t, 45, original.DurationMin)

	_, err = p.UpdateWorkoutSession("missing", SessionPatch{}, later)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, err, ErrNotFound)

	zero := 0
	_, err = p.UpdateWorkoutSession("session-1", SessionPatch{DurationMin: &zero}, later)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRemoveWorkoutSessionKeepsCompletion(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	for i := 0; i < RequiredSessions; i++ {
		in := sessionOn(i)
		in.ID = "session-" + string(rune('a'+i))
		var err error
		p, err = p.AddWorkoutSession(in, baseTime)
		require.NoError(t, err)
	}
	p = p.RecalculateProgress(baseTime)
	require.Equal(t, ParticipationCompleted, p.Status)

	removed, err := p.RemoveWorkoutSession("session-a", baseTime)
	require.NoError(t, err)
	removed = removed.RecalculateProgress(baseTime)

	require.Len(t, removed.WorkoutSessions, RequiredSessions-1)
	require.Equal(t, ParticipationCompleted, removed.Status)
	require.Equal(t, float64(100), removed.Progress)
	require.Len(t, p.WorkoutSessions, RequiredSessions)
}

func TestSessionEditsBlockedWhenAbandoned(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	in := sessionOn(0)
	in.ID = "session-1"
	p, err := p.AddWorkoutSession(in, baseTime)
	require.NoError(t, err)
	p, err = p.Abandon(baseTime)
	require.NoError(t, err)

	_, err = p.RemoveWorkoutSession("session-1", baseTime)
	require.ErrorIs(t, err, ErrParticipationInactive)
	_, err = p.UpdateWorkoutSession("session-1", SessionPatch{}, baseTime)
	require.ErrorIs(t, err, ErrParticipationInactive)
}

func TestAbandon(t *testing.T) {
	active := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)

	abandoned, err := active.Abandon(baseTime.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, ParticipationAbandoned, abandoned.Status)
	require.Equal(t, ParticipationActive, active.Status)

	again, err := abandoned.Abandon(baseTime.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, abandoned, again)

	completed := active
	completed.Status = ParticipationCompleted
	_, err = completed.Abandon(baseTime)
	require.ErrorIs(t, err, ErrCannotAbandonCompleted)
}

func TestRecalculateProgressIgnoresAbandoned(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	p, err := p.AddWorkoutSession(sessionOn(0), baseTime)
	require.NoError(t, err)
	p, err = p.Abandon(baseTime)
	require.NoError(t, err)

	require.Equal(t, p, p.RecalculateProgress(baseTime.Add(time.Hour)))
}

func TestRecentSessionsAndTotals(t *testing.T) {
	p := NewParticipation("tenant-1", "challenge-1", "user-1", baseTime)
	for _, day := range []int{2, 0, 1} {
		var err error
		p, err = p.AddWorkoutSession(sessionOn(day), baseTime)
		require.NoError(t, err)
	}

	recent := p.RecentSessions(2)
	require.Len(t, recent, 2)
	require.Equal(t, baseTime.AddDate(0, 0, 2), recent[0].Date)
	require.Equal(t, baseTime.AddDate(0, 0, 1), recent[1].Date)
	require.Equal(t, 900, p.TotalCalories())
	require.Equal(t, 135, p.TotalWorkoutTime())
}
