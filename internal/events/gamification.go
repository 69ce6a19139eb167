package events

import "time"

// WorkoutSessionLogged is emitted when a workout session is appended to a participation.
type WorkoutSessionLogged struct {
	ParticipationID string    `json:"participation_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	ChallengeID     string    `json:"challenge_id"`
	SessionID       string    `json:"session_id"`
	SessionDate     time.Time `json:"session_date"`
	DurationMin     int       `json:"duration_min"`
	CaloriesBurned  int       `json:"calories_burned"`
	ActivityID      string    `json:"activity_id,omitempty"`
	Progress        float64   `json:"progress"`
}

// ParticipationStateChanged tracks participation status transitions (completed, abandoned).
type ParticipationStateChanged struct {
	ParticipationID string    `json:"participation_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	ChallengeID     string    `json:"challenge_id"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// BadgeEarned is emitted once per (user, badge) award.
type BadgeEarned struct {
	AwardID            string    `json:"award_id"`
	TenantID           string    `json:"tenant_id"`
	UserID             string    `json:"user_id"`
	BadgeID            string    `json:"badge_id"`
	BadgeName          string    `json:"badge_name"`
	RelatedChallengeID string    `json:"related_challenge_id,omitempty"`
	EarnedAt           time.Time `json:"earned_at"`
}
