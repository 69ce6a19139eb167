// Package events defines cross-service event payloads consumed and produced by the
// gamification service.
package events

import "time"

// ActivityCreated is emitted by the activity service when a new activity is accepted.
// CaloriesBurned and Exercises are optional; older producers omit them.
type ActivityCreated struct {
	ActivityID     string    `json:"activity_id"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	StartedAt      time.Time `json:"started_at"`
	DurationMin    int       `json:"duration_min"`
	Source         string    `json:"source"`
	Version        string    `json:"version"`
	CaloriesBurned int       `json:"calories_burned,omitempty"`
	Exercises      []string  `json:"exercises,omitempty"`
}
