package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Event types written to the outbox.
const (
	EventWorkoutSessionLogged   = "workout.session_logged"
	EventParticipationCompleted = "participation.completed"
	EventParticipationAbandoned = "participation.abandoned"
	EventBadgeEarned            = "badge.earned"
)

// Route describes where an event type is published and which schema guards it.
type Route struct {
	Topic         string
	SchemaSubject string
	Schema        string
}

var routes = map[string]Route{
	EventWorkoutSessionLogged: {
		Topic:         "gamification_workout_sessions",
		SchemaSubject: "gamification_workout_sessions-value",
		Schema:        workoutSessionLoggedSchema,
	},
	EventParticipationCompleted: {
		Topic:         "gamification_participation_state",
		SchemaSubject: "gamification_participation_state-value",
		Schema:        participationStateChangedSchema,
	},
	EventParticipationAbandoned: {
		Topic:         "gamification_participation_state",
		SchemaSubject: "gamification_participation_state-value",
		Schema:        participationStateChangedSchema,
	},
	EventBadgeEarned: {
		Topic:         "gamification_badges",
		SchemaSubject: "gamification_badges-value",
		Schema:        badgeEarnedSchema,
	},
}

// RouteFor returns the routing metadata of an event type.
func RouteFor(eventType string) (Route, bool) {
	route, ok := routes[eventType]
	return route, ok
}

// Topics lists every topic the dispatcher may publish to.
func Topics() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(routes))
	for _, route := range routes {
		if _, ok := seen[route.Topic]; ok {
			continue
		}
		seen[route.Topic] = struct{}{}
		out = append(out, route.Topic)
	}
	return out
}

// Event is a domain event staged for publication alongside the write that produced it.
type Event struct {
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	DedupeKey     string
	Payload       any
}

// Insert stages the event inside tx. Rows sharing a dedupe key are written once.
func Insert(ctx context.Context, tx pgx.Tx, event Event) error {
	route, ok := RouteFor(event.EventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	partitionKey := event.PartitionKey
	if partitionKey == "" {
		partitionKey = event.AggregateID
	}
	dedupeKey := event.DedupeKey
	if dedupeKey == "" {
		dedupeKey = fmt.Sprintf("%s:%s", event.AggregateID, event.EventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		event.TenantID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		route.Topic,
		route.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	if err == nil {
		stagedCounter.WithLabelValues(event.EventType).Inc()
	}
	return err
}
