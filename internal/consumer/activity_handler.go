package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/events"
)

// EventActivityCreated is the fitpulse event turned into workout sessions.
const EventActivityCreated = "activity.created"

const maxSaveAttempts = 3

// WorkoutLogger is the slice of domain.Service the activity handler needs.
type WorkoutLogger interface {
	ListUserParticipations(ctx context.Context, userID string) ([]domain.Participation, error)
	LogWorkoutSession(ctx context.Context, input domain.LogWorkoutInput) (*domain.LogWorkoutResult, error)
}

// ActivityHandler logs every accepted activity as a workout session on each of the
// user's active participations. Every copy carries the activity ID so user totals
// count the workout once.
type ActivityHandler struct {
	service WorkoutLogger
	logger  *log.Logger
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(service WorkoutLogger, logger *log.Logger) *ActivityHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[activity-handler] ", log.LstdFlags|log.Lshortfile)
	}
	return &ActivityHandler{service: service, logger: logger}
}

// SessionID derives the workout session ID for an activity on a participation, so a
// redelivered event maps onto the session it already produced.
func SessionID(activityID, participationID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:fitpulse:activity:"+activityID+":participation:"+participationID)).String()
}

// Handle implements Handler. Malformed or unusable activities are logged and
// acknowledged; store failures are returned so the record is not committed.
func (h *ActivityHandler) Handle(ctx context.Context, msg Message) error {
	var activity events.ActivityCreated
	if err := json.Unmarshal(msg.Payload, &activity); err != nil {
		h.logger.Printf("skipping undecodable activity (offset=%d): %v", msg.Offset, err)
		return nil
	}
	if activity.UserID == "" || activity.ActivityID == "" {
		h.logger.Printf("skipping activity without ids (offset=%d)", msg.Offset)
		return nil
	}

	participations, err := h.service.ListUserParticipations(ctx, activity.UserID)
	if err != nil {
		return fmt.Errorf("list participations: %w", err)
	}

	var errs error
	for _, p := range participations {
		if p.Status != domain.ParticipationActive {
			continue
		}
		if err := h.logSession(ctx, activity, p.ID); err != nil {
			errs = errors.Join(errs, fmt.Errorf("participation %s: %w", p.ID, err))
		}
	}
	return errs
}

func (h *ActivityHandler) logSession(ctx context.Context, activity events.ActivityCreated, participationID string) error {
	exercises := activity.Exercises
	if len(exercises) == 0 && activity.ActivityType != "" {
		exercises = []string{activity.ActivityType}
	}
	input := domain.LogWorkoutInput{
		ParticipationID: participationID,
		UserID:          activity.UserID,
		Session: domain.SessionInput{
			ID:                 SessionID(activity.ActivityID, participationID),
			Date:               activity.StartedAt,
			DurationMin:        activity.DurationMin,
			CaloriesBurned:     activity.CaloriesBurned,
			ExercisesCompleted: exercises,
			Notes:              activity.Source,
			SourceActivityID:   activity.ActivityID,
		},
	}

	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		var result *domain.LogWorkoutResult
		result, err = h.service.LogWorkoutSession(ctx, input)
		if err == nil {
			for _, award := range result.Awards {
				h.logger.Printf("user %s earned badge %s via activity %s", award.UserID, award.BadgeName, activity.ActivityID)
			}
			return nil
		}
		if !domain.IsRetryable(err) {
			break
		}
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNotFound):
		h.logger.Printf("activity %s not applied to participation %s: %v", activity.ActivityID, participationID, err)
		return nil
	}
	return err
}
