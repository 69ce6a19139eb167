// Package notify delivers user-facing notifications for gamification milestones.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Notification types.
const (
	TypeBadgeEarned = "badge_earned"
)

// Notification is the payload handed to a delivery channel.
type Notification struct {
	UserID    string            `json:"user_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func badgeEarned(userID, badgeName, badgeID string, now time.Time) Notification {
	return Notification{
		UserID:    userID,
		Type:      TypeBadgeEarned,
		Title:     "Badge Earned!",
		Message:   fmt.Sprintf("Congratulations! You earned the %q badge.", badgeName),
		Metadata:  map[string]string{"badge_id": badgeID, "badge_name": badgeName},
		CreatedAt: now.UTC(),
	}
}

// LogSink writes notifications to a logger. It is the default for local development.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink constructs a LogSink; a nil logger falls back to the standard logger.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(log.Writer(), "[notify] ", log.LstdFlags)
	}
	return &LogSink{logger: logger}
}

// NotifyBadgeEarned implements domain.NotificationSink.
func (s *LogSink) NotifyBadgeEarned(ctx context.Context, userID, badgeName, badgeID string) error {
	n := badgeEarned(userID, badgeName, badgeID, time.Now())
	s.logger.Printf("%s to=%s title=%q message=%q badge_id=%s", n.Type, n.UserID, n.Title, n.Message, badgeID)
	return nil
}

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
}

// KafkaSink publishes notifications as JSON to a topic consumed by the delivery service.
type KafkaSink struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaSink constructs a KafkaSink around a topic-bound writer.
func NewKafkaSink(writer messageWriter) *KafkaSink {
	return &KafkaSink{writer: writer, now: time.Now}
}

// NewTopicWriter builds a synchronous kafka writer for the notification topic.
func NewTopicWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
		Async:        false,
	}
}

// NotifyBadgeEarned implements domain.NotificationSink. Messages are keyed by user so
// a user's notifications stay ordered.
func (s *KafkaSink) NotifyBadgeEarned(ctx context.Context, userID, badgeName, badgeID string) error {
	n := badgeEarned(userID, badgeName, badgeID, s.now())
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: body,
		Time:  n.CreatedAt,
		Headers: []kafka.Header{
			{Key: "notification_type", Value: []byte(n.Type)},
		},
	})
}
