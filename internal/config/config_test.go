package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"KAFKA_BROKERS", "CONSUMER_TOPICS", "NOTIFICATION_SINK", "SWEEP_SCHEDULE", "AWARD_CONCURRENCY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Contains(t, cfg.ConsumerTopics, "activity_events")
	require.Equal(t, SinkLog, cfg.NotificationSink)
	require.Equal(t, "user_notifications", cfg.NotificationTopic)
	require.Equal(t, "@every 15m", cfg.SweepSchedule)
	require.Equal(t, 4, cfg.AwardConcurrency)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")
	t.Setenv("NOTIFICATION_SINK", "KAFKA")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("DLQ_MAX_RETRIES", "not-a-number")

	cfg := Load()
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, SinkKafka, cfg.NotificationSink)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, 5, cfg.DLQMaxRetries)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	content := "SWEEP_SCHEDULE=@every 1h\nCONSUMER_GROUP_ID=from-file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Chdir(dir)

	t.Setenv("SWEEP_SCHEDULE", "")
	t.Setenv("CONSUMER_GROUP_ID", "from-env")
	require.NoError(t, os.Unsetenv("SWEEP_SCHEDULE"))

	cfg := Load()
	require.Equal(t, "@every 1h", cfg.SweepSchedule)
	require.Equal(t, "from-env", cfg.ConsumerGroupID)
}

func TestUnknownSinkFallsBackToLog(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOTIFICATION_SINK", "carrier-pigeon")
	require.Equal(t, SinkLog, Load().NotificationSink)
}
