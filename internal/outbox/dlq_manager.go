package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQManager retries failed outbox messages and quarantines exhausted entries.
type DLQManager struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
}

// NewDLQManager constructs a DLQManager with the provided pool and retry configuration.
func NewDLQManager(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration) *DLQManager {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &DLQManager{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay}
}

const claimDLQQuery = `SELECT dlq_id, tenant_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count
      FROM outbox_dlq
     WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
     ORDER BY created_at
     LIMIT 1
     FOR UPDATE SKIP LOCKED`

// RunOnce handles up to batchSize due DLQ entries and returns how many were
// requeued, rescheduled or quarantined. Each entry is claimed in its own
// transaction so concurrent managers never handle the same entry twice.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (int, error) {
	handled := 0
	var err error
	for handled < batchSize {
		claimed, claimErr := m.claimNext(ctx)
		if claimErr != nil {
			err = claimErr
			break
		}
		if !claimed {
			break
		}
		handled++
	}

	updateBacklogGauge(ctx, m.pool)
	return handled, err
}

func (m *DLQManager) claimNext(ctx context.Context) (bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, claimDLQQuery)
	if err != nil {
		return false, err
	}
	entry, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[dlqEntry])
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim dlq entry: %w", err)
	}

	outcome, err := m.handleEntry(ctx, tx, entry)
	if err != nil {
		return false, fmt.Errorf("dlq entry %d: %w", entry.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	recordDLQOutcome(entry, outcome)
	return true, nil
}

// handleEntry quarantines, requeues or reschedules entry inside tx and
// returns the outcome.
func (m *DLQManager) handleEntry(ctx context.Context, tx pgx.Tx, entry dlqEntry) (string, error) {
	if entry.RetryCount >= m.maxRetries {
		_, err := tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`, "retry limit reached", entry.ID)
		return dlqOutcomeQuarantined, err
	}

	// A failed insert aborts the transaction; the savepoint keeps tx usable.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return "", err
	}
	if requeueErr := requeueOutbox(ctx, sp, entry); requeueErr != nil {
		if err := sp.Rollback(ctx); err != nil {
			return "", err
		}
		return dlqOutcomeRetry, m.scheduleRetry(ctx, tx, entry, requeueErr)
	}
	if err := sp.Commit(ctx); err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID)
	return dlqOutcomeRequeued, err
}

func (m *DLQManager) scheduleRetry(ctx context.Context, tx pgx.Tx, entry dlqEntry, cause error) error {
	_, err := tx.Exec(ctx,
		`UPDATE outbox_dlq
           SET retry_count = retry_count + 1,
               last_attempt_at = NOW(),
               next_retry_at = NOW() + $1::interval,
               reason = $2
         WHERE dlq_id = $3`,
		m.backoffDelay(entry.RetryCount+1), cause.Error(), entry.ID,
	)
	return err
}

// backoffDelay calculates exponential backoff capped at one hour.
func (m *DLQManager) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return time.Hour
	}
	delay := time.Duration(1<<uint(attempt-1)) * m.baseDelay
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// requeueOutbox reinserts the payload into the outbox for replay. The copy has
// no dedupe key: the original row still holds it.
func requeueOutbox(ctx context.Context, tx pgx.Tx, entry dlqEntry) error {
	if entry.SchemaSubject == "" {
		return fmt.Errorf("missing schema_subject for dlq entry %d", entry.ID)
	}
	if _, ok := RouteFor(entry.EventType); !ok {
		return fmt.Errorf("unknown event type %s for dlq entry %d", entry.EventType, entry.ID)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
                   VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := tx.Exec(ctx, stmt,
		entry.TenantID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Topic,
		entry.SchemaSubject,
		entry.PartitionKey,
		entry.Payload,
	)
	return err
}

// dlqEntry represents an outbox_dlq row selected for processing.
type dlqEntry struct {
	ID            int64
	TenantID      string
	EventID       int64
	EventType     string
	Topic         string
	Payload       []byte
	Reason        string
	AggregateType string
	AggregateID   string
	SchemaSubject string
	PartitionKey  string
	RetryCount    int
}
