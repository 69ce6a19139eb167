// Package postgres implements the gamification stores on Postgres. Writes that produce
// domain events stage them in the outbox inside the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/events"
	"example.com/gamification/internal/outbox"
)

const (
	uniqueViolation        = "23505"
	openEnrollmentIndex    = "participations_open_enrollment_idx"
	participationAggregate = "participation"
)

// Repository provides Postgres-backed persistence for participations, badges, and awards.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const participationColumns = `participation_id, tenant_id, challenge_id, user_id, status, progress, workout_sessions, joined_at, completed_at, updated_at, version`

// FindByID implements domain.ParticipationStore. A missing row yields (nil, nil).
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Participation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+participationColumns+` FROM participations WHERE participation_id = $1`, id)
	p, err := scanParticipation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByUserID implements domain.ParticipationStore.
func (r *Repository) FindByUserID(ctx context.Context, userID string) ([]domain.Participation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+participationColumns+` FROM participations WHERE user_id = $1 ORDER BY joined_at, participation_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Participation, 0)
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// Save implements domain.ParticipationStore. Version 0 inserts; any other version must
// match the stored row. Status transitions and new sessions are staged in the outbox.
func (r *Repository) Save(ctx context.Context, p domain.Participation) (domain.Participation, error) {
	sessions, err := json.Marshal(p.WorkoutSessions)
	if err != nil {
		return domain.Participation{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Participation{}, err
	}
	defer tx.Rollback(ctx)

	var previous *domain.Participation
	if p.Version == 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO participations (`+participationColumns+`)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1)`,
			p.ID, p.TenantID, p.ChallengeID, p.UserID, string(p.Status), p.Progress, sessions,
			p.JoinedAt, p.CompletedAt, p.UpdatedAt,
		)
		if err != nil {
			return domain.Participation{}, translateInsertError(err)
		}
	} else {
		stored, err := scanParticipation(tx.QueryRow(ctx,
			`SELECT `+participationColumns+` FROM participations WHERE participation_id = $1 FOR UPDATE`, p.ID))
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && stored.Version != p.Version) {
			return domain.Participation{}, domain.ErrConcurrentUpdate
		}
		if err != nil {
			return domain.Participation{}, err
		}
		previous = &stored

		_, err = tx.Exec(ctx,
			`UPDATE participations
                SET status = $2, progress = $3, workout_sessions = $4, completed_at = $5, updated_at = $6, version = version + 1
              WHERE participation_id = $1`,
			p.ID, string(p.Status), p.Progress, sessions, p.CompletedAt, p.UpdatedAt,
		)
		if err != nil {
			return domain.Participation{}, err
		}
	}

	for _, event := range participationEvents(previous, p) {
		if err := outbox.Insert(ctx, tx, event); err != nil {
			return domain.Participation{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Participation{}, err
	}
	p.Version++
	return p, nil
}

// ListUserIDsWithActivitySince returns users whose participations changed at or after since.
func (r *Repository) ListUserIDsWithActivitySince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM participations WHERE updated_at >= $1 ORDER BY user_id`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// participationEvents derives outbox events from the change between previous and next.
func participationEvents(previous *domain.Participation, next domain.Participation) []outbox.Event {
	out := make([]outbox.Event, 0)

	known := make(map[string]struct{})
	if previous != nil {
		for _, s := range previous.WorkoutSessions {
			known[s.ID] = struct{}{}
		}
	}
	for _, s := range next.WorkoutSessions {
		if _, ok := known[s.ID]; ok {
			continue
		}
		out = append(out, outbox.Event{
			TenantID:      next.TenantID,
			AggregateType: participationAggregate,
			AggregateID:   next.ID,
			EventType:     outbox.EventWorkoutSessionLogged,
			PartitionKey:  next.ID,
			DedupeKey:     fmt.Sprintf("%s:%s:%s", next.ID, s.ID, outbox.EventWorkoutSessionLogged),
			Payload: events.WorkoutSessionLogged{
				ParticipationID: next.ID,
				TenantID:        next.TenantID,
				UserID:          next.UserID,
				ChallengeID:     next.ChallengeID,
				SessionID:       s.ID,
				SessionDate:     s.Date,
				DurationMin:     s.DurationMin,
				CaloriesBurned:  s.CaloriesBurned,
				ActivityID:      s.SourceActivityID,
				Progress:        next.Progress,
			},
		})
	}

	previousStatus := domain.ParticipationActive
	if previous != nil {
		previousStatus = previous.Status
	}
	if next.Status != previousStatus {
		eventType := ""
		switch next.Status {
		case domain.ParticipationCompleted:
			eventType = outbox.EventParticipationCompleted
		case domain.ParticipationAbandoned:
			eventType = outbox.EventParticipationAbandoned
		}
		if eventType != "" {
			out = append(out, outbox.Event{
				TenantID:      next.TenantID,
				AggregateType: participationAggregate,
				AggregateID:   next.ID,
				EventType:     eventType,
				PartitionKey:  next.ID,
				Payload: events.ParticipationStateChanged{
					ParticipationID: next.ID,
					TenantID:        next.TenantID,
					UserID:          next.UserID,
					ChallengeID:     next.ChallengeID,
					Status:          string(next.Status),
					Progress:        next.Progress,
					OccurredAt:      next.UpdatedAt,
				},
			})
		}
	}
	return out
}

func scanParticipation(row pgx.Row) (domain.Participation, error) {
	var (
		p           domain.Participation
		status      string
		sessions    []byte
		completedAt *time.Time
	)
	if err := row.Scan(&p.ID, &p.TenantID, &p.ChallengeID, &p.UserID, &status, &p.Progress, &sessions, &p.JoinedAt, &completedAt, &p.UpdatedAt, &p.Version); err != nil {
		return domain.Participation{}, err
	}
	p.Status = domain.ParticipationStatus(status)
	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &p.WorkoutSessions); err != nil {
			return domain.Participation{}, fmt.Errorf("decode workout sessions for %s: %w", p.ID, err)
		}
	}
	for i := range p.WorkoutSessions {
		s := &p.WorkoutSessions[i]
		s.Date = s.Date.UTC()
		s.CreatedAt = s.CreatedAt.UTC()
		s.UpdatedAt = s.UpdatedAt.UTC()
	}
	p.JoinedAt = p.JoinedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if completedAt != nil {
		utc := completedAt.UTC()
		p.CompletedAt = &utc
	}
	return p, nil
}

func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if pgErr.ConstraintName == openEnrollmentIndex {
		return domain.ErrAlreadyJoined
	}
	return domain.ErrConcurrentUpdate
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
