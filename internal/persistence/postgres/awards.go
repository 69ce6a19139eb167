package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/events"
	"example.com/gamification/internal/outbox"
)

// AwardStore is the award view of the repository; it satisfies domain.AwardStore.
type AwardStore struct {
	repo *Repository
}

// Awards returns the award view.
func (r *Repository) Awards() *AwardStore {
	return &AwardStore{repo: r}
}

// ExistsForUserAndBadge implements domain.AwardStore.
func (s *AwardStore) ExistsForUserAndBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	var exists bool
	err := s.repo.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`, userID, badgeID,
	).Scan(&exists)
	return exists, err
}

// Create inserts the award and stages a badge.earned event. The (user_id, badge_id)
// unique constraint turns a concurrent duplicate into domain.ErrAlreadyAwarded.
func (s *AwardStore) Create(ctx context.Context, award domain.UserBadge) (domain.UserBadge, error) {
	var metadata []byte
	if len(award.Metadata) > 0 {
		encoded, err := json.Marshal(award.Metadata)
		if err != nil {
			return domain.UserBadge{}, err
		}
		metadata = encoded
	}

	tx, err := s.repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.UserBadge{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO user_badges (award_id, tenant_id, user_id, badge_id, badge_name, earned_at, related_challenge_id, metadata)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (user_id, badge_id) DO NOTHING`,
		award.ID, award.TenantID, award.UserID, award.BadgeID, award.BadgeName, award.EarnedAt,
		nullIfEmpty(award.RelatedChallengeID), metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.UserBadge{}, domain.ErrAlreadyAwarded
		}
		return domain.UserBadge{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.UserBadge{}, domain.ErrAlreadyAwarded
	}

	if err := outbox.Insert(ctx, tx, outbox.Event{
		TenantID:      award.TenantID,
		AggregateType: "award",
		AggregateID:   award.ID,
		EventType:     outbox.EventBadgeEarned,
		PartitionKey:  award.UserID,
		Payload: events.BadgeEarned{
			AwardID:            award.ID,
			TenantID:           award.TenantID,
			UserID:             award.UserID,
			BadgeID:            award.BadgeID,
			BadgeName:          award.BadgeName,
			RelatedChallengeID: award.RelatedChallengeID,
			EarnedAt:           award.EarnedAt,
		},
	}); err != nil {
		return domain.UserBadge{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.UserBadge{}, err
	}
	return award, nil
}

// ListByUser returns the user's awards, oldest first.
func (s *AwardStore) ListByUser(ctx context.Context, userID string) ([]domain.UserBadge, error) {
	rows, err := s.repo.pool.Query(ctx,
		`SELECT award_id, tenant_id, user_id, badge_id, badge_name, earned_at, COALESCE(related_challenge_id, ''), metadata
           FROM user_badges WHERE user_id = $1 ORDER BY earned_at, award_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.UserBadge, 0)
	for rows.Next() {
		var (
			award    domain.UserBadge
			metadata []byte
		)
		if err := rows.Scan(&award.ID, &award.TenantID, &award.UserID, &award.BadgeID, &award.BadgeName, &award.EarnedAt, &award.RelatedChallengeID, &metadata); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &award.Metadata); err != nil {
				return nil, err
			}
		}
		award.EarnedAt = award.EarnedAt.UTC()
		results = append(results, award)
	}
	return results, rows.Err()
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
