package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/gamification/internal/domain"
)

// BadgeStore is the badge view of the repository; it satisfies domain.BadgeRepository.
type BadgeStore struct {
	repo *Repository
}

// Badges returns the badge view.
func (r *Repository) Badges() *BadgeStore {
	return &BadgeStore{repo: r}
}

const badgeColumns = `badge_id, name, description, icon_url, rules, is_active, created_at, updated_at`

// FindActive implements domain.BadgeStore.
func (s *BadgeStore) FindActive(ctx context.Context) ([]domain.Badge, error) {
	rows, err := s.repo.pool.Query(ctx, `SELECT `+badgeColumns+` FROM badges WHERE is_active ORDER BY created_at, badge_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Badge, 0)
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// FindByID implements domain.BadgeStore.
func (s *BadgeStore) FindByID(ctx context.Context, id string) (*domain.Badge, error) {
	b, err := scanBadge(s.repo.pool.QueryRow(ctx, `SELECT `+badgeColumns+` FROM badges WHERE badge_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Save upserts the badge definition, keeping the original creation time.
func (s *BadgeStore) Save(ctx context.Context, badge domain.Badge) error {
	rules, err := json.Marshal(badge.Rules)
	if err != nil {
		return err
	}
	_, err = s.repo.pool.Exec(ctx,
		`INSERT INTO badges (`+badgeColumns+`)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (badge_id) DO UPDATE
            SET name = EXCLUDED.name,
                description = EXCLUDED.description,
                icon_url = EXCLUDED.icon_url,
                rules = EXCLUDED.rules,
                is_active = EXCLUDED.is_active,
                updated_at = EXCLUDED.updated_at`,
		badge.ID, badge.Name, badge.Description, badge.IconURL, rules, badge.IsActive, badge.CreatedAt, badge.UpdatedAt,
	)
	return err
}

func scanBadge(row pgx.Row) (domain.Badge, error) {
	var (
		b     domain.Badge
		rules []byte
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.IconURL, &rules, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return domain.Badge{}, err
	}
	if err := json.Unmarshal(rules, &b.Rules); err != nil {
		return domain.Badge{}, fmt.Errorf("decode rules for badge %s: %w", b.ID, err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}
