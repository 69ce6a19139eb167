package domain

import "context"

// BadgeRepository adds write access to BadgeStore for catalog management.
type BadgeRepository interface {
	BadgeStore
	Save(ctx context.Context, badge Badge) error
}

// BadgeCatalog manages badge definitions. Rule conditions are validated here so a
// misspelt statistic is rejected instead of silently evaluating to zero.
type BadgeCatalog struct {
	repo BadgeRepository
	settings
}

// NewBadgeCatalog constructs a BadgeCatalog.
func NewBadgeCatalog(repo BadgeRepository, opts ...Option) *BadgeCatalog {
	return &BadgeCatalog{repo: repo, settings: newSettings("[catalog] ", opts)}
}

// CreateBadge validates and stores a new badge.
func (c *BadgeCatalog) CreateBadge(ctx context.Context, input BadgeInput) (Badge, error) {
	badge, err := NewBadge(input, c.now())
	if err != nil {
		return Badge{}, err
	}
	if err := c.repo.Save(ctx, badge); err != nil {
		return Badge{}, err
	}
	return badge, nil
}

// GetBadge fetches by ID.
func (c *BadgeCatalog) GetBadge(ctx context.Context, id string) (*Badge, error) {
	badge, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if badge == nil {
		return nil, ErrBadgeNotFound
	}
	return badge, nil
}

// UpdateBadgeRules replaces the rule set after validation.
func (c *BadgeCatalog) UpdateBadgeRules(ctx context.Context, id string, rules []BadgeRule) (Badge, error) {
	current, err := c.GetBadge(ctx, id)
	if err != nil {
		return Badge{}, err
	}
	updated, err := current.WithRules(rules, c.now())
	if err != nil {
		return Badge{}, err
	}
	if err := c.repo.Save(ctx, updated); err != nil {
		return Badge{}, err
	}
	return updated, nil
}

// SetBadgeActive toggles whether the badge takes part in new evaluations.
func (c *BadgeCatalog) SetBadgeActive(ctx context.Context, id string, active bool) (Badge, error) {
	current, err := c.GetBadge(ctx, id)
	if err != nil {
		return Badge{}, err
	}
	updated := current.Deactivate(c.now())
	if active {
		updated = current.Activate(c.now())
	}
	if err := c.repo.Save(ctx, updated); err != nil {
		return Badge{}, err
	}
	return updated, nil
}
