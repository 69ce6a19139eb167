package domain

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RuleType classifies a badge rule. Evaluation does not branch on it; it exists so
// callers can select rules for progress reporting.
type RuleType string

const (
	RuleChallengeCompletion RuleType = "challenge_completion"
	RuleStreak              RuleType = "streak"
	RuleParticipation       RuleType = "participation"
	RuleCustom              RuleType = "custom"
)

func (t RuleType) valid() bool {
	switch t {
	case RuleChallengeCompletion, RuleStreak, RuleParticipation, RuleCustom:
		return true
	}
	return false
}

// BadgeRule thresholds a single statistic.
type BadgeRule struct {
	Type      RuleType `json:"type"`
	Condition string   `json:"condition"`
	Value     float64  `json:"value"`
}

// Badge is an awardable achievement. All rules must pass for a user to earn it.
type Badge struct {
	ID          string
	Name        string
	Description string
	IconURL     string
	Rules       []BadgeRule
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BadgeInput carries the fields used to define a badge. An empty ID gets a fresh uuid.
type BadgeInput struct {
	ID          string
	Name        string
	Description string
	IconURL     string
	Rules       []BadgeRule
	Inactive    bool
}

// UserBadge records that a user earned a badge.
type UserBadge struct {
	ID                 string
	TenantID           string
	UserID             string
	BadgeID            string
	BadgeName          string
	EarnedAt           time.Time
	RelatedChallengeID string
	Metadata           map[string]string
}

// NewBadge validates the definition and builds an active badge.
func NewBadge(input BadgeInput, now time.Time) (Badge, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Badge{}, validationError("name is required")
	}
	if err := ValidateRules(input.Rules); err != nil {
		return Badge{}, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now = now.UTC()
	return Badge{
		ID:          id,
		Name:        name,
		Description: input.Description,
		IconURL:     input.IconURL,
		Rules:       slices.Clone(input.Rules),
		IsActive:    !input.Inactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateRules rejects empty rule sets, unknown types, thresholds below one, and
// conditions that do not name a known statistic.
func ValidateRules(rules []BadgeRule) error {
	if len(rules) == 0 {
		return validationError("at least one rule is required")
	}
	for i, rule := range rules {
		if !rule.Type.valid() {
			return validationError("rules[%d]: unknown rule type %q", i, rule.Type)
		}
		if !IsKnownStat(rule.Condition) {
			return validationError("rules[%d]: unknown condition %q", i, rule.Condition)
		}
		if rule.Value < 1 {
			return validationError("rules[%d]: value must be >= 1", i)
		}
	}
	return nil
}

// WithRules returns a copy of the badge carrying the validated rule set.
func (b Badge) WithRules(rules []BadgeRule, now time.Time) (Badge, error) {
	if err := ValidateRules(rules); err != nil {
		return Badge{}, err
	}
	next := b
	next.Rules = slices.Clone(rules)
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Activate returns an active copy of the badge.
func (b Badge) Activate(now time.Time) Badge {
	next := b
	next.Rules = slices.Clone(b.Rules)
	next.IsActive = true
	next.UpdatedAt = now.UTC()
	return next
}

// Deactivate returns a copy excluded from future evaluations.
func (b Badge) Deactivate(now time.Time) Badge {
	next := b
	next.Rules = slices.Clone(b.Rules)
	next.IsActive = false
	next.UpdatedAt = now.UTC()
	return next
}

// RulesByType filters rules of the given type, keeping stored order.
func (b Badge) RulesByType(t RuleType) []BadgeRule {
	out := make([]BadgeRule, 0, len(b.Rules))
	for _, rule := range b.Rules {
		if rule.Type == t {
			out = append(out, rule)
		}
	}
	return out
}

// HasRuleType reports whether any rule has the given type.
func (b Badge) HasRuleType(t RuleType) bool {
	return slices.ContainsFunc(b.Rules, func(r BadgeRule) bool { return r.Type == t })
}

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}
