package seed

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/persistence/memory"
)

func TestSeedFileAppliesIdempotently(t *testing.T) {
	ctx := context.Background()
	inputs, err := LoadFile("../../db/seed/badges.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, inputs)

	store := memory.NewStore()
	catalog := domain.NewBadgeCatalog(store.BadgeStore(), domain.WithLogger(log.New(io.Discard, "", 0)))
	logger := log.New(io.Discard, "", 0)

	applied, err := Apply(ctx, catalog, inputs, logger)
	require.NoError(t, err)
	require.Equal(t, len(inputs), applied)

	active, err := store.BadgeStore().FindActive(ctx)
	require.NoError(t, err)

	_, err = Apply(ctx, catalog, inputs, logger)
	require.NoError(t, err)
	again, err := store.BadgeStore().FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, again, len(active), "re-seeding updates in place")

	for _, badge := range again {
		require.NotEqual(t, "Marathoner", badge.Name, "inactive seed stays out of evaluation")
	}
}

func TestParseBadges(t *testing.T) {
	doc := `
badges:
  - id: b-1
    name: Hat Trick
    rules:
      - type: streak
        condition: consecutive_days
        value: 3
  - id: b-2
    name: Retired
    active: false
    rules:
      - {type: participation, condition: workout_count, value: 100}
`
	inputs, err := ParseBadges(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []domain.BadgeInput{
		{ID: "b-1", Name: "Hat Trick", Rules: []domain.BadgeRule{{Type: domain.RuleStreak, Condition: domain.StatConsecutiveDays, Value: 3}}},
		{ID: "b-2", Name: "Retired", Inactive: true, Rules: []domain.BadgeRule{{Type: domain.RuleParticipation, Condition: domain.StatWorkoutCount, Value: 100}}},
	}, inputs)
}

func TestParseBadgesRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"missing id":    "badges:\n  - name: Nameless\n",
		"duplicate id":  "badges:\n  - id: x\n    name: A\n  - id: x\n    name: B\n",
		"unknown field": "badges:\n  - id: x\n    name: A\n    points: 10\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBadges(strings.NewReader(doc))
			require.Error(t, err)
		})
	}

	inputs, err := ParseBadges(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, inputs)
}

func TestApplyReportsInvalidBadgesAndContinues(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	catalog := domain.NewBadgeCatalog(store.BadgeStore())

	applied, err := Apply(ctx, catalog, []domain.BadgeInput{
		{ID: "bad", Name: "Typo", Rules: []domain.BadgeRule{{Type: domain.RuleCustom, Condition: "workout_cuont", Value: 1}}},
		{ID: "good", Name: "Fine", Rules: []domain.BadgeRule{{Type: domain.RuleCustom, Condition: domain.StatWorkoutCount, Value: 1}}},
	}, log.New(io.Discard, "", 0))

	require.ErrorIs(t, err, domain.ErrValidation)
	require.ErrorContains(t, err, "badge bad")
	require.Equal(t, 1, applied)

	badge, err := catalog.GetBadge(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, "Fine", badge.Name)
}
