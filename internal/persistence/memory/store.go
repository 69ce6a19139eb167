// Package memory provides in-process stores for local development and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/gamification/internal/domain"
)

// Store keeps participations, badges, and awards in memory. It enforces the same
// version and uniqueness checks as the Postgres repository.
type Store struct {
	mu             sync.RWMutex
	participations map[string]domain.Participation
	badges         map[string]domain.Badge
	awards         map[string]domain.UserBadge
	awardIndex     map[awardKey]string
}

type awardKey struct {
	userID  string
	badgeID string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		participations: make(map[string]domain.Participation),
		badges:         make(map[string]domain.Badge),
		awards:         make(map[string]domain.UserBadge),
		awardIndex:     make(map[awardKey]string),
	}
}

// FindByUserID implements domain.ParticipationStore.
func (s *Store) FindByUserID(ctx context.Context, userID string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Participation, 0)
	for _, p := range s.participations {
		if p.UserID == userID {
			out = append(out, copyParticipation(p))
		}
	}
	slices.SortFunc(out, func(a, b domain.Participation) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return out, nil
}

// FindByID implements domain.ParticipationStore.
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participations[id]
	if !ok {
		return nil, nil
	}
	clone := copyParticipation(p)
	return &clone, nil
}

// Save implements domain.ParticipationStore.
func (s *Store) Save(ctx context.Context, participation domain.Participation) (domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if participation.ID == "" {
		participation.ID = uuid.NewString()
	}
	stored, exists := s.participations[participation.ID]
	if exists && stored.Version != participation.Version {
		return domain.Participation{}, domain.ErrConcurrentUpdate
	}
	if !exists && participation.Version != 0 {
		return domain.Participation{}, domain.ErrConcurrentUpdate
	}

	participation = copyParticipation(participation)
	participation.Version++
	s.participations[participation.ID] = participation
	return copyParticipation(participation), nil
}

// ListUserIDsWithActivitySince returns users whose participations changed at or after since.
func (s *Store) ListUserIDsWithActivitySince(ctx context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.participations {
		if !p.UpdatedAt.Before(since) {
			seen[p.UserID] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// BadgeStore returns a view of the store satisfying domain.BadgeRepository.
func (s *Store) BadgeStore() *BadgeView {
	return &BadgeView{store: s}
}

// AwardStore returns a view of the store satisfying domain.AwardStore.
func (s *Store) AwardStore() *AwardView {
	return &AwardView{store: s}
}

// BadgeView exposes badge operations; FindByID would otherwise clash with participations.
type BadgeView struct {
	store *Store
}

// FindActive implements domain.BadgeStore.
func (v *BadgeView) FindActive(ctx context.Context) ([]domain.Badge, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	out := make([]domain.Badge, 0)
	for _, b := range v.store.badges {
		if b.IsActive {
			out = append(out, copyBadge(b))
		}
	}
	slices.SortFunc(out, func(a, b domain.Badge) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareStrings(a.ID, b.ID)
	})
	return out, nil
}

// FindByID implements domain.BadgeStore.
func (v *BadgeView) FindByID(ctx context.Context, id string) (*domain.Badge, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	b, ok := v.store.badges[id]
	if !ok {
		return nil, nil
	}
	clone := copyBadge(b)
	return &clone, nil
}

// Save implements domain.BadgeRepository.
func (v *BadgeView) Save(ctx context.Context, badge domain.Badge) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if existing, ok := v.store.badges[badge.ID]; ok && !existing.CreatedAt.IsZero() {
		badge.CreatedAt = existing.CreatedAt
	}
	v.store.badges[badge.ID] = copyBadge(badge)
	return nil
}

// AwardView exposes award operations.
type AwardView struct {
	store *Store
}

// ExistsForUserAndBadge implements domain.AwardStore.
func (v *AwardView) ExistsForUserAndBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	_, ok := v.store.awardIndex[awardKey{userID: userID, badgeID: badgeID}]
	return ok, nil
}

// Create implements domain.AwardStore.
func (v *AwardView) Create(ctx context.Context, award domain.UserBadge) (domain.UserBadge, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	key := awardKey{userID: award.UserID, badgeID: award.BadgeID}
	if _, ok := v.store.awardIndex[key]; ok {
		return domain.UserBadge{}, domain.ErrAlreadyAwarded
	}
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	award.Metadata = maps.Clone(award.Metadata)
	v.store.awards[award.ID] = award
	v.store.awardIndex[key] = award.ID
	return award, nil
}

// ListByUser returns the user's awards, oldest first.
func (v *AwardView) ListByUser(ctx context.Context, userID string) ([]domain.UserBadge, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	out := make([]domain.UserBadge, 0)
	for _, a := range v.store.awards {
		if a.UserID == userID {
			a.Metadata = maps.Clone(a.Metadata)
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.UserBadge) int {
		return a.EarnedAt.Compare(b.EarnedAt)
	})
	return out, nil
}

func copyParticipation(p domain.Participation) domain.Participation {
	sessions := make([]domain.WorkoutSession, len(p.WorkoutSessions))
	for i, s := range p.WorkoutSessions {
		s.ExercisesCompleted = slices.Clone(s.ExercisesCompleted)
		sessions[i] = s
	}
	p.WorkoutSessions = sessions
	if p.CompletedAt != nil {
		completedAt := *p.CompletedAt
		p.CompletedAt = &completedAt
	}
	return p
}

func copyBadge(b domain.Badge) domain.Badge {
	b.Rules = slices.Clone(b.Rules)
	return b
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
