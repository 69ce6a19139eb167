package domain

import (
	"slices"
	"time"
)

// Statistic keys present in every ActivityStats snapshot.
const (
	StatCompletedChallenges       = "completedChallenges"
	StatActiveChallenges          = "activeChallenges"
	StatTotalWorkoutSessions      = "totalWorkoutSessions"
	StatTotalCaloriesBurned       = "totalCaloriesBurned"
	StatTotalWorkoutTime          = "totalWorkoutTime"
	StatParticipationCount        = "participationCount"
	StatCurrentStreak             = "currentStreak"
	StatLongestStreak             = "longestStreak"
	StatAverageSessionDuration    = "averageSessionDuration"
	StatAverageCaloriesPerSession = "averageCaloriesPerSession"

	// Rule aliases used by badge definitions.
	StatWorkoutCount        = "workout_count"
	StatConsecutiveDays     = "consecutive_days"
	StatTotalCalories       = "total_calories"
	StatTotalWorkoutMinutes = "total_workout_time"
	StatChallengesCompleted = "challenges_completed"
)

var knownStats = map[string]struct{}{
	StatCompletedChallenges:       {},
	StatActiveChallenges:          {},
	StatTotalWorkoutSessions:      {},
	StatTotalCaloriesBurned:       {},
	StatTotalWorkoutTime:          {},
	StatParticipationCount:        {},
	StatCurrentStreak:             {},
	StatLongestStreak:             {},
	StatAverageSessionDuration:    {},
	StatAverageCaloriesPerSession: {},
	StatWorkoutCount:              {},
	StatConsecutiveDays:           {},
	StatTotalCalories:             {},
	StatTotalWorkoutMinutes:       {},
	StatChallengesCompleted:       {},
}

// IsKnownStat reports whether a badge rule may threshold the named statistic.
func IsKnownStat(name string) bool {
	_, ok := knownStats[name]
	return ok
}

// ActivityStats is a derived snapshot of a user's activity, keyed by statistic name.
// It is recomputed on every request and never stored.
type ActivityStats map[string]float64

// Value returns the named statistic, or zero when the key is absent.
func (s ActivityStats) Value(name string) float64 {
	return s[name]
}

// AggregateStats computes the snapshot for one user's participations. It has no side
// effects; asOf anchors the current streak. Sessions derived from the same tracked
// activity count once towards the totals even when logged on several participations.
func AggregateStats(participations []Participation, asOf time.Time) ActivityStats {
	var completed, active, sessions, calories, minutes int
	dates := make([]time.Time, 0)
	activities := make(map[string]struct{})

	for _, p := range participations {
		switch p.Status {
		case ParticipationCompleted:
			completed++
		case ParticipationActive:
			active++
		}
		for _, s := range p.WorkoutSessions {
			if s.SourceActivityID != "" {
				if _, seen := activities[s.SourceActivityID]; seen {
					continue
				}
				activities[s.SourceActivityID] = struct{}{}
			}
			sessions++
			calories += s.CaloriesBurned
			minutes += s.DurationMin
			dates = append(dates, s.Date)
		}
	}

	longest := LongestStreak(dates)
	current := CurrentStreak(dates, asOf)

	var avgDuration, avgCalories float64
	if sessions > 0 {
		avgDuration = float64(minutes) / float64(sessions)
		avgCalories = float64(calories) / float64(sessions)
	}

	return ActivityStats{
		StatCompletedChallenges:       float64(completed),
		StatActiveChallenges:          float64(active),
		StatTotalWorkoutSessions:      float64(sessions),
		StatTotalCaloriesBurned:       float64(calories),
		StatTotalWorkoutTime:          float64(minutes),
		StatParticipationCount:        float64(len(participations)),
		StatCurrentStreak:             float64(current),
		StatLongestStreak:             float64(longest),
		StatAverageSessionDuration:    avgDuration,
		StatAverageCaloriesPerSession: avgCalories,

		StatWorkoutCount:        float64(sessions),
		StatConsecutiveDays:     float64(longest),
		StatTotalCalories:       float64(calories),
		StatTotalWorkoutMinutes: float64(minutes),
		StatChallengesCompleted: float64(completed),
	}
}

// LongestStreak returns the longest run of consecutive UTC calendar days with at
// least one workout.
func LongestStreak(dates []time.Time) int {
	days := distinctDays(dates)
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// CurrentStreak returns the run of consecutive workout days ending on asOf's UTC date,
// or on the day before when nothing was logged yet today. Older runs count as zero.
func CurrentStreak(dates []time.Time, asOf time.Time) int {
	today := truncateDay(asOf)
	days := slices.DeleteFunc(distinctDays(dates), func(d time.Time) bool {
		return d.After(today)
	})
	if len(days) == 0 {
		return 0
	}
	last := days[len(days)-1]
	if today.Sub(last) > 24*time.Hour {
		return 0
	}
	run := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i].Sub(days[i-1]) != 24*time.Hour {
			break
		}
		run++
	}
	return run
}

// distinctDays normalises to UTC midnight, sorts ascending, and removes duplicates.
func distinctDays(dates []time.Time) []time.Time {
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		days = append(days, truncateDay(d))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
