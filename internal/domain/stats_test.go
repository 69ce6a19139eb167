package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(offset int, hour int) time.Time {
	return time.Date(2024, 1, 1+offset, hour, 0, 0, 0, time.UTC)
}

func TestLongestStreak(t *testing.T) {
	cases := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "empty", want: 0},
		{name: "single day", dates: []time.Time{day(0, 8)}, want: 1},
		{name: "gap resets run", dates: []time.Time{day(0, 8), day(1, 8), day(2, 8), day(4, 8)}, want: 3},
		{name: "same day counted once", dates: []time.Time{day(0, 7), day(0, 19), day(1, 6)}, want: 2},
		{name: "unsorted input", dates: []time.Time{day(5, 8), day(3, 8), day(4, 8), day(0, 8)}, want: 3},
		{name: "longest run is not the latest", dates: []time.Time{day(0, 8), day(1, 8), day(2, 8), day(3, 8), day(10, 8), day(11, 8)}, want: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, LongestStreak(tc.dates))
		})
	}
}

func TestLongestStreakUsesUTCDays(t *testing.T) {
	plus10 := time.FixedZone("plus10", 10*60*60)
	// 2024-01-02 08:00 in +10 is 2024-01-01 22:00 UTC.
	dates := []time.Time{
		time.Date(2024, 1, 2, 8, 0, 0, 0, plus10),
		day(1, 8),
	}
	require.Equal(t, 2, LongestStreak(dates))
}

func TestCurrentStreak(t *testing.T) {
	dates := []time.Time{day(0, 8), day(1, 8), day(2, 8), day(5, 8), day(6, 8)}

	require.Equal(t, 2, CurrentStreak(dates, day(6, 20)), "run ending today")
	require.Equal(t, 2, CurrentStreak(dates, day(7, 9)), "run ending yesterday still counts")
	require.Equal(t, 0, CurrentStreak(dates, day(8, 9)), "run broken")
	require.Equal(t, 3, CurrentStreak(dates, day(2, 23)), "later days ignored")
	require.Equal(t, 0, CurrentStreak(nil, day(0, 0)))
}

func TestAggregateStats(t *testing.T) {
	completed := Participation{
		Status: ParticipationCompleted,
		WorkoutSessions: []WorkoutSession{
			{Date: day(0, 8), DurationMin: 30, CaloriesBurned: 200},
			{Date: day(1, 8), DurationMin: 40, CaloriesBurned: 300},
		},
	}
	active := Participation{
		Status: ParticipationActive,
		WorkoutSessions: []WorkoutSession{
			{Date: day(2, 8), DurationMin: 50, CaloriesBurned: 100},
			{Date: day(2, 18), DurationMin: 20, CaloriesBurned: 400},
		},
	}
	abandoned := Participation{Status: ParticipationAbandoned}

	stats := AggregateStats([]Participation{completed, active, abandoned}, day(3, 12))

	require.Equal(t, float64(1), stats.Value(StatCompletedChallenges))
	require.Equal(t, float64(1), stats.Value(StatActiveChallenges))
	require.Equal(t, float64(3), stats.Value(StatParticipationCount))
	require.Equal(t, float64(4), stats.Value(StatTotalWorkoutSessions))
	require.Equal(t, float64(1000), stats.Value(StatTotalCaloriesBurned))
	require.Equal(t, float64(140), stats.Value(StatTotalWorkoutTime))
	require.Equal(t, float64(35), stats.Value(StatAverageSessionDuration))
	require.Equal(t, float64(250), stats.Value(StatAverageCaloriesPerSession))
	require.Equal(t, float64(3), stats.Value(StatLongestStreak))
	require.Equal(t, float64(3), stats.Value(StatCurrentStreak))

	require.Equal(t, stats.Value(StatTotalWorkoutSessions), stats.Value(StatWorkoutCount))
	require.Equal(t, stats.Value(StatLongestStreak), stats.Value(StatConsecutiveDays))
	require.Equal(t, stats.Value(StatTotalCaloriesBurned), stats.Value(StatTotalCalories))
	require.Equal(t, stats.Value(StatTotalWorkoutTime), stats.Value(StatTotalWorkoutMinutes))
	require.Equal(t, stats.Value(StatCompletedChallenges), stats.Value(StatChallengesCompleted))
}

func TestAggregateStatsCountsSharedActivityOnce(t *testing.T) {
	run := WorkoutSession{Date: day(0, 7), DurationMin: 30, CaloriesBurned: 200, SourceActivityID: "act-1"}
	manual := WorkoutSession{Date: day(1, 7), DurationMin: 15, CaloriesBurned: 90}
	first := Participation{Status: ParticipationActive, WorkoutSessions: []WorkoutSession{run, manual}}
	second := Participation{Status: ParticipationActive, WorkoutSessions: []WorkoutSession{run, manual}}

	stats := AggregateStats([]Participation{first, second}, day(1, 12))

	require.Equal(t, float64(3), stats.Value(StatWorkoutCount), "manual sessions without an activity still count per participation")
	require.Equal(t, float64(380), stats.Value(StatTotalCalories))
	require.Equal(t, float64(60), stats.Value(StatTotalWorkoutMinutes))
	require.Equal(t, float64(2), stats.Value(StatConsecutiveDays))
	require.Equal(t, float64(2), stats.Value(StatActiveChallenges))
}

func TestAggregateStatsEmpty(t *testing.T) {
	stats := AggregateStats(nil, day(0, 0))

	require.Equal(t, float64(0), stats.Value(StatTotalWorkoutSessions))
	require.Equal(t, float64(0), stats.Value(StatAverageSessionDuration))
	require.Equal(t, float64(0), stats.Value(StatAverageCaloriesPerSession))
	require.Equal(t, float64(0), stats.Value("notAStat"))
	for name := range knownStats {
		_, ok := stats[name]
		require.True(t, ok, "missing key %s", name)
	}
}
