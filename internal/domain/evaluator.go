package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Shortfall describes one failing rule.
type Shortfall struct {
	Condition string
	Current   float64
	Threshold float64
	Missing   float64
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s: %s/%s (need %s more)",
		s.Condition, formatNumber(s.Current), formatNumber(s.Threshold), formatNumber(s.Missing))
}

// Eligibility is the outcome of evaluating one badge against a stats snapshot.
type Eligibility struct {
	Eligible   bool
	Missing    []string
	Shortfalls []Shortfall
}

// Evaluate checks every rule of the badge against stats. Rules are AND-combined and
// evaluated in stored order; unknown conditions read as zero.
func Evaluate(badge Badge, stats ActivityStats) Eligibility {
	result := Eligibility{Eligible: true}
	for _, rule := range badge.Rules {
		current := stats.Value(rule.Condition)
		if current >= rule.Value {
			continue
		}
		shortfall := Shortfall{
			Condition: rule.Condition,
			Current:   current,
			Threshold: rule.Value,
			Missing:   rule.Value - current,
		}
		result.Eligible = false
		result.Shortfalls = append(result.Shortfalls, shortfall)
		result.Missing = append(result.Missing, shortfall.String())
	}
	return result
}

// RuleProgress returns how far stats are towards one rule, in percent capped at 100.
func RuleProgress(rule BadgeRule, stats ActivityStats) float64 {
	if rule.Value <= 0 {
		return 100
	}
	return math.Min(100, stats.Value(rule.Condition)/rule.Value*100)
}

// ProgressFor reports progress for the rules matching ruleType and condition. With
// several matches the least advanced rule wins. ok is false when nothing matches.
func ProgressFor(badge Badge, stats ActivityStats, ruleType RuleType, condition string) (percent float64, ok bool) {
	if !badge.HasRuleType(ruleType) {
		return 0, false
	}
	percent = 100
	for _, rule := range badge.RulesByType(ruleType) {
		if rule.Condition != condition {
			continue
		}
		ok = true
		percent = math.Min(percent, RuleProgress(rule, stats))
	}
	if !ok {
		return 0, false
	}
	return percent, true
}

// BadgeProgress is the progress of the least advanced rule of the badge.
func BadgeProgress(badge Badge, stats ActivityStats) float64 {
	if len(badge.Rules) == 0 {
		return 0
	}
	percent := 100.0
	for _, rule := range badge.Rules {
		percent = math.Min(percent, RuleProgress(rule, stats))
	}
	return percent
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
