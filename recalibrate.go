package main

import (
	"math"
	"sort"
	"time"
)

const (
	recalibrationWindowDays = 14
	minRecalibrationWeights = 2
	defaultWeeklyGoalKg     = 0.8

	// Deviation band inside which the budget is left alone.
	deviationLow  = 0.7
	deviationHigh = 1.3

	adjustmentPerDeviation = 500
	maxAdjustmentKcal      = 200
)

// recalibrationStats are the diagnostics reported with every adjustment.
type recalibrationStats struct {
	ActualWeeklyChangeKg float64 `json:"actualWeeklyChangeKg"`
	TargetWeeklyChangeKg float64 `json:"targetWeeklyChangeKg"`
	AvgDailyDeficit      int     `json:"avgDailyDeficit"`
	Deviation            float64 `json:"deviation"`
}

// recalibration is the engine's result. When Sufficient is false nothing else
// is set and the settings must not be written.
type recalibration struct {
	Sufficient        bool                `json:"-"`
	Message           string              `json:"message,omitempty"`
	AdjustmentKcal    int                 `json:"adjustmentKcal"`
	NewTargetCalories int                 `json:"newTargetCalories"`
	Reasoning         string              `json:"reasoning"`
	Stats             *recalibrationStats `json:"stats,omitempty"`
}

// recalibrate compares the weight trend in weights against the weekly goal in s
// and returns the settings with an adjusted daily target. s is never modified.
//
// Deleted rows and period weigh-ins are skipped here as well as in the queries
// that feed it. The [1200, 2500] setup clamp is deliberately not applied.
func recalibrate(s settings, weights []weightEntry, meals []meal, workouts []workout) (settings, recalibration) {
	trend := make([]weightEntry, 0, len(weights))
	for _, w := range weights {
		if w.DeletedAt == nil && !w.IsPeriod {
			trend = append(trend, w)
		}
	}
	if len(trend) < minRecalibrationWeights {
		return s, recalibration{Message: "not enough weight data to recalibrate yet"}
	}
	sort.SliceStable(trend, func(i, j int) bool { return trend[i].Date.Before(trend[j].Date.Time) })

	first, last := trend[0], trend[len(trend)-1]
	days := last.Date.Sub(first.Date.Time).Hours() / 24

	actualWeekly := 0.0
	if days > 0 {
		actualWeekly = (last.WeightKg - first.WeightKg) * 7 / days
	}

	var caloriesIn, caloriesOut int
	for _, m := range meals {
		if m.DeletedAt == nil {
			caloriesIn += m.CaloriesMid
		}
	}
	for _, w := range workouts {
		if w.DeletedAt == nil {
			caloriesOut += w.Calories
		}
	}
	avgNetIntake := float64(caloriesIn-caloriesOut) / math.Max(1, days)
	avgDeficit := float64(s.TargetCalories) - avgNetIntake

	weeklyGoal := defaultWeeklyGoalKg
	if s.WeeklyGoalKg != nil {
		weeklyGoal = *s.WeeklyGoalKg
	}
	targetWeekly := -weeklyGoal

	deviation := 1.0
	if targetWeekly != 0 {
		deviation = actualWeekly / targetWeekly
	}

	adjustment := adjustmentFor(deviation)
	updated := s
	updated.TargetCalories = roundHalfUp(float64(s.TargetCalories + adjustment))

	return updated, recalibration{
		Sufficient:        true,
		AdjustmentKcal:    adjustment,
		NewTargetCalories: updated.TargetCalories,
		Stats: &recalibrationStats{
			ActualWeeklyChangeKg: round2(actualWeekly),
			TargetWeeklyChangeKg: targetWeekly,
			AvgDailyDeficit:      roundHalfUp(avgDeficit),
			Deviation:            round2(deviation),
		},
	}
}

// adjustmentFor maps a deviation ratio to a daily calorie change: below the band
// the budget shrinks, above it the budget grows, each by up to 200 kcal.
func adjustmentFor(deviation float64) int {
	adjustment := 0
	if deviation < deviationLow {
		adjustment = -min(maxAdjustmentKcal, roundHalfUp((deviationLow-deviation)*adjustmentPerDeviation))
	} else if deviation > deviationHigh {
		adjustment = min(maxAdjustmentKcal, roundHalfUp((deviation-deviationHigh)*adjustmentPerDeviation))
	}
	// Authoritative bound, independent of the branches above.
	return max(-maxAdjustmentKcal, min(maxAdjustmentKcal, adjustment))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// recalibrationWindowStart is local midnight recalibrationWindowDays before now.
func recalibrationWindowStart(now time.Time) time.Time {
	return startOfDay(now).AddDate(0, 0, -recalibrationWindowDays)
}
