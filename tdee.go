package main

import (
	"math"
	"time"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
// This is the single source of truth for valid activity levels — also used for
// input validation in patchSettings.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// validGenders is the set of accepted gender values. Anything but "male" uses
// the female BMR offset, including "prefer_not_to_say".
var validGenders = map[string]bool{
	"male":              true,
	"female":            true,
	"prefer_not_to_say": true,
}

const (
	// kcalPerKg is the energy in one kilogram of fat mass.
	kcalPerKg = 7700

	maxDailyDeficit   = 500
	minTargetCalories = 1200
	maxTargetCalories = 2500

	defaultActivityMultiplier = 1.55
	setupWeeklyGoalKg         = 0.5
)

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2.
// math.Round would give -3.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// calcBMR computes basal metabolic rate with Mifflin-St Jeor.
func calcBMR(weightKg, heightCm float64, ageYears int, gender string) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(ageYears)
	if gender == "male" {
		return bmr + 5
	}
	return bmr - 161
}

// activityMultiplier returns the TDEE multiplier for level, 1.55 when unknown.
func activityMultiplier(level string) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return defaultActivityMultiplier
}

// calcTDEE is BMR scaled by activity level, rounded to whole kcal.
func calcTDEE(weightKg, heightCm float64, ageYears int, gender, activityLevel string) int {
	return roundHalfUp(calcBMR(weightKg, heightCm, ageYears, gender) * activityMultiplier(activityLevel))
}

// calcTargetCalories derives the setup-time daily budget: TDEE minus the deficit
// implied by weeklyGoalKg (capped at 500 kcal/day), clamped to [1200, 2500].
func calcTargetCalories(tdee int, weeklyGoalKg float64) int {
	dailyDeficit := math.Min(maxDailyDeficit, weeklyGoalKg*kcalPerKg/7)
	target := roundHalfUp(float64(tdee) - dailyDeficit)
	return max(minTargetCalories, min(maxTargetCalories, target))
}

// populateComputedTDEE fills the computed-only fields on s from the stored
// profile. No-ops if weight, height, or age is missing.
func populateComputedTDEE(s *settings) {
	weight := s.CurrentWeightKg
	if weight == nil {
		weight = s.StartWeightKg
	}
	if weight == nil || s.HeightCm == nil || s.AgeYears == nil {
		return
	}
	bmr := roundHalfUp(calcBMR(*weight, *s.HeightCm, *s.AgeYears, s.Gender))
	tdee := calcTDEE(*weight, *s.HeightCm, *s.AgeYears, s.Gender, s.ActivityLevel)
	s.ComputedBMR = &bmr
	s.ComputedTDEE = &tdee
}

// dayBounds returns [start, end) of the local calendar day named by date
// (YYYY-MM-DD).
func dayBounds(date string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
