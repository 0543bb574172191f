package main

import (
	"testing"
	"time"
)

var recalBase = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

// weighIn builds a weight entry dayOffset days after recalBase.
func weighIn(dayOffset int, kg float64) weightEntry {
	return weightEntry{Date: DateOnly{recalBase.AddDate(0, 0, dayOffset)}, WeightKg: kg}
}

func recalSettings(target int, weeklyGoal float64) settings {
	return settings{ID: settingsID, TargetCalories: target, WeeklyGoalKg: &weeklyGoal, Version: 3}
}

func TestRecalibrate_FlatWeightReducesBudget(t *testing.T) {
	s := recalSettings(1800, 0.8)
	weights := []weightEntry{weighIn(0, 80), weighIn(7, 80.4), weighIn(14, 80)}

	updated, r := recalibrate(s, weights, nil, nil)

	if !r.Sufficient {
		t.Fatalf("expected sufficient data, got message %q", r.Message)
	}
	if r.Stats.ActualWeeklyChangeKg != 0 {
		t.Errorf("expected 0 kg/week, got %v", r.Stats.ActualWeeklyChangeKg)
	}
	if r.Stats.TargetWeeklyChangeKg != -0.8 {
		t.Errorf("expected target -0.8, got %v", r.Stats.TargetWeeklyChangeKg)
	}
	if r.Stats.Deviation != 0 {
		t.Errorf("expected deviation 0, got %v", r.Stats.Deviation)
	}
	if r.AdjustmentKcal != -200 {
		t.Errorf("expected -200, got %d", r.AdjustmentKcal)
	}
	if updated.TargetCalories != 1600 || r.NewTargetCalories != 1600 {
		t.Errorf("expected new target 1600, got %d / %d", updated.TargetCalories, r.NewTargetCalories)
	}
	if s.TargetCalories != 1800 {
		t.Error("input settings were modified")
	}
	if updated.Version != s.Version {
		t.Error("recalibrate must not touch the version token")
	}
}

func TestRecalibrate_Adjustments(t *testing.T) {
	cases := []struct {
		name       string
		weeklyGoal float64
		lastKg     float64
		want       int
	}{
		// -0.8 kg/week against a -0.8 goal: deviation 1.0
		{"on track is a no-op", 0.8, 78.4, 0},
		// -0.35 kg/week against -0.8: deviation 0.4375, (0.7-0.4375)*500 = 131.25
		{"slightly slow", 0.8, 79.3, -131},
		// -2 kg/week against -0.5: deviation 4
		{"much too fast is capped", 0.5, 76, 200},
		// gaining weight: negative deviation
		{"gaining is capped", 0.5, 81, -200},
		// -0.5 kg/week against -0.5 (band edge check, deviation 1.0)
		{"exact goal", 0.5, 79, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := recalSettings(2000, tc.weeklyGoal)
			updated, r := recalibrate(s, []weightEntry{weighIn(0, 80), weighIn(14, tc.lastKg)}, nil, nil)
			if !r.Sufficient {
				t.Fatal("expected sufficient data")
			}
			if r.AdjustmentKcal != tc.want {
				t.Errorf("adjustment = %d, want %d (deviation %v)", r.AdjustmentKcal, tc.want, r.Stats.Deviation)
			}
			if updated.TargetCalories != 2000+tc.want {
				t.Errorf("new target = %d, want %d", updated.TargetCalories, 2000+tc.want)
			}
		})
	}
}

func TestAdjustmentFor(t *testing.T) {
	cases := []struct {
		deviation float64
		want      int
	}{
		{0.7, 0},
		{1.0, 0},
		{1.3, 0},
		{0.6, -50},
		{1.5, 100},
		{-10, -200},
		{10, 200},
	}
	for _, tc := range cases {
		if got := adjustmentFor(tc.deviation); got != tc.want {
			t.Errorf("adjustmentFor(%v) = %d, want %d", tc.deviation, got, tc.want)
		}
	}
	for d := -5.0; d <= 5.0; d += 0.05 {
		if got := adjustmentFor(d); got < -maxAdjustmentKcal || got > maxAdjustmentKcal {
			t.Fatalf("adjustmentFor(%v) = %d, outside ±%d", d, got, maxAdjustmentKcal)
		}
	}
}

func TestRecalibrate_InsufficientData(t *testing.T) {
	s := recalSettings(1800, 0.8)
	now := time.Now()
	period := weighIn(7, 70)
	period.IsPeriod = true
	deleted := weighIn(10, 70)
	deleted.DeletedAt = &now

	cases := map[string][]weightEntry{
		"none":                {},
		"single":              {weighIn(0, 80)},
		"period doesn't count": {weighIn(0, 80), period},
		"deleted doesn't count": {weighIn(0, 80), deleted},
	}
	for name, weights := range cases {
		t.Run(name, func(t *testing.T) {
			updated, r := recalibrate(s, weights, nil, nil)
			if r.Sufficient {
				t.Fatal("expected insufficient data")
			}
			if r.Message == "" {
				t.Error("expected an informational message")
			}
			if r.Stats != nil || r.AdjustmentKcal != 0 {
				t.Errorf("expected no adjustment, got %+v", r)
			}
			if updated.TargetCalories != s.TargetCalories {
				t.Error("settings changed on insufficient data")
			}
		})
	}
}

func TestRecalibrate_IgnoresDeletedRows(t *testing.T) {
	now := time.Now()
	s := recalSettings(1800, 0.8)

	deletedWeight := weighIn(20, 60)
	deletedWeight.DeletedAt = &now
	weights := []weightEntry{weighIn(14, 80), deletedWeight, weighIn(0, 80)}

	meals := make([]meal, 0, 15)
	for i := 0; i < 14; i++ {
		meals = append(meals, meal{CaloriesMid: 1500})
	}
	meals = append(meals, meal{CaloriesMid: 50000, DeletedAt: &now})
	workouts := []workout{{Calories: 700}, {Calories: 9000, DeletedAt: &now}}

	_, r := recalibrate(s, weights, meals, workouts)
	if !r.Sufficient {
		t.Fatal("expected sufficient data")
	}
	if r.Stats.ActualWeeklyChangeKg != 0 {
		t.Errorf("deleted weight leaked into the trend: %v kg/week", r.Stats.ActualWeeklyChangeKg)
	}
	// (14*1500 - 700) / 14 = 1450 net intake; 1800 - 1450 = 350
	if r.Stats.AvgDailyDeficit != 350 {
		t.Errorf("expected avg deficit 350, got %d", r.Stats.AvgDailyDeficit)
	}
	if r.AdjustmentKcal != -200 {
		t.Errorf("expected -200, got %d", r.AdjustmentKcal)
	}
}

func TestRecalibrate_DefaultWeeklyGoal(t *testing.T) {
	s := settings{TargetCalories: 1800}
	_, r := recalibrate(s, []weightEntry{weighIn(0, 80), weighIn(14, 80)}, nil, nil)
	if r.Stats.TargetWeeklyChangeKg != -defaultWeeklyGoalKg {
		t.Errorf("expected target %v, got %v", -defaultWeeklyGoalKg, r.Stats.TargetWeeklyChangeKg)
	}
}

func TestRecalibrate_ZeroGoal(t *testing.T) {
	s := recalSettings(1800, 0)
	_, r := recalibrate(s, []weightEntry{weighIn(0, 80), weighIn(14, 78)}, nil, nil)
	if r.Stats.Deviation != 1 || r.AdjustmentKcal != 0 {
		t.Errorf("expected deviation 1 and no adjustment, got %+v", r.Stats)
	}
}

func TestRecalibrate_SameDayWeighIns(t *testing.T) {
	s := recalSettings(1800, 0.8)
	_, r := recalibrate(s, []weightEntry{weighIn(3, 80), weighIn(3, 79)}, nil, nil)
	if !r.Sufficient {
		t.Fatal("expected sufficient data")
	}
	if r.Stats.ActualWeeklyChangeKg != 0 {
		t.Errorf("expected 0 change over zero days, got %v", r.Stats.ActualWeeklyChangeKg)
	}
}

// TestRecalibrate_CanLeaveSetupRange documents that repeated adjustments are
// not clamped to the [1200, 2500] range used at setup.
func TestRecalibrate_CanLeaveSetupRange(t *testing.T) {
	s := recalSettings(1300, 0.8)
	flat := []weightEntry{weighIn(0, 80), weighIn(14, 80)}

	for i := 0; i < 2; i++ {
		s, _ = recalibrate(s, flat, nil, nil)
	}
	if s.TargetCalories != 900 {
		t.Errorf("expected 900 after two flat weeks, got %d", s.TargetCalories)
	}
	if s.TargetCalories >= minTargetCalories {
		t.Error("expected the target to drop below the setup floor")
	}
}

func TestRecalibrationWindowStart(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.Local)
	got := recalibrationWindowStart(now)
	want := time.Date(2026, 10, 4, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("recalibrationWindowStart = %v, want %v", got, want)
	}
}
