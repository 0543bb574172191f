package main

import "testing"

func TestEstimateWorkoutCalories(t *testing.T) {
	cases := []struct {
		name      string
		typ       string
		duration  int
		intensity string
		weight    float64
		want      int
	}{
		// 9.8 * 1.0 * 70 * 0.5
		{"run medium", "run", 30, "medium", 70, 343},
		// 9.8 * 1.2 * 70 * 0.5 = 411.6
		{"run high", "run", 30, "high", 70, 412},
		// 3.5 * 0.8 * 80 * 1
		{"walk low", "walk", 60, "low", 80, 224},
		{"unknown type uses other", "yoga", 60, "medium", 80, 400},
		{"unknown intensity is medium", "swim", 60, "extreme", 50, 400},
		{"zero duration", "ride", 0, "medium", 70, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := estimateWorkoutCalories(tc.typ, tc.duration, tc.intensity, tc.weight)
			if got != tc.want {
				t.Errorf("estimateWorkoutCalories = %d, want %d", got, tc.want)
			}
		})
	}
}

// TestEstimateWorkoutCalories_Linear checks that doubling duration or weight
// doubles the estimate, up to one kcal of rounding.
func TestEstimateWorkoutCalories_Linear(t *testing.T) {
	for typ := range metValues {
		for _, intensity := range []string{"low", "medium", "high"} {
			for _, d := range []int{7, 20, 45} {
				base := estimateWorkoutCalories(typ, d, intensity, 63)
				doubledDuration := estimateWorkoutCalories(typ, 2*d, intensity, 63)
				doubledWeight := estimateWorkoutCalories(typ, d, intensity, 126)
				for _, got := range []int{doubledDuration, doubledWeight} {
					if diff := got - 2*base; diff < -1 || diff > 1 {
						t.Errorf("%s/%s/%dmin: doubled = %d, base = %d", typ, intensity, d, got, base)
					}
				}
			}
		}
	}
}

func TestEstimateWeightKg(t *testing.T) {
	if got := estimateWeightKg(floatPtr(66), floatPtr(90)); got != 66 {
		t.Errorf("latest entry should win, got %v", got)
	}
	if got := estimateWeightKg(nil, floatPtr(90)); got != 90 {
		t.Errorf("start weight should be used, got %v", got)
	}
	if got := estimateWeightKg(nil, nil); got != fallbackWeightKg {
		t.Errorf("expected fallback %v, got %v", float64(fallbackWeightKg), got)
	}
}

func TestWorkoutCalories(t *testing.T) {
	weightCalls := 0
	weight := func() float64 {
		weightCalls++
		return 80
	}

	cases := []struct {
		name      string
		source    string
		duration  *int
		supplied  *int
		want      int
		wantCalls int
	}{
		{"estimate with duration", "estimate", intPtr(60), nil, 400, 1},
		{"estimate ignores supplied value", "estimate", intPtr(60), intPtr(999), 400, 1},
		{"estimate without duration uses supplied", "estimate", nil, intPtr(150), 150, 0},
		{"manual uses supplied", "manual", intPtr(60), intPtr(321), 321, 0},
		{"device without value is zero", "device", intPtr(60), nil, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			weightCalls = 0
			got := workoutCalories(tc.source, "other", tc.duration, "medium", tc.supplied, weight)
			if got != tc.want {
				t.Errorf("workoutCalories = %d, want %d", got, tc.want)
			}
			if weightCalls != tc.wantCalls {
				t.Errorf("weight looked up %d times, want %d", weightCalls, tc.wantCalls)
			}
		})
	}
}

func TestNormalizeWorkoutRequest(t *testing.T) {
	body := createWorkoutRequest{}
	if err := normalizeWorkoutRequest(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Type != "other" || body.Intensity != "medium" || body.Source != "estimate" {
		t.Errorf("unexpected defaults: %+v", body)
	}

	bad := []createWorkoutRequest{
		{Type: "climb"},
		{Intensity: "max"},
		{Source: "guess"},
		{DurationMin: intPtr(-5)},
		{Calories: intPtr(-1)},
	}
	for _, b := range bad {
		if err := normalizeWorkoutRequest(&b); err == nil {
			t.Errorf("expected validation error for %+v", b)
		}
	}
}
