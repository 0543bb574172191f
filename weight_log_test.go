package main

import (
	"net/http"
	"testing"
)

func TestResolveWeightKg(t *testing.T) {
	cases := []struct {
		name    string
		body    upsertWeightRequest
		wantKg  float64
		wantJin bool
		wantErr bool
	}{
		{"kg", upsertWeightRequest{WeightKg: floatPtr(72.4)}, 72.4, false, false},
		{"jin is halved", upsertWeightRequest{WeightJin: floatPtr(130)}, 65, true, false},
		{"kg wins over jin", upsertWeightRequest{WeightKg: floatPtr(70), WeightJin: floatPtr(130)}, 70, false, false},
		{"neither", upsertWeightRequest{}, 0, false, true},
		{"zero", upsertWeightRequest{WeightKg: floatPtr(0)}, 0, false, true},
		{"absurd", upsertWeightRequest{WeightJin: floatPtr(2000)}, 0, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kg, jin, err := resolveWeightKg(tc.body)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if kg != tc.wantKg {
				t.Errorf("kg = %v, want %v", kg, tc.wantKg)
			}
			if (jin != nil) != tc.wantJin {
				t.Errorf("jin raw = %v, want present=%v", jin, tc.wantJin)
			}
		})
	}
}

func TestWeightRange(t *testing.T) {
	cases := []struct {
		name              string
		month, start, end string
		wantStart         string
		wantEnd           string
		wantErr           bool
	}{
		{"month", "2026-02", "", "", "2026-02-01", "2026-02-28", false},
		{"month wins", "2026-10", "2026-01-01", "2026-01-02", "2026-10-01", "2026-10-31", false},
		{"explicit range", "", "2026-10-01", "2026-10-14", "2026-10-01", "2026-10-14", false},
		{"everything", "", "", "", "", "", false},
		{"bad month", "2026-13", "", "", "", "", true},
		{"half range", "", "2026-10-01", "", "", "", true},
		{"inverted range", "", "2026-10-14", "2026-10-01", "", "", true},
		{"bad date", "", "2026/10/01", "2026-10-14", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := weightRange(tc.month, tc.start, tc.end)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("got [%s, %s], want [%s, %s]", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestUpsertWeightEntry_Validation(t *testing.T) {
	router := setupHandlerTest(&fakeCompleter{})

	cases := []struct {
		name string
		body string
	}{
		{"no weight", `{"date":"2026-10-18"}`},
		{"bad date", `{"date":"18.10.2026","weightKg":70}`},
		{"negative", `{"weightJin":-3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSONRequest(router, "POST", "/api/weight", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestSettingsAndWorkoutValidation(t *testing.T) {
	router := setupHandlerTest(&fakeCompleter{})

	cases := []struct {
		method, path, body string
	}{
		{"PATCH", "/api/settings", `{"activityLevel":"couch_potato"}`},
		{"PATCH", "/api/settings", `{"gender":"robot"}`},
		{"POST", "/api/workouts", `{"type":"parkour","durationMin":30}`},
		{"POST", "/api/workouts", `{"type":"run","intensity":"insane"}`},
		{"GET", "/api/weight?month=October", ""},
		{"GET", "/api/summary/progress?start=2026-10-01", ""},
		{"GET", "/api/summary/daily?date=yesterday", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path+" "+tc.body, func(t *testing.T) {
			w := doJSONRequest(router, tc.method, tc.path, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestNonNumericIDIsNotFound(t *testing.T) {
	router := setupHandlerTest(&fakeCompleter{})

	cases := []struct {
		method, path, body string
	}{
		{"PATCH", "/api/meals/abc/revise", `{"portionAdjust":"large"}`},
		{"PATCH", "/api/meals/abc", `{"descriptionText":"rice"}`},
		{"DELETE", "/api/meals/1.5", ""},
		{"PATCH", "/api/workouts/x", `{"durationMin":30}`},
		{"DELETE", "/api/workouts/0", ""},
		{"PUT", "/api/weight/abc", `{"weightKg":70}`},
		{"DELETE", "/api/weight/-3", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := doJSONRequest(router, tc.method, tc.path, tc.body)
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
