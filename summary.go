package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// fallbackBudget is the daily budget used when no settings row exists.
const fallbackBudget = 1500

// computeDayTotals sums a day's meals (mid estimates) and workouts and applies
// the budget. s may be nil.
func computeDayTotals(meals []meal, workouts []workout, s *settings) dayTotals {
	var t dayTotals
	for _, m := range meals {
		if m.DeletedAt == nil {
			t.CaloriesIn += m.CaloriesMid
			t.ProteinG += m.ProteinMid
		}
	}
	for _, w := range workouts {
		if w.DeletedAt == nil {
			t.CaloriesOut += w.Calories
		}
	}

	t.Budget = fallbackBudget
	includeWorkout := false
	if s != nil {
		t.Budget = s.TargetCalories
		includeWorkout = s.IncludeWorkoutInBudget
	}
	t.Balance = t.Budget - t.CaloriesIn
	if includeWorkout {
		t.Balance += t.CaloriesOut
	}
	return t
}

// dayActivity is everything logged on one local day.
type dayActivity struct {
	Meals    []meal
	Workouts []workout
	Settings *settings
}

// loadDay fetches a day's non-deleted meals and workouts plus the settings
// row (nil if not created yet). date is YYYY-MM-DD in local time.
func (h *Handler) loadDay(ctx context.Context, date string) (dayActivity, error) {
	start, end, err := dayBounds(date)
	if err != nil {
		return dayActivity{}, validationError("invalid date, expected YYYY-MM-DD")
	}
	args := pgx.NamedArgs{"start": start, "end": end}

	meals, err := queryMany[meal](h.db, ctx,
		`SELECT * FROM meals
		 WHERE deleted_at IS NULL AND date_time >= @start AND date_time < @end
		 ORDER BY date_time ASC`, args)
	if err != nil {
		return dayActivity{}, databaseError(err, "meals")
	}
	workouts, err := queryMany[workout](h.db, ctx,
		`SELECT * FROM workouts
		 WHERE deleted_at IS NULL AND date_time >= @start AND date_time < @end
		 ORDER BY date_time ASC`, args)
	if err != nil {
		return dayActivity{}, databaseError(err, "workouts")
	}

	day := dayActivity{Meals: meals, Workouts: workouts}
	s, err := queryOne[settings](h.db, ctx,
		"SELECT * FROM settings WHERE id = @id", pgx.NamedArgs{"id": settingsID})
	switch {
	case err == nil:
		day.Settings = &s
	case !isNoRows(err):
		return dayActivity{}, databaseError(err, "settings")
	}
	return day, nil
}

// requestDate returns ?date= or today's local date.
func (h *Handler) requestDate(c *gin.Context) string {
	if d := c.Query("date"); d != "" {
		return d
	}
	return h.now().Format("2006-01-02")
}

// getDailySummary returns a day's meals, workouts, totals, and budget balance.
// GET /api/summary/daily?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getDailySummary(c *gin.Context) {
	date := h.requestDate(c)
	day, err := h.loadDay(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := dailySummary{
		Date:     date,
		Totals:   computeDayTotals(day.Meals, day.Workouts, day.Settings),
		Meals:    day.Meals,
		Workouts: day.Workouts,
	}
	if day.Settings != nil {
		summary.Settings = *day.Settings
	}
	c.JSON(http.StatusOK, summary)
}

// groupByLocalDay sums meal and workout entries per calendar day in loc.
// The result is ordered by day.
func groupByLocalDay(entries []progressEntryRow, loc *time.Location) []dayTotalsRow {
	byDay := map[string]*dayTotalsRow{}
	var keys []string
	for _, e := range entries {
		local := e.DateTime.In(loc)
		key := local.Format("2006-01-02")
		row, ok := byDay[key]
		if !ok {
			y, m, d := local.Date()
			row = &dayTotalsRow{Date: DateOnly{time.Date(y, m, d, 0, 0, 0, 0, loc)}}
			byDay[key] = row
			keys = append(keys, key)
		}
		row.CaloriesFood += e.CaloriesFood
		row.ProteinG += e.ProteinG
		row.CaloriesExercise += e.CaloriesExercise
	}

	sort.Strings(keys)
	rows := make([]dayTotalsRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, *byDay[k])
	}
	return rows
}

// buildProgress folds per-day rows into the progress response. A day is on
// budget when its balance is not negative.
func buildProgress(rows []dayTotalsRow, s *settings) progressResponse {
	days := make([]daySummary, 0, len(rows))
	var stats progressStats
	for _, row := range rows {
		t := computeDayTotals(
			[]meal{{CaloriesMid: row.CaloriesFood, ProteinMid: row.ProteinG}},
			[]workout{{Calories: row.CaloriesExercise}}, s)
		days = append(days, daySummary{
			Date:             row.Date,
			CalorieBudget:    t.Budget,
			CaloriesFood:     row.CaloriesFood,
			CaloriesExercise: row.CaloriesExercise,
			ProteinG:         row.ProteinG,
			Balance:          t.Balance,
		})
		stats.DaysTracked++
		if t.Balance >= 0 {
			stats.DaysOnBudget++
		}
		stats.AvgCaloriesFood += row.CaloriesFood
		stats.AvgCaloriesExercise += row.CaloriesExercise
		stats.TotalBalance += t.Balance
	}

	// Convert totals to averages.
	if stats.DaysTracked > 0 {
		stats.AvgCaloriesFood /= stats.DaysTracked
		stats.AvgCaloriesExercise /= stats.DaysTracked
	}
	return progressResponse{Days: days, Stats: stats}
}

// getProgress returns per-day intake and burn for [start, end] plus aggregate
// stats. Days with nothing logged are omitted.
// GET /api/summary/progress?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
func (h *Handler) getProgress(c *gin.Context) {
	ctx := c.Request.Context()
	start := c.Query("start")
	end := c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return
	}
	startAt, _, err := dayBounds(start)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	_, endAt, err := dayBounds(end)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if start > end {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}

	entries, err := queryMany[progressEntryRow](h.db, ctx,
		`SELECT date_time, calories_mid AS calories_food, protein_mid AS protein_g, 0 AS calories_exercise
		 FROM meals
		 WHERE deleted_at IS NULL AND date_time >= @start AND date_time < @end
		 UNION ALL
		 SELECT date_time, 0, 0, calories
		 FROM workouts
		 WHERE deleted_at IS NULL AND date_time >= @start AND date_time < @end
		 ORDER BY date_time ASC`,
		pgx.NamedArgs{"start": startAt, "end": endAt})
	if err != nil {
		respondError(c, databaseError(err, "progress data"))
		return
	}

	var s *settings
	current, err := queryOne[settings](h.db, ctx,
		"SELECT * FROM settings WHERE id = @id", pgx.NamedArgs{"id": settingsID})
	switch {
	case err == nil:
		s = &current
	case !isNoRows(err):
		respondError(c, databaseError(err, "settings"))
		return
	}

	c.JSON(http.StatusOK, buildProgress(groupByLocalDay(entries, time.Local), s))
}
