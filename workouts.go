package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// estimatorWeightKg picks the body weight used for workout estimates: the most
// recent non-deleted weigh-in, then the start weight, then fallbackWeightKg.
// Lookup failures fall through to the next source.
func (h *Handler) estimatorWeightKg(ctx context.Context) float64 {
	var latest, start *float64

	var kg float64
	err := h.db.QueryRow(ctx,
		`SELECT weight_kg FROM weight_entries
		 WHERE deleted_at IS NULL
		 ORDER BY date DESC LIMIT 1`).Scan(&kg)
	if err == nil {
		latest = &kg
	} else if !errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("latest weight lookup failed", zap.Error(err))
	}

	if latest == nil {
		if err := h.db.QueryRow(ctx,
			"SELECT start_weight_kg FROM settings WHERE id = $1", settingsID).Scan(&start); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("start weight lookup failed", zap.Error(err))
		}
	}

	return estimateWeightKg(latest, start)
}

// listWorkouts returns non-deleted workouts, newest first.
// GET /api/workouts?date=YYYY-MM-DD (optional; limits to that local day).
func (h *Handler) listWorkouts(c *gin.Context) {
	query := "SELECT * FROM workouts WHERE deleted_at IS NULL"
	args := pgx.NamedArgs{}
	if date := c.Query("date"); date != "" {
		start, end, err := dayBounds(date)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		query += " AND date_time >= @start AND date_time < @end"
		args["start"], args["end"] = start, end
	}

	workouts, err := queryMany[workout](h.db, c.Request.Context(), query+" ORDER BY date_time DESC", args)
	if err != nil {
		respondError(c, databaseError(err, "workouts"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"workouts": workouts})
}

// normalizeWorkoutRequest applies defaults (type other, intensity medium,
// source estimate) and validates the enums.
func normalizeWorkoutRequest(body *createWorkoutRequest) error {
	if body.Type == "" {
		body.Type = "other"
	}
	if body.Intensity == "" {
		body.Intensity = "medium"
	}
	if body.Source == "" {
		body.Source = "estimate"
	}
	if _, ok := metValues[body.Type]; !ok {
		return validationError("type must be one of: run, walk, ride, swim, strength, other")
	}
	if !validIntensities[body.Intensity] {
		return validationError("intensity must be one of: low, medium, high")
	}
	if !validWorkoutSources[body.Source] {
		return validationError("source must be one of: estimate, manual, device")
	}
	if body.DurationMin != nil && *body.DurationMin < 0 {
		return validationError("durationMin must not be negative")
	}
	if body.Calories != nil && *body.Calories < 0 {
		return validationError("calories must not be negative")
	}
	return nil
}

// createWorkout stores a workout. Estimate-sourced workouts with a duration get
// their calories from the MET estimator; otherwise the supplied value (or 0)
// is used.
// POST /api/workouts. Returns 201 {workout}.
func (h *Handler) createWorkout(c *gin.Context) {
	ctx := c.Request.Context()

	var body createWorkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := normalizeWorkoutRequest(&body); err != nil {
		respondError(c, err)
		return
	}
	dateTime, err := parseDateTime(body.DateTime, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	calories := workoutCalories(body.Source, body.Type, body.DurationMin, body.Intensity, body.Calories,
		func() float64 { return h.estimatorWeightKg(ctx) })

	w, err := queryOne[workout](h.db, ctx,
		`INSERT INTO workouts (date_time, type, duration_min, intensity, calories, source, note)
		 VALUES (@dateTime, @type, @durationMin, @intensity, @calories, @source, @note)
		 RETURNING *`,
		pgx.NamedArgs{
			"dateTime": dateTime, "type": body.Type, "durationMin": body.DurationMin,
			"intensity": body.Intensity, "calories": calories,
			"source": body.Source, "note": body.Note,
		})
	if err != nil {
		respondError(c, databaseError(err, "workout"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workout": w})
}

// patchWorkout partially updates a workout. When type, duration, or intensity
// change on an estimate-sourced workout, calories are re-estimated unless the
// caller sent a value.
// PATCH /api/workouts/:id.
func (h *Handler) patchWorkout(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pathID(c, "workout")
	if err != nil {
		respondError(c, err)
		return
	}

	var body patchWorkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := queryOne[workout](h.db, ctx,
		"SELECT * FROM workouts WHERE id = @id AND deleted_at IS NULL",
		pgx.NamedArgs{"id": id})
	if err != nil {
		respondError(c, databaseError(err, "workout"))
		return
	}

	// Merge over the stored row and validate the result as a create request.
	merged := createWorkoutRequest{
		Type: current.Type, DurationMin: current.DurationMin,
		Source: current.Source, Note: current.Note, DateTime: body.DateTime,
	}
	if current.Intensity != nil {
		merged.Intensity = *current.Intensity
	}
	if body.Type != nil {
		merged.Type = *body.Type
	}
	if body.DurationMin != nil {
		merged.DurationMin = body.DurationMin
	}
	if body.Intensity != nil {
		merged.Intensity = *body.Intensity
	}
	if body.Source != nil {
		merged.Source = *body.Source
	}
	if body.Note != nil {
		merged.Note = *body.Note
	}
	merged.Calories = body.Calories
	if err := normalizeWorkoutRequest(&merged); err != nil {
		respondError(c, err)
		return
	}

	var dateTime *time.Time
	if body.DateTime != nil {
		t, err := time.Parse(time.RFC3339, *body.DateTime)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid dateTime, expected RFC 3339")
			return
		}
		dateTime = &t
	}

	calories := body.Calories
	if calories == nil && (body.Type != nil || body.DurationMin != nil || body.Intensity != nil || body.Source != nil) {
		stored := current.Calories
		est := workoutCalories(merged.Source, merged.Type, merged.DurationMin, merged.Intensity, &stored,
			func() float64 { return h.estimatorWeightKg(ctx) })
		calories = &est
	}

	w, err := queryOne[workout](h.db, ctx,
		`UPDATE workouts SET
			type         = @type,
			duration_min = @durationMin,
			intensity    = @intensity,
			source       = @source,
			note         = @note,
			calories     = COALESCE(@calories, calories),
			date_time    = COALESCE(@dateTime, date_time),
			updated_at   = now()
		 WHERE id = @id AND deleted_at IS NULL
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "type": merged.Type, "durationMin": merged.DurationMin,
			"intensity": merged.Intensity, "source": merged.Source, "note": merged.Note,
			"calories": calories, "dateTime": dateTime,
		})
	if err != nil {
		respondError(c, databaseError(err, "workout"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"workout": w})
}

// deleteWorkout soft-deletes a workout.
// DELETE /api/workouts/:id. Returns 404 for unknown or already deleted ids.
func (h *Handler) deleteWorkout(c *gin.Context) {
	id, err := pathID(c, "workout")
	if err != nil {
		respondError(c, err)
		return
	}

	w, err := queryOne[workout](h.db, c.Request.Context(),
		`UPDATE workouts SET deleted_at = now(), updated_at = now()
		 WHERE id = @id AND deleted_at IS NULL
		 RETURNING *`,
		pgx.NamedArgs{"id": id})
	if err != nil {
		respondError(c, databaseError(err, "workout"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"workout": w})
}
