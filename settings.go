package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// settingsID is the primary key of the only settings row.
const settingsID = 1

// loadSettings returns the settings row, creating it with column defaults
// first if it does not exist yet.
func (h *Handler) loadSettings(ctx context.Context) (settings, error) {
	s, err := queryOne[settings](h.db, ctx,
		`INSERT INTO settings (id) VALUES (@id)
		 ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		 RETURNING *`,
		pgx.NamedArgs{"id": settingsID})
	if err != nil {
		return settings{}, databaseError(err, "settings")
	}
	return s, nil
}

// getSettings returns the settings, creating defaults on first read.
// Computed bmr/tdee are included when the profile is complete.
// GET /api/settings.
func (h *Handler) getSettings(c *gin.Context) {
	s, err := h.loadSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	populateComputedTDEE(&s)
	c.JSON(http.StatusOK, gin.H{"settings": s})
}

// validateSettingsPatch rejects enum and range values that would silently
// break TDEE derivation later.
func validateSettingsPatch(body patchSettingsRequest) error {
	if body.ActivityLevel != nil {
		if _, ok := activityMultipliers[*body.ActivityLevel]; !ok {
			return validationError("activityLevel must be one of: sedentary, light, moderate, active, very_active")
		}
	}
	if body.Gender != nil && !validGenders[*body.Gender] {
		return validationError("gender must be one of: male, female, prefer_not_to_say")
	}
	if body.TargetCalories != nil && *body.TargetCalories <= 0 {
		return validationError("targetCalories must be positive")
	}
	for name, v := range map[string]*float64{
		"startWeightKg": body.StartWeightKg, "currentWeightKg": body.CurrentWeightKg,
		"targetWeightKg": body.TargetWeightKg, "heightCm": body.HeightCm,
	} {
		if v != nil && *v <= 0 {
			return validationError(name + " must be positive")
		}
	}
	if body.AgeYears != nil && (*body.AgeYears <= 0 || *body.AgeYears > 130) {
		return validationError("ageYears must be between 1 and 130")
	}
	return nil
}

// setupTarget derives targetCalories from the body metrics when the caller did
// not send one. Request values are merged over the stored ones; ok is false
// when start weight, height, or age is still unknown.
func setupTarget(current settings, body patchSettingsRequest) (int, bool) {
	weight, height, age := body.StartWeightKg, body.HeightCm, body.AgeYears
	if weight == nil {
		weight = current.StartWeightKg
	}
	if height == nil {
		height = current.HeightCm
	}
	if age == nil {
		age = current.AgeYears
	}
	if weight == nil || height == nil || age == nil {
		return 0, false
	}

	gender := "prefer_not_to_say"
	if body.Gender != nil {
		gender = *body.Gender
	} else if current.Gender != "" {
		gender = current.Gender
	}
	activity := "moderate"
	if body.ActivityLevel != nil {
		activity = *body.ActivityLevel
	} else if current.ActivityLevel != "" {
		activity = current.ActivityLevel
	}
	weeklyGoal := setupWeeklyGoalKg
	if body.WeeklyGoalKg != nil {
		weeklyGoal = *body.WeeklyGoalKg
	} else if current.WeeklyGoalKg != nil {
		weeklyGoal = *current.WeeklyGoalKg
	}

	tdee := calcTDEE(*weight, *height, *age, gender, activity)
	return calcTargetCalories(tdee, weeklyGoal), true
}

// patchSettings merges the provided fields over the stored settings.
// PATCH /api/settings. Uses pointer fields in the request body to distinguish
// "not provided" from zero — only non-nil fields get updated. When no
// targetCalories is sent and the body metrics are known, the target is derived
// from TDEE and the weekly goal.
func (h *Handler) patchSettings(c *gin.Context) {
	ctx := c.Request.Context()

	var body patchSettingsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateSettingsPatch(body); err != nil {
		respondError(c, err)
		return
	}

	current, err := h.loadSettings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	if body.TargetCalories == nil {
		if target, ok := setupTarget(current, body); ok {
			body.TargetCalories = &target
		}
	}

	// Build SET clause dynamically — only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"id": settingsID}
	add := func(column, arg string, value any) {
		setClauses = append(setClauses, column+" = @"+arg)
		args[arg] = value
	}

	if body.TargetCalories != nil {
		add("target_calories", "targetCalories", *body.TargetCalories)
	}
	if body.StartWeightKg != nil {
		add("start_weight_kg", "startWeightKg", *body.StartWeightKg)
	}
	if body.CurrentWeightKg != nil {
		add("current_weight_kg", "currentWeightKg", *body.CurrentWeightKg)
	}
	if body.TargetWeightKg != nil {
		add("target_weight_kg", "targetWeightKg", *body.TargetWeightKg)
	}
	if body.HeightCm != nil {
		add("height_cm", "heightCm", *body.HeightCm)
	}
	if body.AgeYears != nil {
		add("age_years", "ageYears", *body.AgeYears)
	}
	if body.Gender != nil {
		add("gender", "gender", *body.Gender)
	}
	if body.ActivityLevel != nil {
		add("activity_level", "activityLevel", *body.ActivityLevel)
	}
	if body.WeeklyGoalKg != nil {
		add("weekly_goal_kg", "weeklyGoalKg", *body.WeeklyGoalKg)
	}
	if body.IncludeWorkoutInBudget != nil {
		add("include_workout_in_budget", "includeWorkoutInBudget", *body.IncludeWorkoutInBudget)
	}
	if body.IsSetup != nil {
		add("is_setup", "isSetup", *body.IsSetup)
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE settings SET " +
		strings.Join(setClauses, ", ") +
		", version = version + 1, updated_at = now() WHERE id = @id RETURNING *"

	s, err := queryOne[settings](h.db, ctx, query, args)
	if err != nil {
		respondError(c, databaseError(err, "settings"))
		return
	}

	populateComputedTDEE(&s)
	c.JSON(http.StatusOK, gin.H{"settings": s})
}

// saveTargetCalories writes a new target only if the row still carries the
// version s was read at. A concurrent writer turns this into a conflict error
// rather than a silently lost update.
func (h *Handler) saveTargetCalories(ctx context.Context, s settings) (settings, error) {
	updated, err := queryOne[settings](h.db, ctx,
		`UPDATE settings
		 SET target_calories = @target, version = version + 1, updated_at = now()
		 WHERE id = @id AND version = @version
		 RETURNING *`,
		pgx.NamedArgs{"target": s.TargetCalories, "id": settingsID, "version": s.Version})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings{}, conflictError("settings changed during recalibration, please retry")
		}
		return settings{}, databaseError(err, "settings")
	}
	return updated, nil
}
