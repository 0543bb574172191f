package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const recalibrationSystemPrompt = `You are a fat-loss planning assistant. In a warm, encouraging tone, explain why this week's daily calorie target was adjusted.
Keep it under 60 words, do not mechanically repeat the numbers, and stay grounded in the science while sounding friendly.`

const recalibrationUserPromptTemplate = `Over the last 14 days the actual weight change was about %.2f kg/week; the goal is %v kg/week.
This week's daily target adjustment: %+d kcal/day.
Explain the reason for this adjustment in 1-2 sentences.`

// recalibrationReasoning asks the text model to explain an adjustment. It is
// best-effort: failures are logged and yield an empty string.
func recalibrationReasoning(ctx context.Context, llm completer, r recalibration) string {
	if r.Stats == nil {
		return ""
	}
	prompt := fmt.Sprintf(recalibrationUserPromptTemplate,
		r.Stats.ActualWeeklyChangeKg, r.Stats.TargetWeeklyChangeKg, r.AdjustmentKcal)
	reasoning, err := llm.CompleteText(ctx, recalibrationSystemPrompt, prompt)
	if err != nil {
		logger.Warn("recalibration reasoning failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(reasoning)
}

// weeklyAdjust recalibrates the daily calorie target from the last 14 days of
// weigh-ins, meals, and workouts.
// POST /api/plan/weekly-adjust. Returns {message} when there is not enough
// weight data; otherwise the adjustment, new target, reasoning, and stats.
// A concurrent settings change during the run is a 409.
func (h *Handler) weeklyAdjust(c *gin.Context) {
	ctx := c.Request.Context()

	s, err := queryOne[settings](h.db, ctx,
		"SELECT * FROM settings WHERE id = @id", pgx.NamedArgs{"id": settingsID})
	if err != nil {
		if isNoRows(err) {
			respondError(c, validationError("settings not initialized"))
			return
		}
		respondError(c, databaseError(err, "settings"))
		return
	}

	since := recalibrationWindowStart(h.now())
	args := pgx.NamedArgs{"since": since, "sinceDate": since.Format("2006-01-02")}

	weights, err := queryMany[weightEntry](h.db, ctx,
		`SELECT * FROM weight_entries
		 WHERE deleted_at IS NULL AND is_period = false AND date >= @sinceDate
		 ORDER BY date ASC`, args)
	if err != nil {
		respondError(c, databaseError(err, "weight entries"))
		return
	}
	meals, err := queryMany[meal](h.db, ctx,
		"SELECT * FROM meals WHERE deleted_at IS NULL AND date_time >= @since", args)
	if err != nil {
		respondError(c, databaseError(err, "meals"))
		return
	}
	workouts, err := queryMany[workout](h.db, ctx,
		"SELECT * FROM workouts WHERE deleted_at IS NULL AND date_time >= @since", args)
	if err != nil {
		respondError(c, databaseError(err, "workouts"))
		return
	}

	updated, result := recalibrate(s, weights, meals, workouts)
	if !result.Sufficient {
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
		return
	}

	if _, err := h.saveTargetCalories(ctx, updated); err != nil {
		respondError(c, err)
		return
	}

	result.Reasoning = recalibrationReasoning(ctx, h.llm, result)

	logger.Info("target recalibrated",
		zap.Int("previous", s.TargetCalories),
		zap.Int("new", result.NewTargetCalories),
		zap.Float64("deviation", result.Stats.Deviation))
	c.JSON(http.StatusOK, result)
}
