package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// validMealTypes is the set of allowed meal_type values.
var validMealTypes = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

var validPortionAdjusts = map[string]bool{"small": true, "normal": true, "large": true}

var validOilAdjusts = map[string]bool{"light": true, "normal": true, "oily": true, "unknown": true}

/* ─── Prompts ────────────────────────────────────────────────────────── */

const mealAnalysisSystemPrompt = `You are a registered dietitian who is especially good at identifying Chinese dishes, their ingredients, and portion sizes, and at estimating calories and macronutrients.
Analyze the meal photos (if any) and the text description. Reply with exactly this JSON structure, no extra explanation and no markdown code fences:
{
  "summary": "short description of the meal (string)",
  "items": [
    {
      "name": "food name",
      "calories_range": [min kcal integer, max kcal integer],
      "protein_range": [min g integer, max g integer],
      "carbs_range": [min g integer, max g integer],
      "fat_range": [min g integer, max g integer],
      "oiliness": "light or medium or heavy"
    }
  ],
  "total_calories_range": [total min kcal integer, total max kcal integer],
  "total_protein_range": [total min g integer, total max g integer],
  "total_carbs_range": [total min g integer, total max g integer],
  "total_fat_range": [total min g integer, total max g integer],
  "confidence": "high or medium or low",
  "notes": ["explanations"]
}`

const mealAnalysisUserPromptTemplate = `User description: %s
Meal type: %s
Identify every food, estimate the calorie range (kcal) and the three macronutrients (g), and give a confidence level. Follow the required JSON format strictly.`

const noDescriptionText = "(no text description, analyze the photos only)"

const mealRevisionSystemPrompt = `You are a dietitian. Using the user's correction, revise the meal's calorie and protein estimate ranges.
Reply with pure JSON only, nothing else:
{
  "total_calories_range": [min, max],
  "total_protein_range": [min g, max g],
  "confidence": "high|medium|low",
  "notes": ["what was revised"]
}`

const mealRevisionUserPromptTemplate = `Original meal: %s
Original calorie range: %d-%d kcal
User correction: %s; %s
Adjust the calorie and protein estimate ranges.`

func portionDescription(portion string) string {
	switch portion {
	case "small":
		return "about 20-30% smaller than a normal portion"
	case "large":
		return "about 20-30% larger than a normal portion"
	default:
		return "normal portion"
	}
}

func oilDescription(oil string) string {
	switch oil {
	case "light":
		return "lightly cooked with little oil"
	case "oily":
		return "heavily oiled"
	default:
		return "normal amount of oil"
	}
}

/* ─── Analysis ───────────────────────────────────────────────────────── */

// analyzeMealText asks the model to estimate a meal and normalizes the answer.
// Photos go to the vision model; text-only meals go to the text model. The raw
// model output is returned alongside for upstream-format errors.
func analyzeMealText(ctx context.Context, llm completer, images []string, userText, mealType string) (mealAnalysis, error) {
	description := userText
	if strings.TrimSpace(description) == "" {
		description = noDescriptionText
	}
	prompt := fmt.Sprintf(mealAnalysisUserPromptTemplate, description, mealType)

	var (
		raw string
		err error
	)
	if len(images) > 0 {
		raw, err = llm.CompleteVision(ctx, mealAnalysisSystemPrompt, prompt, images)
	} else {
		raw, err = llm.CompleteText(ctx, mealAnalysisSystemPrompt, prompt)
	}
	if err != nil {
		return mealAnalysis{}, externalError(err, "model")
	}

	parsed, err := parseModelJSON(raw)
	if err != nil {
		return mealAnalysis{}, err
	}
	analysis := defaultDialect.normalize(parsed)
	if !analysis.hasCalories {
		return mealAnalysis{}, upstreamFormatError(raw, fmt.Errorf("no calorie estimate in response"))
	}
	if err := analysis.checkNutrientRanges(); err != nil {
		return mealAnalysis{}, upstreamFormatError(raw, err)
	}
	return analysis, nil
}

// parseDateTime parses an RFC 3339 timestamp, defaulting to now when absent.
func parseDateTime(s *string, now time.Time) (time.Time, error) {
	if s == nil || *s == "" {
		return now, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}, validationError("invalid dateTime, expected RFC 3339")
	}
	return t, nil
}

// analyzeMeal estimates a meal from photos and/or text and stores it.
// POST /api/meals/analyze. Returns 201 {meal, analysis}; an unparseable model
// answer is a 502 with the raw text and nothing is stored.
func (h *Handler) analyzeMeal(c *gin.Context) {
	ctx := c.Request.Context()

	var body analyzeMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MealType == "" {
		body.MealType = "snack"
	}
	if !validMealTypes[body.MealType] {
		apiError(c, http.StatusBadRequest, "mealType must be one of: breakfast, lunch, dinner, snack")
		return
	}
	if len(body.Images) == 0 && strings.TrimSpace(body.UserText) == "" {
		apiError(c, http.StatusBadRequest, "images or userText is required")
		return
	}
	dateTime, err := parseDateTime(body.DateTime, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	analysis, err := analyzeMealText(ctx, h.llm, body.Images, body.UserText, body.MealType)
	if err != nil {
		respondError(c, err)
		return
	}

	cal := newNutrientTriple(analysis.TotalCaloriesRange)
	prot := newNutrientTriple(analysis.TotalProteinRange)
	carb := newNutrientTriple(analysis.TotalCarbsRange)
	fat := newNutrientTriple(analysis.TotalFatRange)

	m, err := queryOne[meal](h.db, ctx,
		`INSERT INTO meals (date_time, meal_type, description_text, ai_summary,
			calories_min, calories_max, calories_mid, protein_min, protein_max, protein_mid,
			carbs_min, carbs_max, carbs_mid, fat_min, fat_max, fat_mid, confidence, notes)
		 VALUES (@dateTime, @mealType, @description, @summary,
			@calMin, @calMax, @calMid, @protMin, @protMax, @protMid,
			@carbMin, @carbMax, @carbMid, @fatMin, @fatMax, @fatMid, @confidence, @notes)
		 RETURNING *`,
		pgx.NamedArgs{
			"dateTime": dateTime, "mealType": body.MealType,
			"description": body.UserText, "summary": analysis.Summary,
			"calMin": cal.Min, "calMax": cal.Max, "calMid": cal.Mid,
			"protMin": prot.Min, "protMax": prot.Max, "protMid": prot.Mid,
			"carbMin": carb.Min, "carbMax": carb.Max, "carbMid": carb.Mid,
			"fatMin": fat.Min, "fatMax": fat.Max, "fatMid": fat.Mid,
			"confidence": analysis.Confidence, "notes": analysis.Notes,
		})
	if err != nil {
		respondError(c, databaseError(err, "meal"))
		return
	}

	logger.Info("meal analyzed",
		zap.Int("meal_id", m.ID),
		zap.Int("calories_mid", m.CaloriesMid),
		zap.Int("images", len(body.Images)))
	c.JSON(http.StatusCreated, gin.H{"meal": m, "analysis": analysis})
}

// getLiveMeal loads a meal that exists and is not soft-deleted.
func (h *Handler) getLiveMeal(ctx context.Context, id int) (meal, error) {
	m, err := queryOne[meal](h.db, ctx,
		"SELECT * FROM meals WHERE id = @id AND deleted_at IS NULL",
		pgx.NamedArgs{"id": id})
	if err != nil {
		return meal{}, databaseError(err, "meal")
	}
	return m, nil
}

// reviseMealEstimate asks the text model to correct an existing estimate for
// portion size and oil use. Protein keeps its stored range when the model
// leaves it out.
func reviseMealEstimate(ctx context.Context, llm completer, original meal, portion, oil string) (mealAnalysis, nutrientTriple, nutrientTriple, error) {
	prompt := fmt.Sprintf(mealRevisionUserPromptTemplate,
		original.AISummary, original.CaloriesMin, original.CaloriesMax,
		portionDescription(portion), oilDescription(oil))

	raw, err := llm.CompleteText(ctx, mealRevisionSystemPrompt, prompt)
	if err != nil {
		return mealAnalysis{}, nutrientTriple{}, nutrientTriple{}, externalError(err, "model")
	}
	parsed, err := parseModelJSON(raw)
	if err != nil {
		return mealAnalysis{}, nutrientTriple{}, nutrientTriple{}, err
	}
	revised := defaultDialect.normalize(parsed)
	if !revised.hasCalories {
		return mealAnalysis{}, nutrientTriple{}, nutrientTriple{}, upstreamFormatError(raw, fmt.Errorf("no calorie range in revision"))
	}
	if err := revised.checkNutrientRanges(); err != nil {
		return mealAnalysis{}, nutrientTriple{}, nutrientTriple{}, upstreamFormatError(raw, err)
	}

	cal := newNutrientTriple(revised.TotalCaloriesRange)
	prot := nutrientTriple{Min: original.ProteinMin, Max: original.ProteinMax, Mid: original.ProteinMid}
	if revised.hasProtein {
		prot = newNutrientTriple(revised.TotalProteinRange)
	}
	return revised, cal, prot, nil
}

// reviseMeal applies a portion/oil correction to a stored meal.
// PATCH /api/meals/:id/revise. Body: { "portionAdjust"?, "oilAdjust"? }.
func (h *Handler) reviseMeal(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pathID(c, "meal")
	if err != nil {
		respondError(c, err)
		return
	}

	var body reviseMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PortionAdjust != nil && !validPortionAdjusts[*body.PortionAdjust] {
		apiError(c, http.StatusBadRequest, "portionAdjust must be one of: small, normal, large")
		return
	}
	if body.OilAdjust != nil && !validOilAdjusts[*body.OilAdjust] {
		apiError(c, http.StatusBadRequest, "oilAdjust must be one of: light, normal, oily, unknown")
		return
	}

	original, err := h.getLiveMeal(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	var portion, oil string
	if body.PortionAdjust != nil {
		portion = *body.PortionAdjust
	}
	if body.OilAdjust != nil {
		oil = *body.OilAdjust
	}
	revised, cal, prot, err := reviseMealEstimate(ctx, h.llm, original, portion, oil)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := queryOne[meal](h.db, ctx,
		`UPDATE meals SET
			calories_min = @calMin, calories_max = @calMax, calories_mid = @calMid,
			protein_min = @protMin, protein_max = @protMax, protein_mid = @protMid,
			portion_adjust = COALESCE(@portion, portion_adjust),
			oil_adjust = COALESCE(@oil, oil_adjust),
			confidence = @confidence,
			notes = @notes,
			updated_at = now()
		 WHERE id = @id AND deleted_at IS NULL
		 RETURNING *`,
		pgx.NamedArgs{
			"id":     id,
			"calMin": cal.Min, "calMax": cal.Max, "calMid": cal.Mid,
			"protMin": prot.Min, "protMax": prot.Max, "protMid": prot.Mid,
			"portion": body.PortionAdjust, "oil": body.OilAdjust,
			"confidence": revised.Confidence, "notes": revised.Notes,
		})
	if err != nil {
		respondError(c, databaseError(err, "meal"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"meal": updated, "revised": revised})
}

// listMeals returns non-deleted meals, newest first.
// GET /api/meals?date=YYYY-MM-DD (optional; limits to that local day).
func (h *Handler) listMeals(c *gin.Context) {
	query := "SELECT * FROM meals WHERE deleted_at IS NULL"
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

	meals, err := queryMany[meal](h.db, c.Request.Context(), query+" ORDER BY date_time DESC", args)
	if err != nil {
		respondError(c, databaseError(err, "meals"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// patchMeal edits the descriptive fields of a meal. Nutrient estimates only
// change through reviseMeal.
// PATCH /api/meals/:id. Uses COALESCE so omitted fields keep their current value.
func (h *Handler) patchMeal(c *gin.Context) {
	id, err := pathID(c, "meal")
	if err != nil {
		respondError(c, err)
		return
	}

	var body patchMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MealType != nil && !validMealTypes[*body.MealType] {
		apiError(c, http.StatusBadRequest, "mealType must be one of: breakfast, lunch, dinner, snack")
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

	m, err := queryOne[meal](h.db, c.Request.Context(),
		`UPDATE meals SET
			description_text = COALESCE(@description, description_text),
			meal_type = COALESCE(@mealType, meal_type),
			date_time = COALESCE(@dateTime, date_time),
			updated_at = now()
		 WHERE id = @id AND deleted_at IS NULL
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "description": body.DescriptionText,
			"mealType": body.MealType, "dateTime": dateTime,
		})
	if err != nil {
		respondError(c, databaseError(err, "meal"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal": m})
}

// deleteMeal soft-deletes a meal by stamping deleted_at.
// DELETE /api/meals/:id. Returns 404 for unknown or already deleted ids.
func (h *Handler) deleteMeal(c *gin.Context) {
	id, err := pathID(c, "meal")
	if err != nil {
		respondError(c, err)
		return
	}

	m, err := queryOne[meal](h.db, c.Request.Context(),
		`UPDATE meals SET deleted_at = now(), updated_at = now()
		 WHERE id = @id AND deleted_at IS NULL
		 RETURNING *`,
		pgx.NamedArgs{"id": id})
	if err != nil {
		respondError(c, databaseError(err, "meal"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal": m})
}
