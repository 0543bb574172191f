package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// jinPerKg converts the market unit used on Chinese scales: 1 jin = 0.5 kg.
const jinPerKg = 2

const maxWeightKg = 500

// weightRange resolves the GET /api/weight query into an inclusive date range.
// ?month=YYYY-MM takes precedence over ?start=&end=. With neither, the whole
// log is returned.
func weightRange(month, start, end string) (string, string, error) {
	if month != "" {
		m, err := time.Parse("2006-01", month)
		if err != nil {
			return "", "", validationError("invalid month, expected YYYY-MM")
		}
		return m.Format("2006-01-02"), m.AddDate(0, 1, -1).Format("2006-01-02"), nil
	}
	if start == "" && end == "" {
		return "", "", nil
	}
	if start == "" || end == "" {
		return "", "", validationError("start and end must be given together")
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		return "", "", validationError("invalid start, expected YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		return "", "", validationError("invalid end, expected YYYY-MM-DD")
	}
	if start > end {
		return "", "", validationError("start must not be after end")
	}
	return start, end, nil
}

// getWeightLog returns non-deleted weight entries in date order.
// GET /api/weight?month=YYYY-MM or ?start=YYYY-MM-DD&end=YYYY-MM-DD.
// Returns an empty array (not null) if no entries exist in the range.
func (h *Handler) getWeightLog(c *gin.Context) {
	start, end, err := weightRange(c.Query("month"), c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}

	query := "SELECT * FROM weight_entries WHERE deleted_at IS NULL"
	args := pgx.NamedArgs{}
	if start != "" {
		query += " AND date >= @start AND date <= @end"
		args["start"], args["end"] = start, end
	}

	entries, err := queryMany[weightEntry](h.db, c.Request.Context(), query+" ORDER BY date ASC", args)
	if err != nil {
		respondError(c, databaseError(err, "weight entries"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// resolveWeightKg returns the kg value for a weigh-in and the raw jin reading,
// if that is what was sent. kg wins when both are present.
func resolveWeightKg(body upsertWeightRequest) (float64, *float64, error) {
	var kg float64
	var jin *float64
	switch {
	case body.WeightKg != nil:
		kg = *body.WeightKg
	case body.WeightJin != nil:
		jin = body.WeightJin
		kg = *body.WeightJin / jinPerKg
	default:
		return 0, nil, validationError("weightKg or weightJin is required")
	}
	if kg <= 0 || kg > maxWeightKg {
		return 0, nil, validationError("weight must be between 0 and 500 kg")
	}
	return kg, jin, nil
}

// upsertWeightEntry creates or replaces the weigh-in for a date.
// POST /api/weight. Body: { "date"?, "weightKg" | "weightJin", "isPeriod"? }.
// The UNIQUE(date) constraint means posting the same date updates in place,
// reviving a soft-deleted entry. Date defaults to today.
func (h *Handler) upsertWeightEntry(c *gin.Context) {
	var body upsertWeightRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		body.Date = h.now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", body.Date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	kg, jin, err := resolveWeightKg(body)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := queryOne[weightEntry](h.db, c.Request.Context(),
		`INSERT INTO weight_entries (date, weight_kg, weight_jin_raw, is_period)
		 VALUES (@date, @weightKg, @weightJin, @isPeriod)
		 ON CONFLICT (date) DO UPDATE SET
			weight_kg      = EXCLUDED.weight_kg,
			weight_jin_raw = EXCLUDED.weight_jin_raw,
			is_period      = EXCLUDED.is_period,
			deleted_at     = NULL,
			updated_at     = now()
		 RETURNING *`,
		pgx.NamedArgs{"date": body.Date, "weightKg": kg, "weightJin": jin, "isPeriod": body.IsPeriod})
	if err != nil {
		respondError(c, databaseError(err, "weight entry"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// updateWeightEntry partially updates an existing weight entry.
// PUT /api/weight/:id. Body: { "weightKg"?, "isPeriod"? }.
// Uses COALESCE so omitted fields keep their current values.
func (h *Handler) updateWeightEntry(c *gin.Context) {
	id, err := pathID(c, "weight entry")
	if err != nil {
		respondError(c, err)
		return
	}

	var body struct {
		WeightKg *float64 `json:"weightKg"`
		IsPeriod *bool    `json:"isPeriod"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.WeightKg != nil && (*body.WeightKg <= 0 || *body.WeightKg > maxWeightKg) {
		apiError(c, http.StatusBadRequest, "weight must be between 0 and 500 kg")
		return
	}

	// A direct kg edit invalidates the original jin reading.
	entry, err := queryOne[weightEntry](h.db, c.Request.Context(),
		`UPDATE weight_entries SET
			weight_kg      = COALESCE(@weightKg, weight_kg),
			weight_jin_raw = CASE WHEN @weightKg::float8 IS NULL THEN weight_jin_raw ELSE NULL END,
			is_period      = COALESCE(@isPeriod, is_period),
			updated_at     = now()
		 WHERE id = @id AND deleted_at IS NULL
		 RETURNING *`,
		pgx.NamedArgs{"id": id, "weightKg": body.WeightKg, "isPeriod": body.IsPeriod})
	if err != nil {
		respondError(c, databaseError(err, "weight entry"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// deleteWeightEntry soft-deletes a weight entry by ID.
// DELETE /api/weight/:id. Returns 204 on success, 404 if not found.
func (h *Handler) deleteWeightEntry(c *gin.Context) {
	id, err := pathID(c, "weight entry")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.db.Exec(c.Request.Context(),
		"UPDATE weight_entries SET deleted_at = now(), updated_at = now() WHERE id = @id AND deleted_at IS NULL",
		pgx.NamedArgs{"id": id})
	if err != nil {
		respondError(c, databaseError(err, "weight entry"))
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "weight entry not found")
		return
	}

	c.Status(http.StatusNoContent)
}
