package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// settings maps to the single-row settings table (id is always settingsID).
// Body metrics are nullable until the setup flow has filled them in.
type settings struct {
	ID                     int       `json:"id"                        db:"id"`
	TargetCalories         int       `json:"targetCalories"            db:"target_calories"`
	StartWeightKg          *float64  `json:"startWeightKg"             db:"start_weight_kg"`
	CurrentWeightKg        *float64  `json:"currentWeightKg"           db:"current_weight_kg"`
	TargetWeightKg         *float64  `json:"targetWeightKg"            db:"target_weight_kg"`
	HeightCm               *float64  `json:"heightCm"                  db:"height_cm"`
	AgeYears               *int      `json:"ageYears"                  db:"age_years"`
	Gender                 string    `json:"gender"                    db:"gender"`
	ActivityLevel          string    `json:"activityLevel"             db:"activity_level"`
	WeeklyGoalKg           *float64  `json:"weeklyGoalKg"              db:"weekly_goal_kg"`
	IncludeWorkoutInBudget bool      `json:"includeWorkoutInBudget"    db:"include_workout_in_budget"`
	IsSetup                bool      `json:"isSetup"                   db:"is_setup"`
	Version                int       `json:"version"                   db:"version"`
	UpdatedAt              time.Time `json:"updatedAt"                 db:"updated_at"`

	// Computed from the profile, not stored.
	ComputedBMR  *int `json:"bmr,omitempty"  db:"-"`
	ComputedTDEE *int `json:"tdee,omitempty" db:"-"`
}

// meal maps to the meals table. Each nutrient is stored as a (min, max, mid)
// triple with min <= mid <= max.
type meal struct {
	ID              int        `json:"id"              db:"id"`
	DateTime        time.Time  `json:"dateTime"        db:"date_time"`
	MealType        string     `json:"mealType"        db:"meal_type"`
	DescriptionText string     `json:"descriptionText" db:"description_text"`
	AISummary       string     `json:"aiSummary"       db:"ai_summary"`
	CaloriesMin     int        `json:"caloriesMin"     db:"calories_min"`
	CaloriesMax     int        `json:"caloriesMax"     db:"calories_max"`
	CaloriesMid     int        `json:"caloriesMid"     db:"calories_mid"`
	ProteinMin      int        `json:"proteinMin"      db:"protein_min"`
	ProteinMax      int        `json:"proteinMax"      db:"protein_max"`
	ProteinMid      int        `json:"proteinMid"      db:"protein_mid"`
	CarbsMin        int        `json:"carbsMin"        db:"carbs_min"`
	CarbsMax        int        `json:"carbsMax"        db:"carbs_max"`
	CarbsMid        int        `json:"carbsMid"        db:"carbs_mid"`
	FatMin          int        `json:"fatMin"          db:"fat_min"`
	FatMax          int        `json:"fatMax"          db:"fat_max"`
	FatMid          int        `json:"fatMid"          db:"fat_mid"`
	Confidence      string     `json:"confidence"      db:"confidence"`
	Notes           []string   `json:"notes"           db:"notes"`
	PortionAdjust   *string    `json:"portionAdjust"   db:"portion_adjust"`
	OilAdjust       *string    `json:"oilAdjust"       db:"oil_adjust"`
	DeletedAt       *time.Time `json:"deletedAt"       db:"deleted_at"`
	CreatedAt       time.Time  `json:"createdAt"       db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt"       db:"updated_at"`
}

// workout maps to the workouts table. Calories are either estimator-derived
// or supplied by the caller, depending on Source.
type workout struct {
	ID          int        `json:"id"          db:"id"`
	DateTime    time.Time  `json:"dateTime"    db:"date_time"`
	Type        string     `json:"type"        db:"type"`
	DurationMin *int       `json:"durationMin" db:"duration_min"`
	Intensity   *string    `json:"intensity"   db:"intensity"`
	Calories    int        `json:"calories"    db:"calories"`
	Source      string     `json:"source"      db:"source"`
	Note        string     `json:"note"        db:"note"`
	DeletedAt   *time.Time `json:"deletedAt"   db:"deleted_at"`
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt"   db:"updated_at"`
}

// weightEntry maps to weight_entries. Date is unique; a second entry for the
// same day overwrites the first. Period entries are kept but never used for
// trend calculations.
type weightEntry struct {
	ID           int        `json:"id"           db:"id"`
	Date         DateOnly   `json:"date"         db:"date"`
	WeightKg     float64    `json:"weightKg"     db:"weight_kg"`
	WeightJinRaw *float64   `json:"weightJinRaw" db:"weight_jin_raw"`
	IsPeriod     bool       `json:"isPeriod"     db:"is_period"`
	DeletedAt    *time.Time `json:"deletedAt"    db:"deleted_at"`
	CreatedAt    time.Time  `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"    db:"updated_at"`
}

// progressEntryRow is one meal or workout as read by the progress query. A
// meal row has no exercise calories and a workout row has no food values.
type progressEntryRow struct {
	DateTime         time.Time `db:"date_time"`
	CaloriesFood     int       `db:"calories_food"`
	ProteinG         int       `db:"protein_g"`
	CaloriesExercise int       `db:"calories_exercise"`
}

// dayTotalsRow is one local day of summed progress entries.
type dayTotalsRow struct {
	Date             DateOnly
	CaloriesFood     int
	ProteinG         int
	CaloriesExercise int
}

// daySummary is one day's entry in the GET /api/summary/progress response.
type daySummary struct {
	Date             DateOnly `json:"date"`
	CalorieBudget    int      `json:"calorieBudget"`
	CaloriesFood     int      `json:"caloriesFood"`
	CaloriesExercise int      `json:"caloriesExercise"`
	ProteinG         int      `json:"proteinG"`
	Balance          int      `json:"balance"`
}

// progressStats aggregates a progress range. Averages are over tracked days only.
type progressStats struct {
	DaysTracked         int `json:"daysTracked"`
	DaysOnBudget        int `json:"daysOnBudget"`
	AvgCaloriesFood     int `json:"avgCaloriesFood"`
	AvgCaloriesExercise int `json:"avgCaloriesExercise"`
	TotalBalance        int `json:"totalBalance"`
}

type progressResponse struct {
	Days  []daySummary  `json:"days"`
	Stats progressStats `json:"stats"`
}

// dayTotals is the budget arithmetic shared by the daily summary and the
// daily advice endpoints.
type dayTotals struct {
	CaloriesIn  int `json:"totalCalIn"`
	ProteinG    int `json:"totalProtein"`
	CaloriesOut int `json:"totalCalOut"`
	Budget      int `json:"budget"`
	Balance     int `json:"balance"`
}

// dailySummary is the response shape for GET /api/summary/daily.
type dailySummary struct {
	Date     string    `json:"date"`
	Totals   dayTotals `json:"totals"`
	Meals    []meal    `json:"meals"`
	Workouts []workout `json:"workouts"`
	Settings settings  `json:"settings"`
}

/* ─── Request bodies ─────────────────────────────────────────────────── */

// analyzeMealRequest is the request body for POST /api/meals/analyze.
// Images are base64 strings, with or without a data: URI prefix.
type analyzeMealRequest struct {
	Images   []string `json:"images"`
	UserText string   `json:"userText"`
	MealType string   `json:"mealType"`
	DateTime *string  `json:"dateTime"`
}

// reviseMealRequest is the request body for PATCH /api/meals/:id/revise.
type reviseMealRequest struct {
	PortionAdjust *string `json:"portionAdjust"`
	OilAdjust     *string `json:"oilAdjust"`
}

// patchMealRequest is the request body for PATCH /api/meals/:id.
type patchMealRequest struct {
	DescriptionText *string `json:"descriptionText"`
	MealType        *string `json:"mealType"`
	DateTime        *string `json:"dateTime"`
}

// createWorkoutRequest is the request body for POST /api/workouts.
type createWorkoutRequest struct {
	Type        string  `json:"type"`
	DurationMin *int    `json:"durationMin"`
	Intensity   string  `json:"intensity"`
	Calories    *int    `json:"calories"`
	Source      string  `json:"source"`
	Note        string  `json:"note"`
	DateTime    *string `json:"dateTime"`
}

// patchWorkoutRequest is the request body for PATCH /api/workouts/:id.
type patchWorkoutRequest struct {
	Type        *string `json:"type"`
	DurationMin *int    `json:"durationMin"`
	Intensity   *string `json:"intensity"`
	Calories    *int    `json:"calories"`
	Source      *string `json:"source"`
	Note        *string `json:"note"`
	DateTime    *string `json:"dateTime"`
}

// upsertWeightRequest is the request body for POST /api/weight. Exactly one of
// WeightKg or WeightJin is needed; kg wins when both are sent.
type upsertWeightRequest struct {
	WeightKg  *float64 `json:"weightKg"`
	WeightJin *float64 `json:"weightJin"`
	Date      string   `json:"date"`
	IsPeriod  bool     `json:"isPeriod"`
}

// patchSettingsRequest is the request body for PATCH /api/settings.
// All fields are pointers — only non-nil fields get written to the database.
type patchSettingsRequest struct {
	TargetCalories         *int     `json:"targetCalories"`
	StartWeightKg          *float64 `json:"startWeightKg"`
	CurrentWeightKg        *float64 `json:"currentWeightKg"`
	TargetWeightKg         *float64 `json:"targetWeightKg"`
	HeightCm               *float64 `json:"heightCm"`
	AgeYears               *int     `json:"ageYears"`
	Gender                 *string  `json:"gender"`
	ActivityLevel          *string  `json:"activityLevel"`
	WeeklyGoalKg           *float64 `json:"weeklyGoalKg"`
	IncludeWorkoutInBudget *bool    `json:"includeWorkoutInBudget"`
	IsSetup                *bool    `json:"isSetup"`
}
