package main

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

/* ─── Response unwrapping ────────────────────────────────────────────── */

var (
	boxOpenRe    = regexp.MustCompile(`(?i)<\|begin_of_box\|>`)
	boxCloseRe   = regexp.MustCompile(`(?i)<\|end_of_box\|>`)
	leadFenceRe  = regexp.MustCompile("(?i)^```(?:json)?[\r\n]*")
	trailFenceRe = regexp.MustCompile("```[\r\n]*$")
	specialTokRe = regexp.MustCompile(`<\|[^|]*\|>`)
	digitRunRe   = regexp.MustCompile(`\d+`)
)

// unwrapModelJSON strips the wrappers models put around JSON output, in order:
// reasoning-box tokens, a leading code fence, a trailing code fence, then any
// other <|...|> special token.
func unwrapModelJSON(raw string) string {
	s := boxOpenRe.ReplaceAllString(raw, "")
	s = boxCloseRe.ReplaceAllString(s, "")
	s = leadFenceRe.ReplaceAllString(s, "")
	s = trailFenceRe.ReplaceAllString(s, "")
	s = specialTokRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// parseModelJSON unwraps raw and decodes it as a JSON object. Any failure is an
// upstream-format error that keeps raw for diagnosis.
func parseModelJSON(raw string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(unwrapModelJSON(raw)), &out); err != nil {
		return nil, upstreamFormatError(raw, err)
	}
	if out == nil {
		return nil, upstreamFormatError(raw, fmt.Errorf("model returned null"))
	}
	return out, nil
}

/* ─── Ranges ─────────────────────────────────────────────────────────── */

// numRange is a (low, high) pair. low <= high is not guaranteed.
type numRange [2]float64

// rangeShape is the variant a raw value falls into when read as a range.
type rangeShape int

const (
	shapeMissing rangeShape = iota
	shapePair
	shapeText
	shapeScalar
	shapeOther
)

func classifyRange(v any) rangeShape {
	switch t := v.(type) {
	case nil:
		return shapeMissing
	case []any:
		if len(t) >= 2 {
			return shapePair
		}
		return shapeOther
	case string:
		return shapeText
	case float64, json.Number, int:
		return shapeScalar
	default:
		return shapeOther
	}
}

// toRange reads v as a numeric range: a two-element sequence, a string with
// digit runs ("500-600", "500~600", "700"), or a single number. Anything else
// yields fallback.
func toRange(v any, fallback numRange) numRange {
	switch classifyRange(v) {
	case shapePair:
		pair := v.([]any)
		return numRange{toNumber(pair[0]), toNumber(pair[1])}
	case shapeText:
		nums := digitRunRe.FindAllString(v.(string), 2)
		switch len(nums) {
		case 2:
			return numRange{toNumber(nums[0]), toNumber(nums[1])}
		case 1:
			n := toNumber(nums[0])
			return numRange{n, n}
		}
	case shapeScalar:
		n := toNumber(v)
		return numRange{n, n}
	}
	return fallback
}

// toNumber coerces a decoded JSON value to a number; non-numeric values are 0.
// toNumber reads v as a number. Unparseable and non-finite values are 0.
func toNumber(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case bool:
		if t {
			f = 1
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

/* ─── Dialects ───────────────────────────────────────────────────────── */

// keyPath locates a value either at the top level (Nested false) or inside
// the response's macros object.
type keyPath struct {
	Key    string
	Nested bool
}

func top(key string) keyPath   { return keyPath{Key: key} }
func macro(key string) keyPath { return keyPath{Key: key, Nested: true} }

// responseDialect lists, per canonical field, the keys a model may use for it,
// in priority order. The first key present with a non-null value wins.
type responseDialect struct {
	Calories       []keyPath
	Protein        []keyPath
	Carbs          []keyPath
	Fat            []keyPath
	MacroKeys      []string
	Summary        []string
	Confidence     []string
	DefaultSummary string
}

// defaultDialect covers the English schema the prompts ask for and the Chinese
// keys some vision models answer with instead.
var defaultDialect = responseDialect{
	Calories: []keyPath{
		top("total_calories_range"), top("热量区间（kcal）"), top("总热量"),
		top("calories_range"), top("total_calories"),
	},
	Protein:        []keyPath{top("total_protein_range"), macro("蛋白质"), macro("protein"), top("蛋白质")},
	Carbs:          []keyPath{top("total_carbs_range"), macro("碳水化合物"), macro("carbs"), top("碳水化合物")},
	Fat:            []keyPath{top("total_fat_range"), macro("脂肪"), macro("fat"), top("脂肪")},
	MacroKeys:      []string{"三大宏量营养素（g）", "macros"},
	Summary:        []string{"summary", "食物识别", "餐食识别"},
	Confidence:     []string{"confidence", "置信度"},
	DefaultSummary: "AI 识别结果",
}

// mealAnalysis is the canonical form of a model's meal estimate.
type mealAnalysis struct {
	Summary            string   `json:"summary"`
	Items              []any    `json:"items"`
	TotalCaloriesRange numRange `json:"total_calories_range"`
	TotalProteinRange  numRange `json:"total_protein_range"`
	TotalCarbsRange    numRange `json:"total_carbs_range"`
	TotalFatRange      numRange `json:"total_fat_range"`
	Confidence         string   `json:"confidence"`
	Notes              []string `json:"notes"`

	// Set when some calorie key was present, even if it held an unusable value.
	hasCalories bool
	hasProtein  bool
}

// firstPresent walks a fallback chain and returns the first non-null value.
func (d responseDialect) firstPresent(raw, macros map[string]any, paths []keyPath) (any, bool) {
	for _, p := range paths {
		src := raw
		if p.Nested {
			src = macros
		}
		if v, ok := src[p.Key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (d responseDialect) macros(raw map[string]any) map[string]any {
	for _, k := range d.MacroKeys {
		if v, ok := raw[k]; ok && v != nil {
			m, _ := v.(map[string]any)
			return m
		}
	}
	return nil
}

// normalize coerces a loosely keyed model response into a mealAnalysis.
func (d responseDialect) normalize(raw map[string]any) mealAnalysis {
	macros := d.macros(raw)
	zero := numRange{}

	calories, hasCalories := d.firstPresent(raw, macros, d.Calories)
	protein, hasProtein := d.firstPresent(raw, macros, d.Protein)
	carbs, _ := d.firstPresent(raw, macros, d.Carbs)
	fat, _ := d.firstPresent(raw, macros, d.Fat)

	a := mealAnalysis{
		Summary:            d.summary(raw),
		Items:              normalizeItems(raw["items"]),
		TotalCaloriesRange: toRange(calories, zero),
		TotalProteinRange:  toRange(protein, zero),
		TotalCarbsRange:    toRange(carbs, zero),
		TotalFatRange:      toRange(fat, zero),
		Confidence:         normalizeConfidence(d.firstString(raw, d.Confidence)),
		Notes:              normalizeNotes(raw["notes"]),
		hasCalories:        hasCalories,
		hasProtein:         hasProtein,
	}
	return a
}

func (d responseDialect) firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			s, _ := v.(string)
			return s
		}
	}
	return ""
}

func (d responseDialect) summary(raw map[string]any) string {
	if s := d.firstString(raw, d.Summary); s != "" {
		return s
	}
	return d.DefaultSummary
}

// normalizeConfidence maps free-form confidence text to high, medium, or low.
func normalizeConfidence(s string) string {
	switch {
	case strings.Contains(s, "高") || s == "high":
		return "high"
	case strings.Contains(s, "低") || s == "low":
		return "low"
	default:
		return "medium"
	}
}

func normalizeNotes(v any) []string {
	switch t := v.(type) {
	case []any:
		notes := make([]string, 0, len(t))
		for _, n := range t {
			if s, ok := n.(string); ok {
				notes = append(notes, s)
			} else {
				notes = append(notes, fmt.Sprint(n))
			}
		}
		return notes
	case string:
		return []string{t}
	default:
		return []string{}
	}
}

func normalizeItems(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	return []any{}
}

/* ─── Stored triples ─────────────────────────────────────────────────── */

// nutrientTriple is a stored (min, max, mid) value.
type nutrientTriple struct {
	Min, Max, Mid int
}

// maxNutrientAmount bounds any single kcal or gram estimate. Anything larger
// is a broken model reply.
const maxNutrientAmount = 100000

// checkNutrientRanges rejects estimates that are non-finite, negative, or
// beyond maxNutrientAmount.
func (a mealAnalysis) checkNutrientRanges() error {
	fields := []struct {
		name string
		r    numRange
	}{
		{"calories", a.TotalCaloriesRange},
		{"protein", a.TotalProteinRange},
		{"carbs", a.TotalCarbsRange},
		{"fat", a.TotalFatRange},
	}
	for _, f := range fields {
		for _, v := range f.r {
			if math.IsNaN(v) || v < 0 || v > maxNutrientAmount {
				return fmt.Errorf("%s estimate %v out of range", f.name, v)
			}
		}
	}
	return nil
}

// clampNutrient keeps a value inside [-maxNutrientAmount, maxNutrientAmount]
// so rounding never overflows. NaN becomes 0.
func clampNutrient(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(-maxNutrientAmount, math.Min(maxNutrientAmount, x))
}

// newNutrientTriple rounds a normalized range and orders it so the stored
// invariant min <= mid <= max holds even for an inverted model range.
func newNutrientTriple(r numRange) nutrientTriple {
	lo, hi := roundHalfUp(clampNutrient(r[0])), roundHalfUp(clampNutrient(r[1]))
	if lo > hi {
		lo, hi = hi, lo
	}
	return nutrientTriple{Min: lo, Max: hi, Mid: roundHalfUp(float64(lo+hi) / 2)}
}
