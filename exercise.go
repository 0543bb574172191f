package main

// metValues holds the metabolic equivalent per workout type. Unknown types
// fall back to the "other" value.
var metValues = map[string]float64{
	"run":      9.8,
	"walk":     3.5,
	"ride":     7.5,
	"swim":     8.0,
	"strength": 5.0,
	"other":    5.0,
}

var validIntensities = map[string]bool{"low": true, "medium": true, "high": true}

var validWorkoutSources = map[string]bool{"estimate": true, "manual": true, "device": true}

// fallbackWeightKg is used for estimates when neither a weight entry nor a
// start weight exists.
const fallbackWeightKg = 80

func intensityFactor(intensity string) float64 {
	switch intensity {
	case "low":
		return 0.8
	case "high":
		return 1.2
	default:
		return 1.0
	}
}

// estimateWorkoutCalories is MET × intensity × kg × hours, rounded.
func estimateWorkoutCalories(workoutType string, durationMin int, intensity string, weightKg float64) int {
	met, ok := metValues[workoutType]
	if !ok {
		met = metValues["other"]
	}
	return roundHalfUp(met * intensityFactor(intensity) * weightKg * float64(durationMin) / 60)
}

// estimateWeightKg picks the body weight for an estimate: the latest weight
// entry, then the settings start weight, then fallbackWeightKg.
func estimateWeightKg(latestEntryKg, startWeightKg *float64) float64 {
	if latestEntryKg != nil {
		return *latestEntryKg
	}
	if startWeightKg != nil {
		return *startWeightKg
	}
	return fallbackWeightKg
}

// workoutCalories resolves the stored calories for a new workout. Only
// estimate-sourced workouts with a positive duration are estimated; everything
// else keeps the supplied value, or 0.
func workoutCalories(source, workoutType string, durationMin *int, intensity string, supplied *int, weightKg func() float64) int {
	if source == "estimate" && durationMin != nil && *durationMin > 0 {
		return estimateWorkoutCalories(workoutType, *durationMin, intensity, weightKg())
	}
	if supplied != nil {
		return *supplied
	}
	return 0
}
