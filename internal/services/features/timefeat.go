package features

import (
	"math"
	"time"

	"EsgPulse/internal/domain/models"
)

// Fixed holiday calendar (month, day). Deliberately small; the application
// layer owns regional calendars.
var holidays = map[[2]int]bool{
	{1, 1}:   true, // New Year's Day
	{5, 1}:   true, // Labour Day
	{12, 25}: true, // Christmas Day
	{12, 26}: true, // Boxing Day
}

// extractTimeFeatures derives calendar and cyclical features. The feature
// name set is identical for every input timestamp.
func extractTimeFeatures(t time.Time) []models.Feature {
	hour := float64(t.Hour())
	dow := float64(t.Weekday())
	month := float64(t.Month())
	quarter := float64((int(t.Month())-1)/3 + 1)

	weekend := t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
	holiday := holidays[[2]int{int(t.Month()), t.Day()}]
	businessHours := !weekend && t.Hour() >= 9 && t.Hour() < 17

	return []models.Feature{
		{Name: "time_hour", Value: hour, Kind: models.FeatureNumeric},
		{Name: "time_day", Value: float64(t.Day()), Kind: models.FeatureNumeric},
		{Name: "time_month", Value: month, Kind: models.FeatureNumeric},
		{Name: "time_quarter", Value: quarter, Kind: models.FeatureNumeric},
		{Name: "time_year", Value: float64(t.Year()), Kind: models.FeatureNumeric},
		{Name: "time_is_weekend", Value: boolToFloat(weekend), Kind: models.FeatureBinary},
		{Name: "time_is_holiday", Value: boolToFloat(holiday), Kind: models.FeatureBinary},
		{Name: "time_is_business_hours", Value: boolToFloat(businessHours), Kind: models.FeatureBinary},
		{Name: "time_hour_sin", Value: math.Sin(2 * math.Pi * hour / 24), Kind: models.FeatureNumeric},
		{Name: "time_hour_cos", Value: math.Cos(2 * math.Pi * hour / 24), Kind: models.FeatureNumeric},
		{Name: "time_dow_sin", Value: math.Sin(2 * math.Pi * dow / 7), Kind: models.FeatureNumeric},
		{Name: "time_dow_cos", Value: math.Cos(2 * math.Pi * dow / 7), Kind: models.FeatureNumeric},
		{Name: "time_month_sin", Value: math.Sin(2 * math.Pi * month / 12), Kind: models.FeatureNumeric},
		{Name: "time_month_cos", Value: math.Cos(2 * math.Pi * month / 12), Kind: models.FeatureNumeric},
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
