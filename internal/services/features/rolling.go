package features

import (
	"fmt"

	"EsgPulse/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// lagFeatures emits metric_lag_k, metric_diff_k and metric_pct_change_k for
// each configured lag. A lag k needs at least k+1 samples; the percentage
// change is skipped when the lagged value is zero.
func lagFeatures(name string, buf *ringBuffer, lags []int) []models.Feature {
	cur, ok := buf.At(0)
	if !ok {
		return nil
	}
	out := make([]models.Feature, 0, len(lags)*3)
	for _, k := range lags {
		if buf.Len() < k+1 {
			continue
		}
		lagged, ok := buf.At(k)
		if !ok {
			continue
		}
		out = append(out,
			models.Feature{Name: fmt.Sprintf("%s_lag_%d", name, k), Value: lagged, Kind: models.FeatureNumeric},
			models.Feature{Name: fmt.Sprintf("%s_diff_%d", name, k), Value: cur - lagged, Kind: models.FeatureNumeric},
		)
		if lagged != 0 {
			out = append(out, models.Feature{
				Name:  fmt.Sprintf("%s_pct_change_%d", name, k),
				Value: (cur - lagged) / lagged * 100,
				Kind:  models.FeatureNumeric,
			})
		}
	}
	return out
}

// rollingFeatures emits mean, population std, min, max and (for w > 2) the
// linear trend slope over the last w pushed values. A window w needs at
// least w samples.
func rollingFeatures(name string, buf *ringBuffer, windows []int) []models.Feature {
	out := make([]models.Feature, 0, len(windows)*5)
	for _, w := range windows {
		vals, ok := buf.Last(w)
		if !ok {
			continue
		}
		mean := stat.Mean(vals, nil)
		std := 0.0
		if w > 1 {
			std = stat.PopStdDev(vals, nil)
		}
		lo, hi := vals[0], vals[0]
		for _, v := range vals[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		out = append(out,
			models.Feature{Name: fmt.Sprintf("%s_rolling_mean_%d", name, w), Value: mean, Kind: models.FeatureNumeric},
			models.Feature{Name: fmt.Sprintf("%s_rolling_std_%d", name, w), Value: std, Kind: models.FeatureNumeric},
			models.Feature{Name: fmt.Sprintf("%s_rolling_min_%d", name, w), Value: lo, Kind: models.FeatureNumeric},
			models.Feature{Name: fmt.Sprintf("%s_rolling_max_%d", name, w), Value: hi, Kind: models.FeatureNumeric},
		)
		if w > 2 {
			idx := make([]float64, w)
			for i := range idx {
				idx[i] = float64(i)
			}
			_, slope := stat.LinearRegression(idx, vals, nil, false)
			out = append(out, models.Feature{
				Name:  fmt.Sprintf("%s_trend_%d", name, w),
				Value: slope,
				Kind:  models.FeatureNumeric,
			})
		}
	}
	return out
}
