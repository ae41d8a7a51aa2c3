package features

import (
	"fmt"
	"math"

	"EsgPulse/internal/domain/models"
)

// quotientEpsilon guards interaction quotients against division blow-up.
const quotientEpsilon = 1e-8

// interactionFeatures emits the product of every unordered pair of numeric
// features, plus the quotient when the denominator magnitude is safe.
func interactionFeatures(feats []models.Feature) []models.Feature {
	numeric := make([]models.Feature, 0, len(feats))
	for _, f := range feats {
		if f.Kind == models.FeatureNumeric {
			numeric = append(numeric, f)
		}
	}

	out := make([]models.Feature, 0, len(numeric)*(len(numeric)-1)/2)
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			a, b := numeric[i], numeric[j]
			out = append(out, models.Feature{
				Name:  fmt.Sprintf("%s_x_%s", a.Name, b.Name),
				Value: a.Value * b.Value,
				Kind:  models.FeatureNumeric,
			})
			if math.Abs(b.Value) > quotientEpsilon {
				out = append(out, models.Feature{
					Name:  fmt.Sprintf("%s_div_%s", a.Name, b.Name),
					Value: a.Value / b.Value,
					Kind:  models.FeatureNumeric,
				})
			}
		}
	}
	return out
}
