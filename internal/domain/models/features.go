package models

// FeatureKind distinguishes continuous features from 0/1 indicators.
type FeatureKind string

const (
	FeatureNumeric FeatureKind = "numeric"
	FeatureBinary  FeatureKind = "binary"
)

// Feature is a single engineered value. Immutable once produced.
type Feature struct {
	Name  string
	Value float64
	Kind  FeatureKind
}

// FeatureSet is an ordered sequence of features plus metadata. Ordering is
// significant: consumers align positionally with the training-time vector.
type FeatureSet struct {
	Features      []Feature
	TotalFeatures int
	// Importance maps feature name to a relative score. Scores are not
	// calibrated across runs; callers must only compare within one set.
	Importance map[string]float64
	// Correlation is a symmetric matrix with unit diagonal aligned with
	// Features, or nil when the set was too large to compute it.
	Correlation [][]float64
}

// Values returns the feature values in order, aligned with Features.
func (s *FeatureSet) Values() []float64 {
	out := make([]float64, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Value
	}
	return out
}

// Names returns the feature names in order.
func (s *FeatureSet) Names() []string {
	out := make([]string, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Name
	}
	return out
}
