package features

import (
	"testing"

	"EsgPulse/internal/domain/models"
)

func TestMutualInformationDependence(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2 * x
	}
	dependent := mutualInformation(xs, ys)
	if dependent <= 0 {
		t.Fatalf("MI of dependent series = %v, want > 0", dependent)
	}

	constant := make([]float64, len(xs))
	if got := mutualInformation(xs, constant); got != 0 {
		t.Fatalf("MI against constant series = %v, want 0", got)
	}
}

func TestScoreFeatureFallsBackToPrior(t *testing.T) {
	if got := scoreFeature("emissions_intensity", nil, nil); got != esgPriors["emissions_intensity"] {
		t.Errorf("prior score = %v", got)
	}
	if got := scoreFeature("unknown_feature", nil, nil); got != placeholderScore {
		t.Errorf("placeholder score = %v", got)
	}
}

func TestSelectTopKOrdering(t *testing.T) {
	feats := []models.Feature{
		{Name: "a", Value: 1},
		{Name: "b", Value: 2},
		{Name: "c", Value: 3},
	}
	scores := map[string]float64{"a": 0.1, "b": 0.9, "c": 0.5}
	got := selectTopK(feats, scores, 2)
	if len(got) != 2 {
		t.Fatalf("kept %d, want 2", len(got))
	}
	if got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("order = %s, %s", got[0].Name, got[1].Name)
	}
	if got[0].Value != 2 {
		t.Fatalf("value not preserved: %v", got[0].Value)
	}
}

func TestCorrelationMatrixProperties(t *testing.T) {
	arena := newHistoryArena(8)
	for i := 0; i < 6; i++ {
		arena.Push("x", float64(i))
		arena.Push("y", float64(i)*2) // perfectly correlated with x
		arena.Push("z", float64(5-i)) // perfectly anti-correlated
	}
	feats := []models.Feature{{Name: "x"}, {Name: "y"}, {Name: "z"}}
	m := correlationMatrix(feats, arena.buffers)

	for i := range m {
		if m[i][i] != 1 {
			t.Errorf("diag[%d] = %v", i, m[i][i])
		}
	}
	if m[0][1] < 0.99 {
		t.Errorf("corr(x,y) = %v, want ~1", m[0][1])
	}
	if m[0][2] > -0.99 {
		t.Errorf("corr(x,z) = %v, want ~-1", m[0][2])
	}
	if m[1][2] != m[2][1] {
		t.Error("matrix not symmetric")
	}
}
