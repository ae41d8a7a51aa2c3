package features

import (
	"math"
	"strings"
	"testing"
	"time"

	"EsgPulse/internal/domain/models"
)

func record(ts time.Time, metrics map[string]float64) *models.ValidatedRecord {
	return &models.ValidatedRecord{Timestamp: ts, Metrics: metrics}
}

func featureMap(set *models.FeatureSet) map[string]float64 {
	m := make(map[string]float64, len(set.Features))
	for _, f := range set.Features {
		m[f.Name] = f.Value
	}
	return m
}

func TestTimeFeatures(t *testing.T) {
	p, err := NewPipeline(Config{TimeFeatures: true}, nil, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	// Saturday
	ts := time.Date(2024, 3, 16, 14, 0, 0, 0, time.UTC)
	set, err := p.EngineerFeatures(record(ts, nil))
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	m := featureMap(set)

	if m["time_hour"] != 14 {
		t.Errorf("time_hour = %v, want 14", m["time_hour"])
	}
	if m["time_is_weekend"] != 1 {
		t.Errorf("time_is_weekend = %v, want 1", m["time_is_weekend"])
	}
	if m["time_is_business_hours"] != 0 {
		t.Errorf("business hours on a Saturday = %v, want 0", m["time_is_business_hours"])
	}
	for _, pair := range [][2]string{
		{"time_hour_sin", "time_hour_cos"},
		{"time_dow_sin", "time_dow_cos"},
		{"time_month_sin", "time_month_cos"},
	} {
		s, c := m[pair[0]], m[pair[1]]
		if got := s*s + c*c; math.Abs(got-1) > 1e-9 {
			t.Errorf("%s^2+%s^2 = %v, want 1", pair[0], pair[1], got)
		}
	}
}

func TestLagFeatures(t *testing.T) {
	p, err := NewPipeline(Config{
		LagFeatures:    true,
		LagPeriods:     []int{1},
		TrackedMetrics: []string{models.MetricEmissionsTotal},
	}, nil, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var set *models.FeatureSet
	for i, v := range []float64{100, 105, 98, 102} {
		set, err = p.EngineerFeatures(record(base.AddDate(0, i, 0), map[string]float64{
			models.MetricEmissionsTotal: v,
		}))
		if err != nil {
			t.Fatalf("engineer %d: %v", i, err)
		}
	}
	m := featureMap(set)

	if got := m["emissions_total_lag_1"]; got != 98 {
		t.Errorf("lag_1 = %v, want 98", got)
	}
	if got := m["emissions_total_diff_1"]; got != 4 {
		t.Errorf("diff_1 = %v, want 4", got)
	}
}

func TestLagFeaturesNeedHistory(t *testing.T) {
	p, _ := NewPipeline(Config{
		LagFeatures:    true,
		LagPeriods:     []int{2},
		TrackedMetrics: []string{models.MetricRevenue},
	}, nil, nil)
	set, err := p.EngineerFeatures(record(time.Now(), map[string]float64{models.MetricRevenue: 10}))
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	if _, ok := featureMap(set)["revenue_lag_2"]; ok {
		t.Fatal("lag_2 emitted with a single observation")
	}
}

func TestRollingFeatures(t *testing.T) {
	p, err := NewPipeline(Config{
		RollingFeatures: true,
		WindowSizes:     []int{3},
		TrackedMetrics:  []string{models.MetricEnergyConsumed},
	}, nil, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var set *models.FeatureSet
	for i, v := range []float64{10, 20, 30} {
		set, err = p.EngineerFeatures(record(base.AddDate(0, i, 0), map[string]float64{
			models.MetricEnergyConsumed: v,
		}))
		if err != nil {
			t.Fatalf("engineer %d: %v", i, err)
		}
	}
	m := featureMap(set)

	if got := m["energy_consumption_rolling_mean_3"]; got != 20 {
		t.Errorf("rolling_mean_3 = %v, want 20", got)
	}
	if got := m["energy_consumption_rolling_min_3"]; got != 10 {
		t.Errorf("rolling_min_3 = %v, want 10", got)
	}
	if got := m["energy_consumption_rolling_max_3"]; got != 30 {
		t.Errorf("rolling_max_3 = %v, want 30", got)
	}
	if got := m["energy_consumption_trend_3"]; math.Abs(got-10) > 1e-9 {
		t.Errorf("trend_3 = %v, want 10", got)
	}
}

func TestDomainRatios(t *testing.T) {
	p, _ := NewPipeline(Config{DomainRatios: true}, nil, nil)
	risk1, risk2 := 40.0, 60.0
	rec := &models.ValidatedRecord{
		Timestamp: time.Now(),
		Metrics: map[string]float64{
			models.MetricEmissionsTotal:  1000,
			models.MetricEmissionsScope1: 300,
			models.MetricEmissionsScope2: 400,
			models.MetricEmissionsScope3: 300,
			models.MetricRevenue:         1e6,
		},
		Suppliers: []models.Supplier{
			{Name: "a", Location: "DE", RiskScore: &risk1},
			{Name: "b", Location: "FR", RiskScore: &risk2},
		},
	}
	set, err := p.EngineerFeatures(rec)
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	m := featureMap(set)

	if got := m["emissions_intensity"]; math.Abs(got-0.001) > 1e-12 {
		t.Errorf("emissions_intensity = %v, want 0.001", got)
	}
	if got := m["scope1_ratio"]; math.Abs(got-0.3) > 1e-12 {
		t.Errorf("scope1_ratio = %v, want 0.3", got)
	}
	if got := m["supply_chain_risk"]; got != 50 {
		t.Errorf("supply_chain_risk = %v, want 50", got)
	}
	if got := m["supplier_count"]; got != 2 {
		t.Errorf("supplier_count = %v, want 2", got)
	}
	if got := m["geographic_diversity"]; got != 1 {
		t.Errorf("geographic_diversity = %v, want 1", got)
	}
}

func TestInteractionFeatures(t *testing.T) {
	p, _ := NewPipeline(Config{DomainRatios: true, Interactions: true, InteractionDepth: 2}, nil, nil)
	set, err := p.EngineerFeatures(record(time.Now(), map[string]float64{
		models.MetricEmissionsTotal: 100,
		models.MetricEnergyConsumed: 50,
		models.MetricRevenue:        1000,
	}))
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	found := false
	for name := range featureMap(set) {
		if strings.Contains(name, "_x_") || strings.Contains(name, "_div_") {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no interaction features produced")
	}
}

func TestFeatureSelectionBoundsOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interactions = true
	cfg.TargetVariable = models.MetricEmissionsTotal
	cfg.MaxFeatures = 10
	p, err := NewPipeline(cfg, nil, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var set *models.FeatureSet
	for i := 0; i < 15; i++ {
		set, err = p.EngineerFeatures(record(base.AddDate(0, i, 0), map[string]float64{
			models.MetricEmissionsTotal: 1000 + float64(i)*10,
			models.MetricEnergyConsumed: 500 + float64(i)*5,
			models.MetricRevenue:        1e6,
		}))
		if err != nil {
			t.Fatalf("engineer %d: %v", i, err)
		}
	}
	if set.TotalFeatures > 10 {
		t.Fatalf("selection kept %d features, want <= 10", set.TotalFeatures)
	}
	if len(set.Importance) != set.TotalFeatures {
		t.Fatalf("importance entries %d != features %d", len(set.Importance), set.TotalFeatures)
	}
	for name, score := range set.Importance {
		if score < 0 {
			t.Errorf("negative importance for %s: %v", name, score)
		}
	}
	if set.Correlation != nil {
		n := set.TotalFeatures
		for i := 0; i < n; i++ {
			if set.Correlation[i][i] != 1 {
				t.Errorf("correlation diag [%d] = %v, want 1", i, set.Correlation[i][i])
			}
			for j := 0; j < n; j++ {
				if set.Correlation[i][j] != set.Correlation[j][i] {
					t.Errorf("correlation not symmetric at (%d,%d)", i, j)
				}
			}
		}
	}
}

func TestResetDropsHistory(t *testing.T) {
	p, _ := NewPipeline(Config{
		LagFeatures:    true,
		LagPeriods:     []int{1},
		TrackedMetrics: []string{models.MetricRevenue},
	}, nil, nil)
	ts := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.EngineerFeatures(record(ts, map[string]float64{models.MetricRevenue: float64(i)})); err != nil {
			t.Fatalf("engineer: %v", err)
		}
	}
	p.Reset()
	set, err := p.EngineerFeatures(record(ts, map[string]float64{models.MetricRevenue: 42}))
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	if _, ok := featureMap(set)["revenue_lag_1"]; ok {
		t.Fatal("lag feature survived Reset")
	}
}
