package features

import (
	"fmt"
	"sync"
	"time"

	"EsgPulse/internal/domain/models"
	domrepo "EsgPulse/internal/domain/repository"
	svcmetrics "EsgPulse/internal/service/metrics"
	applogger "EsgPulse/pkg/logger"
)

// featureHistoryDepth bounds the per-feature history kept for importance
// and correlation estimation.
const featureHistoryDepth = 64

// Config controls which stages run and their parameters. Zero values for
// LagPeriods/WindowSizes/TrackedMetrics fall back to defaults.
type Config struct {
	TimeFeatures    bool
	LagFeatures     bool
	RollingFeatures bool
	DomainRatios    bool
	Interactions    bool
	// InteractionDepth bounds interaction generation; only pairwise
	// (depth 2) interactions are produced.
	InteractionDepth int
	// TargetVariable and MaxFeatures enable feature selection; both must
	// be set.
	TargetVariable string
	MaxFeatures    int
	LagPeriods     []int
	WindowSizes    []int
	TrackedMetrics []string
}

// DefaultConfig returns the all-stages-on configuration.
func DefaultConfig() Config {
	return Config{
		TimeFeatures:     true,
		LagFeatures:      true,
		RollingFeatures:  true,
		DomainRatios:     true,
		InteractionDepth: 2,
		LagPeriods:       []int{1, 2, 3},
		WindowSizes:      []int{3, 6, 12},
		TrackedMetrics: []string{
			models.MetricEmissionsTotal,
			models.MetricEnergyConsumed,
			models.MetricProduction,
			models.MetricRevenue,
		},
	}
}

// Pipeline derives a FeatureSet from validated records while maintaining
// bounded per-metric history. A pipeline instance is safe for concurrent
// use; calls are serialized because the history arena is single-writer.
type Pipeline struct {
	mu       sync.Mutex
	cfg      Config
	arena    *historyArena
	featHist *historyArena
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

// NewPipeline creates a feature engineering pipeline. History capacity is
// sized to the largest lag/window plus one.
func NewPipeline(cfg Config, m domrepo.Metrics, l *applogger.Logger) (*Pipeline, error) {
	if len(cfg.LagPeriods) == 0 {
		cfg.LagPeriods = DefaultConfig().LagPeriods
	}
	if len(cfg.WindowSizes) == 0 {
		cfg.WindowSizes = DefaultConfig().WindowSizes
	}
	if len(cfg.TrackedMetrics) == 0 {
		cfg.TrackedMetrics = DefaultConfig().TrackedMetrics
	}
	for _, k := range cfg.LagPeriods {
		if k <= 0 {
			return nil, fmt.Errorf("lag period must be positive, got %d", k)
		}
	}
	for _, w := range cfg.WindowSizes {
		if w <= 0 {
			return nil, fmt.Errorf("window size must be positive, got %d", w)
		}
	}
	if cfg.Interactions && cfg.InteractionDepth < 2 {
		return nil, fmt.Errorf("interaction depth must be >= 2, got %d", cfg.InteractionDepth)
	}

	capacity := 0
	for _, k := range cfg.LagPeriods {
		if k > capacity {
			capacity = k
		}
	}
	for _, w := range cfg.WindowSizes {
		if w > capacity {
			capacity = w
		}
	}
	capacity++

	svcmetrics.Register()
	return &Pipeline{
		cfg:      cfg,
		arena:    newHistoryArena(capacity),
		featHist: newHistoryArena(featureHistoryDepth),
		metrics:  m,
		l:        l,
	}, nil
}

// EngineerFeatures runs the enabled stages against one record and returns
// an ordered, read-only feature set.
func (p *Pipeline) EngineerFeatures(rec *models.ValidatedRecord) (*models.FeatureSet, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	feats := make([]models.Feature, 0, 64)

	if p.cfg.TimeFeatures {
		feats = append(feats, p.stage("time", func() []models.Feature {
			return extractTimeFeatures(rec.Timestamp)
		})...)
	}

	if p.cfg.LagFeatures || p.cfg.RollingFeatures {
		for _, name := range p.cfg.TrackedMetrics {
			v, ok := rec.Metric(name)
			if !ok {
				continue
			}
			buf := p.arena.Push(name, v)
			svcmetrics.HistoryDepth.WithLabelValues(name).Set(float64(buf.Len()))
			if p.cfg.LagFeatures {
				feats = append(feats, p.stage("lag", func() []models.Feature {
					return lagFeatures(name, buf, p.cfg.LagPeriods)
				})...)
			}
			if p.cfg.RollingFeatures {
				feats = append(feats, p.stage("rolling", func() []models.Feature {
					return rollingFeatures(name, buf, p.cfg.WindowSizes)
				})...)
			}
		}
	}

	if p.cfg.DomainRatios {
		feats = append(feats, p.stage("ratios", func() []models.Feature {
			return domainRatios(rec)
		})...)
	}

	if p.cfg.Interactions {
		feats = append(feats, p.stage("interactions", func() []models.Feature {
			return interactionFeatures(feats)
		})...)
	}

	// Record per-feature history for importance/correlation estimation.
	for _, f := range feats {
		p.featHist.Push(f.Name, f.Value)
	}
	targetBuf := p.targetBuffer(rec)

	scores := make(map[string]float64, len(feats))
	for _, f := range feats {
		scores[f.Name] = scoreFeature(f.Name, p.featHist.buffers[f.Name], targetBuf)
	}

	if p.cfg.TargetVariable != "" && p.cfg.MaxFeatures > 0 {
		feats = selectTopK(feats, scores, p.cfg.MaxFeatures)
	}

	set := &models.FeatureSet{
		Features:      feats,
		TotalFeatures: len(feats),
		Importance:    make(map[string]float64, len(feats)),
	}
	for _, f := range feats {
		set.Importance[f.Name] = scores[f.Name]
	}
	if len(feats) <= maxCorrelationFeatures {
		set.Correlation = correlationMatrix(feats, p.featHist.buffers)
	}

	if p.metrics != nil {
		p.metrics.RecordFeatures(len(feats))
	}
	if p.l != nil {
		p.l.Debug("features engineered",
			applogger.Int("count", len(feats)),
			applogger.Int64("elapsed_us", time.Since(start).Microseconds()))
	}
	return set, nil
}

// Reset drops all per-metric and per-feature history, for callers that
// start a fresh series.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arena.Reset()
	p.featHist.Reset()
}

// targetBuffer returns the history of the configured selection target, or
// nil when selection is disabled or the target never appeared.
func (p *Pipeline) targetBuffer(rec *models.ValidatedRecord) *ringBuffer {
	if p.cfg.TargetVariable == "" {
		return nil
	}
	// target history follows the raw metric, pushed independently of the
	// tracked-metrics list
	if v, ok := rec.Metric(p.cfg.TargetVariable); ok {
		if !contains(p.cfg.TrackedMetrics, p.cfg.TargetVariable) {
			return p.arena.Push(p.cfg.TargetVariable, v)
		}
	}
	return p.arena.buffers[p.cfg.TargetVariable]
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// stage wraps one engineering stage with latency/error accounting.
func (p *Pipeline) stage(name string, fn func() []models.Feature) []models.Feature {
	start := time.Now()
	out := fn()
	svcmetrics.StageLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return out
}
