package features

import (
	"math"
	"sort"

	"EsgPulse/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Fixed importance priors for named ESG features. Used to seed scores until
// enough history accumulates for a real estimate. Absolute values are not
// calibrated.
var esgPriors = map[string]float64{
	"emissions_intensity":        0.90,
	models.MetricEmissionsTotal:  0.88,
	models.MetricEmissionsScope1: 0.80,
	models.MetricEmissionsScope2: 0.78,
	models.MetricEmissionsScope3: 0.76,
	"scope1_ratio":               0.72,
	"scope2_ratio":               0.70,
	"scope3_ratio":               0.68,
	models.MetricEnergyConsumed:  0.82,
	"energy_intensity":           0.74,
	"energy_efficiency":          0.72,
	"renewable_percentage":       0.70,
	models.MetricRevenue:         0.60,
	models.MetricProduction:      0.60,
	"supply_chain_risk":          0.66,
	"geographic_diversity":       0.55,
}

// placeholderScore seeds features without a prior or enough history.
const placeholderScore = 0.05

// miMinSamples is the minimum aligned history length before the mutual
// information estimate replaces the prior.
const miMinSamples = 8

const miBins = 4

// mutualInformation estimates I(X;Y) in nats from equal-width histograms.
func mutualInformation(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	bx, ok1 := binIndices(xs)
	by, ok2 := binIndices(ys)
	if !ok1 || !ok2 {
		return 0
	}

	var joint [miBins][miBins]float64
	var px, py [miBins]float64
	inv := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		joint[bx[i]][by[i]] += inv
		px[bx[i]] += inv
		py[by[i]] += inv
	}

	mi := 0.0
	for i := 0; i < miBins; i++ {
		for j := 0; j < miBins; j++ {
			p := joint[i][j]
			if p > 0 {
				mi += p * math.Log(p/(px[i]*py[j]))
			}
		}
	}
	if mi < 0 {
		mi = 0
	}
	return mi
}

// binIndices maps values to equal-width histogram bins. ok is false when
// the series has no spread.
func binIndices(vals []float64) ([]int, bool) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return nil, false
	}
	out := make([]int, len(vals))
	scale := float64(miBins) / (hi - lo)
	for i, v := range vals {
		b := int((v - lo) * scale)
		if b >= miBins {
			b = miBins - 1
		}
		out[i] = b
	}
	return out, true
}

// scoreFeature returns the importance score for one feature, preferring the
// mutual-information estimate against the target history when enough
// aligned samples exist.
func scoreFeature(name string, featBuf, targetBuf *ringBuffer) float64 {
	if featBuf != nil && targetBuf != nil {
		m := featBuf.Len()
		if targetBuf.Len() < m {
			m = targetBuf.Len()
		}
		if m >= miMinSamples {
			xs, _ := featBuf.Last(m)
			ys, _ := targetBuf.Last(m)
			if mi := mutualInformation(xs, ys); mi > 0 {
				return mi
			}
		}
	}
	if prior, ok := esgPriors[name]; ok {
		return prior
	}
	return placeholderScore
}

// selectTopK keeps the k highest-scoring features sorted by descending
// score, preserving each kept feature's original value. Returns all
// features (sorted) when fewer than k exist.
func selectTopK(feats []models.Feature, scores map[string]float64, k int) []models.Feature {
	sorted := make([]models.Feature, len(feats))
	copy(sorted, feats)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i].Name], scores[sorted[j].Name]
		if si != sj {
			return si > sj
		}
		return sorted[i].Name < sorted[j].Name
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

// maxCorrelationFeatures caps the correlation matrix computation.
const maxCorrelationFeatures = 50

// correlationMinSamples is the shortest aligned history that still yields a
// meaningful Pearson coefficient.
const correlationMinSamples = 3

// correlationMatrix computes the Pearson correlation of feature histories.
// Always symmetric with a unit diagonal; pairs without enough aligned
// history report 0.
func correlationMatrix(feats []models.Feature, histories map[string]*ringBuffer) [][]float64 {
	n := len(feats)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			bi := histories[feats[i].Name]
			bj := histories[feats[j].Name]
			if bi == nil || bj == nil {
				continue
			}
			k := bi.Len()
			if bj.Len() < k {
				k = bj.Len()
			}
			if k < correlationMinSamples {
				continue
			}
			xs, _ := bi.Last(k)
			ys, _ := bj.Last(k)
			c := stat.Correlation(xs, ys, nil)
			if math.IsNaN(c) {
				c = 0
			}
			m[i][j] = c
			m[j][i] = c
		}
	}
	return m
}
