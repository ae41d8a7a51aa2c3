package model

import (
	"math"
	"math/rand"

	"EsgPulse/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

type activation int

const (
	actLinear activation = iota
	actReLU
	actSigmoid
	actTanh
)

func (a activation) apply(v float64) float64 {
	switch a {
	case actReLU:
		if v < 0 {
			return 0
		}
		return v
	case actSigmoid:
		return 1 / (1 + math.Exp(-v))
	case actTanh:
		return math.Tanh(v)
	default:
		return v
	}
}

// derivFromOutput returns the activation derivative expressed in terms of
// the activated output, which is all the backward passes store.
func (a activation) derivFromOutput(out float64) float64 {
	switch a {
	case actReLU:
		if out > 0 {
			return 1
		}
		return 0
	case actSigmoid:
		return out * (1 - out)
	case actTanh:
		return 1 - out*out
	default:
		return 1
	}
}

// layer is one differentiable network stage. Forward stores whatever the
// matching backward needs; backward applies the gradient step in place and
// returns the gradient with respect to its input.
type layer interface {
	forward(x *mat.Dense, training bool) *mat.Dense
	backward(grad *mat.Dense, lr float64) *mat.Dense
	snapshot() models.LayerSnapshot
	restore(snap models.LayerSnapshot)
	// release drops cached activations so intermediate tensors do not
	// outlive the call that produced them.
	release()
}

// denseLayer is a fully connected layer with a fused activation.
// Weights are (out x in).
type denseLayer struct {
	w   *mat.Dense
	b   []float64
	act activation

	lastIn  *mat.Dense
	lastOut *mat.Dense
}

func newDenseLayer(in, out int, act activation, rng *rand.Rand) *denseLayer {
	// Glorot-style init keeps early losses finite across layer sizes.
	limit := math.Sqrt(6.0 / float64(in+out))
	w := mat.NewDense(out, in, nil)
	for i := 0; i < out; i++ {
		for j := 0; j < in; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
	return &denseLayer{w: w, b: make([]float64, out), act: act}
}

func (l *denseLayer) forward(x *mat.Dense, training bool) *mat.Dense {
	n, _ := x.Dims()
	out, _ := l.w.Dims()
	y := mat.NewDense(n, out, nil)
	y.Mul(x, l.w.T())
	for i := 0; i < n; i++ {
		for j := 0; j < out; j++ {
			y.Set(i, j, l.act.apply(y.At(i, j)+l.b[j]))
		}
	}
	if training {
		l.lastIn = x
		l.lastOut = y
	}
	return y
}

func (l *denseLayer) backward(grad *mat.Dense, lr float64) *mat.Dense {
	n, out := grad.Dims()
	_, in := l.w.Dims()

	// dZ = dY ⊙ act'(out)
	dz := mat.NewDense(n, out, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < out; j++ {
			dz.Set(i, j, grad.At(i, j)*l.act.derivFromOutput(l.lastOut.At(i, j)))
		}
	}

	dw := mat.NewDense(out, in, nil)
	dw.Mul(dz.T(), l.lastIn)
	dw.Scale(1/float64(n), dw)

	dx := mat.NewDense(n, in, nil)
	dx.Mul(dz, l.w)

	var scaled mat.Dense
	scaled.Scale(lr, dw)
	l.w.Sub(l.w, &scaled)
	for j := 0; j < out; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += dz.At(i, j)
		}
		l.b[j] -= lr * sum / float64(n)
	}
	return dx
}

func (l *denseLayer) snapshot() models.LayerSnapshot {
	return models.LayerSnapshot{
		Kind:    "dense",
		Weights: denseToSlices(l.w),
		Bias:    append([]float64(nil), l.b...),
	}
}

func (l *denseLayer) restore(snap models.LayerSnapshot) {
	l.w = slicesToDense(snap.Weights)
	l.b = append([]float64(nil), snap.Bias...)
}

func (l *denseLayer) release() {
	l.lastIn = nil
	l.lastOut = nil
}

// dropoutLayer applies inverted dropout during training and is the
// identity at inference.
type dropoutLayer struct {
	rate float64
	rng  *rand.Rand

	lastMask *mat.Dense
}

func newDropoutLayer(rate float64, rng *rand.Rand) *dropoutLayer {
	return &dropoutLayer{rate: rate, rng: rng}
}

func (l *dropoutLayer) forward(x *mat.Dense, training bool) *mat.Dense {
	if !training || l.rate <= 0 {
		return x
	}
	n, c := x.Dims()
	keep := 1 - l.rate
	mask := mat.NewDense(n, c, nil)
	y := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			if l.rng.Float64() < keep {
				mask.Set(i, j, 1/keep)
				y.Set(i, j, x.At(i, j)/keep)
			}
		}
	}
	l.lastMask = mask
	return y
}

func (l *dropoutLayer) backward(grad *mat.Dense, lr float64) *mat.Dense {
	if l.lastMask == nil {
		return grad
	}
	n, c := grad.Dims()
	dx := mat.NewDense(n, c, nil)
	dx.MulElem(grad, l.lastMask)
	return dx
}

func (l *dropoutLayer) snapshot() models.LayerSnapshot {
	return models.LayerSnapshot{Kind: "dropout", Bias: []float64{l.rate}}
}

func (l *dropoutLayer) restore(snap models.LayerSnapshot) {
	if len(snap.Bias) == 1 {
		l.rate = snap.Bias[0]
	}
}

func (l *dropoutLayer) release() { l.lastMask = nil }

// batchNormLayer standardizes each column with batch statistics during
// training and running averages at inference. Gamma/beta are learned.
type batchNormLayer struct {
	gamma, beta  []float64
	runMean      []float64
	runVar       []float64
	momentum     float64
	epsilon      float64
	lastNorm     *mat.Dense
	lastBatchStd []float64
}

func newBatchNormLayer(width int) *batchNormLayer {
	l := &batchNormLayer{
		gamma:    make([]float64, width),
		beta:     make([]float64, width),
		runMean:  make([]float64, width),
		runVar:   make([]float64, width),
		momentum: 0.9,
		epsilon:  1e-5,
	}
	for i := range l.gamma {
		l.gamma[i] = 1
		l.runVar[i] = 1
	}
	return l
}

func (l *batchNormLayer) forward(x *mat.Dense, training bool) *mat.Dense {
	n, c := x.Dims()
	y := mat.NewDense(n, c, nil)

	if !training {
		for j := 0; j < c; j++ {
			std := math.Sqrt(l.runVar[j] + l.epsilon)
			for i := 0; i < n; i++ {
				norm := (x.At(i, j) - l.runMean[j]) / std
				y.Set(i, j, l.gamma[j]*norm+l.beta[j])
			}
		}
		return y
	}

	norm := mat.NewDense(n, c, nil)
	stds := make([]float64, c)
	for j := 0; j < c; j++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += x.At(i, j)
		}
		mean /= float64(n)
		variance := 0.0
		for i := 0; i < n; i++ {
			d := x.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(n)

		l.runMean[j] = l.momentum*l.runMean[j] + (1-l.momentum)*mean
		l.runVar[j] = l.momentum*l.runVar[j] + (1-l.momentum)*variance

		std := math.Sqrt(variance + l.epsilon)
		stds[j] = std
		for i := 0; i < n; i++ {
			v := (x.At(i, j) - mean) / std
			norm.Set(i, j, v)
			y.Set(i, j, l.gamma[j]*v+l.beta[j])
		}
	}
	l.lastNorm = norm
	l.lastBatchStd = stds
	return y
}

func (l *batchNormLayer) backward(grad *mat.Dense, lr float64) *mat.Dense {
	n, c := grad.Dims()
	dx := mat.NewDense(n, c, nil)
	fn := float64(n)

	for j := 0; j < c; j++ {
		dGamma, dBeta := 0.0, 0.0
		sumDnorm, sumDnormNorm := 0.0, 0.0
		for i := 0; i < n; i++ {
			g := grad.At(i, j)
			dGamma += g * l.lastNorm.At(i, j)
			dBeta += g
			dnorm := g * l.gamma[j]
			sumDnorm += dnorm
			sumDnormNorm += dnorm * l.lastNorm.At(i, j)
		}
		for i := 0; i < n; i++ {
			dnorm := grad.At(i, j) * l.gamma[j]
			v := (dnorm - sumDnorm/fn - l.lastNorm.At(i, j)*sumDnormNorm/fn) / l.lastBatchStd[j]
			dx.Set(i, j, v)
		}
		l.gamma[j] -= lr * dGamma / fn
		l.beta[j] -= lr * dBeta / fn
	}
	return dx
}

func (l *batchNormLayer) snapshot() models.LayerSnapshot {
	return models.LayerSnapshot{
		Kind: "batchnorm",
		Weights: [][]float64{
			append([]float64(nil), l.gamma...),
			append([]float64(nil), l.beta...),
			append([]float64(nil), l.runMean...),
			append([]float64(nil), l.runVar...),
		},
	}
}

func (l *batchNormLayer) restore(snap models.LayerSnapshot) {
	if len(snap.Weights) == 4 {
		l.gamma = append([]float64(nil), snap.Weights[0]...)
		l.beta = append([]float64(nil), snap.Weights[1]...)
		l.runMean = append([]float64(nil), snap.Weights[2]...)
		l.runVar = append([]float64(nil), snap.Weights[3]...)
	}
}

func (l *batchNormLayer) release() {
	l.lastNorm = nil
	l.lastBatchStd = nil
}

func denseToSlices(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func slicesToDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	r, c := len(rows), len(rows[0])
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, rows[i][j])
		}
	}
	return m
}
