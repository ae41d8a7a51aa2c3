package model

import (
	"math"
	"math/rand"

	"EsgPulse/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

// recurrentLayer is an Elman cell unrolled over the timesteps packed into
// each input row. Input rows are (timesteps * features); the layer emits
// either the final hidden state or, when returnSequences is set, every
// hidden state packed the same way so another recurrent layer can stack on
// top.
type recurrentLayer struct {
	wx *mat.Dense // (hidden x features)
	wh *mat.Dense // (hidden x hidden)
	b  []float64

	features  int
	hidden    int
	returnSeq bool

	lastIn     *mat.Dense
	lastStates []*mat.Dense // H_t for t = 0..T-1, each (n x hidden)
}

func newRecurrentLayer(features, hidden int, returnSeq bool, rng *rand.Rand) *recurrentLayer {
	init := func(r, c int) *mat.Dense {
		limit := math.Sqrt(6.0 / float64(r+c))
		m := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				m.Set(i, j, (rng.Float64()*2-1)*limit)
			}
		}
		return m
	}
	return &recurrentLayer{
		wx:        init(hidden, features),
		wh:        init(hidden, hidden),
		b:         make([]float64, hidden),
		features:  features,
		hidden:    hidden,
		returnSeq: returnSeq,
	}
}

func (l *recurrentLayer) timesteps(x *mat.Dense) int {
	_, w := x.Dims()
	return w / l.features
}

func (l *recurrentLayer) forward(x *mat.Dense, training bool) *mat.Dense {
	n, _ := x.Dims()
	T := l.timesteps(x)

	states := make([]*mat.Dense, T)
	prev := mat.NewDense(n, l.hidden, nil)
	for t := 0; t < T; t++ {
		xt := extractStep(x, t, l.features)
		h := mat.NewDense(n, l.hidden, nil)
		h.Mul(xt, l.wx.T())
		var rec mat.Dense
		rec.Mul(prev, l.wh.T())
		h.Add(h, &rec)
		for i := 0; i < n; i++ {
			for j := 0; j < l.hidden; j++ {
				h.Set(i, j, math.Tanh(h.At(i, j)+l.b[j]))
			}
		}
		states[t] = h
		prev = h
	}

	if training {
		l.lastIn = x
		l.lastStates = states
	}

	if l.returnSeq {
		return packSteps(states, n, l.hidden)
	}
	return states[T-1]
}

// backward runs truncated backpropagation through time across the whole
// unrolled window.
func (l *recurrentLayer) backward(grad *mat.Dense, lr float64) *mat.Dense {
	n, _ := l.lastIn.Dims()
	T := len(l.lastStates)

	dWx := mat.NewDense(l.hidden, l.features, nil)
	dWh := mat.NewDense(l.hidden, l.hidden, nil)
	db := make([]float64, l.hidden)
	dIn := mat.NewDense(n, T*l.features, nil)

	// carry is dL/dH_t flowing backward through the recurrence
	carry := mat.NewDense(n, l.hidden, nil)
	for t := T - 1; t >= 0; t-- {
		dh := mat.NewDense(n, l.hidden, nil)
		dh.Copy(carry)
		if l.returnSeq {
			dh.Add(dh, extractStep(grad, t, l.hidden))
		} else if t == T-1 {
			dh.Add(dh, grad)
		}

		// through tanh
		da := mat.NewDense(n, l.hidden, nil)
		st := l.lastStates[t]
		for i := 0; i < n; i++ {
			for j := 0; j < l.hidden; j++ {
				out := st.At(i, j)
				da.Set(i, j, dh.At(i, j)*(1-out*out))
			}
		}

		xt := extractStep(l.lastIn, t, l.features)
		var g mat.Dense
		g.Mul(da.T(), xt)
		dWx.Add(dWx, &g)

		if t > 0 {
			var gh mat.Dense
			gh.Mul(da.T(), l.lastStates[t-1])
			dWh.Add(dWh, &gh)
		}
		for j := 0; j < l.hidden; j++ {
			for i := 0; i < n; i++ {
				db[j] += da.At(i, j)
			}
		}

		var dx mat.Dense
		dx.Mul(da, l.wx)
		setStep(dIn, t, l.features, &dx)

		carry.Mul(da, l.wh)
	}

	scale := 1 / float64(n)
	var step mat.Dense
	step.Scale(lr*scale, dWx)
	l.wx.Sub(l.wx, &step)
	step.Reset()
	step.Scale(lr*scale, dWh)
	l.wh.Sub(l.wh, &step)
	for j := range l.b {
		l.b[j] -= lr * db[j] * scale
	}
	return dIn
}

func (l *recurrentLayer) snapshot() models.LayerSnapshot {
	return models.LayerSnapshot{
		Kind:      "recurrent",
		Weights:   denseToSlices(l.wx),
		Recurrent: denseToSlices(l.wh),
		Bias:      append([]float64(nil), l.b...),
	}
}

func (l *recurrentLayer) restore(snap models.LayerSnapshot) {
	l.wx = slicesToDense(snap.Weights)
	l.wh = slicesToDense(snap.Recurrent)
	l.b = append([]float64(nil), snap.Bias...)
}

func (l *recurrentLayer) release() {
	l.lastIn = nil
	l.lastStates = nil
}

// extractStep pulls timestep t (width columns) out of packed rows.
func extractStep(x *mat.Dense, t, width int) *mat.Dense {
	n, _ := x.Dims()
	out := mat.NewDense(n, width, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < width; j++ {
			out.Set(i, j, x.At(i, t*width+j))
		}
	}
	return out
}

func setStep(dst *mat.Dense, t, width int, src *mat.Dense) {
	n, _ := src.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < width; j++ {
			dst.Set(i, t*width+j, src.At(i, j))
		}
	}
}

func packSteps(states []*mat.Dense, n, hidden int) *mat.Dense {
	out := mat.NewDense(n, len(states)*hidden, nil)
	for t, st := range states {
		setStep(out, t, hidden, st)
	}
	return out
}
