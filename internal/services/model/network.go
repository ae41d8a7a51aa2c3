package model

import (
	"math"

	"EsgPulse/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

type lossKind int

const (
	lossMSE lossKind = iota
	lossSoftmaxCrossEntropy
)

// network is an ordered layer stack with a family-determined loss.
type network struct {
	layers []layer
	loss   lossKind
}

func (nw *network) forward(x *mat.Dense, training bool) *mat.Dense {
	out := x
	for _, l := range nw.layers {
		out = l.forward(out, training)
	}
	return out
}

// trainBatch runs one forward/backward pass and returns the batch loss.
// Cached activations are released on every exit path.
func (nw *network) trainBatch(x, y *mat.Dense, lr float64) float64 {
	defer nw.release()

	out := nw.forward(x, true)
	loss, grad := nw.lossAndGrad(out, y)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss
	}
	for i := len(nw.layers) - 1; i >= 0; i-- {
		grad = nw.layers[i].backward(grad, lr)
	}
	return loss
}

// evaluate computes the loss without touching weights.
func (nw *network) evaluate(x, y *mat.Dense) float64 {
	out := nw.forward(x, false)
	loss, _ := nw.lossAndGrad(out, y)
	return loss
}

func (nw *network) lossAndGrad(out, y *mat.Dense) (float64, *mat.Dense) {
	n, c := out.Dims()
	grad := mat.NewDense(n, c, nil)

	switch nw.loss {
	case lossSoftmaxCrossEntropy:
		loss := 0.0
		for i := 0; i < n; i++ {
			probs := softmaxRow(out.RawRowView(i))
			for j := 0; j < c; j++ {
				t := y.At(i, j)
				if t > 0 {
					loss -= t * math.Log(probs[j]+1e-12)
				}
				grad.Set(i, j, probs[j]-t)
			}
		}
		return loss / float64(n), grad
	default:
		loss := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < c; j++ {
				d := out.At(i, j) - y.At(i, j)
				loss += d * d
				grad.Set(i, j, 2*d)
			}
		}
		return loss / float64(n*c), grad
	}
}

func (nw *network) release() {
	for _, l := range nw.layers {
		l.release()
	}
}

func (nw *network) snapshot() []models.LayerSnapshot {
	out := make([]models.LayerSnapshot, len(nw.layers))
	for i, l := range nw.layers {
		out[i] = l.snapshot()
	}
	return out
}

func (nw *network) restore(snaps []models.LayerSnapshot) {
	for i, l := range nw.layers {
		if i < len(snaps) {
			l.restore(snaps[i])
		}
	}
}

func softmaxRow(row []float64) []float64 {
	maxV := row[0]
	for _, v := range row[1:] {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float64, len(row))
	sum := 0.0
	for i, v := range row {
		e := math.Exp(v - maxV)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
