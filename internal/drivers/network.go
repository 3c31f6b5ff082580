package drivers

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// layer is a fully connected layer with its Adam moments.
type layer struct {
	w *mat.Dense // [out][in]
	b []float64

	mW, vW []float64
	mB, vB []float64
}

// network is a feedforward regressor: ReLU hidden layers, one linear output.
type network struct {
	layers []*layer
}

// newNetwork creates a network with He initialization. sizes lists the width
// of every layer, input first, e.g. [3, 16, 8, 1].
func newNetwork(sizes []int, rng *rand.Rand) *network {
	n := &network{}
	for i := 0; i+1 < len(sizes); i++ {
		in, out := sizes[i], sizes[i+1]
		stddev := math.Sqrt(2.0 / float64(in))
		data := make([]float64, out*in)
		for k := range data {
			data[k] = rng.NormFloat64() * stddev
		}
		n.layers = append(n.layers, &layer{
			w:  mat.NewDense(out, in, data),
			b:  make([]float64, out),
			mW: make([]float64, out*in),
			vW: make([]float64, out*in),
			mB: make([]float64, out),
			vB: make([]float64, out),
		})
	}
	return n
}

// forward runs a batch (one sample per row) and returns every layer's
// activations, the input first.
func (n *network) forward(x *mat.Dense) []*mat.Dense {
	acts := []*mat.Dense{x}
	a := x
	for i, l := range n.layers {
		rows, _ := a.Dims()
		out, _ := l.w.Dims()
		z := mat.NewDense(rows, out, nil)
		z.Mul(a, l.w.T())

		hidden := i < len(n.layers)-1
		z.Apply(func(_, j int, v float64) float64 {
			v += l.b[j]
			if hidden && v < 0 {
				return 0
			}
			return v
		}, z)

		acts = append(acts, z)
		a = z
	}
	return acts
}

func (n *network) predict(x *mat.Dense) []float64 {
	acts := n.forward(x)
	return mat.Col(nil, 0, acts[len(acts)-1])
}

// step backpropagates the MSE of one batch and applies an Adam update.
// t is the 1-based update count. Returns the batch MSE before the update.
func (n *network) step(x *mat.Dense, y []float64, cfg TrainConfig, t int) float64 {
	acts := n.forward(x)
	pred := acts[len(acts)-1]
	rows, _ := pred.Dims()

	delta := mat.NewDense(rows, 1, nil)
	var loss float64
	for r := 0; r < rows; r++ {
		diff := pred.At(r, 0) - y[r]
		loss += diff * diff
		delta.Set(r, 0, 2*diff/float64(rows))
	}

	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		in := acts[i]
		out, _ := l.w.Dims()

		var gradW mat.Dense
		gradW.Mul(delta.T(), in)
		gradB := make([]float64, out)
		for r := 0; r < rows; r++ {
			for j := 0; j < out; j++ {
				gradB[j] += delta.At(r, j)
			}
		}

		// Propagate with the weights the gradient was taken against.
		if i > 0 {
			var prev mat.Dense
			prev.Mul(delta, l.w)
			prev.Apply(func(r, c int, v float64) float64 {
				if in.At(r, c) <= 0 {
					return 0
				}
				return v
			}, &prev)
			delta = &prev
		}

		l.adam(gradW.RawMatrix().Data, gradB, cfg, t)
	}
	return loss / float64(rows)
}

func (l *layer) adam(gradW, gradB []float64, cfg TrainConfig, t int) {
	c1 := 1 - math.Pow(cfg.Beta1, float64(t))
	c2 := 1 - math.Pow(cfg.Beta2, float64(t))
	adamUpdate(l.w.RawMatrix().Data, gradW, l.mW, l.vW, cfg, c1, c2)
	adamUpdate(l.b, gradB, l.mB, l.vB, cfg, c1, c2)
}

func adamUpdate(p, g, m, v []float64, cfg TrainConfig, c1, c2 float64) {
	for k := range p {
		m[k] = cfg.Beta1*m[k] + (1-cfg.Beta1)*g[k]
		v[k] = cfg.Beta2*v[k] + (1-cfg.Beta2)*g[k]*g[k]
		p[k] -= cfg.LearningRate * (m[k] / c1) / (math.Sqrt(v[k]/c2) + cfg.Epsilon)
	}
}
