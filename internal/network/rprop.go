package network

import "math"

// iRPROP- constants.
const (
	rpropIncrease     = 1.2
	rpropDecrease     = 0.5
	rpropInitialDelta = 0.1
	rpropMaxDelta     = 50.0
	rpropMinDelta     = 1e-6
)

// rprop trains a network with full-batch resilient propagation (iRPROP-).
type rprop struct {
	network   *Network
	deltas    [][]float64
	lastGrads [][]float64
	grads     [][]float64
}

func newRPROP(network *Network) *rprop {
	r := &rprop{network: network}
	r.deltas = make([][]float64, len(network.Weights))
	r.lastGrads = make([][]float64, len(network.Weights))
	r.grads = make([][]float64, len(network.Weights))
	for l, weights := range network.Weights {
		r.deltas[l] = make([]float64, len(weights))
		for i := range r.deltas[l] {
			r.deltas[l][i] = rpropInitialDelta
		}
		r.lastGrads[l] = make([]float64, len(weights))
		r.grads[l] = make([]float64, len(weights))
	}
	return r
}

// epoch runs one pass over the samples and returns the mean squared error
// measured before the weights were updated.
func (r *rprop) epoch(inputs, ideals [][]float64) float64 {
	for l := range r.grads {
		clear(r.grads[l])
	}

	sse := 0.0
	for s, input := range inputs {
		sse += r.network.accumulate(input, ideals[s], r.grads)
	}

	for l, weights := range r.network.Weights {
		grads, last, deltas := r.grads[l], r.lastGrads[l], r.deltas[l]
		for i := range weights {
			change := grads[i] * last[i]
			switch {
			case change > 0:
				deltas[i] = math.Min(deltas[i]*rpropIncrease, rpropMaxDelta)
			case change < 0:
				deltas[i] = math.Max(deltas[i]*rpropDecrease, rpropMinDelta)
				grads[i] = 0
			}
			// grads hold the negative error slope, so step along their sign.
			if grads[i] > 0 {
				weights[i] += deltas[i]
			} else if grads[i] < 0 {
				weights[i] -= deltas[i]
			}
			last[i] = grads[i]
		}
	}

	if len(inputs) == 0 {
		return 0
	}
	return sse / float64(len(inputs)*r.network.OutputSize())
}
