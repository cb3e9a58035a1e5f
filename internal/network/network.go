// Package network implements the fraud classifier: a feedforward neural
// network with one tanh hidden layer trained by resilient propagation.
package network

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Network is a fully connected feedforward network. Weights[l] connects layer l
// to layer l+1 and is laid out row-major as (Layers[l]+1) x Layers[l+1], the
// last row holding the bias weights.
type Network struct {
	Layers  []int       `json:"layers"`
	Weights [][]float64 `json:"weights"`
}

// NewNetwork creates a network with the given layer sizes and weights drawn
// uniformly from [-0.5, 0.5).
func NewNetwork(layers []int, rng *rand.Rand) (*Network, error) {
	if len(layers) < 2 {
		return nil, fmt.Errorf("network needs at least two layers, got %d", len(layers))
	}
	for i, size := range layers {
		if size < 1 {
			return nil, fmt.Errorf("layer %d has %d neurons", i, size)
		}
	}

	n := &Network{Layers: append([]int(nil), layers...)}
	n.Weights = make([][]float64, len(layers)-1)
	for l := range n.Weights {
		n.Weights[l] = make([]float64, (layers[l]+1)*layers[l+1])
		for i := range n.Weights[l] {
			n.Weights[l][i] = rng.Float64() - 0.5
		}
	}
	return n, nil
}

// InputSize returns the number of inputs the network accepts.
func (n *Network) InputSize() int {
	return n.Layers[0]
}

// OutputSize returns the number of outputs the network produces.
func (n *Network) OutputSize() int {
	return n.Layers[len(n.Layers)-1]
}

// Compute feeds input through the network and returns the output layer.
func (n *Network) Compute(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("input has %d values, network expects %d", len(input), n.InputSize())
	}
	activations := n.forward(input)
	return activations[len(activations)-1], nil
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{
		Layers:  append([]int(nil), n.Layers...),
		Weights: make([][]float64, len(n.Weights)),
	}
	for l := range n.Weights {
		c.Weights[l] = append([]float64(nil), n.Weights[l]...)
	}
	return c
}

func (n *Network) String() string {
	sizes := make([]string, len(n.Layers))
	for i, size := range n.Layers {
		sizes[i] = fmt.Sprint(size)
	}
	return "[" + strings.Join(sizes, ":") + "]"
}

func (n *Network) forward(input []float64) [][]float64 {
	activations := make([][]float64, len(n.Layers))
	activations[0] = input
	for l, weights := range n.Weights {
		in, out := n.Layers[l], n.Layers[l+1]
		prev := activations[l]
		next := make([]float64, out)
		for j := 0; j < out; j++ {
			sum := weights[in*out+j]
			for i := 0; i < in; i++ {
				sum += prev[i] * weights[i*out+j]
			}
			next[j] = math.Tanh(sum)
		}
		activations[l+1] = next
	}
	return activations
}

// accumulate adds the error gradient of one sample to grads and returns the
// sample's summed squared error.
func (n *Network) accumulate(input, ideal []float64, grads [][]float64) float64 {
	activations := n.forward(input)
	output := activations[len(activations)-1]

	delta := make([]float64, len(output))
	sse := 0.0
	for j, actual := range output {
		diff := ideal[j] - actual
		sse += diff * diff
		delta[j] = diff * (1 - actual*actual)
	}

	for l := len(n.Weights) - 1; l >= 0; l-- {
		in, out := n.Layers[l], n.Layers[l+1]
		prev := activations[l]
		weights := n.Weights[l]
		grad := grads[l]

		for j := 0; j < out; j++ {
			grad[in*out+j] += delta[j]
			for i := 0; i < in; i++ {
				grad[i*out+j] += delta[j] * prev[i]
			}
		}

		if l == 0 {
			break
		}
		prevDelta := make([]float64, in)
		for i := 0; i < in; i++ {
			sum := 0.0
			for j := 0; j < out; j++ {
				sum += delta[j] * weights[i*out+j]
			}
			prevDelta[i] = sum * (1 - prev[i]*prev[i])
		}
		delta = prevDelta
	}

	return sse
}

// MeanSquaredError returns the error of the network over a set of samples.
func (n *Network) MeanSquaredError(inputs, ideals [][]float64) float64 {
	if len(inputs) == 0 {
		return 0
	}
	sse := 0.0
	count := 0
	for s, input := range inputs {
		output := n.forward(input)[len(n.Layers)-1]
		for j, actual := range output {
			diff := ideals[s][j] - actual
			sse += diff * diff
			count++
		}
	}
	return sse / float64(count)
}
