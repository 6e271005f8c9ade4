package model

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/BaSui01/fedflow/types"
)

// Tensor names exported by the reference model.
const (
	TensorWeights = "weights"
	TensorBias    = "bias"
)

// LinearConfig configures the reference linear model.
type LinearConfig struct {
	InputDim     int     // Feature dimension (default 8)
	LearningRate float64 // SGD step size (default 0.01)
	Samples      int     // Synthetic training sample count (default 256)
	Seed         int64   // Seed for the synthetic task (default 1)
}

// LinearModel is a single-layer regression model trained on a deterministic
// synthetic task derived from its seed. It exists so the CLI and the examples
// can run a full session end to end without external data; real deployments
// implement Operations over their own model.
type LinearModel struct {
	mu      sync.Mutex
	weights []float32
	bias    float32
	epoch   int

	cfg LinearConfig

	trainX [][]float64
	trainY []float64
	evalX  [][]float64
	evalY  []float64
}

var _ Operations = (*LinearModel)(nil)

// NewLinearModel builds the model and its synthetic dataset. Zero-value
// config fields fall back to defaults.
func NewLinearModel(cfg LinearConfig) *LinearModel {
	if cfg.InputDim <= 0 {
		cfg.InputDim = 8
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 256
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	trueW := make([]float64, cfg.InputDim)
	for i := range trueW {
		trueW[i] = rng.NormFloat64()
	}
	trueB := rng.NormFloat64()

	sample := func(n int) ([][]float64, []float64) {
		xs := make([][]float64, n)
		ys := make([]float64, n)
		for i := range xs {
			x := make([]float64, cfg.InputDim)
			y := trueB
			for j := range x {
				x[j] = rng.NormFloat64()
				y += trueW[j] * x[j]
			}
			xs[i] = x
			ys[i] = y + 0.01*rng.NormFloat64()
		}
		return xs, ys
	}

	m := &LinearModel{
		weights: make([]float32, cfg.InputDim),
		cfg:     cfg,
	}
	m.trainX, m.trainY = sample(cfg.Samples)
	m.evalX, m.evalY = sample(cfg.Samples / 4)
	return m
}

// Train runs one SGD epoch over the synthetic dataset.
func (m *LinearModel) Train(ctx context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, x := range m.trainX {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		residual := m.predict(x) - m.trainY[i]
		step := 2 * m.cfg.LearningRate * residual
		for j := range m.weights {
			m.weights[j] -= float32(step * x[j])
		}
		m.bias -= float32(step)
	}
	m.epoch++

	return map[string]float64{
		"loss":    m.meanSquaredError(m.trainX, m.trainY),
		"epoch":   float64(m.epoch),
		"samples": float64(len(m.trainX)),
	}, nil
}

// Evaluate measures the model on the held-out synthetic split.
func (m *LinearModel) Evaluate(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]float64{
		"loss":    m.meanSquaredError(m.evalX, m.evalY),
		"samples": float64(len(m.evalX)),
	}, nil
}

// GetWeights exports the weight vector and bias as float32 tensors.
func (m *LinearModel) GetWeights(ctx context.Context) (map[string]types.TensorData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]types.TensorData{
		TensorWeights: {
			Data:  Float32sToBytes(m.weights),
			Shape: []int64{int64(len(m.weights))},
		},
		TensorBias: {
			Data:  Float32sToBytes([]float32{m.bias}),
			Shape: []int64{1},
		},
	}, nil
}

// SetWeights replaces the model parameters. Tensors are matched by shape
// since the wire carries no names on the inbound path: a single-element
// tensor is the bias, an InputDim-sized tensor is the weight vector.
func (m *LinearModel) SetWeights(ctx context.Context, tensors []types.TensorData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tensors {
		vals, err := Float32sFromBytes(t.Data)
		if err != nil {
			return err
		}
		if int64(len(vals)) != t.Size() {
			return fmt.Errorf("tensor carries %d values but shape %v wants %d", len(vals), t.Shape, t.Size())
		}

		switch {
		case t.Size() == 1:
			m.bias = vals[0]
		case int(t.Size()) == m.cfg.InputDim:
			copy(m.weights, vals)
		default:
			return fmt.Errorf("unexpected tensor shape %v for input dim %d", t.Shape, m.cfg.InputDim)
		}
	}
	return nil
}

func (m *LinearModel) predict(x []float64) float64 {
	y := float64(m.bias)
	for j, w := range m.weights {
		y += float64(w) * x[j]
	}
	return y
}

func (m *LinearModel) meanSquaredError(xs [][]float64, ys []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for i, x := range xs {
		d := m.predict(x) - ys[i]
		sum += d * d
	}
	return sum / float64(len(xs))
}

// Float32sToBytes encodes float32 values as little-endian bytes, the layout
// tensors use on the wire.
func Float32sToBytes(vals []float32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// Float32sFromBytes decodes little-endian float32 bytes.
func Float32sFromBytes(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("tensor byte length %d is not a multiple of 4", len(data))
	}
	vals := make([]float32, len(data)/4)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vals, nil
}
