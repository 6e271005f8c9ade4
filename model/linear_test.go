package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fedflow/types"
)

func TestLinearModel_TrainReducesLoss(t *testing.T) {
	m := NewLinearModel(LinearConfig{Seed: 7})
	ctx := context.Background()

	first, err := m.Train(ctx)
	require.NoError(t, err)
	require.Contains(t, first, "loss")
	assert.Equal(t, float64(1), first["epoch"])
	assert.Equal(t, float64(256), first["samples"])

	var last map[string]float64
	for i := 0; i < 20; i++ {
		last, err = m.Train(ctx)
		require.NoError(t, err)
	}

	assert.Less(t, last["loss"], first["loss"], "loss should shrink over epochs")
	assert.Equal(t, float64(21), last["epoch"])
}

func TestLinearModel_EvaluateTracksTraining(t *testing.T) {
	m := NewLinearModel(LinearConfig{Seed: 7})
	ctx := context.Background()

	before, err := m.Evaluate(ctx)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err = m.Train(ctx)
		require.NoError(t, err)
	}

	after, err := m.Evaluate(ctx)
	require.NoError(t, err)
	assert.Less(t, after["loss"], before["loss"])
	assert.Equal(t, float64(64), after["samples"])
}

func TestLinearModel_Deterministic(t *testing.T) {
	ctx := context.Background()
	a := NewLinearModel(LinearConfig{Seed: 42})
	b := NewLinearModel(LinearConfig{Seed: 42})

	for i := 0; i < 3; i++ {
		_, err := a.Train(ctx)
		require.NoError(t, err)
		_, err = b.Train(ctx)
		require.NoError(t, err)
	}

	wa, err := a.GetWeights(ctx)
	require.NoError(t, err)
	wb, err := b.GetWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, wa, wb)
}

func TestLinearModel_WeightsRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewLinearModel(LinearConfig{Seed: 3})
	_, err := src.Train(ctx)
	require.NoError(t, err)

	exported, err := src.GetWeights(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 2)

	dst := NewLinearModel(LinearConfig{Seed: 99})
	err = dst.SetWeights(ctx, []types.TensorData{exported[TensorBias], exported[TensorWeights]})
	require.NoError(t, err)

	imported, err := dst.GetWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, exported, imported)
}

func TestLinearModel_SetWeightsRejectsUnknownShape(t *testing.T) {
	m := NewLinearModel(LinearConfig{InputDim: 4})

	err := m.SetWeights(context.Background(), []types.TensorData{
		{Data: Float32sToBytes(make([]float32, 6)), Shape: []int64{2, 3}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected tensor shape")
}

func TestLinearModel_SetWeightsRejectsShortPayload(t *testing.T) {
	m := NewLinearModel(LinearConfig{InputDim: 4})

	err := m.SetWeights(context.Background(), []types.TensorData{
		{Data: Float32sToBytes(make([]float32, 2)), Shape: []int64{4}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wants 4")
}

func TestLinearModel_HonorsContext(t *testing.T) {
	m := NewLinearModel(LinearConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Train(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.Evaluate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.GetWeights(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	err = m.SetWeights(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFloat32Bytes_RoundTrip(t *testing.T) {
	vals := []float32{0, 1.5, -3.25, 1e-7}
	decoded, err := Float32sFromBytes(Float32sToBytes(vals))
	require.NoError(t, err)
	assert.Equal(t, vals, decoded)
}

func TestFloat32Bytes_RejectsMisaligned(t *testing.T) {
	_, err := Float32sFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 4")
}

type failingOps struct{ err error }

func (f *failingOps) Train(context.Context) (map[string]float64, error)    { return nil, f.err }
func (f *failingOps) Evaluate(context.Context) (map[string]float64, error) { return nil, f.err }
func (f *failingOps) GetWeights(context.Context) (map[string]types.TensorData, error) {
	return nil, f.err
}
func (f *failingOps) SetWeights(context.Context, []types.TensorData) error { return f.err }

func TestTracedOperations_PassesThrough(t *testing.T) {
	ctx := context.Background()
	traced := TracedOperations(NewLinearModel(LinearConfig{Seed: 5}), nil)

	metrics, err := traced.Train(ctx)
	require.NoError(t, err)
	assert.Contains(t, metrics, "loss")

	tensors, err := traced.GetWeights(ctx)
	require.NoError(t, err)
	require.Contains(t, tensors, TensorWeights)

	err = traced.SetWeights(ctx, []types.TensorData{tensors[TensorBias]})
	require.NoError(t, err)
}

func TestTracedOperations_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	traced := TracedOperations(&failingOps{err: boom}, nil)

	_, err := traced.Train(context.Background())
	assert.ErrorIs(t, err, boom)
	err = traced.SetWeights(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}
