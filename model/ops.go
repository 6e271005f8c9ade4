package model

import (
	"context"

	"github.com/BaSui01/fedflow/types"
)

// Operations is the capability set a local model must supply to take part in
// a federated session. The session engine invokes operations strictly
// sequentially, awaiting each before dispatching the next instruction, so
// implementations do not need to be safe for concurrent use by the engine —
// though they may be called from other goroutines of the host application.
//
// Every method receives the session context: implementations should honor
// cancellation during long-running work. Any returned error aborts the
// session and surfaces as an operation failure naming the method.
type Operations interface {
	// Train runs one local training pass and returns training metrics.
	Train(ctx context.Context) (map[string]float64, error)

	// Evaluate measures the current model and returns evaluation metrics.
	Evaluate(ctx context.Context) (map[string]float64, error)

	// GetWeights exports the current weights as named tensors.
	GetWeights(ctx context.Context) (map[string]types.TensorData, error)

	// SetWeights replaces the current weights with coordinator tensors,
	// delivered in coordinator order.
	SetWeights(ctx context.Context, tensors []types.TensorData) error
}
