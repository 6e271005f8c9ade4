package protocol

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/BaSui01/fedflow/types"
)

// Property 1: Tensor Wire Round-Trip Consistency
// A tensor framed for get-weights and decoded as if received via send-weights
// preserves shape and byte content exactly, including through JSON framing.
func TestProperty_TensorWireRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("wire round-trip preserves shape and bytes", prop.ForAll(
		func(name string, dims []int64, data []byte) bool {
			// Normalize generated inputs into valid tensors.
			if len(dims) == 0 {
				dims = []int64{1}
			}
			if len(data) == 0 {
				data = []byte{0}
			}

			original := types.TensorData{Data: data, Shape: dims}
			wire := TensorsToWire(map[string]types.TensorData{name: original})
			if len(wire) != 1 {
				t.Logf("expected 1 wire tensor, got %d", len(wire))
				return false
			}

			// Frame and unframe exactly as the stream would.
			body, err := json.Marshal(&ClientMessage{GetWeightsResponse: &GetWeightsResponse{Tensors: wire}})
			if err != nil {
				t.Logf("marshal failed: %v", err)
				return false
			}
			var framed ClientMessage
			if err := json.Unmarshal(body, &framed); err != nil {
				t.Logf("unmarshal failed: %v", err)
				return false
			}

			decoded, err := TensorsFromWire(framed.GetWeightsResponse.Tensors)
			if err != nil {
				t.Logf("decode failed: %v", err)
				return false
			}
			if len(decoded) != 1 {
				t.Logf("expected 1 decoded tensor, got %d", len(decoded))
				return false
			}
			if !bytes.Equal(decoded[0].Data, original.Data) {
				t.Logf("data mismatch: %v != %v", decoded[0].Data, original.Data)
				return false
			}
			if len(decoded[0].Shape) != len(original.Shape) {
				t.Logf("shape rank mismatch: %v != %v", decoded[0].Shape, original.Shape)
				return false
			}
			for i := range decoded[0].Shape {
				if decoded[0].Shape[i] != original.Shape[i] {
					t.Logf("shape mismatch at %d: %v != %v", i, decoded[0].Shape, original.Shape)
					return false
				}
			}
			return decoded[0].Size() == original.Size()
		},
		gen.Identifier(),
		gen.SliceOf(gen.Int64Range(1, 16)),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
