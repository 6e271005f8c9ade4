package protocol

import (
	"sort"

	"github.com/BaSui01/fedflow/types"
)

// DtypeFloat32 is the tensor element type tag this client produces. Inbound
// tensors are passed through as raw bytes regardless of their tag.
const DtypeFloat32 = "float32"

// ProtocolVersion identifies the frame layout spoken by this client.
const ProtocolVersion = "1"

// Message kinds as reported by Kind, used for dispatch logging and metrics.
const (
	KindHandshake   = "handshake"
	KindHealthPing  = "health_ping"
	KindHealthPong  = "health_pong"
	KindEvaluate    = "evaluate"
	KindGetWeights  = "get_weights"
	KindTrain       = "train"
	KindSendWeights = "send_weights"
	KindError       = "error"
	KindUnknown     = "unknown"
)

// WireTensor is the on-wire representation of one named tensor.
type WireTensor struct {
	Name  string  `json:"name"`
	Dtype string  `json:"dtype"`
	Shape []int64 `json:"shape"`
	Data  []byte  `json:"data"`
}

// ErrorPayload carries a failure reason inside a frame.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// Handshake is the first client frame on a fresh stream.
type Handshake struct {
	ClientID        string `json:"client_id"`
	ClientVersion   string `json:"client_version,omitempty"`
	ProtocolVersion string `json:"protocol_version"`
}

// HealthPing asks the client to confirm liveness.
type HealthPing struct{}

// HealthPong answers a HealthPing.
type HealthPong struct{}

// EvaluateRequest asks the client to evaluate the current model.
type EvaluateRequest struct{}

// EvaluateResponse returns evaluation metrics.
type EvaluateResponse struct {
	Metrics map[string]float64 `json:"metrics"`
}

// GetWeightsRequest asks the client for its current model weights.
type GetWeightsRequest struct{}

// GetWeightsResponse returns the full set of named tensors, ordered by name.
type GetWeightsResponse struct {
	Tensors []WireTensor `json:"tensors"`
}

// TrainRequest asks the client to run one local training pass.
type TrainRequest struct{}

// TrainResponse returns training metrics.
type TrainResponse struct {
	Metrics map[string]float64 `json:"metrics"`
}

// SendWeightsRequest pushes coordinator weights to the client.
type SendWeightsRequest struct {
	Tensors []WireTensor `json:"tensors"`
}

// SendWeightsResponse acknowledges applied weights.
type SendWeightsResponse struct {
	Applied int64 `json:"applied"`
}

// ServerMessage is one coordinator frame: a tagged union with at most one
// variant populated. A frame with no variant at all is valid and ignored by
// the dispatch loop.
type ServerMessage struct {
	HealthPing         *HealthPing         `json:"health_ping,omitempty"`
	EvaluateRequest    *EvaluateRequest    `json:"evaluate_request,omitempty"`
	GetWeightsRequest  *GetWeightsRequest  `json:"get_weights_request,omitempty"`
	TrainRequest       *TrainRequest       `json:"train_request,omitempty"`
	SendWeightsRequest *SendWeightsRequest `json:"send_weights_request,omitempty"`
	Error              *ErrorPayload       `json:"error,omitempty"`
}

// Kind names the populated variant, first match wins.
func (m *ServerMessage) Kind() string {
	switch {
	case m == nil:
		return KindUnknown
	case m.Error != nil:
		return KindError
	case m.HealthPing != nil:
		return KindHealthPing
	case m.EvaluateRequest != nil:
		return KindEvaluate
	case m.GetWeightsRequest != nil:
		return KindGetWeights
	case m.TrainRequest != nil:
		return KindTrain
	case m.SendWeightsRequest != nil:
		return KindSendWeights
	default:
		return KindUnknown
	}
}

// ClientMessage is one client frame: a tagged union with at most one variant
// populated.
type ClientMessage struct {
	Handshake           *Handshake           `json:"handshake,omitempty"`
	HealthPong          *HealthPong          `json:"health_pong,omitempty"`
	EvaluateResponse    *EvaluateResponse    `json:"evaluate_response,omitempty"`
	GetWeightsResponse  *GetWeightsResponse  `json:"get_weights_response,omitempty"`
	TrainResponse       *TrainResponse       `json:"train_response,omitempty"`
	SendWeightsResponse *SendWeightsResponse `json:"send_weights_response,omitempty"`
	Error               *ErrorPayload        `json:"error,omitempty"`
}

// Kind names the populated variant, first match wins.
func (m *ClientMessage) Kind() string {
	switch {
	case m == nil:
		return KindUnknown
	case m.Handshake != nil:
		return KindHandshake
	case m.HealthPong != nil:
		return KindHealthPong
	case m.EvaluateResponse != nil:
		return KindEvaluate
	case m.GetWeightsResponse != nil:
		return KindGetWeights
	case m.TrainResponse != nil:
		return KindTrain
	case m.SendWeightsResponse != nil:
		return KindSendWeights
	case m.Error != nil:
		return KindError
	default:
		return KindUnknown
	}
}

// TensorsToWire converts named tensors to their wire form, sorted by name so
// identical weight sets always frame identically.
func TensorsToWire(tensors map[string]types.TensorData) []WireTensor {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	wire := make([]WireTensor, 0, len(names))
	for _, name := range names {
		td := tensors[name]
		wire = append(wire, WireTensor{
			Name:  name,
			Dtype: DtypeFloat32,
			Shape: td.Shape,
			Data:  td.Data,
		})
	}
	return wire
}

// TensorsFromWire decodes wire tensors into the model value type, preserving
// coordinator order. A tensor that fails validation aborts the decode.
func TensorsFromWire(wire []WireTensor) ([]types.TensorData, error) {
	tensors := make([]types.TensorData, 0, len(wire))
	for _, w := range wire {
		td := types.TensorData{Data: w.Data, Shape: w.Shape}
		if err := td.Validate(); err != nil {
			return nil, types.NewProtocolError("invalid tensor " + w.Name).WithCause(err)
		}
		tensors = append(tensors, td)
	}
	return tensors, nil
}
