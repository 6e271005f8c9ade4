package types

import "fmt"

// TensorData is a model weight tensor: a raw byte payload plus an ordered
// shape. The client moves tensor bytes between the coordinator and the user
// operations without interpreting them.
type TensorData struct {
	Data  []byte  `json:"data"`
	Shape []int64 `json:"shape"`
}

// Size returns the number of elements described by the shape, zero when the
// shape is empty.
func (t TensorData) Size() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	size := int64(1)
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

// Validate checks that the tensor carries content, a shape, and only
// positive dimensions.
func (t TensorData) Validate() error {
	if len(t.Data) == 0 {
		return fmt.Errorf("tensor data is empty")
	}
	if len(t.Shape) == 0 {
		return fmt.Errorf("tensor shape is empty")
	}
	for i, dim := range t.Shape {
		if dim <= 0 {
			return fmt.Errorf("tensor shape dimension %d is %d, must be positive", i, dim)
		}
	}
	return nil
}
