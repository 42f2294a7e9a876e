package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nutri-vision/internal/produce"
)

// Layout is the order of the image tensor's dimensions.
type Layout string

const (
	LayoutNHWC Layout = "NHWC"
	LayoutNCHW Layout = "NCHW"
)

type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	ImageSize   int     `json:"image_size"`
	Layout      Layout  `json:"layout"`
}

// DefaultMetadata describes the Keras produce classifier exported to ONNX.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, 224, 224, 3},
		OutputShape: []int64{1, produce.NumClasses},
		ImageSize:   224,
		Layout:      LayoutNHWC,
	}
}

// LoadMetadata reads path over the defaults. An empty path returns the defaults.
func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()
	if path == "" {
		return meta, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "read metadata")
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, errors.Wrap(err, "parse metadata")
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Validate checks that the input is one size×size RGB image in the
// declared layout and the output is one row of class scores.
func (m Metadata) Validate() error {
	if m.ImageSize <= 0 {
		return errors.Errorf("invalid image size %d", m.ImageSize)
	}

	s := int64(m.ImageSize)
	var want []int64
	switch m.Layout {
	case LayoutNHWC:
		want = []int64{1, s, s, 3}
	case LayoutNCHW:
		want = []int64{1, 3, s, s}
	default:
		return errors.Errorf("unsupported layout %q", m.Layout)
	}
	if !equalShape(m.InputShape, want) {
		return errors.Errorf("input shape %v does not match %s layout %v", m.InputShape, m.Layout, want)
	}

	if out := []int64{1, produce.NumClasses}; !equalShape(m.OutputShape, out) {
		return errors.Errorf("output shape %v, want %v", m.OutputShape, out)
	}
	return nil
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// InputSize is the number of float32 values one prediction consumes.
func (m Metadata) InputSize() int {
	if len(m.InputShape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range m.InputShape {
		size *= int(dim)
	}
	return size
}

// Input is what preprocessing needs to know about the model.
func (m Metadata) Input() Input {
	return Input{Size: m.ImageSize, Layout: m.Layout}
}

type Input struct {
	Size   int
	Layout Layout
}

type Prediction struct {
	Index      int       `json:"index"`
	Confidence float32   `json:"confidence"`
	Scores     []float32 `json:"scores"`
}
