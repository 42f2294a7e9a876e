package model

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

type Options struct {
	ModelPath   string
	LibraryPath string
	Metadata    Metadata
}

// Handle owns one ONNX Runtime session and its pre-allocated tensors.
// Build it once at startup and share it; Predict serializes runs.
type Handle struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewHandle(opts Options) (*Handle, error) {
	if err := opts.Metadata.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model metadata")
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX environment")
	}

	metadata := opts.Metadata
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, errors.Wrapf(err, "failed to create ONNX session from %s", opts.ModelPath)
	}

	return &Handle{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Input reports the image geometry the model expects.
func (h *Handle) Input() Input {
	return h.Metadata.Input()
}

func (h *Handle) Predict(inputData []float32) (*Prediction, error) {
	if want := h.Metadata.InputSize(); len(inputData) != want {
		return nil, errors.Errorf("expected %d input values, got %d", want, len(inputData))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	copy(h.inputTensor.GetData(), inputData)
	if err := h.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	scores := make([]float32, len(h.outputTensor.GetData()))
	copy(scores, h.outputTensor.GetData())

	idx, conf := Argmax(scores)
	return &Prediction{Index: idx, Confidence: conf, Scores: scores}, nil
}

func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inputTensor != nil {
		h.inputTensor.Destroy()
		h.inputTensor = nil
	}
	if h.outputTensor != nil {
		h.outputTensor.Destroy()
		h.outputTensor = nil
	}
	if h.session != nil {
		h.session.Destroy()
		h.session = nil
	}
	ort.DestroyEnvironment()
}

// Argmax returns the index and value of the highest score, or -1 for no scores.
func Argmax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}
	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores[1:] {
		if val > maxVal {
			maxVal = val
			maxIdx = i + 1
		}
	}
	return maxIdx, maxVal
}
