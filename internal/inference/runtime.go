package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeInitOnce sync.Once
	runtimeInitErr  error
)

// InitRuntime initializes ONNX Runtime once per process. libPath overrides the
// shared library location when non-empty.
func InitRuntime(libPath string) error {
	runtimeInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeInitErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return runtimeInitErr
}

// ShutdownRuntime releases ONNX Runtime. Call it after every session is destroyed.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// newSession opens a session that allocates tensors per call, so Run is safe to use
// from concurrent requests.
func newSession(modelPath string, md *Metadata) (*ort.DynamicAdvancedSession, error) {
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{md.InputName}, []string{md.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}
	return session, nil
}

// runSession feeds one float tensor through the session and returns a copy of the
// output.
func runSession(session *ort.DynamicAdvancedSession, inShape []int64, in []float32, outShape []int64) ([]float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(inShape...), in)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, len(outputTensor.GetData()))
	copy(out, outputTensor.GetData())
	return out, nil
}
