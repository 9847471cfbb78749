// garmentnet.go GarmentNet model specific code
package garmentnet

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/errors"
	"github.com/jhelttu/closet-go/internal/labels"
	"github.com/jhelttu/closet-go/internal/logging"
	tflite "github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"
)

const (
	// InputDim is the fixed square input dimension the model was trained
	// with. Not a free parameter.
	InputDim = 60

	// NumHeads is the number of classification heads, one per attribute group.
	NumHeads = 6
)

// Predictor abstracts the numeric inference kernel: one normalized image
// tensor in NHWC layout in, six probability vectors out, ordered as
// labels.Attributes.
type Predictor interface {
	Predict(input []float32) ([][]float32, error)
}

// GarmentNet wraps a Predictor and a label table to turn decoded images
// into attribute labels.
type GarmentNet struct {
	predictor Predictor
	table     *labels.Table
	settings  *conf.Settings
	log       *slog.Logger
}

// New creates a GarmentNet around an already constructed predictor.
// The label table is shared read-only across concurrent calls.
func New(settings *conf.Settings, table *labels.Table, predictor Predictor) *GarmentNet {
	log := logging.ForService("garmentnet")
	if log == nil {
		log = slog.Default()
	}
	return &GarmentNet{
		predictor: predictor,
		table:     table,
		settings:  settings,
		log:       log,
	}
}

// NewTFLite creates a GarmentNet backed by a TensorFlow Lite interpreter
// loaded from the model path in settings.
func NewTFLite(settings *conf.Settings, table *labels.Table) (*GarmentNet, error) {
	predictor, err := newTFLitePredictor(settings, table)
	if err != nil {
		return nil, err
	}
	return New(settings, table, predictor), nil
}

// tflitePredictor drives the multi-head TFLite interpreter. The interpreter
// is not safe for concurrent invocation, so calls are serialized.
type tflitePredictor struct {
	interpreter *tflite.Interpreter
	headSizes   []int
	mu          sync.Mutex
}

func newTFLitePredictor(settings *conf.Settings, table *labels.Table) (*tflitePredictor, error) {
	modelPath := settings.GarmentNet.ModelPath
	modelData, err := os.ReadFile(modelPath) //nolint:gosec // G304: modelPath is from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("garmentnet").
			Category(errors.CategoryModelLoad).
			Context("model_path", modelPath).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model from %s", modelPath).
			Component("garmentnet").
			Category(errors.CategoryModelInit).
			Context("model_size_mb", len(modelData)/1024/1024).
			Build()
	}

	threads := determineThreadCount(settings.GarmentNet.Threads)
	options := tflite.NewInterpreterOptions()

	log := logging.ForService("garmentnet")
	if log == nil {
		log = slog.Default()
	}

	// Try to use XNNPACK delegate if enabled in settings
	if settings.GarmentNet.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: thread count bounded by CPU count, safe conversion
		if delegate == nil {
			log.Warn("Failed to create XNNPACK delegate, falling back to default CPU")
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}

	options.SetErrorReporter(func(msg string, userData any) {
		slog.Default().Error("TFLite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, errors.Newf("cannot create TensorFlow Lite interpreter").
			Component("garmentnet").
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, errors.Newf("tensor allocation failed").
			Component("garmentnet").
			Category(errors.CategoryModelInit).
			Build()
	}

	p := &tflitePredictor{interpreter: interpreter}
	if err := p.validateAgainstLabels(table); err != nil {
		return nil, err
	}

	// The model data is no longer needed, TFLite keeps its own copy.
	runtime.GC()

	log.Info("GarmentNet model initialized",
		"model_path", modelPath,
		"threads", threads,
		"total_cpus", runtime.NumCPU())
	return p, nil
}

// validateAgainstLabels checks that every model head matches the size of
// its attribute group before the first inference.
func (p *tflitePredictor) validateAgainstLabels(table *labels.Table) error {
	count := p.interpreter.GetOutputTensorCount()
	if count != NumHeads {
		return errors.Newf("model has %d output tensors, want %d", count, NumHeads).
			Component("garmentnet").
			Category(errors.CategoryModelInit).
			Build()
	}
	p.headSizes = make([]int, NumHeads)
	for i, attr := range labels.Attributes {
		tensor := p.interpreter.GetOutputTensor(i)
		size := tensor.Dim(tensor.NumDims() - 1)
		if size != table.Size(attr) {
			return errors.Newf("model head %d emits %d classes, label group %q has %d", i, size, attr, table.Size(attr)).
				Component("garmentnet").
				Category(errors.CategoryModelInit).
				Build()
		}
		p.headSizes[i] = size
	}
	return nil
}

// Predict performs inference on a normalized image tensor and returns the
// six probability vectors in head order.
func (p *tflitePredictor) Predict(input []float32) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inputTensor := p.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	copy(inputTensor.Float32s(), input)

	if status := p.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	out := make([][]float32, NumHeads)
	for i := range NumHeads {
		tensor := p.interpreter.GetOutputTensor(i)
		if tensor == nil {
			return nil, fmt.Errorf("cannot get output tensor %d", i)
		}
		out[i] = extractPredictions(tensor)
	}
	return out, nil
}

// extractPredictions copies prediction results out of a TFLite tensor.
func extractPredictions(tensor *tflite.Tensor) []float32 {
	predSize := tensor.Dim(tensor.NumDims() - 1)
	predictions := make([]float32, predSize)
	copy(predictions, tensor.Float32s())
	return predictions
}

// determineThreadCount returns the interpreter thread count, defaulting to
// all CPUs when unset.
func determineThreadCount(configured int) int {
	if configured > 0 && configured <= runtime.NumCPU() {
		return configured
	}
	return runtime.NumCPU()
}
