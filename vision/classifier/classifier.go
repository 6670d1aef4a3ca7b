// Package classifier provides local image classification on top of et.
//
// It loads a single-input, single-output classification model (input
// [1,3,H,W] float32 in NCHW layout, output [1,classes] float32 logits),
// handles image preprocessing, and returns top-k predictions.
package classifier

import (
	"bufio"
	"fmt"
	"image"
	"math"
	"os"
	"sort"

	"golang.org/x/image/draw"

	"github.com/amikos-tech/pure-executorch/et"
)

const (
	// DefaultInputSize matches the common 224x224 ImageNet preprocessing.
	DefaultInputSize = 224
)

// Standard ImageNet normalization constants.
var (
	defaultMean = [3]float32{0.485, 0.456, 0.406}
	defaultStd  = [3]float32{0.229, 0.224, 0.225}
)

// Option customizes classifier initialization.
type Option func(*config) error

type config struct {
	inputSize int
	mean      [3]float32
	std       [3]float32
	labels    []string
}

func defaultConfig() config {
	return config{
		inputSize: DefaultInputSize,
		mean:      defaultMean,
		std:       defaultStd,
	}
}

// WithInputSize sets the square input resolution the model expects.
func WithInputSize(size int) Option {
	return func(cfg *config) error {
		if size <= 0 {
			return fmt.Errorf("input size must be > 0, got %d", size)
		}
		cfg.inputSize = size
		return nil
	}
}

// WithNormalization overrides the per-channel mean and standard deviation.
func WithNormalization(mean, std [3]float32) Option {
	return func(cfg *config) error {
		for i, s := range std {
			if s == 0 {
				return fmt.Errorf("std channel %d cannot be zero", i)
			}
		}
		cfg.mean = mean
		cfg.std = std
		return nil
	}
}

// WithLabels sets class labels; predictions carry the label at the class
// index when one exists.
func WithLabels(labels []string) Option {
	return func(cfg *config) error {
		if len(labels) == 0 {
			return fmt.Errorf("labels cannot be empty")
		}
		cfg.labels = append([]string(nil), labels...)
		return nil
	}
}

// WithLabelsFile loads class labels from a file with one label per line.
func WithLabelsFile(path string) Option {
	return func(cfg *config) error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open labels file %q: %w", path, err)
		}
		defer func() {
			_ = file.Close()
		}()

		var labels []string
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			labels = append(labels, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read labels file %q: %w", path, err)
		}
		if len(labels) == 0 {
			return fmt.Errorf("labels file %q is empty", path)
		}
		cfg.labels = labels
		return nil
	}
}

// Prediction is one classified result.
type Prediction struct {
	Index int
	Label string
	Score float32
}

// Classifier runs an image classification model.
//
// The caller must initialize the native runtime (et.Initialize or
// et.InitializeWithBootstrap) before calling New.
type Classifier struct {
	module    *et.Module
	inputSize int
	mean      [3]float32
	std       [3]float32
	labels    []string
}

// New loads the classification model at modelPath.
func New(modelPath string, opts ...Option) (*Classifier, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("model path cannot be empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model path %q is not usable: %w", modelPath, err)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	module, err := et.LoadModuleFromFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", modelPath, err)
	}

	return &Classifier{
		module:    module,
		inputSize: cfg.inputSize,
		mean:      cfg.mean,
		std:       cfg.std,
		labels:    cfg.labels,
	}, nil
}

// Classify preprocesses img, runs the model, and returns the top k
// predictions ordered by descending score (softmax over the logits).
func (c *Classifier) Classify(img image.Image, k int) ([]Prediction, error) {
	if c == nil || c.module == nil {
		return nil, fmt.Errorf("classifier is closed")
	}
	if img == nil {
		return nil, fmt.Errorf("image cannot be nil")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be > 0, got %d", k)
	}

	input, err := c.preprocess(img)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = input.Destroy()
	}()

	outputs, err := c.module.Forward([]*et.Tensor{input})
	if err != nil {
		return nil, fmt.Errorf("forward pass failed: %w", err)
	}
	defer et.DestroyTensors(outputs)

	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 output tensor, got %d", len(outputs))
	}
	logits := outputs[0].Float32s()
	if logits == nil {
		return nil, fmt.Errorf("expected float32 output, got %s", outputs[0].Dtype())
	}

	scores := softmax(logits)
	return c.topK(scores, k), nil
}

// Close releases the underlying model handle.
func (c *Classifier) Close() error {
	if c == nil || c.module == nil {
		return nil
	}
	err := c.module.Destroy()
	c.module = nil
	return err
}

// preprocess resizes img to the model resolution and converts it to a
// normalized NCHW float32 tensor of shape [1,3,size,size].
func (c *Classifier) preprocess(img image.Image) (*et.Tensor, error) {
	size := c.inputSize

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, img.Bounds(), draw.Src, nil)

	planeLen := size * size
	data := make([]float32, 3*planeLen)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			offset := rgba.PixOffset(x, y)
			idx := y*size + x
			for ch := 0; ch < 3; ch++ {
				v := float32(rgba.Pix[offset+ch]) / 255.0
				data[ch*planeLen+idx] = (v - c.mean[ch]) / c.std[ch]
			}
		}
	}

	return et.NewTensorOf(data, et.NewShape(1, 3, int64(size), int64(size)))
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	scores := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		scores[i] = float32(e)
		sum += e
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
	return scores
}

func (c *Classifier) topK(scores []float32, k int) []Prediction {
	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if k > len(indices) {
		k = len(indices)
	}

	predictions := make([]Prediction, 0, k)
	for _, idx := range indices[:k] {
		p := Prediction{Index: idx, Score: scores[idx]}
		if idx < len(c.labels) {
			p.Label = c.labels[idx]
		}
		predictions = append(predictions, p)
	}
	return predictions
}
