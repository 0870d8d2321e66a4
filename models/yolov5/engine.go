// Package yolov5 - post-processing engine for YOLOv5 detection heads.
package yolov5

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-yolov5/models/postprocess"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// Engine turns the three raw output tensors of a YOLOv5 model into
// detections. Configure publishes an immutable Snapshot; Detect runs against
// whichever snapshot is current, so Detect and Configure may be called from
// different goroutines.
//
// The zero value is usable but unconfigured: Detect returns
// ErrConfigurationNotSet until Configure succeeds.
type Engine struct {
	mu       sync.Mutex
	base     Config
	logger   logrus.FieldLogger
	snapshot atomic.Pointer[Snapshot]
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-call debug fields.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewEngine validates cfg and configures the engine for its input size and
// class count.
//
// Arguments:
//   - cfg: The model configuration, usually DefaultConfig or LoadConfig.
//   - opts: Optional settings such as WithLogger.
//
// Returns:
//   - *Engine: A configured engine.
//   - error: ErrInvalidConfig if cfg is rejected.
//
// @example
// engine, err := NewEngine(DefaultConfig())
// dets, err := engine.Detect(outputs, DefaultDetectOptions())
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{base: cfg.clone()}
	for _, opt := range opts {
		opt(e)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := e.Configure(cfg.InputWidth, cfg.InputHeight, cfg.NumClasses); err != nil {
		return nil, err
	}
	return e, nil
}

// MustNewEngine is NewEngine that panics on error.
func MustNewEngine(cfg Config, opts ...Option) *Engine {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) log() logrus.FieldLogger {
	if e.logger == nil {
		e.logger = discardLogger()
	}
	return e.logger
}

// Configure rebuilds the grids for a new input size and class count and
// publishes them as the current snapshot. Strides and anchors come from the
// engine configuration, or the defaults for a zero Engine. Labels are kept
// only when their count still matches numClasses.
//
// A failed Configure leaves the current snapshot in place.
//
// Arguments:
//   - width: The model input width in pixels.
//   - height: The model input height in pixels.
//   - numClasses: The number of class scores per prediction.
//
// Returns:
//   - *Snapshot: The published snapshot.
//   - error: ErrInvalidConfig if the new dimensions are rejected.
func (e *Engine) Configure(width, height, numClasses int) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.base.clone()
	if len(cfg.Strides) == 0 && len(cfg.Anchors) == 0 {
		cfg.Strides = DefaultStrides()
		cfg.Anchors = DefaultAnchors()
	}
	cfg.InputWidth, cfg.InputHeight, cfg.NumClasses = width, height, numClasses
	if len(cfg.Labels) != numClasses {
		cfg.Labels = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := newSnapshot(cfg, e.log())
	if err != nil {
		return nil, err
	}
	e.snapshot.Store(s)

	e.log().WithFields(logrus.Fields{
		"model":   cfg.Name,
		"width":   width,
		"height":  height,
		"classes": numClasses,
	}).Debug("configured yolov5 engine")

	return s, nil
}

// Snapshot returns the current snapshot, or nil before the first Configure.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Detect post-processes raw outputs with the current snapshot.
//
// Returns:
//   - *Detections: The detections in selection order.
//   - error: ErrConfigurationNotSet, ErrInvalidInputShape or ErrNoDetectionsFound.
func (e *Engine) Detect(outputs []*tensor.Dense, opts DetectOptions) (*Detections, error) {
	s := e.snapshot.Load()
	if s == nil {
		return nil, ErrConfigurationNotSet
	}
	return s.Detect(outputs, opts)
}

// Snapshot is an immutable configuration with its prebuilt grids.
type Snapshot struct {
	config  Config
	anchors AnchorTable
	grids   [NumLevels]*tensor.Dense
	logger  logrus.FieldLogger
}

func newSnapshot(cfg Config, logger logrus.FieldLogger) (*Snapshot, error) {
	table, err := NewAnchorTable(cfg.Strides, cfg.Anchors)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{config: cfg, anchors: table, logger: logger}
	for level := 0; level < NumLevels; level++ {
		nx, ny := table.GridSize(level, cfg.InputWidth, cfg.InputHeight)
		if s.grids[level], err = MakeGrid(nx, ny); err != nil {
			return nil, errors.Wrapf(err, "level %d", level)
		}
	}
	return s, nil
}

// Config returns a copy of the snapshot configuration.
func (s *Snapshot) Config() Config {
	return s.config.clone()
}

// Grid returns a copy of the grid of a level.
func (s *Snapshot) Grid(level int) *tensor.Dense {
	return s.grids[level].Clone().(*tensor.Dense)
}

// Detect runs the full post-processing pipeline:
// decode each level, merge, filter by objectness, convert boxes and resolve
// classes, suppress, then normalize.
//
// Arguments:
//   - outputs: Exactly three raw tensors, finest stride first.
//   - opts: Thresholds and normalization settings.
//
// Returns:
//   - *Detections: The detections in selection order.
//   - error: ErrInvalidInputShape or ErrNoDetectionsFound.
func (s *Snapshot) Detect(outputs []*tensor.Dense, opts DetectOptions) (*Detections, error) {
	if len(outputs) != NumLevels {
		return nil, errors.Wrapf(ErrInvalidInputShape, "got %d output tensors, want %d", len(outputs), NumLevels)
	}

	levels := make([][]float32, NumLevels)
	for level, raw := range outputs {
		rows, err := DecodeLevel(raw, s.grids[level], s.anchors.Anchors[level], s.anchors.Strides[level], s.config.NumClasses)
		if err != nil {
			return nil, errors.Wrapf(err, "level %d", level)
		}
		levels[level] = rows
	}

	featureLen := s.config.FeatureLength()
	merged := MergeLevels(levels...)
	filtered, err := FilterByObjectness(merged, featureLen, opts.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	candidates := ToResults(filtered, featureLen)
	nms := opts.NMS
	kept := postprocess.ApplyGreedyNMS(candidates, &nms)

	scale := NewScale(s.config.InputWidth, s.config.InputHeight, opts.SourceSize, opts.KeepRatio)
	dets := &Detections{
		Boxes:    make([][4]float32, 0, len(kept)),
		Scores:   make([]float32, 0, len(kept)),
		ClassIDs: make([]int, 0, len(kept)),
	}
	for _, r := range kept {
		dets.append(Normalize(r.Box.Array(), scale), r.Score, r.Class)
	}

	s.logger.WithFields(logrus.Fields{
		"rows":       len(merged) / featureLen,
		"candidates": len(candidates),
		"kept":       dets.Len(),
	}).Debug("yolov5 detect")

	return dets, nil
}
