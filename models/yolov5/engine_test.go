package yolov5

import (
	"image"
	"sync"
	"testing"

	"github.com/nvr-ai/go-yolov5/images"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestEngine_SingleDetection(t *testing.T) {
	engine, err := NewEngine(tinyConfig())
	require.NoError(t, err)

	outputs := tinyOutputs()
	setRow(t, outputs[0], 0, 0, 0, 0, 0, 0, 0, 10, 10)

	dets, err := engine.Detect(outputs, DefaultDetectOptions())
	require.NoError(t, err)
	require.Equal(t, 1, dets.Len())

	// Pixel box (-1, -2.5, 9, 10.5) over a 16x16 input.
	assert.Equal(t, [4]float32{0, 0, 9.0 / 16, 10.5 / 16}, dets.Boxes[0])
	assert.InDelta(t, 0.9999546, dets.Scores[0], 1e-6)
	assert.Equal(t, 0, dets.ClassIDs[0])

	results := dets.Results()
	require.Len(t, results, 1)
	assert.Equal(t, images.Rect{X1: 0, Y1: 0, X2: 9.0 / 16, Y2: 10.5 / 16}, results[0].Box)
}

func TestEngine_DefaultModelSize(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	outputs := []*tensor.Dense{
		rawOutput(3, 80, 80, 85, -10),
		rawOutput(3, 40, 40, 85, -10),
		rawOutput(3, 20, 20, 85, -10),
	}
	_, err = engine.Detect(outputs, DefaultDetectOptions())
	assert.ErrorIs(t, err, ErrNoDetectionsFound, "large negative objectness leaves nothing")

	// Two wide boxes on adjacent stride-8 cells overlap with IoU ~0.65; the
	// tie goes to the first row. A large P5 box barely overlaps them.
	logits := make([]float32, 85)
	logits[2], logits[3] = 3, 3
	logits[4] = 8
	logits[5+16] = 6
	setRow(t, outputs[0], 0, 10, 10, logits...)
	setRow(t, outputs[0], 0, 10, 11, logits...)
	logits[2], logits[3] = 0, 0
	logits[5+16] = 0
	logits[5+2] = 4
	setRow(t, outputs[2], 2, 5, 5, logits...)

	dets, err := engine.Detect(outputs, DefaultDetectOptions())
	require.NoError(t, err)
	require.Equal(t, 2, dets.Len())
	assert.Equal(t, []int{16, 2}, dets.ClassIDs)
	assert.Greater(t, dets.Scores[0], dets.Scores[1])
	for _, b := range dets.Boxes {
		for _, v := range b {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
	}
}

func TestEngine_ThresholdsFromOptions(t *testing.T) {
	engine := MustNewEngine(tinyConfig())
	outputs := tinyOutputs()
	setRow(t, outputs[0], 0, 0, 0, 0, 0, 0, 0, 0, 3)
	setRow(t, outputs[1], 0, 0, 0, 0, 0, 0, 0, 0, 2)

	opts := DefaultDetectOptions()
	opts.ConfidenceThreshold = 0.5
	_, err := engine.Detect(outputs, opts)
	assert.True(t, IsNoDetections(err), "objectness of exactly 0.5 is not above 0.5")

	opts.ConfidenceThreshold = 0.4
	dets, err := engine.Detect(outputs, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, dets.Len(), "identical boxes across levels collapse")

	opts.NMS.IoUThreshold = 1
	dets, err = engine.Detect(outputs, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, dets.Len())
}

func TestEngine_ZeroDetectOptions(t *testing.T) {
	engine := MustNewEngine(tinyConfig())
	outputs := tinyOutputs()

	_, err := engine.Detect(outputs, DefaultDetectOptions())
	assert.True(t, IsNoDetections(err))

	// Every row has positive objectness, and the identical boxes the three
	// levels predict for a cell collapse at an IoU threshold of zero.
	dets, err := engine.Detect(outputs, DetectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, dets.Len())
}

func TestEngine_KeepRatio(t *testing.T) {
	engine := MustNewEngine(tinyConfig())
	outputs := tinyOutputs()
	setRow(t, outputs[0], 0, 0, 1, 0, 0, 0, 0, 10, 10)

	opts := DefaultDetectOptions()
	opts.SourceSize = image.Pt(200, 100)
	opts.KeepRatio = true
	dets, err := engine.Detect(outputs, opts)
	require.NoError(t, err)
	require.Equal(t, 1, dets.Len())

	// Pixel box (7, -2.5, 17, 10.5): y is measured against the unpadded half.
	assert.Equal(t, [4]float32{7.0 / 16, 0, 1, 1}, dets.Boxes[0])
}

func TestEngine_InvalidInputShape(t *testing.T) {
	engine := MustNewEngine(tinyConfig())

	_, err := engine.Detect(tinyOutputs()[:2], DefaultDetectOptions())
	assert.ErrorIs(t, err, ErrInvalidInputShape)

	outputs := tinyOutputs()
	outputs[1] = rawOutput(1, 2, 2, 7, 0)
	_, err = engine.Detect(outputs, DefaultDetectOptions())
	assert.ErrorIs(t, err, ErrInvalidInputShape)
	assert.Contains(t, err.Error(), "level 1")
}

func TestEngine_ConfigurationNotSet(t *testing.T) {
	var engine Engine
	assert.Nil(t, engine.Snapshot())

	_, err := engine.Detect(tinyOutputs(), DefaultDetectOptions())
	assert.ErrorIs(t, err, ErrConfigurationNotSet)

	// A zero engine configures with the default strides and anchors.
	s, err := engine.Configure(640, 640, 80)
	require.NoError(t, err)
	assert.Equal(t, DefaultStrides(), s.Config().Strides)
	assert.Same(t, s, engine.Snapshot())
}

func TestEngine_Configure(t *testing.T) {
	engine := MustNewEngine(DefaultConfig())
	first := engine.Snapshot()
	require.NotNil(t, first)
	assert.Len(t, first.Config().Labels, 80)

	s, err := engine.Configure(320, 256, 3)
	require.NoError(t, err)
	assert.Empty(t, s.Config().Labels, "labels no longer match the class count")
	assert.Equal(t, []int{32, 40, 1, 2}, []int(s.Grid(0).Shape()))
	assert.Equal(t, []int{8, 10, 1, 2}, []int(s.Grid(2).Shape()))

	// The first snapshot is untouched.
	assert.Equal(t, 640, first.Config().InputWidth)
	assert.Equal(t, []int{80, 80, 1, 2}, []int(first.Grid(0).Shape()))

	_, err = engine.Configure(16, 16, 80)
	assert.ErrorIs(t, err, ErrInvalidConfig, "stride 32 does not fit in 16 pixels")
	_, err = engine.Configure(640, 640, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Same(t, s, engine.Snapshot(), "failed configure keeps the snapshot")
}

func TestEngine_GridIsCopied(t *testing.T) {
	engine := MustNewEngine(tinyConfig())
	grid := engine.Snapshot().Grid(0)
	grid.Data().([]float32)[0] = 42

	again := engine.Snapshot().Grid(0)
	assert.Equal(t, float32(0), again.Data().([]float32)[0])
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := tinyConfig()
	cfg.Labels = []string{"a", "b"}
	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Panics(t, func() { MustNewEngine(Config{}) })
}

func TestEngine_LogsDetect(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	engine, err := NewEngine(tinyConfig(), WithLogger(logger))
	require.NoError(t, err)

	outputs := tinyOutputs()
	setRow(t, outputs[0], 0, 0, 0, 0, 0, 0, 0, 10, 10)
	_, err = engine.Detect(outputs, DefaultDetectOptions())
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "yolov5 detect", entry.Message)
	assert.Equal(t, 12, entry.Data["rows"])
	assert.Equal(t, 1, entry.Data["kept"])
}

func TestEngine_ConcurrentDetectAndConfigure(t *testing.T) {
	engine := MustNewEngine(tinyConfig())
	outputs := tinyOutputs()
	setRow(t, outputs[0], 0, 1, 1, 0, 0, 0, 0, 10, 10)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := engine.Detect(outputs, DefaultDetectOptions()); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			if _, err := engine.Configure(16, 16, 1); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func BenchmarkDetect(b *testing.B) {
	engine := MustNewEngine(DefaultConfig())
	outputs := []*tensor.Dense{
		rawOutput(3, 80, 80, 85, -4),
		rawOutput(3, 40, 40, 85, -4),
		rawOutput(3, 20, 20, 85, -4),
	}
	data := outputs[0].Data().([]float32)
	for i := 4; i < len(data); i += 85 * 97 {
		data[i] = 2
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Detect(outputs, DefaultDetectOptions()); err != nil {
			b.Fatal(err)
		}
	}
}
