package main

import (
	"bytes"
	"testing"

	"github.com/nvr-ai/go-yolov5/images"
	"github.com/nvr-ai/go-yolov5/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-image", "dog.jpg", "-conf", "0.4", "-keep-ratio"})
	require.NoError(t, err)
	assert.Equal(t, "dog.jpg", o.image)
	assert.Equal(t, "yolov5s.onnx", o.model)

	opts := detectOptions(o)
	assert.Equal(t, float32(0.4), opts.ConfidenceThreshold)
	assert.Equal(t, float32(0.45), opts.NMS.IoUThreshold)
	assert.True(t, opts.KeepRatio)
}

func TestParseFlagsRequiresOneInput(t *testing.T) {
	_, err := parseFlags(nil)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-image", "a.jpg", "-dir", "frames"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-camera", "0", "-iou", "1.5"})
	assert.ErrorContains(t, err, "thresholds")
}

func TestLoadModelConfigDefault(t *testing.T) {
	cfg, err := loadModelConfig("")
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.InputWidth)
	assert.Len(t, cfg.Labels, 80)
}

func TestPrintDetections(t *testing.T) {
	var buf bytes.Buffer
	printDetections(&buf, "empty.jpg", nil, nil)
	assert.Equal(t, "empty.jpg: no objects found\n", buf.String())

	buf.Reset()
	printDetections(&buf, "dog.jpg", []postprocess.Result{
		{Box: images.Rect{X1: 0.1, Y1: 0.2, X2: 0.5, Y2: 0.9}, Score: 0.93, Class: 1},
	}, []string{"person", "dog"})
	assert.Contains(t, buf.String(), "dog.jpg: 1 objects")
	assert.Contains(t, buf.String(), "dog 0.93")
	assert.Contains(t, buf.String(), "box=(0.1000, 0.2000, 0.5000, 0.9000)")
}
