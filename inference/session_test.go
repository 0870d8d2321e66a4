package inference

import (
	"context"
	"os"
	"testing"

	"github.com/nvr-ai/go-yolov5/inference/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestSelectInput(t *testing.T) {
	infos := []ort.InputOutputInfo{{
		Name:       "images",
		DataType:   ort.TensorElementDataTypeFloat,
		Dimensions: ort.NewShape(-1, 3, -1, -1),
	}}

	_, err := selectInput(infos, Config{})
	assert.ErrorContains(t, err, "dynamic size")

	in, err := selectInput(infos, Config{InputWidth: 640, InputHeight: 480})
	require.NoError(t, err)
	assert.Equal(t, ort.NewShape(1, 3, 480, 640), in.Dimensions)
	assert.Equal(t, ort.NewShape(-1, 3, -1, -1), infos[0].Dimensions, "model info is not modified")

	_, err = selectInput(infos, Config{InputName: "input"})
	assert.ErrorContains(t, err, "no input")
}

func TestSelectOutputs(t *testing.T) {
	infos := []ort.InputOutputInfo{
		{Name: "p3", DataType: ort.TensorElementDataTypeFloat, Dimensions: ort.NewShape(1, 3, 80, 80, 85)},
		{Name: "p4", DataType: ort.TensorElementDataTypeFloat, Dimensions: ort.NewShape(1, 3, 40, 40, 85)},
		{Name: "p5", DataType: ort.TensorElementDataTypeFloat, Dimensions: ort.NewShape(1, 3, 20, 20, 85)},
	}

	all, err := selectOutputs(infos, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	picked, err := selectOutputs(infos, []string{"p5", "p3"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "p5", picked[0].Name)

	_, err = selectOutputs(infos, []string{"p6"})
	assert.Error(t, err)

	infos[1].Dimensions = ort.NewShape(1, 3, -1, -1, 85)
	_, err = selectOutputs(infos, nil)
	assert.ErrorContains(t, err, "dynamic shape")
}

// TestSessionRun needs the onnxruntime library and an exported YOLOv5 model
// with raw head outputs; it is skipped otherwise.
func TestSessionRun(t *testing.T) {
	model := os.Getenv("YOLOV5_MODEL")
	if model == "" {
		t.Skip("YOLOV5_MODEL not set")
	}
	lib, err := providers.GetSharedLibPath()
	require.NoError(t, err)
	if _, err := os.Stat(lib); err != nil {
		t.Skipf("onnxruntime library not available: %v", err)
	}

	s, err := NewSession(Config{ModelPath: model, InputWidth: 640, InputHeight: 640}, nil)
	require.NoError(t, err)
	defer s.Close()

	shape := s.InputShape()
	input := make([]float32, shape[1]*shape[2]*shape[3])
	outputs, err := s.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, outputs, len(s.OutputNames()))

	_, err = s.Run(context.Background(), input[:10])
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx, input)
	assert.ErrorIs(t, err, context.Canceled)
}
