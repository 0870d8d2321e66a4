package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/nvr-ai/go-yolov5/images"
	"github.com/nvr-ai/go-yolov5/images/annotate"
	"github.com/nvr-ai/go-yolov5/images/codec"
	"github.com/nvr-ai/go-yolov5/inference"
	"github.com/nvr-ai/go-yolov5/models/postprocess"
	"github.com/nvr-ai/go-yolov5/models/yolov5"
	"github.com/nvr-ai/go-yolov5/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// detector runs one image at a time through the session and the engine.
type detector struct {
	session *inference.Session
	engine  *yolov5.Engine
	labels  []string
	logger  logrus.FieldLogger
	opts    yolov5.DetectOptions
	prof    *profiler.Profiler
	stdout  io.Writer
}

func detectOptions(o options) yolov5.DetectOptions {
	opts := yolov5.DefaultDetectOptions()
	opts.ConfidenceThreshold = float32(o.conf)
	opts.NMS.IoUThreshold = float32(o.iou)
	opts.KeepRatio = o.keepRatio
	return opts
}

// infer runs the model on a prepared input and post-processes the outputs.
// No detections is not an error: the result is empty.
func (d *detector) infer(ctx context.Context, input []float32, opts yolov5.DetectOptions) (*yolov5.Detections, error) {
	done := d.prof.StartOperation("inference")
	outputs, err := d.session.Run(ctx, input)
	if err != nil {
		return nil, err
	}
	inferred := done()

	done = d.prof.StartOperation("postprocess")
	dets, err := d.engine.Detect(outputs, opts)
	if yolov5.IsNoDetections(err) {
		dets, err = &yolov5.Detections{}, nil
	}
	if err != nil {
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"inference":   inferred,
		"postprocess": done(),
		"detections":  dets.Len(),
	}).Debug("frame processed")
	return dets, nil
}

func (d *detector) detectImage(ctx context.Context, img image.Image) (*yolov5.Detections, error) {
	cfg := d.engine.Snapshot().Config()
	input, err := images.PrepareInput(img, cfg.InputWidth, cfg.InputHeight, d.opts.KeepRatio)
	if err != nil {
		return nil, err
	}

	opts := d.opts
	opts.SourceSize = img.Bounds().Size()
	return d.infer(ctx, input.Data().([]float32), opts)
}

func (d *detector) runImage(ctx context.Context, path, out string) error {
	img, err := codec.Load(path)
	if err != nil {
		return err
	}
	dets, err := d.detectImage(ctx, img)
	if err != nil {
		return errors.Wrap(err, path)
	}
	d.print(path, dets)

	if out == "" || dets.Len() == 0 {
		return nil
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "convert image for drawing")
	}
	defer mat.Close()

	annotate.Draw(&mat, dets.Results(), d.labels)
	if !gocv.IMWrite(out, mat) {
		return errors.Errorf("write annotated image %s", out)
	}
	d.logger.WithField("file", out).Info("wrote annotated image")
	return nil
}

func (d *detector) runRaw(ctx context.Context, path string, cfg yolov5.Config) error {
	input, err := inference.ReadRawTensor(path, 1, 3, cfg.InputHeight, cfg.InputWidth)
	if err != nil {
		return err
	}
	dets, err := d.infer(ctx, input.Data().([]float32), d.opts)
	if err != nil {
		return err
	}
	d.print(path, dets)
	return nil
}

func (d *detector) print(source string, dets *yolov5.Detections) {
	w := d.stdout
	if w == nil {
		w = os.Stdout
	}
	printDetections(w, source, dets.Results(), d.labels)
}

func printDetections(w io.Writer, source string, results []postprocess.Result, labels []string) {
	if len(results) == 0 {
		fmt.Fprintf(w, "%s: no objects found\n", source)
		return
	}
	fmt.Fprintf(w, "%s: %d objects\n", source, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %-20s box=(%.4f, %.4f, %.4f, %.4f)\n",
			annotate.Label(labels, r.Class, r.Score), r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
	}
}
