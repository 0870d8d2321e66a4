// Command yolov5 runs a YOLOv5 ONNX model on images, raw input tensors or a
// camera and prints the post-processed detections.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/nvr-ai/go-yolov5/inference"
	"github.com/nvr-ai/go-yolov5/inference/providers"
	"github.com/nvr-ai/go-yolov5/models/yolov5"
	"github.com/nvr-ai/go-yolov5/profiler"
	"github.com/nvr-ai/go-yolov5/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type options struct {
	model     string
	config    string
	library   string
	provider  string
	image     string
	raw       string
	dir       string
	camera    int
	out       string
	conf      float64
	iou       float64
	keepRatio bool
	verbose   bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("yolov5", flag.ContinueOnError)
	fs.StringVar(&o.model, "model", "yolov5s.onnx", "Path to the YOLOv5 ONNX model")
	fs.StringVar(&o.config, "config", "", "Optional YAML model config (input size, classes, anchors, labels)")
	fs.StringVar(&o.library, "lib", "", "Path to the onnxruntime shared library")
	fs.StringVar(&o.provider, "provider", "cpu", "Execution provider: cpu, cuda, coreml or openvino")
	fs.StringVar(&o.image, "image", "", "Image file to run detection on (.jpg, .png, .webp)")
	fs.StringVar(&o.raw, "raw", "", "Raw little-endian float32 input tensor (1, 3, H, W)")
	fs.StringVar(&o.dir, "dir", "", "Directory of images to process in frame order")
	fs.IntVar(&o.camera, "camera", -1, "Video capture device to run on, -1 disables")
	fs.StringVar(&o.out, "out", "", "Annotated output file, or directory with -dir")
	fs.Float64Var(&o.conf, "conf", 0.25, "Objectness threshold")
	fs.Float64Var(&o.iou, "iou", 0.45, "NMS IoU threshold")
	fs.BoolVar(&o.keepRatio, "keep-ratio", false, "Pad images to a square before resizing")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	inputs := 0
	for _, set := range []bool{o.image != "", o.raw != "", o.dir != "", o.camera >= 0} {
		if set {
			inputs++
		}
	}
	if inputs != 1 {
		return o, errors.New("exactly one of -image, -raw, -dir or -camera is required")
	}
	if o.conf < 0 || o.conf > 1 || o.iou < 0 || o.iou > 1 {
		return o, errors.Errorf("thresholds must be in [0, 1], got conf=%v iou=%v", o.conf, o.iou)
	}
	return o, nil
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func loadModelConfig(path string) (yolov5.Config, error) {
	if path == "" {
		return yolov5.DefaultConfig(), nil
	}
	return yolov5.LoadConfig(path)
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(o.verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.WithError(err).Fatal("yolov5 failed")
	}
}

func run(ctx context.Context, o options, logger *logrus.Logger) error {
	cfg, err := loadModelConfig(o.config)
	if err != nil {
		return err
	}
	engine, err := yolov5.NewEngine(cfg, yolov5.WithLogger(logger))
	if err != nil {
		return err
	}

	session, err := inference.NewSession(inference.Config{
		ModelPath:   o.model,
		LibraryPath: o.library,
		InputWidth:  cfg.InputWidth,
		InputHeight: cfg.InputHeight,
		Provider:    providers.Config{Backend: providers.ProviderBackend(o.provider)},
	}, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	d := &detector{
		session: session,
		engine:  engine,
		labels:  cfg.Labels,
		logger:  logger,
		opts:    detectOptions(o),
		prof:    profiler.New(0),
	}
	defer d.prof.Report(logger)

	switch {
	case o.raw != "":
		return d.runRaw(ctx, o.raw, cfg)
	case o.image != "":
		return d.runImage(ctx, o.image, o.out)
	case o.dir != "":
		return runDir(ctx, d, o.dir, o.out)
	default:
		return d.runCamera(ctx, o.camera)
	}
}

func runDir(ctx context.Context, d *detector, dir, out string) error {
	files, err := util.ListImageFiles(dir)
	if err != nil {
		return err
	}
	if out != "" {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return errors.Wrapf(err, "create output directory %s", out)
		}
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := ""
		if out != "" {
			dst = filepath.Join(out, filepath.Base(f.Path))
		}
		if err := d.runImage(ctx, f.Path, dst); err != nil {
			d.logger.WithError(err).WithField("file", f.Path).Error("detection failed")
		}
	}
	return nil
}
