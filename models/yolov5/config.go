// Package yolov5 - configuration of the YOLOv5 post-processing engine.
package yolov5

import (
	"os"

	"github.com/nvr-ai/go-yolov5/models"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes the model whose raw outputs are post-processed.
type Config struct {
	// Name of the model for logging purposes.
	Name string `json:"name" yaml:"name"`
	// InputWidth is the width of the model input in pixels.
	InputWidth int `json:"inputWidth" yaml:"inputWidth"`
	// InputHeight is the height of the model input in pixels.
	InputHeight int `json:"inputHeight" yaml:"inputHeight"`
	// NumClasses is the number of class scores per prediction.
	NumClasses int `json:"numClasses" yaml:"numClasses"`
	// Strides holds the downsampling factor of each level, finest first.
	Strides []float32 `json:"strides" yaml:"strides"`
	// Anchors holds the anchor set of each level, in the same order as Strides.
	Anchors [][]Anchor `json:"anchors" yaml:"anchors"`
	// Labels optionally names each class. Empty or NumClasses long.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// DefaultConfig returns the configuration of a COCO-trained YOLOv5 model with
// a 640x640 input.
//
// Returns:
//   - Config: 640x640 input, 80 classes, default strides and anchors, COCO labels.
//
// @example
// cfg := DefaultConfig()
// cfg.InputWidth, cfg.InputHeight = 416, 416
// engine, err := NewEngine(cfg)
func DefaultConfig() Config {
	return Config{
		Name:        "yolov5",
		InputWidth:  640,
		InputHeight: 640,
		NumClasses:  80,
		Strides:     DefaultStrides(),
		Anchors:     DefaultAnchors(),
		Labels:      models.YOLOClasses.Names(),
	}
}

// FeatureLength returns the number of channels per prediction row: four box
// parameters, objectness and one score per class.
func (c Config) FeatureLength() int {
	return c.NumClasses + 5
}

// Validate checks the configuration invariants.
//
// Returns:
//   - error: ErrInvalidConfig describing the first violated invariant.
func (c Config) Validate() error {
	if c.NumClasses < 1 {
		return errors.Wrapf(ErrInvalidConfig, "numClasses must be at least 1, got %d", c.NumClasses)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if len(c.Labels) != 0 && len(c.Labels) != c.NumClasses {
		return errors.Wrapf(ErrInvalidConfig, "got %d labels for %d classes", len(c.Labels), c.NumClasses)
	}

	table, err := NewAnchorTable(c.Strides, c.Anchors)
	if err != nil {
		return err
	}
	for level := 0; level < NumLevels; level++ {
		nx, ny := table.GridSize(level, c.InputWidth, c.InputHeight)
		if nx < 1 || ny < 1 {
			return errors.Wrapf(ErrInvalidConfig, "level %d: input %dx%d is smaller than stride %v",
				level, c.InputWidth, c.InputHeight, table.Strides[level])
		}
	}

	return nil
}

// Label returns the name of a class, or an empty string when the
// configuration has no labels or the id is out of range.
func (c Config) Label(classID int) string {
	if classID < 0 || classID >= len(c.Labels) {
		return ""
	}
	return c.Labels[classID]
}

func (c Config) clone() Config {
	out := c
	out.Strides = append([]float32(nil), c.Strides...)
	out.Anchors = make([][]Anchor, len(c.Anchors))
	for i, set := range c.Anchors {
		out.Anchors[i] = append([]Anchor(nil), set...)
	}
	out.Labels = append([]string(nil), c.Labels...)
	return out
}

// ParseConfig decodes a YAML configuration on top of DefaultConfig and
// validates the result. Fields missing from the document keep their defaults;
// labels fall back to the COCO names only for an 80 class model.
//
// Arguments:
//   - data: The YAML document.
//
// Returns:
//   - Config: The merged configuration.
//   - error: A decoding error or ErrInvalidConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.Labels = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode model config")
	}

	// COCO names only apply when the class count still matches them.
	if len(cfg.Labels) == 0 && cfg.NumClasses == len(models.YOLOClasses.Classes) {
		cfg.Labels = models.YOLOClasses.Names()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file. See ParseConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read model config %s", path)
	}
	return ParseConfig(data)
}
