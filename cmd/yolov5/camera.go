package main

import (
	"context"

	"github.com/nvr-ai/go-yolov5/images/annotate"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// runCamera detects on every frame of a capture device and shows the
// annotated frames until the window is closed, ESC or q is pressed, or ctx
// is done.
func (d *detector) runCamera(ctx context.Context, deviceID int) error {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return errors.Wrapf(err, "open capture device %d", deviceID)
	}
	defer webcam.Close()

	window := gocv.NewWindow("yolov5")
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	d.logger.WithField("device", deviceID).Info("reading camera")
	for ctx.Err() == nil {
		if ok := webcam.Read(&frame); !ok {
			return errors.Errorf("cannot read device %d", deviceID)
		}
		if frame.Empty() {
			continue
		}

		img, err := frame.ToImage()
		if err != nil {
			return errors.Wrap(err, "convert frame")
		}
		dets, err := d.detectImage(ctx, img)
		if err != nil {
			return err
		}
		annotate.Draw(&frame, dets.Results(), d.labels)

		window.IMShow(frame)
		if key := window.WaitKey(1); key == 27 || key == 'q' {
			return nil
		}
	}
	return nil
}
