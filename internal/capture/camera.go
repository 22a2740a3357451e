package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/palmpay/palmpay/internal/service"
)

// Webcam is the exclusive camera device. Acquire opens the camera and
// hands back a frame source; the device cannot be acquired again until
// that source is closed, including on cancellation and error paths.
type Webcam struct {
	deviceID int
	mu       sync.Mutex
}

// NewWebcam creates a capture device for the given camera index.
func NewWebcam(deviceID int) *Webcam {
	return &Webcam{deviceID: deviceID}
}

// Acquire implements service.CaptureDevice.
func (w *Webcam) Acquire(ctx context.Context) (service.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !w.mu.TryLock() {
		return nil, fmt.Errorf("capture device %d is already in use", w.deviceID)
	}

	cam, err := gocv.OpenVideoCapture(w.deviceID)
	if err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("failed to open capture device %d: %w", w.deviceID, err)
	}

	return &webcamSource{cam: cam, release: w.mu.Unlock}, nil
}

type webcamSource struct {
	cam      *gocv.VideoCapture
	release  func()
	closeErr error
	once     sync.Once
}

// Next blocks until the camera delivers a non-empty frame or the context
// ends. Dropped reads are retried after a short pause.
func (s *webcamSource) Next(ctx context.Context) (service.Frame, error) {
	mat := gocv.NewMat()
	defer func() { _ = mat.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.cam.Read(&mat) || mat.Empty() {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame: %w", err)
		}
		return img, nil
	}
}

// Close releases the camera and the device lock exactly once.
func (s *webcamSource) Close() error {
	s.once.Do(func() {
		s.closeErr = s.cam.Close()
		s.release()
	})
	return s.closeErr
}
