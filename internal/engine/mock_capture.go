package engine

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
	"github.com/palmpay/palmpay/internal/service"
)

// MockDevice is an in-memory capture device for testing engine sessions
// without a camera. It enforces the same exclusive acquire/release
// semantics as the real webcam.
type MockDevice struct {
	mu       sync.Mutex
	held     bool
	Acquires int
	Releases int
}

// NewMockDevice creates an idle mock device.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// Acquire implements service.CaptureDevice.
func (d *MockDevice) Acquire(ctx context.Context) (service.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return nil, fmt.Errorf("mock capture device is already in use")
	}
	d.held = true
	d.Acquires++
	return &mockSource{device: d}, nil
}

// Held reports whether a session currently holds the device.
func (d *MockDevice) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held
}

type mockSource struct {
	device *MockDevice
	once   sync.Once
}

// Next yields a dummy frame; the paired MockExtractor decides what the
// frame "contains".
func (s *mockSource) Next(ctx context.Context) (service.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func (s *mockSource) Close() error {
	s.once.Do(func() {
		s.device.mu.Lock()
		s.device.held = false
		s.device.Releases++
		s.device.mu.Unlock()
	})
	return nil
}

// ExtractResult is one scripted extractor outcome.
type ExtractResult struct {
	Err error
	Set model.DescriptorSet
}

// MockExtractor plays back a scripted sequence of extraction outcomes,
// one per frame. Once the script is exhausted every further frame reads
// as lacking detail, so verification loops run into their deadline
// instead of spinning on stale data.
type MockExtractor struct {
	mu      sync.Mutex
	results []ExtractResult
}

// NewMockExtractor creates an extractor that will return the given
// outcomes in order.
func NewMockExtractor(results ...ExtractResult) *MockExtractor {
	return &MockExtractor{results: results}
}

// Extract implements service.Extractor.
func (e *MockExtractor) Extract(_ service.Frame, _ int) (model.DescriptorSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.results) == 0 {
		return nil, fmt.Errorf("%w: script exhausted", common.ErrInsufficientDetail)
	}
	next := e.results[0]
	e.results = e.results[1:]
	return next.Set, next.Err
}
