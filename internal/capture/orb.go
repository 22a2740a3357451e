// Package capture provides the gocv-backed palm scanner: an ORB feature
// extractor and a webcam capture device. It is the only package that
// links OpenCV; the core works purely on extracted descriptor sets.
package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
	"github.com/palmpay/palmpay/internal/service"
)

// ORBExtractor computes oriented binary descriptors with a rotation-
// invariant ORB detector. It is safe for sequential reuse across frames;
// detector parameters are fixed at construction so extraction is a pure
// function of the frame.
type ORBExtractor struct {
	orb gocv.ORBDetector
}

// NewORBExtractor creates an extractor with a fixed maximum feature count.
func NewORBExtractor(maxFeatures int) *ORBExtractor {
	return &ORBExtractor{
		orb: gocv.NewORBDetectorWithParams(maxFeatures, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20),
	}
}

// Close releases the underlying detector.
func (e *ORBExtractor) Close() error {
	return e.orb.Close()
}

// Extract implements service.Extractor. It grayscales the frame, runs
// keypoint detection and returns an insufficient-detail error when fewer
// than minKeypoints keypoints are found.
func (e *ORBExtractor) Extract(frame service.Frame, minKeypoints int) (model.DescriptorSet, error) {
	mat, err := gocv.ImageToMatRGBA(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer func() { _ = mat.Close() }()

	gray := gocv.NewMat()
	defer func() { _ = gray.Close() }()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBAToGray)

	mask := gocv.NewMat()
	defer func() { _ = mask.Close() }()

	keypoints, desc := e.orb.DetectAndCompute(gray, mask)
	defer func() { _ = desc.Close() }()

	if len(keypoints) < minKeypoints || desc.Empty() {
		return nil, fmt.Errorf("%w: %d keypoints detected, need %d",
			common.ErrInsufficientDetail, len(keypoints), minKeypoints)
	}

	set := make(model.DescriptorSet, desc.Rows())
	cols := desc.Cols()
	if cols > model.DescriptorSize {
		cols = model.DescriptorSize
	}
	for r := 0; r < desc.Rows(); r++ {
		for c := 0; c < cols; c++ {
			set[r][c] = desc.GetUCharAt(r, c)
		}
	}
	return set, nil
}
