package biometric

import (
	"context"
	"errors"
	"fmt"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
	"github.com/palmpay/palmpay/internal/service"
)

// Aggregator collects qualifying frames from a capture source into an
// enrollment template.
type Aggregator struct {
	extractor    service.Extractor
	minKeypoints int
}

// NewAggregator creates an aggregator that gates frames on the given
// minimum keypoint count.
func NewAggregator(extractor service.Extractor, minKeypoints int) *Aggregator {
	return &Aggregator{
		extractor:    extractor,
		minKeypoints: minKeypoints,
	}
}

// Aggregate pulls frames from src until target qualifying descriptor sets
// have been collected, preserving capture order. Cancellation and deadline
// expiry are checked once per frame; on either, all partial results are
// discarded and a capture-cancelled error is returned so no partial
// template can ever be persisted. Frames without enough detail are skipped.
func (a *Aggregator) Aggregate(ctx context.Context, src service.FrameSource, target int, progress func(captured, target int)) (model.Template, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: frame target must be positive, got %d", common.ErrInvalidConfig, target)
	}

	tpl := make(model.Template, 0, target)
	for len(tpl) < target {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCaptureCancelled, err)
		}

		frame, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", common.ErrCaptureCancelled, err)
			}
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}

		set, err := a.extractor.Extract(frame, a.minKeypoints)
		if err != nil {
			if common.IsRetryable(err) {
				continue
			}
			return nil, fmt.Errorf("failed to extract features: %w", err)
		}

		tpl = append(tpl, set)
		if progress != nil {
			progress(len(tpl), target)
		}
	}

	return tpl, nil
}
