// Package biometric implements palm feature aggregation and matching.
package biometric

import (
	"context"
	"log/slog"
	"math/bits"

	"github.com/palmpay/palmpay/internal/common"
	"github.com/palmpay/palmpay/internal/model"
)

// Config holds tunables for matching and aggregation.
type Config struct {
	// Frames is the number of descriptor sets per enrollment template.
	Frames int
	// MaxDistance is the Hamming cutoff below which a descriptor pairing
	// counts as a good match.
	MaxDistance int
	// AcceptanceThreshold is the per-frame-normalized score a candidate
	// must strictly exceed to be identified.
	AcceptanceThreshold float64
}

// DefaultConfig returns the default matching configuration. The threshold
// is calibrated for normalized scoring (average good matches per template
// frame); raw-count scoring is not supported.
func DefaultConfig() Config {
	return Config{
		Frames:              5,
		MaxDistance:         50,
		AcceptanceThreshold: 35.0,
	}
}

// Candidate pairs an enrolled user with its template for one verification
// scan.
type Candidate struct {
	Name     string
	Template model.Template
	UserID   int64
}

// Matcher scores a live descriptor set against enrolled templates.
type Matcher struct {
	maxDistance int
	threshold   float64
}

// NewMatcher creates a matcher with the given configuration.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{
		maxDistance: cfg.MaxDistance,
		threshold:   cfg.AcceptanceThreshold,
	}
}

// Identify scores every candidate against the live capture and returns the
// best-scoring user if its score strictly exceeds the acceptance threshold;
// otherwise the result carries no identity. The scan always covers all
// candidates, in the order given (callers pass ascending user id), and a
// strictly-greater comparison keeps the first maximum on ties.
//
// Cost is O(U x N x k1 x k2) for U candidates, N sets per template and
// k descriptors per set; brute force is fine for the tens to low hundreds
// of users this runs against.
func (m *Matcher) Identify(ctx context.Context, live model.DescriptorSet, candidates []Candidate) (model.MatchResult, error) {
	if len(candidates) == 0 {
		return model.MatchResult{}, common.ErrNoEnrolledUsers
	}

	var best model.MatchResult
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return model.MatchResult{}, ctx.Err()
		default:
		}

		score := m.score(live, c.Template)
		if score > best.Score {
			best = model.MatchResult{UserID: c.UserID, Name: c.Name, Score: score}
		}
	}

	if best.Score > m.threshold {
		slog.Debug("palm identified",
			"user_id", best.UserID,
			"score", best.Score,
			"candidates", len(candidates))
		return best, nil
	}

	// No confident match; report the best score for diagnostics but no
	// identity.
	return model.MatchResult{Score: best.Score}, nil
}

// score is the per-frame average of good matches between the live capture
// and each of the template's descriptor sets.
func (m *Matcher) score(live model.DescriptorSet, tpl model.Template) float64 {
	if len(tpl) == 0 {
		return 0
	}
	total := 0
	for _, set := range tpl {
		total += m.matchCount(set, live)
	}
	return float64(total) / float64(len(tpl))
}

// matchCount counts mutually-nearest descriptor pairings between an
// enrolled set and the live set whose Hamming distance is below the
// cutoff. The cross-check mirrors a brute-force Hamming matcher with
// mutual nearest-neighbor filtering.
func (m *Matcher) matchCount(enrolled, live model.DescriptorSet) int {
	if len(enrolled) == 0 || len(live) == 0 {
		return 0
	}

	nearestLive := nearestIndices(enrolled, live)
	nearestEnrolled := nearestIndices(live, enrolled)

	count := 0
	for i, j := range nearestLive {
		if nearestEnrolled[j] != i {
			continue
		}
		if hamming(enrolled[i], live[j]) < m.maxDistance {
			count++
		}
	}
	return count
}

// nearestIndices returns, for each descriptor in from, the index of its
// nearest descriptor in to. Lower indices win ties.
func nearestIndices(from, to model.DescriptorSet) []int {
	nearest := make([]int, len(from))
	for i, d := range from {
		bestIdx := 0
		bestDist := hamming(d, to[0])
		for j := 1; j < len(to); j++ {
			if dist := hamming(d, to[j]); dist < bestDist {
				bestIdx, bestDist = j, dist
			}
		}
		nearest[i] = bestIdx
	}
	return nearest
}

func hamming(a, b model.Descriptor) int {
	d := 0
	for i := range a {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}
