// Package normalize rescales sentiment values from one dataset onto the mean
// of another by a single multiplicative factor. It is a heuristic: it corrects
// a systematic difference in magnitude between two scoring processes and says
// nothing about the shape of either distribution.
package normalize

import (
	"errors"

	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/pkg/logger"
)

var (
	ErrZeroReferenceMean = errors.New("reference mean is zero")
	ErrNonPositiveFactor = errors.New("rescale factor must be positive")
	ErrEmptyTarget       = errors.New("no target values")
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Factor returns targetMean/referenceMean. A zero reference mean yields a
// factor of 1 and ErrZeroReferenceMean. Means of opposite sign would invert the
// ordering of the rescaled values, so they yield 1 and ErrNonPositiveFactor.
func Factor(referenceMean, targetMean float64) (float64, error) {
	if referenceMean == 0 {
		return 1, ErrZeroReferenceMean
	}
	f := targetMean / referenceMean
	if f <= 0 {
		return 1, ErrNonPositiveFactor
	}
	return f, nil
}

// Rescale multiplies a copy of values by targetMean/referenceMean. On error the
// copy is returned unchanged. Results are not clamped to [-1,1].
func Rescale(values []float64, referenceMean, targetMean float64) ([]float64, error) {
	out := make([]float64, len(values))
	copy(out, values)

	factor, err := Factor(referenceMean, targetMean)
	if err != nil {
		logger.Warn("Rescale skipped",
			zap.Float64("reference_mean", referenceMean),
			zap.Float64("target_mean", targetMean),
			zap.Error(err),
		)
		return out, err
	}

	for i := range out {
		out[i] *= factor
	}
	return out, nil
}

// RescaleToMatch rescales values so their mean matches the mean of target.
func RescaleToMatch(values, target []float64) ([]float64, error) {
	if len(target) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out, ErrEmptyTarget
	}
	return Rescale(values, Mean(values), Mean(target))
}

// RescaleSummary returns a copy of summary with the overall and per-theme
// average sentiments multiplied by factor. Critical areas are recomputed from
// the scaled themes. The input summary is not modified.
func RescaleSummary(summary *aggregator.EntitySummary, factor float64) (*aggregator.EntitySummary, error) {
	if summary == nil {
		return nil, nil
	}
	if factor <= 0 {
		return summary.Clone(), ErrNonPositiveFactor
	}

	out := summary.Clone()
	out.OverallSentiment *= factor
	for _, theme := range out.Themes {
		theme.AverageSentiment *= factor
	}
	out.CriticalAreas = aggregator.CriticalAreas(out.Themes)
	return out, nil
}
