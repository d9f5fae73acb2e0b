package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/pkg/types"
)

const (
	// minFeedbackVolume is the number of useful-marked memories required
	// before tuning runs; below this the signal is too noisy to act on.
	minFeedbackVolume = 10
	weightNudgeDelta  = 0.02
	minWeight         = 0.05
	maxWeight         = 0.6
)

// WeightTuningReport describes what TuneWeights changed, if anything.
type WeightTuningReport struct {
	Applied        bool
	FeedbackVolume int
	Before         map[string]float64
	After          map[string]float64
}

// TuneWeights nudges the four fusion weights (vector/fts/recency/
// frequency) based on which signal correlates with usefulness feedback
// seen so far. Memories marked useful are bucketed as "recency-driven" (at
// most two total accesses) or "frequency-driven" (more than two); whichever
// bucket dominates gets a small weight boost, taken from the other three
// weights proportionally, then the set is renormalized to sum to 1 and
// clamped within [minWeight, maxWeight]. No-op below minFeedbackVolume
// useful-marked memories, per spec's "no-op if feedback volume is below a
// threshold".
func (s *Service) TuneWeights(ctx context.Context, cfg *config.Config) (*WeightTuningReport, error) {
	var recencyDriven, frequencyDriven, feedbackVolume int
	err := s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		if m.UsefulCount == 0 {
			return nil
		}
		feedbackVolume++
		if m.AccessCount <= 2 {
			recencyDriven++
		} else {
			frequencyDriven++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	before := weightMap(cfg.Search)
	report := &WeightTuningReport{FeedbackVolume: feedbackVolume, Before: before}
	if feedbackVolume < minFeedbackVolume {
		report.After = before
		return report, nil
	}

	weights := weightMap(cfg.Search)
	switch {
	case recencyDriven > frequencyDriven:
		nudge(weights, "recency", weightNudgeDelta)
	case frequencyDriven > recencyDriven:
		nudge(weights, "frequency", weightNudgeDelta)
	default:
		report.After = before
		return report, nil
	}
	clampAndRenormalize(weights)

	for key, v := range weights {
		if err := s.backend.Settings().Set(ctx, "search.weight_"+key, fmt.Sprintf("%.4f", v)); err != nil {
			return nil, fmt.Errorf("maintenance: write tuned weight %s: %w", key, err)
		}
	}
	s.incr(ctx, types.CounterMaintenanceWeightsTuned)
	s.publishRun("tune_weights")

	report.Applied = true
	report.After = weights
	return report, nil
}

func weightMap(cfg config.SearchConfig) map[string]float64 {
	return map[string]float64{
		"vector":    cfg.WeightVector,
		"fts":       cfg.WeightFTS,
		"recency":   cfg.WeightRecency,
		"frequency": cfg.WeightFrequency,
	}
}

func nudge(weights map[string]float64, key string, delta float64) {
	others := 0.0
	for k, v := range weights {
		if k != key {
			others += v
		}
	}
	if others <= 0 {
		return
	}
	weights[key] += delta
	for k, v := range weights {
		if k != key {
			weights[k] = v - delta*(v/others)
		}
	}
}

func clampAndRenormalize(weights map[string]float64) {
	sum := 0.0
	for k, v := range weights {
		if v < minWeight {
			v = minWeight
		}
		if v > maxWeight {
			v = maxWeight
		}
		weights[k] = v
		sum += v
	}
	if sum == 0 {
		return
	}
	for k, v := range weights {
		weights[k] = v / sum
	}
}
