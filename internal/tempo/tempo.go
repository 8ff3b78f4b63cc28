// ABOUTME: Pace-to-BPM model: cadence anchors, tier windows and tempo fit
// ABOUTME: Considers half-time and double-time tempo interpretations

// Package tempo maps runner pace to target BPM: cadence anchors from a
// pace bucket, per-tier BPM windows, and tempo-fit scoring. A track's
// tempo is considered at t, t/2 and 2t, since half- and double-time
// interpretations match a cadence just as well.
package tempo

import (
	"fmt"
	"math"

	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
)

// PaceBucket is a coarse runner-pace classification.
type PaceBucket string

const (
	PaceA PaceBucket = "A"
	PaceB PaceBucket = "B"
	PaceC PaceBucket = "C"
	PaceD PaceBucket = "D"
)

const (
	minOverrideSPM = 80
	maxOverrideSPM = 220
)

// CadenceAnchor returns the cadence anchor BPM for a pace bucket, or the
// override steps-per-minute value if overrideSPM is non-zero and within
// [80,220].
func CadenceAnchor(cfg config.SelectorConfig, bucket PaceBucket, overrideSPM float64) (float64, error) {
	if overrideSPM != 0 {
		if overrideSPM < minOverrideSPM || overrideSPM > maxOverrideSPM {
			return 0, fmt.Errorf("tempo: override SPM %.0f out of range [%d,%d]", overrideSPM, minOverrideSPM, maxOverrideSPM)
		}

		return overrideSPM, nil
	}

	switch bucket {
	case PaceA:
		return cfg.CadenceAnchorA, nil
	case PaceB:
		return cfg.CadenceAnchorB, nil
	case PaceC:
		return cfg.CadenceAnchorC, nil
	case PaceD:
		return cfg.CadenceAnchorD, nil
	default:
		return 0, fmt.Errorf("tempo: unknown pace bucket %q", bucket)
	}
}

// tierScale returns the [min,max] multiplier pair applied to the cadence
// anchor for an effort tier. Moderate and strong share the "steady"
// band; hard and max share the upper band.
func tierScale(tier model.EffortTier) (float64, float64) {
	switch tier {
	case model.EffortEasy:
		return 0.90, 1.00
	case model.EffortModerate, model.EffortStrong:
		return 1.00, 1.05
	case model.EffortHard, model.EffortMax:
		return 1.05, 1.10
	default:
		return 1.00, 1.05
	}
}

// Window returns the [min,max] BPM window for an effort tier given a
// cadence anchor.
func Window(tier model.EffortTier, anchor float64) (float64, float64) {
	lo, hi := tierScale(tier)

	return lo * anchor, hi * anchor
}

// candidateTempos returns the three tempo interpretations considered by
// tempo_fit: the tempo itself, half-time and double-time.
func candidateTempos(t float64) [3]float64 {
	return [3]float64{t, t / 2, t * 2}
}

// distanceToWindow returns 0 if c falls inside [min,max], otherwise the
// distance to the nearer bound.
func distanceToWindow(c, min, max float64) float64 {
	return math.Max(0, math.Max(min-c, c-max))
}

// Fit scores how well a track's tempo matches the tier's BPM window: the
// best of the three candidate tempos' distances to the window, converted
// to a [0,1] score via the tier's tolerance. Missing tempo falls back to
// an energy/danceability proxy; missing everything returns a fixed
// downweighted value.
func Fit(feature model.AudioFeature, tier model.EffortTier, anchor float64, toleranceBPM float64) float64 {
	min, max := Window(tier, anchor)

	if !feature.HasTempo() {
		if feature.Energy < 0 && feature.Danceability < 0 {
			return 0.45
		}

		energy := math.Max(0, feature.Energy)
		dance := math.Max(0, feature.Danceability)

		return (0.6*energy + 0.4*dance) * 0.9
	}

	best := math.MaxFloat64

	for _, c := range candidateTempos(feature.Tempo) {
		d := distanceToWindow(c, min, max)
		if d < best {
			best = d
		}
	}

	if best == 0 {
		return 1
	}

	fit := 1 - best/toleranceBPM
	if fit < 0 {
		fit = 0
	}

	return fit
}
