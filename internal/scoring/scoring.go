// ABOUTME: Per-candidate, per-slot score calculation with a full breakdown
// ABOUTME: Combines tempo/energy/danceability fit with bonus and penalty terms

// Package scoring computes the per-candidate, per-slot score combining
// tempo fit, energy and danceability with a stack of bonuses and
// penalties. The breakdown struct keeps one named field per component
// plus a Total, so every contribution stays inspectable instead of
// collapsing straight into a single float.
package scoring

import (
	"math"
	"time"

	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/tempo"
	"github.com/stojg/runmix/internal/umbrella"
)

// Breakdown holds every scored component for one candidate at one slot.
type Breakdown struct {
	TempoFit        float64
	EffortIndex     float64
	SlotFit         float64
	Base            float64
	EnergyShaping   float64
	Recency         float64
	ArtistSpacing   float64
	Diversity       float64
	ArtistNovelty   float64
	GenreAffinity   float64
	UmbrellaBalance float64
	Rediscovery     float64
	SourceBias      float64
	Transition      float64
	Total           float64
}

// Context bundles the per-run selection state scoring needs but does not
// itself own; it is read-only from this package's view.
type Context struct {
	Now time.Time

	// RecentArtists is the ring of the last N selected artist IDs,
	// oldest first.
	RecentArtists []string

	// ArtistLastUsedAt is the latest lastUsedAt across every track by an
	// artist, keyed by artist ID.
	ArtistLastUsedAt map[string]time.Time

	// GenreLookbackCounts and DecadeLookbackCounts count how often each
	// umbrella/decade has appeared in the selection so far, for the
	// diversity bonus.
	GenreLookbackCounts  map[umbrella.ID]int
	DecadeLookbackCounts map[int]int

	// UmbrellaWeights is the current target weighting (selected, plus
	// neighbors when broadened) used both for candidate affinity and for
	// the umbrella-balance bonus.
	UmbrellaWeights map[umbrella.ID]float64
	UmbrellaCounts  map[umbrella.ID]int
	TotalSelected   int

	RediscoveryChosen int
	RediscoveryTarget int

	LastTempo    float64
	HasLastTempo bool
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// MinTempoFit returns the tier's tempo_fit gate floor, relaxed to the
// cooldown floor for cooldown slots.
func MinTempoFit(cfg config.SelectorConfig, slot model.Slot) float64 {
	if slot.Segment == model.SegmentCooldown {
		return cfg.CooldownMinFit
	}

	return cfg.ForTier(slot.Effort.String()).MinFit
}

// Score computes the full breakdown for a candidate at a slot.
func Score(cfg config.SelectorConfig, cand model.Candidate, slot model.Slot, anchor float64, ctx Context) Breakdown {
	weights := cfg.ForTier(slot.Effort.String())

	var b Breakdown

	b.TempoFit = tempo.Fit(cand.Feature, slot.Effort, anchor, weights.ToleranceBPM)

	energy := math.Max(0, cand.Feature.Energy)
	dance := math.Max(0, cand.Feature.Danceability)

	b.EffortIndex = weights.TempoWeight*b.TempoFit + weights.EnergyWeight*energy + weights.DanceWeight*dance
	b.SlotFit = math.Max(0, 1-math.Abs(b.EffortIndex-slot.TargetEffort))
	b.Base = cfg.ScoreBaseWeight * b.SlotFit

	b.EnergyShaping = energyShaping(cfg, slot.Effort, energy)

	b.Recency = recencyBonus(cfg, cand, ctx.Now)
	b.ArtistSpacing = artistSpacingBonus(cfg, cand.Track.ArtistID, ctx.RecentArtists)
	b.Diversity = diversityBonus(cfg, cand, ctx)
	b.ArtistNovelty = artistNoveltyBonus(cfg, cand.Track.ArtistID, ctx.ArtistLastUsedAt, ctx.Now)
	b.GenreAffinity = cfg.GenreAffinityWeight * cand.GenreAffinity
	b.UmbrellaBalance = umbrellaBalanceBonus(cfg, cand, ctx)
	b.Rediscovery = rediscoveryBonus(cfg, cand, ctx)
	b.SourceBias = sourceBias(cfg, cand.Source)
	b.Transition = transitionBonus(cfg, cand.Feature, ctx)

	b.Total = b.Base + b.EnergyShaping + b.Recency + b.ArtistSpacing + b.Diversity +
		b.ArtistNovelty + b.GenreAffinity + b.UmbrellaBalance + b.Rediscovery +
		b.SourceBias + b.Transition

	if b.Total < 0 {
		b.Total = 0
	}

	return b
}

// energyShaping penalizes over-energetic easy tracks and under-energetic
// tracks at every other tier, each scaled linearly toward the cap.
func energyShaping(cfg config.SelectorConfig, tier model.EffortTier, energy float64) float64 {
	if tier == model.EffortEasy {
		if energy <= 0.70 {
			return 0
		}

		frac := clamp01((energy - 0.70) / 0.30)

		return -cfg.EnergyShapingEasyCap * frac
	}

	floor := cfg.ForTier(tier.String()).EnergyFloor
	if floor <= 0 || energy >= floor {
		return 0
	}

	frac := clamp01((floor - energy) / floor)

	return -cfg.EnergyShapingFloorCap * frac
}

// recencyBonus rewards tracks that have not been used recently; never
// used yields the full bonus.
func recencyBonus(cfg config.SelectorConfig, cand model.Candidate, now time.Time) float64 {
	if cand.LastUsedAt.IsZero() {
		return cfg.RecencyBonus
	}

	daysSince := now.Sub(cand.LastUsedAt).Hours() / 24

	penalty := math.Max(0, 1-daysSince/cfg.RecencyWindowDays)

	return cfg.RecencyBonus * (1 - penalty)
}

// artistSpacingBonus rewards distance from the candidate artist's last
// appearance within the recent-artist ring; an artist absent from the
// ring gets the full bonus.
func artistSpacingBonus(cfg config.SelectorConfig, artistID string, recent []string) float64 {
	dist := 0

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i] == artistID {
			dist = len(recent) - i

			break
		}
	}

	if dist == 0 {
		return cfg.ArtistSpacingBonus
	}

	window := float64(cfg.ArtistSpacingWindow)

	frac := clamp01((float64(dist) - 1) / (window - 1))

	return cfg.ArtistSpacingBonus * frac
}

// diversityBonus rewards genres and decades underrepresented in the
// selection so far, each contributing up to half of DiversityCap.
func diversityBonus(cfg config.SelectorConfig, cand model.Candidate, ctx Context) float64 {
	genreShare := lookbackShare(ctx.GenreLookbackCounts, bestUmbrellaOrZero(cand))
	decadeShare := lookbackShare(ctx.DecadeLookbackCounts, model.DecadeOf(cand.Track.AlbumReleaseYear))

	total := genreShare*cfg.DiversityPerCategory + decadeShare*cfg.DiversityPerCategory
	if total > cfg.DiversityCap {
		total = cfg.DiversityCap
	}

	return total
}

func bestUmbrellaOrZero(cand model.Candidate) umbrella.ID {
	if id, ok := umbrella.BestUmbrella(cand.Artist.Genres, nil); ok {
		return id
	}

	return ""
}

// lookbackShare returns (histMax-histCount)/histMax for the given key's
// count against the largest count seen in the same dimension so far.
func lookbackShare[K comparable](counts map[K]int, key K) float64 {
	histMax := 1

	for _, c := range counts {
		if c > histMax {
			histMax = c
		}
	}

	histCount := counts[key]

	return clamp01(float64(histMax-histCount) / float64(histMax))
}

// artistNoveltyBonus rewards artists not recently used across runs,
// distinct from the per-candidate recencyBonus (this looks at the
// artist's most recent track, not this specific track).
func artistNoveltyBonus(cfg config.SelectorConfig, artistID string, lastUsed map[string]time.Time, now time.Time) float64 {
	last, ok := lastUsed[artistID]
	if !ok || last.IsZero() {
		return cfg.NoveltyNeverUsedBonus
	}

	daysSince := now.Sub(last).Hours() / 24
	if daysSince <= cfg.NoveltyGraceDays {
		return 0
	}

	frac := clamp01((daysSince - cfg.NoveltyGraceDays) / cfg.NoveltyRampDays)

	return cfg.NoveltyBonus * frac
}

// umbrellaBalanceBonus nudges selection toward underrepresented
// umbrellas and away from oversaturated ones, relative to a uniform
// share across the weighted umbrella set.
func umbrellaBalanceBonus(cfg config.SelectorConfig, cand model.Candidate, ctx Context) float64 {
	if len(ctx.UmbrellaWeights) < 2 || ctx.TotalSelected == 0 {
		return 0
	}

	best, ok := umbrella.BestUmbrella(cand.Artist.Genres, ctx.UmbrellaWeights)
	if !ok {
		return 0
	}

	uniform := 1.0 / float64(len(ctx.UmbrellaWeights))
	share := float64(ctx.UmbrellaCounts[best]) / float64(ctx.TotalSelected)

	if share < uniform {
		deficit := clamp01((uniform - share) / uniform)

		return cfg.UmbrellaDeficitWeight * deficit * cfg.UmbrellaDeficitCap
	}

	surplus := clamp01((share - uniform) / (1 - uniform))

	return -cfg.UmbrellaSurplusWeight * surplus * cfg.UmbrellaSurplusCap
}

// rediscoveryBonus favors rediscovery candidates while the run remains
// under its rediscovery target; non-rediscovery candidates get nothing,
// since the bonus exists to bias the pick toward cand.IsRediscovery.
func rediscoveryBonus(cfg config.SelectorConfig, cand model.Candidate, ctx Context) float64 {
	if !cand.IsRediscovery {
		return 0
	}

	target := ctx.RediscoveryTarget
	if target < 1 {
		target = 1
	}

	bias := clamp01(float64(target-ctx.RediscoveryChosen) / float64(target))

	return cfg.RediscoveryBonus * bias
}

func sourceBias(cfg config.SelectorConfig, source model.SourceLayer) float64 {
	if source == model.SourceTertiary {
		return 0
	}

	return cfg.SourceBias
}

// transitionBonus rewards a tempo close to the previously chosen track
// and penalizes a large jump; the first pick in a run has no predecessor.
func transitionBonus(cfg config.SelectorConfig, feature model.AudioFeature, ctx Context) float64 {
	if !ctx.HasLastTempo || !feature.HasTempo() {
		return 0
	}

	delta := math.Abs(feature.Tempo - ctx.LastTempo)

	switch {
	case delta <= cfg.TransitionCloseBPM:
		return cfg.TransitionCloseBonus
	case delta <= cfg.TransitionNearBPM:
		return cfg.TransitionNearBonus
	case delta > cfg.TransitionFarBPM:
		return -cfg.TransitionFarPenalty
	default:
		return 0
	}
}
