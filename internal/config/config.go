// ABOUTME: TOML-backed tunable weights and thresholds for the planner
// ABOUTME: Handles load/save with default fallback and precision rounding

// Package config loads and saves the planner's tunable weights and
// thresholds from a TOML file: try the file, fall back to built-in
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TierWeights holds the per-effort-tier tempo tolerance, fit floor, and
// scoring weights.
type TierWeights struct {
	ToleranceBPM float64 `toml:"tolerance_bpm"`
	MinFit       float64 `toml:"min_fit"`
	TempoWeight  float64 `toml:"tempo_weight"`
	EnergyWeight float64 `toml:"energy_weight"`
	DanceWeight  float64 `toml:"dance_weight"`
	EnergyFloor  float64 `toml:"energy_floor"` // moderate/strong/hard/max only
}

// SelectorConfig bundles every tunable value the planner, scoring and
// selection loop consult. All of it can be overridden via a TOML file.
type SelectorConfig struct {
	// Cadence anchors per pace bucket
	CadenceAnchorA float64 `toml:"cadence_anchor_a"`
	CadenceAnchorB float64 `toml:"cadence_anchor_b"`
	CadenceAnchorC float64 `toml:"cadence_anchor_c"`
	CadenceAnchorD float64 `toml:"cadence_anchor_d"`

	Easy     TierWeights `toml:"easy"`
	Moderate TierWeights `toml:"moderate"`
	Strong   TierWeights `toml:"strong"`
	Hard     TierWeights `toml:"hard"`
	Max      TierWeights `toml:"max"`

	CooldownMinFit float64 `toml:"cooldown_min_fit"` // relaxed gate for cooldown slots

	// Scoring bonus/penalty caps
	EnergyShapingEasyCap     float64 `toml:"energy_shaping_easy_cap"`
	EnergyShapingFloorCap    float64 `toml:"energy_shaping_floor_cap"`
	RecencyBonus             float64 `toml:"recency_bonus"`
	RecencyWindowDays        float64 `toml:"recency_window_days"`
	ArtistSpacingBonus       float64 `toml:"artist_spacing_bonus"`
	ArtistSpacingWindow      int     `toml:"artist_spacing_window"` // ring size N
	DiversityCap             float64 `toml:"diversity_cap"`
	DiversityPerCategory     float64 `toml:"diversity_per_category"`
	DiversityLookbackDays    int     `toml:"diversity_lookback_days"`
	NoveltyNeverUsedBonus    float64 `toml:"novelty_never_used_bonus"`
	NoveltyBonus             float64 `toml:"novelty_bonus"`
	NoveltyGraceDays         float64 `toml:"novelty_grace_days"`
	NoveltyRampDays          float64 `toml:"novelty_ramp_days"`
	GenreAffinityWeight      float64 `toml:"genre_affinity_weight"`
	UmbrellaDeficitWeight    float64 `toml:"umbrella_deficit_weight"`
	UmbrellaDeficitCap       float64 `toml:"umbrella_deficit_cap"`
	UmbrellaSurplusWeight    float64 `toml:"umbrella_surplus_weight"`
	UmbrellaSurplusCap       float64 `toml:"umbrella_surplus_cap"`
	RediscoveryBonus         float64 `toml:"rediscovery_bonus"`
	SourceBias               float64 `toml:"source_bias"`
	TransitionCloseBonus     float64 `toml:"transition_close_bonus"`
	TransitionCloseBPM       float64 `toml:"transition_close_bpm"`
	TransitionNearBonus      float64 `toml:"transition_near_bonus"`
	TransitionNearBPM        float64 `toml:"transition_near_bpm"`
	TransitionFarPenalty     float64 `toml:"transition_far_penalty"`
	TransitionFarBPM         float64 `toml:"transition_far_bpm"`
	ScoreBaseWeight          float64 `toml:"score_base_weight"`
	FairnessDeficitThreshold float64 `toml:"fairness_deficit_threshold"`

	// Pool building
	LockoutDays           int     `toml:"lockout_days"`
	RediscoveryDays        int     `toml:"rediscovery_days"`
	MinPoolBeforeNeighbors int     `toml:"min_pool_before_neighbors"`
	NeighborWeight         float64 `toml:"neighbor_weight"`
	MinTrackDurationMs     int     `toml:"min_track_duration_ms"`
	MaxTrackDurationMs     int     `toml:"max_track_duration_ms"`

	// Selection loop
	TopKEasy          int `toml:"top_k_easy"`
	TopKModerate      int `toml:"top_k_moderate"`
	TopKDefault       int `toml:"top_k_default"`
	SegmentBandSecs   int `toml:"segment_band_secs"`
	NeighborRelaxCap  int `toml:"neighbor_relax_cap"`
	MinScoreWeight    float64 `toml:"min_score_weight"`

	// Timeline planning
	AvgTrackSeconds float64 `toml:"avg_track_seconds"`
}

// ForTier returns the configured weights for an effort tier by name
// ("easy", "moderate", "strong", "hard", "max"); falling back to Moderate
// for an unrecognized name keeps callers total and avoids a zero-value
// (all-gates-fail) tier.
func (c SelectorConfig) ForTier(tier string) TierWeights {
	switch tier {
	case "easy":
		return c.Easy
	case "moderate":
		return c.Moderate
	case "strong":
		return c.Strong
	case "hard":
		return c.Hard
	case "max":
		return c.Max
	default:
		return c.Moderate
	}
}

// GetConfigPath returns the default config file path: current directory
// first, then the XDG-style fallback under the user's home directory.
func GetConfigPath() string {
	if _, err := os.Stat("./runmix.toml"); err == nil {
		return "./runmix.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./runmix.toml"
	}

	return filepath.Join(home, ".config", "runmix", "config.toml")
}

// LoadConfig loads configuration from a TOML file. If the file doesn't
// exist, defaults are returned without error.
func LoadConfig(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}

		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, &config); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig writes configuration to a TOML file, creating parent
// directories as needed.
func SaveConfig(path string, config SelectorConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	config = roundConfigPrecision(config)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", err)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// roundConfigPrecision rounds the scoring weight and bonus fields to 2
// decimal places before saving. MinScoreWeight is left alone: its
// default is far below the rounding granularity.
func roundConfigPrecision(config SelectorConfig) SelectorConfig {
	round := func(x float64) float64 {
		return float64(int(x*100+0.5)) / 100
	}

	roundTier := func(t TierWeights) TierWeights {
		t.MinFit = round(t.MinFit)
		t.TempoWeight = round(t.TempoWeight)
		t.EnergyWeight = round(t.EnergyWeight)
		t.DanceWeight = round(t.DanceWeight)
		t.EnergyFloor = round(t.EnergyFloor)

		return t
	}

	config.Easy = roundTier(config.Easy)
	config.Moderate = roundTier(config.Moderate)
	config.Strong = roundTier(config.Strong)
	config.Hard = roundTier(config.Hard)
	config.Max = roundTier(config.Max)

	config.CooldownMinFit = round(config.CooldownMinFit)
	config.EnergyShapingEasyCap = round(config.EnergyShapingEasyCap)
	config.EnergyShapingFloorCap = round(config.EnergyShapingFloorCap)
	config.RecencyBonus = round(config.RecencyBonus)
	config.ArtistSpacingBonus = round(config.ArtistSpacingBonus)
	config.DiversityCap = round(config.DiversityCap)
	config.DiversityPerCategory = round(config.DiversityPerCategory)
	config.NoveltyNeverUsedBonus = round(config.NoveltyNeverUsedBonus)
	config.NoveltyBonus = round(config.NoveltyBonus)
	config.GenreAffinityWeight = round(config.GenreAffinityWeight)
	config.UmbrellaDeficitWeight = round(config.UmbrellaDeficitWeight)
	config.UmbrellaDeficitCap = round(config.UmbrellaDeficitCap)
	config.UmbrellaSurplusWeight = round(config.UmbrellaSurplusWeight)
	config.UmbrellaSurplusCap = round(config.UmbrellaSurplusCap)
	config.RediscoveryBonus = round(config.RediscoveryBonus)
	config.SourceBias = round(config.SourceBias)
	config.TransitionCloseBonus = round(config.TransitionCloseBonus)
	config.TransitionNearBonus = round(config.TransitionNearBonus)
	config.TransitionFarPenalty = round(config.TransitionFarPenalty)
	config.ScoreBaseWeight = round(config.ScoreBaseWeight)
	config.FairnessDeficitThreshold = round(config.FairnessDeficitThreshold)
	config.NeighborWeight = round(config.NeighborWeight)

	return config
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() SelectorConfig {
	return SelectorConfig{
		CadenceAnchorA: 158,
		CadenceAnchorB: 165,
		CadenceAnchorC: 172,
		CadenceAnchorD: 178,

		Easy:     TierWeights{ToleranceBPM: 15, MinFit: 0.35, TempoWeight: 0.56, EnergyWeight: 0.34, DanceWeight: 0.10, EnergyFloor: 0},
		Moderate: TierWeights{ToleranceBPM: 12, MinFit: 0.42, TempoWeight: 0.58, EnergyWeight: 0.32, DanceWeight: 0.10, EnergyFloor: 0.35},
		Strong:   TierWeights{ToleranceBPM: 10, MinFit: 0.50, TempoWeight: 0.60, EnergyWeight: 0.30, DanceWeight: 0.10, EnergyFloor: 0.45},
		Hard:     TierWeights{ToleranceBPM: 8, MinFit: 0.55, TempoWeight: 0.63, EnergyWeight: 0.27, DanceWeight: 0.10, EnergyFloor: 0.55},
		Max:      TierWeights{ToleranceBPM: 6, MinFit: 0.60, TempoWeight: 0.65, EnergyWeight: 0.25, DanceWeight: 0.10, EnergyFloor: 0.65},

		CooldownMinFit: 0.20,

		EnergyShapingEasyCap:  0.12,
		EnergyShapingFloorCap: 0.10,
		RecencyBonus:          0.10,
		RecencyWindowDays:     10,
		ArtistSpacingBonus:    0.16,
		ArtistSpacingWindow:   7,
		DiversityCap:          0.10,
		DiversityPerCategory:  0.05,
		DiversityLookbackDays: 10,
		NoveltyNeverUsedBonus: 0.06,
		NoveltyBonus:          0.08,
		NoveltyGraceDays:      10,
		NoveltyRampDays:       20,
		GenreAffinityWeight:   0.08,
		UmbrellaDeficitWeight: 0.60,
		UmbrellaDeficitCap:    0.12,
		UmbrellaSurplusWeight: 0.25,
		UmbrellaSurplusCap:    0.05,
		RediscoveryBonus:      0.05,
		SourceBias:            0.03,
		TransitionCloseBonus:  0.10,
		TransitionCloseBPM:    15,
		TransitionNearBonus:   0.05,
		TransitionNearBPM:     25,
		TransitionFarPenalty:  0.05,
		TransitionFarBPM:      40,
		ScoreBaseWeight:       0.60,
		FairnessDeficitThreshold: 0.10,

		LockoutDays:            10,
		RediscoveryDays:        60,
		MinPoolBeforeNeighbors: 200,
		NeighborWeight:         0.6,
		MinTrackDurationMs:     90_000,
		MaxTrackDurationMs:     360_000,

		TopKEasy:         25,
		TopKModerate:     15,
		TopKDefault:      8,
		SegmentBandSecs:  60,
		NeighborRelaxCap: 2,
		MinScoreWeight:   1e-4,

		AvgTrackSeconds: 210,
	}
}
