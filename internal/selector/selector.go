// ABOUTME: Slot-by-slot track selection loop with progressive relaxation
// ABOUTME: Includes top-K weighted picks, tail extension and cooldown reconciliation

// Package selector implements the orchestrator loop that walks the
// timeline's slots, asks the scoring core to rank the candidate pool,
// applies the progressive relaxation ladder when a slot can't be filled
// under the normal gates, and runs the post-pass tail-extension and
// cooldown-reconcile passes. Per-slot picks are a score-proportional
// weighted draw over the top-K ranked candidates, so repeated runs with
// the same seed reproduce the same playlist.
package selector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/stojg/runmix/internal/candidatepool"
	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/musicservice"
	"github.com/stojg/runmix/internal/runlog"
	"github.com/stojg/runmix/internal/scoring"
	"github.com/stojg/runmix/internal/tempo"
	"github.com/stojg/runmix/internal/timelineplan"
	"github.com/stojg/runmix/internal/umbrella"
)

// ErrEmptySelection is returned when, after the full timeline and
// post-pass, no track was chosen at all.
var ErrEmptySelection = errors.New("selector: empty selection")

const totalToleranceSeconds = 120

// Input describes one Selector run.
type Input struct {
	Pool           candidatepool.Result
	Slots          []model.Slot
	Cfg            config.SelectorConfig
	Now            time.Time
	Template       model.Template
	RunMinutes     int
	GenreSelection []umbrella.ID
	Anchor         float64 // cadence anchor BPM, from the Pace/Tempo Model
	Music          musicservice.Service
	Market         string
	Rand           *rand.Rand // injectable for deterministic tests
}

type relaxLevel int

const (
	relaxNone relaxLevel = iota
	relaxAdjacentEffort
	relaxSecondAdjacentEffort
	relaxUmbrellaNeighbors
	relaxLockoutBreak
)

// run holds every piece of mutable selection state for one Run call.
// All of it is created at start and discarded at end.
type run struct {
	cfg      config.SelectorConfig
	template model.Template
	now      time.Time
	anchor   float64
	rnd      *rand.Rand
	music    musicservice.Service
	market   string

	pool      []model.Candidate
	lockedOut []model.Candidate

	selectedIDs    map[string]bool
	perArtistCount map[string]int
	recentArtists  []string

	umbrellaWeights map[umbrella.ID]float64
	umbrellaCounts  map[umbrella.ID]int
	genreLookback   map[umbrella.ID]int
	decadeLookback  map[int]int

	artistLastUsedAt map[string]time.Time

	maxUsed            int
	hardUsed           int
	neighborRelaxSlots int
	lockoutBreaks      int
	lockoutBreakUsed   bool

	lastArtist   string
	lastTempo    float64
	hasLastTempo bool

	rediscoveryChosen int
	rediscoveryTarget int

	segmentSeconds map[model.Segment]int
	totalSeconds   int

	warmupTarget   int
	mainTarget     int
	cooldownTarget int
	minTarget      int
	maxTarget      int

	chosen []model.Chosen
}

// Run executes the full selection pipeline: slot iteration, progressive
// relaxation, top-K stochastic pick, tail extension and cooldown
// reconciliation.
func Run(ctx context.Context, in Input) (model.SelectionResult, error) {
	if len(in.Slots) == 0 {
		// Template=rest or minutes<=0: the Timeline Planner already
		// emitted an empty plan, so the Selector has nothing to do and
		// this is a successful empty selection, not ErrEmptySelection.
		return model.SelectionResult{}, nil
	}

	r := newRun(in)

	for i := 0; i < len(in.Slots); i++ {
		slot := in.Slots[i]

		if slot.Segment != model.SegmentCooldown && r.totalSeconds >= r.minTarget {
			continue
		}

		if r.totalSeconds >= r.maxTarget {
			break
		}

		if chosen, ok := r.pickForSlot(ctx, slot); ok {
			r.accept(slot, chosen)
		} else {
			runlog.Debugf("[selector] slot %d (%s/%s) unfillable after all relaxations", i, slot.Segment, slot.Effort)
		}
	}

	r.tailExtend(ctx)
	r.cooldownReconcile(ctx)

	if len(r.chosen) == 0 {
		return model.SelectionResult{}, ErrEmptySelection
	}

	return r.result(), nil
}

func newRun(in Input) *run {
	warmupMin, cooldownMin := timelineplan.SegmentMinutes(in.RunMinutes)
	mainMin := in.RunMinutes - warmupMin - cooldownMin

	if mainMin < 0 {
		mainMin = 0
	}

	rediscoveryTarget := max(1, len(in.Slots)/2)

	rnd := in.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}

	return &run{
		cfg:              in.Cfg,
		template:         in.Template,
		now:              in.Now,
		anchor:           in.Anchor,
		rnd:              rnd,
		music:            in.Music,
		market:           in.Market,
		pool:             in.Pool.Candidates,
		lockedOut:        in.Pool.LockedOut,
		selectedIDs:      make(map[string]bool),
		perArtistCount:   make(map[string]int),
		umbrellaWeights:  umbrella.SelectedWithNeighbors(in.GenreSelection, 0),
		umbrellaCounts:   make(map[umbrella.ID]int),
		genreLookback:    make(map[umbrella.ID]int),
		decadeLookback:   make(map[int]int),
		artistLastUsedAt: in.Pool.ArtistLastUsedAt,
		rediscoveryTarget: rediscoveryTarget,
		segmentSeconds:   make(map[model.Segment]int),
		warmupTarget:     warmupMin * 60,
		mainTarget:       mainMin * 60,
		cooldownTarget:   cooldownMin * 60,
		minTarget:        in.RunMinutes*60 - totalToleranceSeconds,
		maxTarget:        in.RunMinutes*60 + totalToleranceSeconds,
	}
}

func (r *run) artistCap() int {
	if r.template == model.TemplateLight {
		return 1
	}

	return 2
}

// available returns the subset of pool not yet selected, not a
// back-to-back repeat of the last artist, and under the per-artist cap.
func (r *run) available(pool []model.Candidate) []model.Candidate {
	artistCap := r.artistCap()

	out := make([]model.Candidate, 0, len(pool))

	for _, c := range pool {
		if r.selectedIDs[c.Track.ID] {
			continue
		}

		if r.lastArtist != "" && c.Track.ArtistID == r.lastArtist {
			continue
		}

		if r.perArtistCount[c.Track.ArtistID] >= artistCap {
			continue
		}

		out = append(out, c)
	}

	return out
}

type scored struct {
	cand model.Candidate
	b    scoring.Breakdown
}

func (r *run) scoreAll(slot model.Slot, cands []model.Candidate) []scored {
	ctx := scoring.Context{
		Now:                  r.now,
		RecentArtists:        r.recentArtists,
		ArtistLastUsedAt:     r.artistLastUsedAt,
		GenreLookbackCounts:  r.genreLookback,
		DecadeLookbackCounts: r.decadeLookback,
		UmbrellaWeights:      r.umbrellaWeights,
		UmbrellaCounts:       r.umbrellaCounts,
		TotalSelected:        len(r.chosen),
		RediscoveryChosen:    r.rediscoveryChosen,
		RediscoveryTarget:    r.rediscoveryTarget,
		LastTempo:            r.lastTempo,
		HasLastTempo:         r.hasLastTempo,
	}

	out := make([]scored, 0, len(cands))

	for _, c := range cands {
		out = append(out, scored{cand: c, b: scoring.Score(r.cfg, c, slot, r.anchor, ctx)})
	}

	return out
}

// capGatesOK applies the per-run tier caps: at most one max-tier pick,
// and for the kicker template at most two hard-tier picks.
func (r *run) capGatesOK(effort model.EffortTier) bool {
	if effort == model.EffortMax && r.maxUsed >= 1 {
		return false
	}

	if r.template == model.TemplateKicker && effort == model.EffortHard && r.hardUsed >= 2 {
		return false
	}

	return true
}

// fairnessRestrict applies the warmup/cooldown fairness gate: when one
// selected umbrella's share has fallen more than
// FairnessDeficitThreshold below uniform, restrict candidates to that
// umbrella only.
func (r *run) fairnessRestrict(slot model.Slot, cands []scored) []scored {
	if slot.Segment != model.SegmentWarmup && slot.Segment != model.SegmentCooldown {
		return cands
	}

	if len(r.umbrellaWeights) < 2 || len(r.chosen) == 0 {
		return cands
	}

	uniform := 1.0 / float64(len(r.umbrellaWeights))

	var (
		deficitUmbrella umbrella.ID
		worstDeficit    float64
		found           bool
	)

	for _, id := range umbrella.All {
		if _, ok := r.umbrellaWeights[id]; !ok {
			continue
		}

		share := float64(r.umbrellaCounts[id]) / float64(len(r.chosen))
		deficit := uniform - share

		if deficit > r.cfg.FairnessDeficitThreshold && deficit > worstDeficit {
			worstDeficit = deficit
			deficitUmbrella = id
			found = true
		}
	}

	if !found {
		return cands
	}

	out := make([]scored, 0, len(cands))

	for _, s := range cands {
		if best, ok := umbrella.BestUmbrella(s.cand.Artist.Genres, r.umbrellaWeights); ok && best == deficitUmbrella {
			out = append(out, s)
		}
	}

	if len(out) == 0 {
		return cands
	}

	return out
}

// gateNormal applies the baseline hard gates: tier tempo-fit minimum
// (relaxed for cooldown), the per-slot duration floor, and the per-run
// tier caps.
func (r *run) gateNormal(slot model.Slot, cands []scored) []scored {
	minFit := scoring.MinTempoFit(r.cfg, slot)

	out := make([]scored, 0, len(cands))

	for _, s := range cands {
		if s.b.TempoFit < minFit {
			continue
		}

		if !r.capGatesOK(slot.Effort) {
			continue
		}

		if (slot.Segment == model.SegmentWarmup || slot.Segment == model.SegmentCooldown) && s.cand.Track.DurationMs < r.cfg.MinTrackDurationMs {
			continue
		}

		out = append(out, s)
	}

	return out
}

// gateBySlotFit relaxes the tempo-fit tier minimum to a flat slot_fit
// floor, used by R1/R2/R3; the tier caps still apply.
func (r *run) gateBySlotFit(slot model.Slot, cands []scored, minSlotFit float64) []scored {
	out := make([]scored, 0, len(cands))

	for _, s := range cands {
		if s.b.SlotFit < minSlotFit {
			continue
		}

		if !r.capGatesOK(slot.Effort) {
			continue
		}

		out = append(out, s)
	}

	return out
}

// pickForSlot runs the full per-slot pipeline: availability, hard gates,
// progressive relaxation, top-K weighted pick, playability preflight and
// segment/duration gating.
func (r *run) pickForSlot(ctx context.Context, slot model.Slot) (model.Chosen, bool) {
	avail := r.available(r.pool)
	scoredCands := r.fairnessRestrict(slot, r.scoreAll(slot, avail))

	gated := r.gateNormal(slot, scoredCands)
	level := relaxNone

	if len(gated) == 0 {
		gated = r.gateBySlotFit(slot, scoredCands, 0.70)
		level = relaxAdjacentEffort
	}

	if len(gated) == 0 {
		gated = r.gateBySlotFit(slot, scoredCands, 0.65)
		level = relaxSecondAdjacentEffort
	}

	if len(gated) == 0 && r.neighborRelaxSlots < r.cfg.NeighborRelaxCap {
		gated, level = r.relaxUmbrella(slot, avail)
	}

	if len(gated) == 0 && !r.lockoutBreakUsed {
		gated, level = r.relaxLockout(slot)
	}

	if len(gated) == 0 {
		return model.Chosen{}, false
	}

	return r.choose(ctx, slot, gated, level)
}

// relaxUmbrella implements R3: broaden umbrella weights to neighbors,
// preferring Primary-source candidates first, falling back to the full
// available set, gated at a flat 0.60 slot_fit floor.
func (r *run) relaxUmbrella(slot model.Slot, avail []model.Candidate) ([]scored, relaxLevel) {
	broadened := r.umbrellaWeights
	if len(r.umbrellaWeights) > 0 {
		selected := make([]umbrella.ID, 0, len(r.umbrellaWeights))
		for id := range r.umbrellaWeights {
			selected = append(selected, id)
		}

		broadened = umbrella.SelectedWithNeighbors(selected, r.cfg.NeighborWeight)
	}

	primaryOnly := make([]model.Candidate, 0, len(avail))

	for _, c := range avail {
		if c.Source == model.SourcePrimary {
			primaryOnly = append(primaryOnly, c)
		}
	}

	withWeights := func(cands []model.Candidate) []scored {
		ctx := scoring.Context{
			Now: r.now, RecentArtists: r.recentArtists, ArtistLastUsedAt: r.artistLastUsedAt,
			GenreLookbackCounts: r.genreLookback, DecadeLookbackCounts: r.decadeLookback,
			UmbrellaWeights: broadened, UmbrellaCounts: r.umbrellaCounts, TotalSelected: len(r.chosen),
			RediscoveryChosen: r.rediscoveryChosen, RediscoveryTarget: r.rediscoveryTarget,
			LastTempo: r.lastTempo, HasLastTempo: r.hasLastTempo,
		}

		out := make([]scored, 0, len(cands))
		for _, c := range cands {
			out = append(out, scored{cand: c, b: scoring.Score(r.cfg, c, slot, r.anchor, ctx)})
		}

		return r.gateBySlotFit(slot, out, 0.60)
	}

	gated := withWeights(primaryOnly)
	if len(gated) == 0 {
		gated = withWeights(avail)
	}

	if len(gated) == 0 {
		return nil, relaxNone
	}

	r.neighborRelaxSlots++
	runlog.Debugf("[selector] R3 neighbor broadening used (%d/%d this run)", r.neighborRelaxSlots, r.cfg.NeighborRelaxCap)

	return gated, relaxUmbrellaNeighbors
}

// relaxLockout implements R4: break the 10-day lockout once per run,
// drawing from the pool's LockedOut set under the normal gates.
func (r *run) relaxLockout(slot model.Slot) ([]scored, relaxLevel) {
	avail := r.available(r.lockedOut)
	gated := r.gateNormal(slot, r.scoreAll(slot, avail))

	if len(gated) == 0 {
		return nil, relaxNone
	}

	runlog.Debugf("[selector] R4 lockout break used for slot effort %s", slot.Effort)

	return gated, relaxLockoutBreak
}

// choose ranks the gated candidates, takes the top-K for the slot's
// tier, performs a score-weighted random draw, and falls through
// successive alternates in rank order on playability or duration-gate
// failure.
func (r *run) choose(ctx context.Context, slot model.Slot, gated []scored, level relaxLevel) (model.Chosen, bool) {
	sort.SliceStable(gated, func(i, j int) bool { return gated[i].b.Total > gated[j].b.Total })

	k := r.topK(slot.Effort)
	if k > len(gated) {
		k = len(gated)
	}

	ranked := gated[:k]

	picked := r.weightedPick(ranked)

	tried := make(map[string]bool, k)

	order := append([]int(nil), pickOrder(ranked, picked)...)

	for _, idx := range order {
		s := ranked[idx]

		if tried[s.cand.Track.ID] {
			continue
		}

		tried[s.cand.Track.ID] = true

		if !r.passesSegmentGate(slot, s.cand) {
			continue
		}

		if !r.playable(ctx, s.cand.Track.ID) {
			continue
		}

		return model.Chosen{
			Candidate:    s.cand,
			Slot:         slot,
			TempoFit:     s.b.TempoFit,
			EffortIndex:  s.b.EffortIndex,
			SlotFit:      s.b.SlotFit,
			UsedNeighbor: level == relaxUmbrellaNeighbors,
			BrokeLockout: level == relaxLockoutBreak,
		}, true
	}

	return model.Chosen{}, false
}

// pickOrder returns ranked's indices starting at the weighted-picked
// index and then proceeding in rank order, so alternates are tried
// successively rather than re-drawn at random.
func pickOrder(ranked []scored, picked int) []int {
	order := make([]int, 0, len(ranked))
	order = append(order, picked)

	for i := range ranked {
		if i != picked {
			order = append(order, i)
		}
	}

	return order
}

func (r *run) topK(tier model.EffortTier) int {
	switch tier {
	case model.EffortEasy:
		return r.cfg.TopKEasy
	case model.EffortModerate:
		return r.cfg.TopKModerate
	default:
		return r.cfg.TopKDefault
	}
}

// weightedPick draws an index into ranked proportional to each
// candidate's score, floored at MinScoreWeight before the draw.
func (r *run) weightedPick(ranked []scored) int {
	weights := make([]float64, len(ranked))

	var sum float64

	for i, s := range ranked {
		w := s.b.Total
		if w < r.cfg.MinScoreWeight {
			w = r.cfg.MinScoreWeight
		}

		weights[i] = w
		sum += w
	}

	if sum <= 0 {
		return 0
	}

	target := r.rnd.Float64() * sum

	var cum float64

	for i, w := range weights {
		cum += w
		if target <= cum {
			return i
		}
	}

	return len(ranked) - 1
}

// passesSegmentGate rejects a candidate whose duration would push a
// warmup/cooldown segment past its band, or would leave no room to still
// hit the cooldown target before the overall cap.
func (r *run) passesSegmentGate(slot model.Slot, cand model.Candidate) bool {
	durSec := cand.Track.DurationMs / 1000

	switch slot.Segment {
	case model.SegmentWarmup:
		if r.segmentSeconds[model.SegmentWarmup]+durSec > r.warmupTarget+r.cfg.SegmentBandSecs {
			return false
		}
	case model.SegmentCooldown:
		if r.segmentSeconds[model.SegmentCooldown]+durSec > r.cooldownTarget+r.cfg.SegmentBandSecs {
			return false
		}
	case model.SegmentMain:
		if r.totalSeconds+durSec+r.cooldownTarget > r.maxTarget {
			return false
		}
	}

	return true
}

func (r *run) playable(ctx context.Context, trackID string) bool {
	if r.music == nil {
		return true
	}

	result, err := r.music.PlayableIDs(ctx, []string{trackID}, r.market)
	if err != nil {
		runlog.Debugf("[selector] playability preflight failed for %s: %v", trackID, err)

		return true // lookup failures are recoverable: assume playable
	}

	return result[trackID]
}

// accept records a chosen candidate and updates every running counter.
func (r *run) accept(slot model.Slot, chosen model.Chosen) {
	cand := chosen.Candidate

	r.selectedIDs[cand.Track.ID] = true
	r.perArtistCount[cand.Track.ArtistID]++
	r.lastArtist = cand.Track.ArtistID

	r.recentArtists = append(r.recentArtists, cand.Track.ArtistID)
	if len(r.recentArtists) > r.cfg.ArtistSpacingWindow {
		r.recentArtists = r.recentArtists[len(r.recentArtists)-r.cfg.ArtistSpacingWindow:]
	}

	if best, ok := umbrella.BestUmbrella(cand.Artist.Genres, r.umbrellaWeights); ok {
		r.umbrellaCounts[best]++
		r.genreLookback[best]++
	}

	r.decadeLookback[model.DecadeOf(cand.Track.AlbumReleaseYear)]++

	if cand.IsRediscovery {
		r.rediscoveryChosen++
	}

	if slot.Effort == model.EffortMax {
		r.maxUsed++
	}

	if slot.Effort == model.EffortHard {
		r.hardUsed++
	}

	if chosen.BrokeLockout {
		r.lockoutBreakUsed = true
		r.lockoutBreaks++
	}

	durSec := cand.Track.DurationMs / 1000
	r.totalSeconds += durSec
	r.segmentSeconds[slot.Segment] += durSec

	if cand.Feature.HasTempo() {
		r.lastTempo = cand.Feature.Tempo
		r.hasLastTempo = true
	}

	r.chosen = append(r.chosen, chosen)
}

// tailExtend synthesizes additional easy "main" slots while the total
// run is still under the minimum target, never pushing the total past
// the maximum.
func (r *run) tailExtend(ctx context.Context) {
	const safetyCap = 200

	for i := 0; r.totalSeconds < r.minTarget && i < safetyCap; i++ {
		slot := model.Slot{Effort: model.EffortEasy, TargetEffort: 0.45, Segment: model.SegmentMain}

		chosen, ok := r.pickForSlot(ctx, slot)
		if !ok {
			runlog.Debugf("[selector] tail extension stopped: no fillable candidate")

			return
		}

		durSec := chosen.Candidate.Track.DurationMs / 1000
		if r.totalSeconds+durSec > r.maxTarget {
			return
		}

		r.accept(slot, chosen)
	}
}

// cooldownReconcile tops up the cooldown segment toward its target,
// dropping the last main track to free room if the overall cap would
// otherwise block it.
func (r *run) cooldownReconcile(ctx context.Context) {
	const safetyCap = 200

	for i := 0; r.segmentSeconds[model.SegmentCooldown] < r.cooldownTarget-r.cfg.SegmentBandSecs && r.totalSeconds < r.maxTarget && i < safetyCap; i++ {
		slot := model.Slot{Effort: model.EffortEasy, TargetEffort: 0.35, Segment: model.SegmentCooldown}

		chosen, ok := r.pickForSlot(ctx, slot)
		if ok {
			r.accept(slot, chosen)

			continue
		}

		if !r.dropLastMain() {
			runlog.Debugf("[selector] cooldown reconcile stopped: no main track left to drop")

			return
		}
	}
}

// dropLastMain removes the most recently chosen "main" segment track to
// free time for cooldown reconciliation, returning false when none remain.
func (r *run) dropLastMain() bool {
	for i := len(r.chosen) - 1; i >= 0; i-- {
		c := r.chosen[i]
		if c.Slot.Segment != model.SegmentMain {
			continue
		}

		durSec := c.Candidate.Track.DurationMs / 1000
		r.totalSeconds -= durSec
		r.segmentSeconds[model.SegmentMain] -= durSec

		delete(r.selectedIDs, c.Candidate.Track.ID)
		r.perArtistCount[c.Candidate.Track.ArtistID]--

		if c.Slot.Effort == model.EffortMax {
			r.maxUsed--
		}

		if c.Slot.Effort == model.EffortHard {
			r.hardUsed--
		}

		if c.Candidate.IsRediscovery {
			r.rediscoveryChosen--
		}

		r.chosen = append(r.chosen[:i], r.chosen[i+1:]...)

		return true
	}

	return false
}

func (r *run) result() model.SelectionResult {
	return model.SelectionResult{
		Chosen:                r.chosen,
		TotalSeconds:          r.totalSeconds,
		WarmupSeconds:         r.segmentSeconds[model.SegmentWarmup],
		MainSeconds:           r.segmentSeconds[model.SegmentMain],
		CooldownSeconds:       r.segmentSeconds[model.SegmentCooldown],
		WarmupTargetSeconds:   r.warmupTarget,
		MainTargetSeconds:     r.mainTarget,
		CooldownTargetSeconds: r.cooldownTarget,
		MinTargetSeconds:      r.minTarget,
		MaxTargetSeconds:      r.maxTarget,
		RediscoveryCount:      r.rediscoveryChosen,
		NeighborRelaxSlots:    r.neighborRelaxSlots,
		LockoutBreaks:         r.lockoutBreaks,
	}
}

// ResolveAnchor is a small convenience wrapper around the Pace/Tempo
// Model's cadence anchor lookup, kept here so CLI callers have a single
// entry point before building an Input.
func ResolveAnchor(cfg config.SelectorConfig, bucket tempo.PaceBucket, overrideSPM float64) (float64, error) {
	anchor, err := tempo.CadenceAnchor(cfg, bucket, overrideSPM)
	if err != nil {
		return 0, fmt.Errorf("selector: %w", err)
	}

	return anchor, nil
}
