// ABOUTME: Timeline planning: template + duration into effort-target slots
// ABOUTME: Includes per-template core effort curves and segment allocation

// Package timelineplan translates a workout template and a run duration
// into an ordered sequence of slots, each carrying a target effort and a
// warmup/main/cooldown segment label.
package timelineplan

import (
	"math"
	"strings"

	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
)

const (
	warmupEffort   = 0.40
	cooldownEffort = 0.35
)

// ParseTemplate normalizes a template name, accepting both the short and
// the legacy names as aliases for the same six templates plus "rest".
// Unknown names fall back to TemplateRest (an empty plan), since the
// planner must never invent a new template.
func ParseTemplate(name string) model.Template {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light", "easyrun":
		return model.TemplateLight
	case "tempo", "strongsteady":
		return model.TemplateTempo
	case "hiit", "shortwaves":
		return model.TemplateHIIT
	case "intervals", "longwaves":
		return model.TemplateIntervals
	case "pyramid":
		return model.TemplatePyramid
	case "kicker":
		return model.TemplateKicker
	default:
		return model.TemplateRest
	}
}

// Plan builds the ordered slot sequence for a template and run duration.
// Template=rest or runMinutes<=0 produces an empty plan.
func Plan(cfg config.SelectorConfig, template model.Template, runMinutes int) []model.Slot {
	if template == model.TemplateRest || runMinutes <= 0 {
		return nil
	}

	warmupMin, cooldownMin := SegmentMinutes(runMinutes)
	coreMin := runMinutes - warmupMin - cooldownMin

	if coreMin < 0 {
		coreMin = 0
	}

	warmupCount := slotCount(cfg, warmupMin, false)
	cooldownCount := slotCount(cfg, cooldownMin, true)
	coreCount := slotCount(cfg, coreMin, false)

	slots := make([]model.Slot, 0, warmupCount+coreCount+cooldownCount)

	for range warmupCount {
		slots = append(slots, model.Slot{Effort: model.EffortEasy, TargetEffort: warmupEffort, Segment: model.SegmentWarmup})
	}

	slots = append(slots, coreSlots(template, coreCount)...)

	for range cooldownCount {
		slots = append(slots, model.Slot{Effort: model.EffortEasy, TargetEffort: cooldownEffort, Segment: model.SegmentCooldown})
	}

	return slots
}

// SegmentMinutes returns the (warmup, cooldown) minute allocation for a
// run duration.
func SegmentMinutes(totalMinutes int) (int, int) {
	switch {
	case totalMinutes < 30:
		return 5, 5
	case totalMinutes <= 45:
		return 7, 5
	default:
		return 10, 7
	}
}

// slotCount converts segment minutes into a slot count: round(seconds /
// AvgTrackSeconds), minimum 1 for any non-zero segment; cooldown gets a
// floor of 2 slots once it reaches 5 minutes.
func slotCount(cfg config.SelectorConfig, minutes int, isCooldown bool) int {
	if minutes <= 0 {
		return 0
	}

	count := int(math.Round(float64(minutes) * 60 / cfg.AvgTrackSeconds))
	if count < 1 {
		count = 1
	}

	if isCooldown && minutes >= 5 && count < 2 {
		count = 2
	}

	return count
}

// coreSlots dispatches to the per-template effort curve for the core
// (main) segment.
func coreSlots(template model.Template, count int) []model.Slot {
	switch template {
	case model.TemplateLight:
		return lightCore(count)
	case model.TemplateTempo:
		return tempoCore(count)
	case model.TemplateHIIT:
		return hiitCore(count)
	case model.TemplateIntervals:
		return intervalsCore(count)
	case model.TemplatePyramid:
		return pyramidCore(count)
	case model.TemplateKicker:
		return kickerCore(count)
	default:
		return nil
	}
}

func mainSlot(effort model.EffortTier, target float64) model.Slot {
	return model.Slot{Effort: effort, TargetEffort: target, Segment: model.SegmentMain}
}

// lightCore is mostly easy@0.45 with up to ~20% moderate@0.48 clustered
// in the middle of the segment.
func lightCore(count int) []model.Slot {
	slots := make([]model.Slot, count)
	for i := range slots {
		slots[i] = mainSlot(model.EffortEasy, 0.45)
	}

	moderateCount := int(float64(count) * 0.20)
	start := (count - moderateCount) / 2

	for i := start; i < start+moderateCount && i < count; i++ {
		slots[i] = mainSlot(model.EffortModerate, 0.48)
	}

	return slots
}

// tempoCore opens with a two-slot moderate ramp, then alternates strong
// with up to two hard spikes, never reaching max.
func tempoCore(count int) []model.Slot {
	slots := make([]model.Slot, 0, count)

	rampLen := min(2, count)
	for range rampLen {
		slots = append(slots, mainSlot(model.EffortModerate, 0.55))
	}

	hardSpikes := 0

	for i := rampLen; i < count; i++ {
		if hardSpikes < 2 && (i-rampLen)%3 == 2 {
			slots = append(slots, mainSlot(model.EffortHard, 0.72))
			hardSpikes++

			continue
		}

		slots = append(slots, mainSlot(model.EffortStrong, 0.60))
	}

	return slots
}

// hiitCore strictly alternates easy and hard, starting on hard since the
// preceding warmup slot is always easy (no repeated tier across the
// warmup/core boundary). One max spike is allowed in the second half,
// never on the first hard of the core.
func hiitCore(count int) []model.Slot {
	slots := make([]model.Slot, count)

	maxPlaced := false

	for i := range slots {
		if i%2 == 0 {
			if !maxPlaced && i > 0 && i >= count/2 {
				slots[i] = mainSlot(model.EffortMax, 0.85)
				maxPlaced = true

				continue
			}

			slots[i] = mainSlot(model.EffortHard, 0.80)
		} else {
			slots[i] = mainSlot(model.EffortEasy, 0.45)
		}
	}

	return slots
}

// intervalsCore alternates moderate and hard, never reaching max.
func intervalsCore(count int) []model.Slot {
	slots := make([]model.Slot, count)

	for i := range slots {
		if i%2 == 0 {
			slots[i] = mainSlot(model.EffortModerate, 0.48)
		} else {
			slots[i] = mainSlot(model.EffortHard, 0.80)
		}
	}

	return slots
}

// pyramidCanonical is the seven-step ascend-then-descend sequence
// pyramidCore trims or pads to fit the available slot count.
var pyramidCanonical = []model.Slot{
	mainSlot(model.EffortModerate, 0.48),
	mainSlot(model.EffortStrong, 0.60),
	mainSlot(model.EffortHard, 0.80),
	mainSlot(model.EffortMax, 0.85),
	mainSlot(model.EffortHard, 0.80),
	mainSlot(model.EffortStrong, 0.60),
	mainSlot(model.EffortModerate, 0.48),
}

// pyramidCore trims the canonical sequence by removing the max slot
// first, then the center, until it fits; it pads by inserting an extra
// strong@center slot when more room is available.
func pyramidCore(count int) []model.Slot {
	seq := append([]model.Slot(nil), pyramidCanonical...)

	for len(seq) > count {
		maxIdx := indexOfEffort(seq, model.EffortMax)
		if maxIdx >= 0 {
			seq = append(seq[:maxIdx], seq[maxIdx+1:]...)

			continue
		}

		center := len(seq) / 2
		seq = append(seq[:center], seq[center+1:]...)
	}

	for len(seq) < count {
		center := len(seq) / 2
		padded := make([]model.Slot, 0, len(seq)+1)
		padded = append(padded, seq[:center]...)
		padded = append(padded, mainSlot(model.EffortStrong, 0.60))
		padded = append(padded, seq[center:]...)
		seq = padded
	}

	return seq
}

func indexOfEffort(slots []model.Slot, effort model.EffortTier) int {
	for i, s := range slots {
		if s.Effort == effort {
			return i
		}
	}

	return -1
}

// kickerCore lays a moderate/strong base then closes with an ascending
// ramp: hard, hard, and a max if there is room, capped at one max and
// two hard per run.
func kickerCore(count int) []model.Slot {
	if count == 0 {
		return nil
	}

	rampLen := min(3, count)
	baseLen := count - rampLen

	slots := make([]model.Slot, 0, count)

	for i := range baseLen {
		if i%2 == 0 {
			slots = append(slots, mainSlot(model.EffortModerate, 0.50))
		} else {
			slots = append(slots, mainSlot(model.EffortStrong, 0.58))
		}
	}

	switch rampLen {
	case 3:
		slots = append(slots, mainSlot(model.EffortHard, 0.72), mainSlot(model.EffortHard, 0.80), mainSlot(model.EffortMax, 0.85))
	case 2:
		slots = append(slots, mainSlot(model.EffortHard, 0.72), mainSlot(model.EffortHard, 0.80))
	case 1:
		slots = append(slots, mainSlot(model.EffortHard, 0.80))
	}

	return slots
}
