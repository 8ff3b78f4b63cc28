package timelineplan

import (
	"testing"

	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
)

var allTemplates = []model.Template{
	model.TemplateLight,
	model.TemplateTempo,
	model.TemplateHIIT,
	model.TemplateIntervals,
	model.TemplatePyramid,
	model.TemplateKicker,
}

func countEffort(slots []model.Slot, effort model.EffortTier) int {
	n := 0

	for _, s := range slots {
		if s.Effort == effort {
			n++
		}
	}

	return n
}

func TestParseTemplateAliases(t *testing.T) {
	cases := map[string]model.Template{
		"light":        model.TemplateLight,
		"easyRun":      model.TemplateLight,
		"tempo":        model.TemplateTempo,
		"strongSteady": model.TemplateTempo,
		"hiit":         model.TemplateHIIT,
		"shortWaves":   model.TemplateHIIT,
		"intervals":    model.TemplateIntervals,
		"longWaves":    model.TemplateIntervals,
		"pyramid":      model.TemplatePyramid,
		"kicker":       model.TemplateKicker,
		"rest":         model.TemplateRest,
		"garbage":      model.TemplateRest,
	}

	for name, want := range cases {
		if got := ParseTemplate(name); got != want {
			t.Errorf("ParseTemplate(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPlanRestOrZeroMinutesIsEmpty(t *testing.T) {
	cfg := config.DefaultConfig()

	if got := Plan(cfg, model.TemplateRest, 30); len(got) != 0 {
		t.Fatalf("expected empty plan for rest, got %d slots", len(got))
	}

	if got := Plan(cfg, model.TemplateLight, 0); len(got) != 0 {
		t.Fatalf("expected empty plan for zero minutes, got %d slots", len(got))
	}
}

func TestMaxTierCapAcrossTemplatesAndDurations(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, tmpl := range allTemplates {
		for _, minutes := range []int{20, 30, 45, 60, 75} {
			slots := Plan(cfg, tmpl, minutes)

			if got := countEffort(slots, model.EffortMax); got > 1 {
				t.Errorf("template=%v minutes=%d: expected at most 1 max slot, got %d", tmpl, minutes, got)
			}
		}
	}
}

func TestKickerHardCapAcrossDurations(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, minutes := range []int{20, 30, 45, 60, 75} {
		slots := Plan(cfg, model.TemplateKicker, minutes)

		if got := countEffort(slots, model.EffortHard); got > 2 {
			t.Errorf("kicker minutes=%d: expected at most 2 hard slots, got %d", minutes, got)
		}
	}
}

func TestTempoAndIntervalsNeverReachMax(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, tmpl := range []model.Template{model.TemplateTempo, model.TemplateIntervals} {
		for _, minutes := range []int{20, 30, 45, 60, 75} {
			slots := Plan(cfg, tmpl, minutes)

			if got := countEffort(slots, model.EffortMax); got != 0 {
				t.Errorf("template=%v minutes=%d: expected no max slots, got %d", tmpl, minutes, got)
			}
		}
	}
}

func TestWarmupAndCooldownEffortsAreFixed(t *testing.T) {
	cfg := config.DefaultConfig()

	slots := Plan(cfg, model.TemplateLight, 45)

	for _, s := range slots {
		switch s.Segment {
		case model.SegmentWarmup:
			if s.Effort != model.EffortEasy || s.TargetEffort != warmupEffort {
				t.Errorf("warmup slot wrong: %+v", s)
			}
		case model.SegmentCooldown:
			if s.Effort != model.EffortEasy || s.TargetEffort != cooldownEffort {
				t.Errorf("cooldown slot wrong: %+v", s)
			}
		}
	}
}

func TestLightCoreHasNoHardOrMax(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, minutes := range []int{20, 30, 45, 60, 75} {
		slots := Plan(cfg, model.TemplateLight, minutes)

		if countEffort(slots, model.EffortHard)+countEffort(slots, model.EffortMax) != 0 {
			t.Errorf("light minutes=%d: expected no hard/max slots", minutes)
		}
	}
}

func TestHiitAlternatesEasyAndHardInCore(t *testing.T) {
	cfg := config.DefaultConfig()

	slots := hiitCore(8)

	for i, s := range slots {
		if i%2 == 0 && s.Effort != model.EffortHard && s.Effort != model.EffortMax {
			t.Errorf("hiit core slot %d: expected hard or max, got %v", i, s.Effort)
		}

		if i%2 == 1 && s.Effort != model.EffortEasy {
			t.Errorf("hiit core slot %d: expected easy, got %v", i, s.Effort)
		}
	}

	_ = cfg
}

func TestPyramidHasExactlyOneMaxWhenRoomAllows(t *testing.T) {
	cfg := config.DefaultConfig()

	slots := Plan(cfg, model.TemplatePyramid, 60)

	if got := countEffort(slots, model.EffortMax); got != 1 {
		t.Fatalf("expected exactly 1 max slot for a 60-minute pyramid, got %d", got)
	}
}

func TestPyramidFinalCoreSlotIsNotAboveModerate(t *testing.T) {
	cfg := config.DefaultConfig()

	slots := Plan(cfg, model.TemplatePyramid, 60)

	var lastMain model.Slot

	for _, s := range slots {
		if s.Segment == model.SegmentMain {
			lastMain = s
		}
	}

	if lastMain.Effort > model.EffortModerate {
		t.Fatalf("expected pyramid's final core slot <= moderate, got %v", lastMain.Effort)
	}
}

func TestSlotCountMonotoneWithMinutes(t *testing.T) {
	cfg := config.DefaultConfig()

	prev := 0

	for _, minutes := range []int{20, 30, 45, 60, 75} {
		slots := Plan(cfg, model.TemplateLight, minutes)
		if len(slots) < prev {
			t.Errorf("minutes=%d: slot count %d is lower than previous %d", minutes, len(slots), prev)
		}

		prev = len(slots)
	}
}

func TestCooldownAtLeastTwoSlotsWhenFiveMinutesOrMore(t *testing.T) {
	cfg := config.DefaultConfig()

	slots := Plan(cfg, model.TemplateLight, 45)

	cooldownCount := 0

	for _, s := range slots {
		if s.Segment == model.SegmentCooldown {
			cooldownCount++
		}
	}

	if cooldownCount < 2 {
		t.Fatalf("expected at least 2 cooldown slots for a 45-minute run, got %d", cooldownCount)
	}
}
