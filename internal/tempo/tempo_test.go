// ABOUTME: Tests for the pace/tempo model
// ABOUTME: Validates cadence anchors, tempo windows and tempo_fit scoring

package tempo

import (
	"testing"

	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
)

func TestCadenceAnchorBuckets(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		bucket PaceBucket
		want   float64
	}{
		{PaceA, 158},
		{PaceB, 165},
		{PaceC, 172},
		{PaceD, 178},
	}

	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			got, err := CadenceAnchor(cfg, tt.bucket, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("CadenceAnchor(%s) = %.0f, want %.0f", tt.bucket, got, tt.want)
			}
		})
	}
}

func TestCadenceAnchorOverride(t *testing.T) {
	cfg := config.DefaultConfig()

	got, err := CadenceAnchor(cfg, PaceA, 190)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != 190 {
		t.Errorf("expected override to win, got %.0f", got)
	}

	if _, err := CadenceAnchor(cfg, PaceA, 300); err == nil {
		t.Error("expected error for out-of-range override")
	}
}

func TestFitInsideWindow(t *testing.T) {
	feature := model.AudioFeature{Tempo: 160, Energy: 0.5, Danceability: 0.5}

	fit := Fit(feature, model.EffortEasy, 170, 15) // window [153,170]
	if fit != 1.0 {
		t.Errorf("expected perfect fit inside window, got %.2f", fit)
	}
}

func TestFitHalfDoubleTime(t *testing.T) {
	// anchor 170 easy window [153,170]; a track at 320 BPM is far outside
	// directly, but half-time (160) lands inside the window.
	feature := model.AudioFeature{Tempo: 320, Energy: 0.5, Danceability: 0.5}

	fit := Fit(feature, model.EffortEasy, 170, 15)
	if fit != 1.0 {
		t.Errorf("expected half-time match to score 1.0, got %.2f", fit)
	}
}

func TestFitOutsideWindowScaled(t *testing.T) {
	// window [153,170], tolerance 15; a tempo of 185 is 15 away -> fit 0
	feature := model.AudioFeature{Tempo: 185, Energy: 0.5, Danceability: 0.5}

	fit := Fit(feature, model.EffortEasy, 170, 15)
	if fit != 0 {
		t.Errorf("expected fit 0 at tolerance boundary, got %.2f", fit)
	}
}

func TestFitMissingTempo(t *testing.T) {
	feature := model.AudioFeature{Tempo: 0, Energy: 0.5, Danceability: 0.5}

	fit := Fit(feature, model.EffortEasy, 170, 15)
	want := (0.6*0.5 + 0.4*0.5) * 0.9

	if fit != want {
		t.Errorf("Fit() = %.4f, want %.4f", fit, want)
	}
}

func TestFitMissingEverything(t *testing.T) {
	feature := model.AudioFeature{Tempo: 0, Energy: -1, Danceability: -1}

	if fit := Fit(feature, model.EffortEasy, 170, 15); fit != 0.45 {
		t.Errorf("Fit() = %.2f, want 0.45", fit)
	}
}
