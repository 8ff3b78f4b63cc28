package preflight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/musicservice"
	"github.com/stojg/runmix/internal/selector"
	"github.com/stojg/runmix/internal/usagestore"
)

func chosen(id, artistID string) model.Chosen {
	return model.Chosen{Candidate: model.Candidate{Track: model.Track{ID: id, ArtistID: artistID}}}
}

func TestPublishUpsertsUsageAfterSuccess(t *testing.T) {
	fake := &musicservice.Fake{}
	usage := usagestore.NewMemoryStore(nil)
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)

	result, err := Publish(context.Background(), Input{
		Music:  fake,
		Usage:  usage,
		Now:    now,
		Chosen: []model.Chosen{chosen("t1", "a1"), chosen("t2", "a2")},
		Name:   "Run Mix",
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if result.PlaylistURL == "" {
		t.Fatal("expected a playlist URL")
	}

	if result.Counts.Checked != 2 || result.Counts.Unplayable != 0 {
		t.Fatalf("unexpected counts: %+v", result.Counts)
	}

	rows, _ := usage.LoadAll(context.Background())
	if rows["t1"].UsedCount != 1 || rows["t1"].LastUsedAt != now {
		t.Fatalf("expected t1 usage updated, got %+v", rows["t1"])
	}
}

func TestPublishSwapsUnplayableForAlternate(t *testing.T) {
	fake := &musicservice.Fake{
		Unplayable: map[string]bool{"t2": true},
		Alternates: map[string]string{"t2": "t2-alt"},
	}
	usage := usagestore.NewMemoryStore(nil)

	result, err := Publish(context.Background(), Input{
		Music:  fake,
		Usage:  usage,
		Now:    time.Now(),
		Chosen: []model.Chosen{chosen("t1", "a1"), chosen("t2", "a2")},
		Name:   "Run Mix",
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if result.Counts.Swapped != 1 || result.Counts.Removed != 0 {
		t.Fatalf("expected one swap, got %+v", result.Counts)
	}

	if len(result.Final) != 2 || result.Final[1].Candidate.Track.ID != "t2-alt" {
		t.Fatalf("expected t2 swapped to t2-alt, got %+v", result.Final)
	}
}

func TestPublishDropsUnplayableWithNoAlternate(t *testing.T) {
	fake := &musicservice.Fake{Unplayable: map[string]bool{"t2": true}}
	usage := usagestore.NewMemoryStore(nil)

	result, err := Publish(context.Background(), Input{
		Music:  fake,
		Usage:  usage,
		Now:    time.Now(),
		Chosen: []model.Chosen{chosen("t1", "a1"), chosen("t2", "a2")},
		Name:   "Run Mix",
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if result.Counts.Removed != 1 || len(result.Final) != 1 {
		t.Fatalf("expected t2 removed, got %+v final=%+v", result.Counts, result.Final)
	}
}

func TestPublishReturnsEmptySelectionWhenEverythingDropped(t *testing.T) {
	fake := &musicservice.Fake{Unplayable: map[string]bool{"t1": true}}
	usage := usagestore.NewMemoryStore(nil)

	_, err := Publish(context.Background(), Input{
		Music:  fake,
		Usage:  usage,
		Now:    time.Now(),
		Chosen: []model.Chosen{chosen("t1", "a1")},
		Name:   "Run Mix",
	})
	if !errors.Is(err, selector.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestPublishDoesNotWriteUsageOnCreateFailure(t *testing.T) {
	fake := &musicservice.Fake{FailCreate: true}
	usage := usagestore.NewMemoryStore(nil)

	_, err := Publish(context.Background(), Input{
		Music:  fake,
		Usage:  usage,
		Now:    time.Now(),
		Chosen: []model.Chosen{chosen("t1", "a1")},
		Name:   "Run Mix",
	})
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	rows, _ := usage.LoadAll(context.Background())
	if len(rows) != 0 {
		t.Fatalf("expected no usage rows written on publish failure, got %+v", rows)
	}
}
