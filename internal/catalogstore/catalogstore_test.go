package catalogstore

import (
	"context"
	"testing"

	"github.com/stojg/runmix/internal/model"
)

func track(id, artistID string) model.Track {
	return model.Track{ID: id, ArtistID: artistID, Name: id, DurationMs: 200_000}
}

func TestLoadMergesLayersWithPrecedence(t *testing.T) {
	primary := NewMemoryLayer(model.SourcePrimary, []model.Track{track("t1", "a1")}, nil, nil)
	secondary := NewMemoryLayer(model.SourceSecondary, []model.Track{track("t1", "a1"), track("t2", "a2")}, nil, nil)
	tertiary := NewMemoryLayer(model.SourceTertiary, []model.Track{track("t3", "a3")}, nil, nil)

	store := &Store{Primary: primary, Secondary: secondary, Tertiary: tertiary}

	merged, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(merged) != 3 {
		t.Fatalf("expected 3 merged records, got %d", len(merged))
	}

	if got := merged["t1"].Source; got != model.SourcePrimary {
		t.Fatalf("expected t1 to come from Primary, got %s", got)
	}

	if got := merged["t2"].Source; got != model.SourceSecondary {
		t.Fatalf("expected t2 to come from Secondary, got %s", got)
	}

	if got := merged["t3"].Source; got != model.SourceTertiary {
		t.Fatalf("expected t3 to come from Tertiary, got %s", got)
	}
}

func TestLoadAttachesFeaturesAndArtists(t *testing.T) {
	features := map[string]model.AudioFeature{"t1": {Tempo: 170, Energy: 0.8}}
	artists := map[string]model.Artist{"a1": {ID: "a1", Name: "Artist One", Genres: []string{"pop"}}}

	primary := NewMemoryLayer(model.SourcePrimary, []model.Track{track("t1", "a1")}, features, artists)

	store := &Store{Primary: primary}

	merged, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	rec, ok := merged["t1"]
	if !ok {
		t.Fatal("expected t1 in merged result")
	}

	if !rec.HasFeature || rec.Feature.Tempo != 170 {
		t.Fatalf("expected feature attached, got %+v", rec.Feature)
	}

	if rec.Artist.Name != "Artist One" {
		t.Fatalf("expected artist attached, got %+v", rec.Artist)
	}
}

func TestLoadReturnsErrorWhenNoLayersConfigured(t *testing.T) {
	store := &Store{}

	_, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("expected an error when no layers are configured")
	}
}
