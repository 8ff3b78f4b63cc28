package candidatepool

import (
	"context"
	"testing"
	"time"

	"github.com/stojg/runmix/internal/catalogstore"
	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/umbrella"
	"github.com/stojg/runmix/internal/usagestore"
)

func track(id, artistID string, durationMs int, year int) model.Track {
	return model.Track{ID: id, ArtistID: artistID, Name: id, DurationMs: durationMs, IsPlayable: true, AlbumReleaseYear: year}
}

func baseInput(tracks []model.Track, features map[string]model.AudioFeature, artists map[string]model.Artist, usage map[string]model.Usage) Input {
	layer := catalogstore.NewMemoryLayer(model.SourcePrimary, tracks, features, artists)

	return Input{
		Store: &catalogstore.Store{Primary: layer},
		Usage: usagestore.NewMemoryStore(usage),
		Now:   time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Cfg:   config.DefaultConfig(),
	}
}

func TestBuildDropsTracksWithoutTempo(t *testing.T) {
	tracks := []model.Track{track("t1", "a1", 200_000, 2022), track("t2", "a2", 200_000, 2022)}
	features := map[string]model.AudioFeature{"t1": {Tempo: 160, Energy: 0.5, Danceability: 0.5}}

	in := baseInput(tracks, features, nil, nil)

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Track.ID != "t1" {
		t.Fatalf("expected only t1 to survive, got %+v", result.Candidates)
	}
}

func TestBuildReturnsFeaturesStarvedWhenNoneHaveTempo(t *testing.T) {
	tracks := []model.Track{track("t1", "a1", 200_000, 2022)}

	in := baseInput(tracks, nil, nil, nil)

	_, err := Build(context.Background(), in)
	if err != ErrFeaturesStarved {
		t.Fatalf("expected ErrFeaturesStarved, got %v", err)
	}
}

func TestBuildFiltersDurationBounds(t *testing.T) {
	tracks := []model.Track{
		track("short", "a1", 50_000, 2022),
		track("ok", "a2", 200_000, 2022),
		track("long", "a3", 400_000, 2022),
	}
	features := map[string]model.AudioFeature{
		"short": {Tempo: 160}, "ok": {Tempo: 160}, "long": {Tempo: 160},
	}

	in := baseInput(tracks, features, nil, nil)

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Track.ID != "ok" {
		t.Fatalf("expected only 'ok' to survive duration filter, got %+v", result.Candidates)
	}
}

func TestBuildExcludesUnplayable(t *testing.T) {
	tracks := []model.Track{track("t1", "a1", 200_000, 2022)}
	tracks[0].IsPlayable = false

	features := map[string]model.AudioFeature{"t1": {Tempo: 160}}

	in := baseInput(tracks, features, nil, nil)

	_, err := Build(context.Background(), in)
	if err != ErrPoolEmpty {
		t.Fatalf("expected ErrPoolEmpty for an all-unplayable catalog, got %v", err)
	}
}

func TestBuildAppliesTenDayLockout(t *testing.T) {
	tracks := []model.Track{track("t1", "a1", 200_000, 2022), track("t2", "a2", 200_000, 2022)}
	features := map[string]model.AudioFeature{"t1": {Tempo: 160}, "t2": {Tempo: 160}}

	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	usage := map[string]model.Usage{
		"t1": {TrackID: "t1", LastUsedAt: now.Add(-2 * 24 * time.Hour), UsedCount: 1},
	}

	in := baseInput(tracks, features, nil, usage)
	in.Now = now

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Track.ID != "t2" {
		t.Fatalf("expected only t2 to survive lockout, got %+v", result.Candidates)
	}
}

func TestBuildComputesRediscovery(t *testing.T) {
	tracks := []model.Track{track("t1", "a1", 200_000, 2022), track("t2", "a2", 200_000, 2022)}
	features := map[string]model.AudioFeature{"t1": {Tempo: 160}, "t2": {Tempo: 160}}

	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	usage := map[string]model.Usage{
		"t1": {TrackID: "t1", LastUsedAt: now.Add(-90 * 24 * time.Hour), UsedCount: 1},
		"t2": {TrackID: "t2", LastUsedAt: now.Add(-5 * 24 * time.Hour), UsedCount: 1},
	}

	in := baseInput(tracks, features, nil, usage)
	in.Now = now
	in.Cfg.LockoutDays = 0 // isolate rediscovery from the lockout filter

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	byID := map[string]model.Candidate{}
	for _, c := range result.Candidates {
		byID[c.Track.ID] = c
	}

	if !byID["t1"].IsRediscovery {
		t.Error("expected t1 (90 days since use) to be a rediscovery")
	}

	if byID["t2"].IsRediscovery {
		t.Error("expected t2 (5 days since use) to not be a rediscovery")
	}
}

func TestBuildGenreFilterAndNeighborBroadening(t *testing.T) {
	tracks := []model.Track{
		track("pop1", "a1", 200_000, 2022),
		track("rock1", "a2", 200_000, 2022),
	}
	features := map[string]model.AudioFeature{"pop1": {Tempo: 160}, "rock1": {Tempo: 160}}
	artists := map[string]model.Artist{
		"a1": {ID: "a1", Genres: []string{"pop"}},
		"a2": {ID: "a2", Genres: []string{"rock"}},
	}

	in := baseInput(tracks, features, artists, nil)
	in.GenreSelection = []umbrella.ID{umbrella.Pop}
	in.Cfg.MinPoolBeforeNeighbors = 0 // force no broadening for this assertion

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Track.ID != "pop1" {
		t.Fatalf("expected only pop1 under selected-only genre filter, got %+v", result.Candidates)
	}

	if result.UsedNeighbors {
		t.Error("did not expect neighbor broadening when pool already meets the threshold")
	}
}

func TestBuildBroadensNeighborsWhenPoolThin(t *testing.T) {
	tracks := []model.Track{
		track("pop1", "a1", 200_000, 2022),
		track("electronic1", "a2", 200_000, 2022),
	}
	features := map[string]model.AudioFeature{"pop1": {Tempo: 160}, "electronic1": {Tempo: 160}}
	artists := map[string]model.Artist{
		"a1": {ID: "a1", Genres: []string{"pop"}},
		"a2": {ID: "a2", Genres: []string{"electronic"}},
	}

	in := baseInput(tracks, features, artists, nil)
	in.GenreSelection = []umbrella.ID{umbrella.Pop}
	in.Cfg.MinPoolBeforeNeighbors = 200

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if !result.UsedNeighbors {
		t.Fatal("expected neighbor broadening to activate for a thin pool")
	}

	if len(result.Candidates) != 2 {
		t.Fatalf("expected both pop and its Electronic neighbor after broadening, got %+v", result.Candidates)
	}
}

func TestBuildDecadeFilter(t *testing.T) {
	tracks := []model.Track{track("old", "a1", 200_000, 1995), track("new", "a2", 200_000, 2023)}
	features := map[string]model.AudioFeature{"old": {Tempo: 160}, "new": {Tempo: 160}}

	in := baseInput(tracks, features, nil, nil)
	in.DecadeSelection = []int{2020}

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Track.ID != "new" {
		t.Fatalf("expected only 'new' under 20s decade filter, got %+v", result.Candidates)
	}
}

func TestArtistLastUsedAtAggregatesAcrossTracks(t *testing.T) {
	tracks := []model.Track{track("t1", "a1", 200_000, 2022), track("t2", "a1", 200_000, 2022)}
	features := map[string]model.AudioFeature{"t1": {Tempo: 160}, "t2": {Tempo: 160}}

	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	older := now.Add(-40 * 24 * time.Hour)
	newer := now.Add(-5 * 24 * time.Hour)

	usage := map[string]model.Usage{
		"t1": {TrackID: "t1", LastUsedAt: older, UsedCount: 1},
		"t2": {TrackID: "t2", LastUsedAt: newer, UsedCount: 1},
	}

	in := baseInput(tracks, features, nil, usage)
	in.Now = now
	in.Cfg.LockoutDays = 0

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	got := result.ArtistLastUsedAt["a1"]
	if !got.Equal(newer) {
		t.Fatalf("expected artist a1's last used to be the newer timestamp %v, got %v", newer, got)
	}
}

func TestBuildReportsLockedOutCandidates(t *testing.T) {
	tracks := []model.Track{track("locked", "a1", 200_000, 2022), track("free", "a2", 200_000, 2022)}
	features := map[string]model.AudioFeature{"locked": {Tempo: 160}, "free": {Tempo: 160}}

	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	usage := map[string]model.Usage{
		"locked": {TrackID: "locked", LastUsedAt: now.Add(-2 * 24 * time.Hour), UsedCount: 1},
	}

	in := baseInput(tracks, features, nil, usage)
	in.Now = now

	result, err := Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(result.Candidates) != 1 || result.Candidates[0].Track.ID != "free" {
		t.Fatalf("expected only 'free' in the filtered pool, got %+v", result.Candidates)
	}

	if len(result.LockedOut) != 1 || result.LockedOut[0].Track.ID != "locked" {
		t.Fatalf("expected 'locked' to surface as a lockout-break candidate, got %+v", result.LockedOut)
	}
}
