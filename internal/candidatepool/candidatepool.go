// ABOUTME: Candidate pool construction from layered catalogs and usage history
// ABOUTME: Applies feature, duration, playability, lockout, genre and decade filters

// Package candidatepool builds the selectable candidate pool: it loads
// the three catalog layers and usage records, then filters
// down to the set of tracks eligible for selection, with genre
// neighbor-broadening when the filtered pool is too thin.
package candidatepool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/stojg/runmix/internal/catalogstore"
	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/umbrella"
	"github.com/stojg/runmix/internal/usagestore"
)

// ErrFeaturesStarved is returned when no catalog track carries usable
// audio features, before any other filter runs.
var ErrFeaturesStarved = errors.New("candidatepool: no track has audio features")

// ErrPoolEmpty is returned when the pool is empty after every filter,
// including neighbor broadening.
var ErrPoolEmpty = errors.New("candidatepool: pool is empty after filtering")

// Input describes one pool-build request.
type Input struct {
	Store           *catalogstore.Store
	Usage           usagestore.Store
	Now             time.Time
	GenreSelection  []umbrella.ID
	DecadeSelection []int // decade buckets per model.DecadeOf; empty means no filter
	Cfg             config.SelectorConfig
}

// Result is the built pool plus the cross-track aggregate the Scoring
// Core needs for the artist-novelty bonus, which looks at an artist's
// most recently used track regardless of whether that specific track
// survived filtering.
type Result struct {
	Candidates       []model.Candidate
	ArtistLastUsedAt map[string]time.Time
	UsedNeighbors    bool

	// LockedOut holds candidates that satisfied every filter except the
	// recent-use lockout, for the selector's lockout-break relaxation,
	// which may surface one of these once per run.
	LockedOut []model.Candidate
}

// Build loads, dedupes and filters the catalog into a selectable pool.
func Build(ctx context.Context, in Input) (Result, error) {
	records, err := in.Store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("candidatepool: %w", err)
	}

	usage, err := in.Usage.LoadAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("candidatepool: load usage: %w", err)
	}

	artistLastUsed := artistLastUsedAt(records, usage)

	withFeatures := dropWithoutTempo(records)
	if len(withFeatures) == 0 {
		return Result{}, ErrFeaturesStarved
	}

	// Catalog records come out of a map; fix the order so a seeded
	// selection run is reproducible end to end.
	sort.Slice(withFeatures, func(i, j int) bool {
		return withFeatures[i].Track.ID < withFeatures[j].Track.ID
	})

	preLockout := filterDurationAndPlayability(withFeatures, in.Cfg)
	admitted := filterLockout(preLockout, usage, in.Now, in.Cfg.LockoutDays)
	lockedOutRecords := diffRecords(preLockout, admitted)

	genreWeights := umbrella.SelectedWithNeighbors(in.GenreSelection, 0)
	pool := filterGenre(admitted, in.GenreSelection, genreWeights)

	usedNeighbors := false

	if len(in.GenreSelection) > 0 && len(pool) < in.Cfg.MinPoolBeforeNeighbors {
		broadWeights := umbrella.SelectedWithNeighbors(in.GenreSelection, in.Cfg.NeighborWeight)
		pool = filterGenre(admitted, in.GenreSelection, broadWeights)
		genreWeights = broadWeights
		usedNeighbors = true
	}

	pool = filterDecade(pool, in.DecadeSelection)

	candidates := make([]model.Candidate, 0, len(pool))

	for _, rec := range pool {
		u := usage[rec.Track.ID]

		candidates = append(candidates, model.Candidate{
			Track:         rec.Track,
			Feature:       rec.Feature,
			HasFeature:    rec.HasFeature,
			Artist:        rec.Artist,
			IsRediscovery: isRediscovery(u, in.Now, in.Cfg.RediscoveryDays),
			LastUsedAt:    u.LastUsedAt,
			GenreAffinity: umbrella.Affinity(rec.Artist.Genres, genreWeights),
			Source:        rec.Source,
		})
	}

	if len(candidates) == 0 {
		return Result{}, ErrPoolEmpty
	}

	lockedOutRecords = filterGenre(lockedOutRecords, in.GenreSelection, genreWeights)
	lockedOutRecords = filterDecade(lockedOutRecords, in.DecadeSelection)

	lockedOut := make([]model.Candidate, 0, len(lockedOutRecords))

	for _, rec := range lockedOutRecords {
		u := usage[rec.Track.ID]

		lockedOut = append(lockedOut, model.Candidate{
			Track:         rec.Track,
			Feature:       rec.Feature,
			HasFeature:    rec.HasFeature,
			Artist:        rec.Artist,
			IsRediscovery: false,
			LastUsedAt:    u.LastUsedAt,
			GenreAffinity: umbrella.Affinity(rec.Artist.Genres, genreWeights),
			Source:        rec.Source,
		})
	}

	return Result{
		Candidates:       candidates,
		ArtistLastUsedAt: artistLastUsed,
		UsedNeighbors:    usedNeighbors,
		LockedOut:        lockedOut,
	}, nil
}

// diffRecords returns the records in "from" whose track ID is absent
// from "without", preserving the order they appear in "from".
func diffRecords(from, without []catalogstore.Record) []catalogstore.Record {
	excluded := make(map[string]bool, len(without))
	for _, rec := range without {
		excluded[rec.Track.ID] = true
	}

	out := make([]catalogstore.Record, 0, len(from)-len(without))

	for _, rec := range from {
		if !excluded[rec.Track.ID] {
			out = append(out, rec)
		}
	}

	return out
}

func artistLastUsedAt(records map[string]catalogstore.Record, usage map[string]model.Usage) map[string]time.Time {
	out := make(map[string]time.Time)

	for trackID, rec := range records {
		u, ok := usage[trackID]
		if !ok || u.LastUsedAt.IsZero() {
			continue
		}

		if current, exists := out[rec.Track.ArtistID]; !exists || u.LastUsedAt.After(current) {
			out[rec.Track.ArtistID] = u.LastUsedAt
		}
	}

	return out
}

func dropWithoutTempo(records map[string]catalogstore.Record) []catalogstore.Record {
	out := make([]catalogstore.Record, 0, len(records))

	for _, rec := range records {
		if !rec.HasFeature || !rec.Feature.HasTempo() {
			continue
		}

		out = append(out, rec)
	}

	return out
}

func filterDurationAndPlayability(records []catalogstore.Record, cfg config.SelectorConfig) []catalogstore.Record {
	out := make([]catalogstore.Record, 0, len(records))

	for _, rec := range records {
		if rec.Track.DurationMs < cfg.MinTrackDurationMs || rec.Track.DurationMs > cfg.MaxTrackDurationMs {
			continue
		}

		if !rec.Track.IsPlayable {
			continue
		}

		out = append(out, rec)
	}

	return out
}

func filterLockout(records []catalogstore.Record, usage map[string]model.Usage, now time.Time, lockoutDays int) []catalogstore.Record {
	out := make([]catalogstore.Record, 0, len(records))

	for _, rec := range records {
		u, ok := usage[rec.Track.ID]
		if ok && !u.LastUsedAt.IsZero() {
			daysSince := now.Sub(u.LastUsedAt).Hours() / 24
			if daysSince < float64(lockoutDays) {
				continue
			}
		}

		out = append(out, rec)
	}

	return out
}

func filterGenre(records []catalogstore.Record, selected []umbrella.ID, weights map[umbrella.ID]float64) []catalogstore.Record {
	if len(selected) == 0 {
		return records
	}

	out := make([]catalogstore.Record, 0, len(records))

	for _, rec := range records {
		if umbrella.Affinity(rec.Artist.Genres, weights) > 0 {
			out = append(out, rec)
		}
	}

	return out
}

func filterDecade(records []catalogstore.Record, decades []int) []catalogstore.Record {
	if len(decades) == 0 {
		return records
	}

	wanted := make(map[int]bool, len(decades))
	for _, d := range decades {
		wanted[d] = true
	}

	out := make([]catalogstore.Record, 0, len(records))

	for _, rec := range records {
		if wanted[model.DecadeOf(rec.Track.AlbumReleaseYear)] {
			out = append(out, rec)
		}
	}

	return out
}

func isRediscovery(u model.Usage, now time.Time, rediscoveryDays int) bool {
	if u.LastUsedAt.IsZero() {
		return true
	}

	daysSince := now.Sub(u.LastUsedAt).Hours() / 24

	return daysSince >= float64(rediscoveryDays)
}
