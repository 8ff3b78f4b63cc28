// ABOUTME: Three-layer catalog store interface and merge-with-precedence load
// ABOUTME: Layers load in parallel and dedupe by track id

// Package catalogstore defines the three-layer catalog interface
// (Primary/Secondary/Tertiary) and an in-memory implementation used by
// tests and fixtures. See postgres.go for the Postgres-backed
// implementation.
package catalogstore

import (
	"context"
	"fmt"

	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/runlog"
	"github.com/stojg/runmix/internal/workerpool"
)

// Layer is one catalog layer: Primary (liked), Secondary (playlists) or
// Tertiary (curated). Each layer is read-only from the planner's
// perspective.
type Layer interface {
	Name() model.SourceLayer
	LoadTracks(ctx context.Context) ([]model.Track, error)
	LoadFeatures(ctx context.Context) (map[string]model.AudioFeature, error)
	LoadArtists(ctx context.Context) (map[string]model.Artist, error)
}

// Record is a single deduplicated catalog entry after merging layers.
type Record struct {
	Track      model.Track
	Feature    model.AudioFeature
	HasFeature bool
	Artist     model.Artist
	Source     model.SourceLayer
}

// Store bundles the three catalog layers.
type Store struct {
	Primary   Layer
	Secondary Layer
	Tertiary  Layer
}

type layerResult struct {
	layer    Layer
	tracks   []model.Track
	features map[string]model.AudioFeature
	artists  map[string]model.Artist
	err      error
}

// Load reads all three layers in parallel (independent I/O-bound reads)
// and merges them by trackId with Primary > Secondary > Tertiary
// precedence.
func (s *Store) Load(ctx context.Context) (map[string]Record, error) {
	layers := []Layer{s.Primary, s.Secondary, s.Tertiary}

	results := make([]layerResult, len(layers))

	pool := workerpool.New(len(layers))
	defer pool.Close()

	for i, layer := range layers {
		i, layer := i, layer

		if layer == nil {
			continue
		}

		pool.Submit(func() error {
			tracks, err := layer.LoadTracks(ctx)
			if err != nil {
				err = fmt.Errorf("layer %s: %w", layer.Name(), err)
				results[i] = layerResult{layer: layer, err: err}

				return err
			}

			features, err := layer.LoadFeatures(ctx)
			if err != nil {
				err = fmt.Errorf("layer %s: %w", layer.Name(), err)
				results[i] = layerResult{layer: layer, err: err}

				return err
			}

			artists, err := layer.LoadArtists(ctx)
			if err != nil {
				err = fmt.Errorf("layer %s: %w", layer.Name(), err)
				results[i] = layerResult{layer: layer, err: err}

				return err
			}

			results[i] = layerResult{layer: layer, tracks: tracks, features: features, artists: artists}

			return nil
		})
	}

	pool.Wait()

	for _, err := range pool.Errors() {
		runlog.Debugf("[catalogstore] layer load failed: %v", err)
	}

	merged := make(map[string]Record)
	anyLoaded := false

	// Apply in precedence order so later layers never overwrite an
	// already-present (higher-priority) trackId.
	for _, res := range results {
		if res.layer == nil {
			continue
		}

		if res.err != nil {
			continue
		}

		anyLoaded = true

		for _, track := range res.tracks {
			if _, exists := merged[track.ID]; exists {
				continue
			}

			feature, hasFeature := res.features[track.ID]
			artist := res.artists[track.ArtistID]

			merged[track.ID] = Record{
				Track:      track,
				Feature:    feature,
				HasFeature: hasFeature,
				Artist:     artist,
				Source:     res.layer.Name(),
			}
		}
	}

	if !anyLoaded {
		return nil, ErrCatalogUnavailable
	}

	return merged, nil
}

// ErrCatalogUnavailable is returned when no catalog layer could be read.
var ErrCatalogUnavailable = fmt.Errorf("catalogstore: no catalog layer could be read")
