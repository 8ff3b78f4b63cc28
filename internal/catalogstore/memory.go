package catalogstore

import (
	"context"

	"github.com/stojg/runmix/internal/model"
)

// MemoryLayer is an in-memory Layer implementation used by tests and, as
// empty layers, by the CLI when no catalog DSN is set.
type MemoryLayer struct {
	SourceName model.SourceLayer
	Tracks     []model.Track
	Features   map[string]model.AudioFeature
	Artists    map[string]model.Artist
}

// NewMemoryLayer builds a MemoryLayer, defaulting nil maps to empty ones.
func NewMemoryLayer(source model.SourceLayer, tracks []model.Track, features map[string]model.AudioFeature, artists map[string]model.Artist) *MemoryLayer {
	if features == nil {
		features = map[string]model.AudioFeature{}
	}

	if artists == nil {
		artists = map[string]model.Artist{}
	}

	return &MemoryLayer{SourceName: source, Tracks: tracks, Features: features, Artists: artists}
}

func (m *MemoryLayer) Name() model.SourceLayer { return m.SourceName }

func (m *MemoryLayer) LoadTracks(_ context.Context) ([]model.Track, error) {
	return m.Tracks, nil
}

func (m *MemoryLayer) LoadFeatures(_ context.Context) (map[string]model.AudioFeature, error) {
	return m.Features, nil
}

func (m *MemoryLayer) LoadArtists(_ context.Context) (map[string]model.Artist, error) {
	return m.Artists, nil
}
