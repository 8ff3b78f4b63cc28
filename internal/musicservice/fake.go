package musicservice

import (
	"context"
	"fmt"
)

// Fake is a deterministic Service double for tests, returning fixed
// playability sets and recording playlist creations.
type Fake struct {
	MarketCode string

	// Unplayable holds ids that PlayableIDs should report as not
	// playable; every id not listed is reported playable.
	Unplayable map[string]bool

	// Alternates maps an unplayable id to the alternate id
	// FindAlternatePlayable should return; an id absent here yields
	// ok=false.
	Alternates map[string]string

	// CreatedPlaylists records every CreatePlaylist call for assertions.
	CreatedPlaylists []CreatedPlaylist

	// PlaylistURL is returned by CreatePlaylist; defaults to a fixed
	// fake URL when empty.
	PlaylistURL string

	// FailCreate makes CreatePlaylist return an error, for exercising
	// the PublishFailed path.
	FailCreate bool
}

// CreatedPlaylist captures one CreatePlaylist call.
type CreatedPlaylist struct {
	Name        string
	Description string
	IsPublic    bool
	TrackURIs   []string
}

func (f *Fake) Market(_ context.Context) string {
	if f.MarketCode == "" {
		return DefaultMarket
	}

	return f.MarketCode
}

func (f *Fake) PlayableIDs(_ context.Context, ids []string, _ string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))

	for _, id := range ids {
		out[id] = !f.Unplayable[id]
	}

	return out, nil
}

func (f *Fake) FindAlternatePlayable(_ context.Context, id string, _ string) (string, bool, error) {
	alt, ok := f.Alternates[id]

	return alt, ok, nil
}

func (f *Fake) CreatePlaylist(_ context.Context, name, description string, isPublic bool, trackURIs []string) (string, error) {
	if f.FailCreate {
		return "", fmt.Errorf("musicservice: fake create playlist failure")
	}

	f.CreatedPlaylists = append(f.CreatedPlaylists, CreatedPlaylist{
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
		TrackURIs:   append([]string(nil), trackURIs...),
	})

	if f.PlaylistURL != "" {
		return f.PlaylistURL, nil
	}

	return "https://open.spotify.com/playlist/fake", nil
}
