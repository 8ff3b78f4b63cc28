// ABOUTME: Spotify Web API adapter for the music service interface
// ABOUTME: Client-credentials auth, batched track lookups, playlist creation

package musicservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2/clientcredentials"
)

const spotifyTokenURL = "https://accounts.spotify.com/api/token"

// SpotifyService adapts the zmb3/spotify/v2 client to the Service
// interface.
type SpotifyService struct {
	client *spotify.Client
	userID string
}

// NewSpotifyService authenticates via the client-credentials flow and
// returns a Service backed by the real Spotify Web API.
func NewSpotifyService(ctx context.Context, clientID, clientSecret, userID string) (*SpotifyService, error) {
	authCfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	httpClient := authCfg.Client(ctx)
	client := spotify.New(httpClient)

	return &SpotifyService{client: client, userID: userID}, nil
}

func (s *SpotifyService) Market(ctx context.Context) string {
	user, err := s.client.CurrentUser(ctx)
	if err != nil || user.Country == "" {
		return DefaultMarket
	}

	return user.Country
}

func (s *SpotifyService) PlayableIDs(ctx context.Context, ids []string, market string) (map[string]bool, error) {
	playable := make(map[string]bool, len(ids))

	const batchSize = 50

	for i := 0; i < len(ids); i += batchSize {
		end := min(i+batchSize, len(ids))

		spotifyIDs := make([]spotify.ID, end-i)
		for j, id := range ids[i:end] {
			spotifyIDs[j] = spotify.ID(id)
		}

		tracks, err := s.client.GetTracks(ctx, spotifyIDs, spotify.Market(market))
		if err != nil {
			return nil, fmt.Errorf("musicservice: get tracks: %w", err)
		}

		for j, track := range tracks {
			if track == nil {
				continue
			}

			// A nil is_playable from the API means no relinking data for
			// the market; treat it as playable.
			playable[string(spotifyIDs[j])] = track.IsPlayable == nil || *track.IsPlayable
		}
	}

	return playable, nil
}

func (s *SpotifyService) FindAlternatePlayable(ctx context.Context, id string, market string) (string, bool, error) {
	track, err := s.client.GetTrack(ctx, spotify.ID(id), spotify.Market(market))
	if err != nil {
		return "", false, fmt.Errorf("musicservice: get track: %w", err)
	}

	if track.LinkedFrom != nil && track.LinkedFrom.ID != "" {
		return string(track.LinkedFrom.ID), true, nil
	}

	results, err := s.client.Search(ctx, fmt.Sprintf("track:%s artist:%s", track.Name, firstArtistName(track)), spotify.SearchTypeTrack, spotify.Market(market))
	if err != nil || results.Tracks == nil {
		return "", false, nil
	}

	for _, candidate := range results.Tracks.Tracks {
		if candidate.IsPlayable != nil && *candidate.IsPlayable && string(candidate.ID) != id {
			return string(candidate.ID), true, nil
		}
	}

	return "", false, nil
}

func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, isPublic bool, trackURIs []string) (string, error) {
	playlist, err := s.client.CreatePlaylistForUser(ctx, s.userID, name, description, isPublic, false)
	if err != nil {
		return "", fmt.Errorf("musicservice: create playlist: %w", err)
	}

	ids := make([]spotify.ID, 0, len(trackURIs))

	for _, uri := range trackURIs {
		parts := strings.Split(uri, ":")
		if len(parts) == 3 {
			ids = append(ids, spotify.ID(parts[2]))
		} else {
			ids = append(ids, spotify.ID(uri))
		}
	}

	const batchSize = 100

	for i := 0; i < len(ids); i += batchSize {
		end := min(i+batchSize, len(ids))

		if _, err := s.client.AddTracksToPlaylist(ctx, playlist.ID, ids[i:end]...); err != nil {
			return "", fmt.Errorf("musicservice: add tracks to playlist (batch %d-%d): %w", i, end, err)
		}
	}

	return playlist.ExternalURLs["spotify"], nil
}

func firstArtistName(track *spotify.FullTrack) string {
	if len(track.Artists) == 0 {
		return ""
	}

	return track.Artists[0].Name
}
