package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/stojg/runmix/internal/catalogstore"
	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/musicservice"
	"github.com/stojg/runmix/internal/usagestore"
)

// loadDotenv pulls Spotify credentials and store DSNs from a .env file
// in the working directory. A missing file is not an error: the
// environment may already be populated (CI, systemd).
func loadDotenv() {
	_ = godotenv.Load()
}

// buildCatalogStore wires up the three catalog layers from
// RUNMIX_CATALOG_DSN, one schema per layer ("primary", "secondary",
// "tertiary"). With no DSN set it falls back to empty in-memory layers,
// which keeps "runmix info" and dry generate runs usable without a
// database for local trials.
func buildCatalogStore(ctx context.Context) (*catalogstore.Store, func(), error) {
	dsn := os.Getenv("RUNMIX_CATALOG_DSN")
	if dsn == "" {
		store := &catalogstore.Store{
			Primary:   catalogstore.NewMemoryLayer(model.SourcePrimary, nil, nil, nil),
			Secondary: catalogstore.NewMemoryLayer(model.SourceSecondary, nil, nil, nil),
			Tertiary:  catalogstore.NewMemoryLayer(model.SourceTertiary, nil, nil, nil),
		}

		return store, func() {}, nil
	}

	primary, err := catalogstore.NewPostgresLayer(ctx, dsn, model.SourcePrimary, "primary")
	if err != nil {
		return nil, nil, fmt.Errorf("connect primary catalog layer: %w", err)
	}

	secondary, err := catalogstore.NewPostgresLayer(ctx, dsn, model.SourceSecondary, "secondary")
	if err != nil {
		primary.Close()

		return nil, nil, fmt.Errorf("connect secondary catalog layer: %w", err)
	}

	tertiary, err := catalogstore.NewPostgresLayer(ctx, dsn, model.SourceTertiary, "tertiary")
	if err != nil {
		primary.Close()
		secondary.Close()

		return nil, nil, fmt.Errorf("connect tertiary catalog layer: %w", err)
	}

	store := &catalogstore.Store{Primary: primary, Secondary: secondary, Tertiary: tertiary}

	closer := func() {
		primary.Close()
		secondary.Close()
		tertiary.Close()
	}

	return store, closer, nil
}

// buildUsageStore wires up the Usage Store from RUNMIX_USAGE_DSN,
// falling back to an empty in-memory store when unset.
func buildUsageStore(ctx context.Context) (usagestore.Store, func(), error) {
	dsn := os.Getenv("RUNMIX_USAGE_DSN")
	if dsn == "" {
		return usagestore.NewMemoryStore(nil), func() {}, nil
	}

	store, err := usagestore.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect usage store: %w", err)
	}

	return store, store.Close, nil
}

// buildMusicService wires up the Spotify client from
// SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET/SPOTIFY_USER_ID, falling back
// to a Fake that reports everything playable, for dry trials without
// Spotify credentials.
func buildMusicService(ctx context.Context) (musicservice.Service, error) {
	clientID := os.Getenv("SPOTIFY_CLIENT_ID")
	clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET")
	userID := os.Getenv("SPOTIFY_USER_ID")

	if clientID == "" || clientSecret == "" {
		return &musicservice.Fake{}, nil
	}

	service, err := musicservice.NewSpotifyService(ctx, clientID, clientSecret, userID)
	if err != nil {
		return nil, fmt.Errorf("authenticate with spotify: %w", err)
	}

	return service, nil
}
