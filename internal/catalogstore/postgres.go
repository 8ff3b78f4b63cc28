package catalogstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stojg/runmix/internal/model"
)

// PostgresLayer reads one catalog layer from a Postgres schema via
// pgx/v5's pool. Each layer is a distinct schema (e.g. "primary",
// "secondary", "tertiary") holding tracks/audio_features/artists tables
// with the same column shapes.
type PostgresLayer struct {
	Pool   *pgxpool.Pool
	Source model.SourceLayer
	Schema string
}

// NewPostgresLayer connects to Postgres using the given connection
// string and returns a Layer for the given catalog source/schema.
func NewPostgresLayer(ctx context.Context, connString string, source model.SourceLayer, schema string) (*PostgresLayer, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: connect to postgres: %w", err)
	}

	return &PostgresLayer{Pool: pool, Source: source, Schema: schema}, nil
}

// Close releases the underlying connection pool.
func (p *PostgresLayer) Close() {
	p.Pool.Close()
}

func (p *PostgresLayer) Name() model.SourceLayer { return p.Source }

func (p *PostgresLayer) LoadTracks(ctx context.Context) ([]model.Track, error) {
	query := fmt.Sprintf(`
		SELECT id, name, artist_id, duration_ms, album_release_year, is_playable, album_name, popularity
		FROM %s.tracks`, pgxIdent(p.Schema))

	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []model.Track

	for rows.Next() {
		var (
			t       model.Track
			year    *int
			popular *int
		)

		if err := rows.Scan(&t.ID, &t.Name, &t.ArtistID, &t.DurationMs, &year, &t.IsPlayable, &t.AlbumName, &popular); err != nil {
			return nil, fmt.Errorf("catalogstore: scan track: %w", err)
		}

		if year != nil {
			t.AlbumReleaseYear = *year
		}

		if popular != nil {
			t.Popularity = *popular
		}

		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogstore: iterate tracks: %w", err)
	}

	return tracks, nil
}

func (p *PostgresLayer) LoadFeatures(ctx context.Context) (map[string]model.AudioFeature, error) {
	query := fmt.Sprintf(`
		SELECT track_id, tempo, energy, danceability, valence, loudness, key, mode, time_signature
		FROM %s.audio_features`, pgxIdent(p.Schema))

	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: query features: %w", err)
	}
	defer rows.Close()

	features := make(map[string]model.AudioFeature)

	for rows.Next() {
		var (
			trackID string
			f       model.AudioFeature
		)

		if err := rows.Scan(&trackID, &f.Tempo, &f.Energy, &f.Danceability, &f.Valence, &f.Loudness, &f.Key, &f.Mode, &f.TimeSignature); err != nil {
			return nil, fmt.Errorf("catalogstore: scan feature: %w", err)
		}

		features[trackID] = f
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogstore: iterate features: %w", err)
	}

	return features, nil
}

func (p *PostgresLayer) LoadArtists(ctx context.Context) (map[string]model.Artist, error) {
	query := fmt.Sprintf(`SELECT id, name, genres, popularity FROM %s.artists`, pgxIdent(p.Schema))

	rows, err := p.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: query artists: %w", err)
	}
	defer rows.Close()

	artists := make(map[string]model.Artist)

	for rows.Next() {
		var a model.Artist

		if err := rows.Scan(&a.ID, &a.Name, &a.Genres, &a.Popularity); err != nil {
			return nil, fmt.Errorf("catalogstore: scan artist: %w", err)
		}

		artists[a.ID] = a
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogstore: iterate artists: %w", err)
	}

	return artists, nil
}

// pgxIdent quotes a schema name for safe interpolation into a query
// string; schema names come from trusted configuration, never user input.
func pgxIdent(schema string) string {
	return `"` + schema + `"`
}
