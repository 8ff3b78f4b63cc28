package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/umbrella"
)

// infoOutput reports catalog-wide statistics, useful for sanity-checking
// a catalog before asking "generate" to draw from it.
type infoOutput struct {
	TotalTracks     int            `json:"totalTracks"`
	SourceLikes     int            `json:"sourceLikes"`
	SourcePlaylists int            `json:"sourcePlaylists"`
	SourceThird     int            `json:"sourceThird"`
	WithFeatures    int            `json:"withFeatures"`
	WithTempo       int            `json:"withTempo"`
	Playable        int            `json:"playable"`
	ByDecade        map[string]int `json:"byDecade"`
	ByUmbrella      map[string]int `json:"byUmbrella"`
	GeneratedAt     string         `json:"generatedAt"`
}

func runInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	prettyFlag := fs.Bool("pretty", false, "pretty-print JSON output")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	loadDotenv()

	ctx := context.Background()

	catalog, closeCatalog, err := buildCatalogStore(ctx)
	if err != nil {
		return writeError(*prettyFlag, err)
	}
	defer closeCatalog()

	records, err := catalog.Load(ctx)
	if err != nil {
		return writeError(*prettyFlag, err)
	}

	out := infoOutput{
		ByDecade:    map[string]int{},
		ByUmbrella:  map[string]int{},
		GeneratedAt: runGeneratedAt(),
	}

	for _, rec := range records {
		out.TotalTracks++

		switch rec.Source {
		case model.SourcePrimary:
			out.SourceLikes++
		case model.SourceSecondary:
			out.SourcePlaylists++
		case model.SourceTertiary:
			out.SourceThird++
		}

		if rec.HasFeature {
			out.WithFeatures++

			if rec.Feature.HasTempo() {
				out.WithTempo++
			}
		}

		if rec.Track.IsPlayable {
			out.Playable++
		}

		decade := model.DecadeOf(rec.Track.AlbumReleaseYear)
		out.ByDecade[decadeLabel(decade)]++

		for _, id := range umbrella.Umbrellas(rec.Artist.Genres) {
			out.ByUmbrella[string(id)]++
		}
	}

	return writeJSON(0, *prettyFlag, out)
}

func decadeLabel(decade int) string {
	if decade == 0 {
		return "unknown"
	}

	return fmt.Sprintf("%02ds", decade%100)
}
