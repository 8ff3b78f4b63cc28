// ABOUTME: JSON output assembly for the generate subcommand
// ABOUTME: Field names here are the CLI's output contract

package main

import (
	"encoding/json"
	"io"

	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/preflight"
)

func encodeJSON(w io.Writer, pretty bool, v any) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(v)
}

// slotOutput is one entry of the generate output's per-slot breakdown,
// carrying the full diagnostics for a chosen track.
type slotOutput struct {
	Index           int      `json:"index"`
	Segment         string   `json:"segment"`
	Effort          string   `json:"effort"`
	TargetEffort    float64  `json:"targetEffort"`
	TrackID         string   `json:"trackId"`
	TrackName       string   `json:"trackName"`
	ArtistID        string   `json:"artistId"`
	ArtistName      string   `json:"artistName"`
	Tempo           float64  `json:"tempo"`
	Energy          float64  `json:"energy"`
	Danceability    float64  `json:"danceability"`
	DurationSeconds int      `json:"durationSeconds"`
	TempoFit        float64  `json:"tempoFit"`
	EffortIndex     float64  `json:"effortIndex"`
	SlotFit         float64  `json:"slotFit"`
	GenreAffinity   float64  `json:"genreAffinity"`
	IsRediscovery   bool     `json:"isRediscovery"`
	UsedNeighbor    bool     `json:"usedNeighbor"`
	BrokeLockout    bool     `json:"brokeLockout"`
	Source          string   `json:"source"`
	Genres          []string `json:"genres"`
}

// generateOutput is the full JSON object "runmix generate" prints on
// success. Field names are part of the output contract.
type generateOutput struct {
	Template   string   `json:"template"`
	RunMinutes int      `json:"runMinutes"`
	Genres     []string `json:"genres"`
	Decades    []string `json:"decades"`
	TrackIDs   []string `json:"trackIds"`
	ArtistIDs  []string `json:"artistIds"`
	Efforts    []string `json:"efforts"`
	Sources    []string `json:"sources"`

	TotalSeconds    int `json:"totalSeconds"`
	MinSeconds      int `json:"minSeconds"`
	MaxSeconds      int `json:"maxSeconds"`
	WarmupSeconds   int `json:"warmupSeconds"`
	MainSeconds     int `json:"mainSeconds"`
	CooldownSeconds int `json:"cooldownSeconds"`
	WarmupTarget    int `json:"warmupTarget"`
	MainTarget      int `json:"mainTarget"`
	CooldownTarget  int `json:"cooldownTarget"`

	PreflightUnplayable int `json:"preflightUnplayable"`
	Swapped             int `json:"swapped"`
	Removed             int `json:"removed"`
	Market              string `json:"market"`
	PlaylistURL         string `json:"playlistUrl"`

	Slots []slotOutput `json:"slots"`

	AvgTempoFit        float64 `json:"avgTempoFit"`
	AvgSlotFit         float64 `json:"avgSlotFit"`
	AvgGenreAffinity   float64 `json:"avgGenreAffinity"`
	RediscoveryPct     float64 `json:"rediscoveryPct"`
	UniqueArtists      int     `json:"uniqueArtists"`
	NeighborRelaxSlots int     `json:"neighborRelaxSlots"`
	LockoutBreaks      int     `json:"lockoutBreaks"`

	SourceLikes     int `json:"sourceLikes"`
	SourcePlaylists int `json:"sourcePlaylists"`
	SourceThird     int `json:"sourceThird"`

	DebugLines []string `json:"debugLines,omitempty"`
	GeneratedAt string  `json:"generatedAt"`
}

// buildGenerateOutput assembles the generate JSON from a completed
// selection and publish result. pub.Final carries the post-swap/drop
// chosen list, which is what gets reported as the actual playlist
// contents; sel carries the aggregate diagnostics computed over the
// pre-preflight selection.
func buildGenerateOutput(params generateParams, sel model.SelectionResult, pub preflight.Result, debugLines []string, generatedAt string) generateOutput {
	out := generateOutput{
		Template:   params.templateName,
		RunMinutes: params.minutes,
		Genres:     params.genreNames,
		Decades:    params.decadeLabels,

		TotalSeconds:    sel.TotalSeconds,
		MinSeconds:      sel.MinTargetSeconds,
		MaxSeconds:      sel.MaxTargetSeconds,
		WarmupSeconds:   sel.WarmupSeconds,
		MainSeconds:     sel.MainSeconds,
		CooldownSeconds: sel.CooldownSeconds,
		WarmupTarget:    sel.WarmupTargetSeconds,
		MainTarget:      sel.MainTargetSeconds,
		CooldownTarget:  sel.CooldownTargetSeconds,

		PreflightUnplayable: pub.Counts.Unplayable,
		Swapped:             pub.Counts.Swapped,
		Removed:             pub.Counts.Removed,
		Market:              pub.Market,
		PlaylistURL:         pub.PlaylistURL,

		NeighborRelaxSlots: sel.NeighborRelaxSlots,
		LockoutBreaks:      sel.LockoutBreaks,

		DebugLines:  debugLines,
		GeneratedAt: generatedAt,
	}

	final := pub.Final
	if final == nil {
		final = sel.Chosen
	}

	artists := make(map[string]bool, len(final))

	var (
		tempoFitSum, slotFitSum, affinitySum float64
		rediscoveryCount                     int
	)

	for i, c := range final {
		out.TrackIDs = append(out.TrackIDs, c.Candidate.Track.ID)
		out.ArtistIDs = append(out.ArtistIDs, c.Candidate.Track.ArtistID)
		out.Efforts = append(out.Efforts, c.Slot.Effort.String())
		out.Sources = append(out.Sources, c.Candidate.Source.String())

		artists[c.Candidate.Track.ArtistID] = true

		tempoFitSum += c.TempoFit
		slotFitSum += c.SlotFit
		affinitySum += c.Candidate.GenreAffinity

		if c.Candidate.IsRediscovery {
			rediscoveryCount++
		}

		switch c.Candidate.Source {
		case model.SourcePrimary:
			out.SourceLikes++
		case model.SourceSecondary:
			out.SourcePlaylists++
		case model.SourceTertiary:
			out.SourceThird++
		}

		out.Slots = append(out.Slots, slotOutput{
			Index:           i,
			Segment:         c.Slot.Segment.String(),
			Effort:          c.Slot.Effort.String(),
			TargetEffort:    c.Slot.TargetEffort,
			TrackID:         c.Candidate.Track.ID,
			TrackName:       c.Candidate.Track.Name,
			ArtistID:        c.Candidate.Track.ArtistID,
			ArtistName:      c.Candidate.Artist.Name,
			Tempo:           c.Candidate.Feature.Tempo,
			Energy:          c.Candidate.Feature.Energy,
			Danceability:    c.Candidate.Feature.Danceability,
			DurationSeconds: c.Candidate.Track.DurationMs / 1000,
			TempoFit:        c.TempoFit,
			EffortIndex:     c.EffortIndex,
			SlotFit:         c.SlotFit,
			GenreAffinity:   c.Candidate.GenreAffinity,
			IsRediscovery:   c.Candidate.IsRediscovery,
			UsedNeighbor:    c.UsedNeighbor,
			BrokeLockout:    c.BrokeLockout,
			Source:          c.Candidate.Source.String(),
			Genres:          c.Candidate.Artist.Genres,
		})
	}

	if n := len(final); n > 0 {
		out.AvgTempoFit = tempoFitSum / float64(n)
		out.AvgSlotFit = slotFitSum / float64(n)
		out.AvgGenreAffinity = affinitySum / float64(n)
		out.RediscoveryPct = float64(rediscoveryCount) / float64(n)
	}

	out.UniqueArtists = len(artists)

	return out
}
