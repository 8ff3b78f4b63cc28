// ABOUTME: Final playability preflight, alternate swaps and playlist publishing
// ABOUTME: Usage rows are written only after playlist creation succeeds

// Package preflight finalizes a selection: a batch playability check
// over the chosen set with alternate-version swaps, playlist creation,
// and usage-store finalization. Usage rows are only upserted after the
// playlist has already been created.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/musicservice"
	"github.com/stojg/runmix/internal/runlog"
	"github.com/stojg/runmix/internal/selector"
	"github.com/stojg/runmix/internal/usagestore"
)

// ErrPublishFailed wraps a playlist-creation failure; on this error the
// usage store is never written.
var ErrPublishFailed = errors.New("preflight: publish failed")

// Counts records the preflight diagnostics.
type Counts struct {
	Checked    int
	Unplayable int
	Swapped    int
	Removed    int
}

// Result is the outcome of a successful Publish call.
type Result struct {
	Final       []model.Chosen
	PlaylistURL string
	Market      string
	Counts      Counts
}

// Input describes one Preflight & Publisher invocation.
type Input struct {
	Music       musicservice.Service
	Usage       usagestore.Store
	Now         time.Time
	Chosen      []model.Chosen
	Name        string
	Description string
	IsPublic    bool
}

// Publish runs the full preflight-then-publish pipeline: batch
// playability check, alternate swaps, playlist creation, and usage
// upserts. Usage is written only after CreatePlaylist succeeds; if the
// chosen set is empty (initially, or after removals) the publisher is
// never invoked.
func Publish(ctx context.Context, in Input) (Result, error) {
	if len(in.Chosen) == 0 {
		return Result{}, selector.ErrEmptySelection
	}

	market := in.Music.Market(ctx)

	ids := make([]string, len(in.Chosen))
	for i, c := range in.Chosen {
		ids[i] = c.Candidate.Track.ID
	}

	playable, err := in.Music.PlayableIDs(ctx, ids, market)
	if err != nil {
		runlog.Debugf("[preflight] batch playability check failed, assuming all playable: %v", err)

		playable = allPlayable(ids)
	}

	final, counts := swapOrDrop(ctx, in.Music, in.Chosen, playable, market)
	counts.Checked = len(ids)

	if len(final) == 0 {
		return Result{}, selector.ErrEmptySelection
	}

	uris := make([]string, len(final))
	for i, c := range final {
		uris[i] = fmt.Sprintf("spotify:track:%s", c.Candidate.Track.ID)
	}

	url, err := in.Music.CreatePlaylist(ctx, in.Name, in.Description, in.IsPublic, uris)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	existing, err := in.Usage.LoadAll(ctx)
	if err != nil {
		runlog.Debugf("[preflight] usage reload before upsert failed, assuming first use: %v", err)
		existing = nil
	}

	for _, c := range final {
		prior := existing[c.Candidate.Track.ID].UsedCount

		row := model.Usage{TrackID: c.Candidate.Track.ID, LastUsedAt: in.Now, UsedCount: prior + 1}
		if err := in.Usage.Upsert(ctx, row); err != nil {
			runlog.Debugf("[preflight] usage upsert failed for %s: %v", c.Candidate.Track.ID, err)
		}
	}

	return Result{Final: final, PlaylistURL: url, Market: market, Counts: counts}, nil
}

func allPlayable(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}

	return out
}

// swapOrDrop walks the chosen list in order, keeping playable tracks as-is,
// substituting an alternate for unplayable ones when available, and
// dropping those with no alternate.
func swapOrDrop(ctx context.Context, music musicservice.Service, chosen []model.Chosen, playable map[string]bool, market string) ([]model.Chosen, Counts) {
	var counts Counts

	final := make([]model.Chosen, 0, len(chosen))

	for _, c := range chosen {
		id := c.Candidate.Track.ID

		if playable[id] {
			final = append(final, c)

			continue
		}

		counts.Unplayable++

		alt, ok, err := music.FindAlternatePlayable(ctx, id, market)
		if err != nil {
			runlog.Debugf("[preflight] alternate lookup failed for %s: %v", id, err)
		}

		if err != nil || !ok {
			counts.Removed++

			runlog.Debugf("[preflight] dropped unplayable track %s with no alternate", id)

			continue
		}

		swapped := c
		swapped.Candidate.Track.ID = alt
		final = append(final, swapped)
		counts.Swapped++

		runlog.Debugf("[preflight] swapped unplayable track %s for alternate %s", id, alt)
	}

	return final, counts
}
