// ABOUTME: The generate subcommand: full plan-select-publish pipeline
// ABOUTME: Parses template/minutes/genres/decades flags into a selection run

package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stojg/runmix/internal/candidatepool"
	"github.com/stojg/runmix/internal/config"
	"github.com/stojg/runmix/internal/model"
	"github.com/stojg/runmix/internal/preflight"
	"github.com/stojg/runmix/internal/runlog"
	"github.com/stojg/runmix/internal/selector"
	"github.com/stojg/runmix/internal/tempo"
	"github.com/stojg/runmix/internal/timelineplan"
	"github.com/stojg/runmix/internal/umbrella"
)

// generateParams holds the parsed generate subcommand flags, plus the
// normalized forms each pipeline stage consumes.
type generateParams struct {
	templateName string
	minutes      int
	genreNames   []string
	genreIDs     []umbrella.ID
	decadeLabels []string
	decadeInts   []int
	pace         tempo.PaceBucket
	overrideSPM  float64
	name         string
	description  string
	public       bool
	pretty       bool
	debug        bool
	seed         int64
}

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)

	templateFlag := fs.String("template", "tempo", "workout template: light|tempo|hiit|intervals|pyramid|kicker|rest")
	minutesFlag := fs.Int("minutes", 30, "target run duration in minutes")
	genresFlag := fs.String("genres", "", "comma-separated umbrella genres to filter by")
	decadesFlag := fs.String("decades", "", "comma-separated decades to filter by, e.g. 90s,00s,10s")
	paceFlag := fs.String("pace", "B", "cadence pace bucket: A|B|C|D")
	spmFlag := fs.Float64("spm", 0, "override cadence in steps per minute [80,220]; 0 uses --pace")
	nameFlag := fs.String("name", "", "playlist name (default: generated from the template name)")
	descFlag := fs.String("description", "", "playlist description")
	publicFlag := fs.Bool("public", false, "create the playlist as public")
	prettyFlag := fs.Bool("pretty", false, "pretty-print JSON output")
	debugFlag := fs.Bool("debug", false, "enable debug logging to runmix-debug.log")
	seedFlag := fs.Int64("seed", 0, "seed for the stochastic pick; 0 derives a seed from the clock")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	params := generateParams{
		templateName: *templateFlag,
		minutes:      *minutesFlag,
		pace:         tempo.PaceBucket(strings.ToUpper(strings.TrimSpace(*paceFlag))),
		overrideSPM:  *spmFlag,
		name:         *nameFlag,
		description:  *descFlag,
		public:       *publicFlag,
		pretty:       *prettyFlag,
		debug:        *debugFlag,
		seed:         *seedFlag,
	}

	genreIDs, genreNames, err := parseGenres(*genresFlag)
	if err != nil {
		return writeError(params.pretty, err)
	}

	params.genreIDs, params.genreNames = genreIDs, genreNames

	decadeInts, decadeLabels, err := parseDecades(*decadesFlag)
	if err != nil {
		return writeError(params.pretty, err)
	}

	params.decadeInts, params.decadeLabels = decadeInts, decadeLabels

	if params.name == "" {
		params.name = fmt.Sprintf("Run Mix: %s", titleCase(params.templateName))
	}

	return generate(params)
}

func generate(params generateParams) int {
	loadDotenv()

	if params.debug {
		if err := runlog.Setup("runmix-debug.log", true); err != nil {
			return writeError(params.pretty, fmt.Errorf("setup debug log: %w", err))
		}
	}

	ctx := context.Background()

	cfg, err := config.LoadConfig(config.GetConfigPath())
	if err != nil {
		return writeError(params.pretty, err)
	}

	template := timelineplan.ParseTemplate(params.templateName)
	slots := timelineplan.Plan(cfg, template, params.minutes)

	now := clockNow()
	generatedAt := now.UTC().Format(time.RFC3339)

	if len(slots) == 0 {
		out := buildGenerateOutput(params, model.SelectionResult{}, preflight.Result{}, runlog.Lines(), generatedAt)

		return writeJSON(0, params.pretty, out)
	}

	catalog, closeCatalog, err := buildCatalogStore(ctx)
	if err != nil {
		return writeError(params.pretty, err)
	}
	defer closeCatalog()

	usage, closeUsage, err := buildUsageStore(ctx)
	if err != nil {
		return writeError(params.pretty, err)
	}
	defer closeUsage()

	music, err := buildMusicService(ctx)
	if err != nil {
		return writeError(params.pretty, err)
	}

	pool, err := candidatepool.Build(ctx, candidatepool.Input{
		Store:           catalog,
		Usage:           usage,
		Now:             now,
		GenreSelection:  params.genreIDs,
		DecadeSelection: params.decadeInts,
		Cfg:             cfg,
	})
	if err != nil {
		return writeError(params.pretty, err)
	}

	anchor, err := selector.ResolveAnchor(cfg, params.pace, params.overrideSPM)
	if err != nil {
		return writeError(params.pretty, err)
	}

	market := music.Market(ctx)

	sel, err := selector.Run(ctx, selector.Input{
		Pool:           pool,
		Slots:          slots,
		Cfg:            cfg,
		Now:            now,
		Template:       template,
		RunMinutes:     params.minutes,
		GenreSelection: params.genreIDs,
		Anchor:         anchor,
		Music:          music,
		Market:         market,
		Rand:           seededRand(params.seed),
	})
	if err != nil {
		return writeError(params.pretty, err)
	}

	pub, err := preflight.Publish(ctx, preflight.Input{
		Music:       music,
		Usage:       usage,
		Now:         now,
		Chosen:      sel.Chosen,
		Name:        params.name,
		Description: params.description,
		IsPublic:    params.public,
	})
	if err != nil {
		return writeError(params.pretty, err)
	}

	out := buildGenerateOutput(params, sel, pub, runlog.Lines(), generatedAt)

	return writeJSON(0, params.pretty, out)
}

// parseGenres matches each comma-separated name against the fixed
// umbrella set, case-insensitively, preserving the caller's own
// spelling in the output's genres[] field.
func parseGenres(csv string) ([]umbrella.ID, []string, error) {
	names := splitCSV(csv)
	if len(names) == 0 {
		return nil, nil, nil
	}

	ids := make([]umbrella.ID, 0, len(names))

	for _, name := range names {
		id, ok := matchUmbrella(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown genre %q", name)
		}

		ids = append(ids, id)
	}

	return ids, names, nil
}

func matchUmbrella(name string) (umbrella.ID, bool) {
	for _, id := range umbrella.All {
		if strings.EqualFold(string(id), name) {
			return id, true
		}
	}

	return "", false
}

// parseDecades accepts both a bare year ("1990") and a shorthand decade
// label ("90s", "00s", "10s", "20s"), returning the decade-bucket ints
// model.DecadeOf produces alongside the caller's original labels.
func parseDecades(csv string) ([]int, []string, error) {
	labels := splitCSV(csv)
	if len(labels) == 0 {
		return nil, nil, nil
	}

	decades := make([]int, 0, len(labels))

	for _, label := range labels {
		decade, err := parseDecadeLabel(label)
		if err != nil {
			return nil, nil, err
		}

		decades = append(decades, decade)
	}

	return decades, labels, nil
}

func parseDecadeLabel(label string) (int, error) {
	trimmed := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(label)), "s")

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("unrecognized decade %q", label)
	}

	switch {
	case len(trimmed) == 4:
		return model.DecadeOf(n), nil
	case n >= 0 && n <= 30:
		return model.DecadeOf(2000 + n), nil
	case n >= 40 && n <= 99:
		return model.DecadeOf(1900 + n), nil
	default:
		return 0, fmt.Errorf("unrecognized decade %q", label)
	}
}

func splitCSV(csv string) []string {
	var out []string

	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
