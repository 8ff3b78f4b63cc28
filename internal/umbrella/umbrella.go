// ABOUTME: Umbrella genre rollup, neighbor adjacency and affinity scoring
// ABOUTME: Free-form artist genre tags map onto a fixed umbrella set

// Package umbrella maps free-form per-artist genre tags onto a fixed set
// of umbrella genres and scores affinity against a target weighting.
// Many free-form tags roll up to one umbrella; affinity is a
// weighted-overlap score against the caller's umbrella weighting.
package umbrella

import "strings"

// ID identifies one of the fixed umbrella genres.
type ID string

const (
	Pop                ID = "Pop"
	RockAlt            ID = "Rock & Alt"
	Electronic         ID = "Electronic"
	HipHop             ID = "HipHop"
	Latin              ID = "Latin"
	Country            ID = "Country"
	Indie              ID = "Indie"
	Metal              ID = "Metal"
	JazzSoul           ID = "Jazz & Soul"
	ClassicalAmbient   ID = "Classical & Ambient"
)

// All lists every umbrella in a stable order, used for iteration where
// determinism matters (e.g. uniform-share calculations).
var All = []ID{Pop, RockAlt, Electronic, HipHop, Latin, Country, Indie, Metal, JazzSoul, ClassicalAmbient}

// membership maps a lower-cased free-form genre tag to the umbrella it
// rolls up to. The vocabulary follows the common DJ/beets-style tag set.
var membership = map[string]ID{
	"pop":            Pop,
	"dance pop":      Pop,
	"synthpop":       Pop,
	"dj pop":         Pop,
	"k-pop":          Pop,
	"rock":           RockAlt,
	"alternative":    RockAlt,
	"alt rock":       RockAlt,
	"indie rock":     RockAlt,
	"punk":           RockAlt,
	"punkrock":       RockAlt,
	"classic rock":   RockAlt,
	"indie":          Indie,
	"indie pop":      Indie,
	"indie folk":     Indie,
	"bedroom pop":    Indie,
	"electronic":     Electronic,
	"electronica":    Electronic,
	"house":          Electronic,
	"progressive house": Electronic,
	"electro house":  Electronic,
	"techno":         Electronic,
	"trance":         Electronic,
	"drum and bass":  Electronic,
	"dubstep":        Electronic,
	"edm":            Electronic,
	"synthwave":      Electronic,
	"hip hop":        HipHop,
	"hiphop":         HipHop,
	"hip-hop":        HipHop,
	"rap":            HipHop,
	"trap":           HipHop,
	"old school rap": HipHop,
	"latin":          Latin,
	"reggaeton":      Latin,
	"salsa":          Latin,
	"bachata":        Latin,
	"latin pop":      Latin,
	"country":        Country,
	"country pop":    Country,
	"bluegrass":      Country,
	"metal":          Metal,
	"heavy metal":    Metal,
	"thrash metal":   Metal,
	"hard rock":      Metal,
	"industrial":     Metal,
	"jazz":           JazzSoul,
	"acid jazz":      JazzSoul,
	"fusion":         JazzSoul,
	"soul":           JazzSoul,
	"funk":           JazzSoul,
	"r&b":            JazzSoul,
	"blues":          JazzSoul,
	"classical":      ClassicalAmbient,
	"soundtrack":     ClassicalAmbient,
	"ambient":        ClassicalAmbient,
	"downtempo":      ClassicalAmbient,
	"lounge":         ClassicalAmbient,
}

// neighbors is a small, fixed adjacency graph between umbrellas.
var neighbors = map[ID][]ID{
	Pop:              {Electronic, HipHop, Latin},
	Electronic:       {Pop},
	RockAlt:          {Indie, Metal},
	Indie:            {RockAlt},
	Metal:            {RockAlt},
	HipHop:           {Pop, JazzSoul},
	Latin:            {Pop, Country},
	Country:          {Latin},
	JazzSoul:         {HipHop, ClassicalAmbient},
	ClassicalAmbient: {JazzSoul},
}

// For returns the umbrella a free-form genre tag rolls up to, and
// whether a mapping was found.
func For(genre string) (ID, bool) {
	id, ok := membership[strings.ToLower(strings.TrimSpace(genre))]

	return id, ok
}

// Umbrellas returns the distinct set of umbrellas an artist's free-form
// genre tags roll up to.
func Umbrellas(genres []string) []ID {
	seen := make(map[ID]bool)

	var out []ID

	for _, g := range genres {
		id, ok := For(g)
		if !ok {
			continue
		}

		if !seen[id] {
			seen[id] = true

			out = append(out, id)
		}
	}

	return out
}

// Affinity returns the weighted overlap between an artist's genres and a
// target umbrella weighting, normalized to [0,1]: weighted overlap count
// over genre count, capped at 1.
func Affinity(artistGenres []string, weights map[ID]float64) float64 {
	if len(artistGenres) == 0 || len(weights) == 0 {
		return 0
	}

	var sum float64

	for _, g := range artistGenres {
		id, ok := For(g)
		if !ok {
			continue
		}

		if w, ok := weights[id]; ok {
			sum += w
		}
	}

	affinity := sum / float64(len(artistGenres))
	if affinity > 1 {
		affinity = 1
	}

	return affinity
}

// SelectedWithNeighbors builds the target-weight map used by Affinity:
// 1.0 for each selected umbrella, neighborWeight for each neighbor of a
// selected umbrella (selected umbrellas win ties), 0 elsewhere.
// neighborWeight == 0 means selected-only broadening is disabled.
func SelectedWithNeighbors(selected []ID, neighborWeight float64) map[ID]float64 {
	weights := make(map[ID]float64, len(selected))

	for _, id := range selected {
		weights[id] = 1.0
	}

	if neighborWeight > 0 {
		for _, id := range selected {
			for _, n := range neighbors[id] {
				if _, already := weights[n]; !already {
					weights[n] = neighborWeight
				}
			}
		}
	}

	return weights
}

// BestUmbrella returns the umbrella from an artist's genre set with the
// highest weight under the given target weighting, used by the Scoring
// Core's umbrella-balance bonus. Returns ("", false) if none match.
func BestUmbrella(artistGenres []string, weights map[ID]float64) (ID, bool) {
	var (
		best    ID
		bestW   float64
		found   bool
	)

	for _, id := range Umbrellas(artistGenres) {
		w := weights[id]
		if !found || w > bestW {
			best = id
			bestW = w
			found = true
		}
	}

	return best, found
}
