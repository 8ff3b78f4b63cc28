// ABOUTME: Tests for genre umbrella mapping and affinity scoring
// ABOUTME: Verifies membership lookup, neighbor broadening and affinity bounds

package umbrella

import "testing"

func TestForKnownGenres(t *testing.T) {
	tests := []struct {
		genre string
		want  ID
	}{
		{"pop", Pop},
		{"Dance Pop", Pop},
		{"  Techno  ", Electronic},
		{"rap", HipHop},
		{"bluegrass", Country},
	}

	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			got, ok := For(tt.genre)
			if !ok {
				t.Fatalf("For(%q) not found", tt.genre)
			}

			if got != tt.want {
				t.Errorf("For(%q) = %v, want %v", tt.genre, got, tt.want)
			}
		})
	}
}

func TestForUnknownGenre(t *testing.T) {
	if _, ok := For("polka yodel fusion"); ok {
		t.Error("expected unknown genre to not resolve to an umbrella")
	}
}

func TestAffinitySelectedOnly(t *testing.T) {
	weights := SelectedWithNeighbors([]ID{Pop}, 0)

	affinity := Affinity([]string{"pop", "dance pop"}, weights)
	if affinity != 1.0 {
		t.Errorf("expected full affinity for all-selected genres, got %.2f", affinity)
	}

	none := Affinity([]string{"techno"}, weights)
	if none != 0 {
		t.Errorf("expected zero affinity for unrelated umbrella, got %.2f", none)
	}
}

func TestAffinityNeighborBroadening(t *testing.T) {
	selectedOnly := SelectedWithNeighbors([]ID{Pop}, 0)
	if Affinity([]string{"techno"}, selectedOnly) != 0 {
		t.Fatal("expected zero affinity without neighbor broadening")
	}

	withNeighbors := SelectedWithNeighbors([]ID{Pop}, 0.6)

	affinity := Affinity([]string{"techno"}, withNeighbors)
	if affinity != 0.6 {
		t.Errorf("expected neighbor weight 0.6, got %.2f", affinity)
	}
}

func TestAffinityCappedAtOne(t *testing.T) {
	weights := SelectedWithNeighbors([]ID{Pop, Electronic}, 0.6)

	affinity := Affinity([]string{"pop", "techno"}, weights)
	if affinity > 1.0 {
		t.Errorf("affinity must be capped at 1.0, got %.2f", affinity)
	}
}

func TestAffinityEmptyInputs(t *testing.T) {
	if Affinity(nil, map[ID]float64{Pop: 1}) != 0 {
		t.Error("expected zero affinity for no genres")
	}

	if Affinity([]string{"pop"}, nil) != 0 {
		t.Error("expected zero affinity for no target weights")
	}
}

func TestBestUmbrella(t *testing.T) {
	weights := SelectedWithNeighbors([]ID{Electronic}, 0.6)

	best, ok := BestUmbrella([]string{"indie rock", "techno"}, weights)
	if !ok {
		t.Fatal("expected a best umbrella")
	}

	if best != Electronic {
		t.Errorf("expected Electronic as best umbrella, got %v", best)
	}
}

func TestBestUmbrellaNoMatch(t *testing.T) {
	weights := SelectedWithNeighbors([]ID{Electronic}, 0)

	if _, ok := BestUmbrella([]string{"polka"}, weights); ok {
		t.Error("expected no best umbrella for unmapped genres")
	}
}
