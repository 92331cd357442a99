package extraction

import (
	"testing"

	"github.com/lifectx/engine/pkg/store"
)

func TestMatchesExistingEntity(t *testing.T) {
	existing := []*store.Entity{
		{Name: "Acme Corp"},
		{Name: "Celine"},
	}

	tests := []struct {
		candidate string
		want      bool
	}{
		{"Acme Corp", true},
		{"acme corp", true},
		{"Acme", true},             // candidate contained in known name
		{"Acme Corp Berlin", true}, // known name contained in candidate
		{"Celine", true},
		{"Marcus", false},
		{"", true}, // empty names never become entities
	}

	for _, tt := range tests {
		if got := matchesExistingEntity(tt.candidate, existing); got != tt.want {
			t.Errorf("matchesExistingEntity(%q) = %v, want %v", tt.candidate, got, tt.want)
		}
	}
}

func TestContentSimilar(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "The user runs on Tuesdays", "The user runs on Tuesdays", true},
		{"identical modulo case and punctuation", "The user runs on Tuesdays.", "the user runs on tuesdays", true},
		{"containment with comparable length", "The user prefers morning training", "The user prefers morning training now", true},
		{"containment but much longer", "run", "The user wants to run the Rotterdam Marathon next spring with the club", false},
		{"heavy word overlap", "Celine prefers quiet weekend mornings at home", "Celine prefers quiet mornings at home on weekends", true},
		{"unrelated", "The user works at Acme Corp", "Training happens three times a week", false},
		{"short strings never fuzzy-match", "abcdefgh", "abcdefg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentSimilar(tt.a, tt.b); got != tt.want {
				t.Errorf("contentSimilar(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
