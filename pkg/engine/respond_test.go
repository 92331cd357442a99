package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lifectx/engine/pkg/rank"
	"github.com/lifectx/engine/pkg/reference"
	"github.com/lifectx/engine/pkg/signal"
	"github.com/lifectx/engine/pkg/store"
)

func TestBuildSystemPrompt(t *testing.T) {
	scored := []rank.Scored{
		{Entity: &store.Entity{
			Name:        "Celine",
			Type:        store.EntityPerson,
			Domain:      store.DomainFamily,
			Description: "lives in Amsterdam",
			Metadata:    map[string]interface{}{"relationship": "wife"},
		}, Score: 120},
		{Entity: &store.Entity{Name: "Volta", Type: store.EntityProject, Domain: store.DomainWork}, Score: 40},
	}
	references := []reference.SearchResult{
		{Title: "Race plan", Content: "marathon schedule for spring"},
	}
	signals := []signal.Signal{
		{Source: "whoop", CapacityImpact: -0.4},
		{Source: "calendar", CapacityImpact: -0.2},
	}

	prompt := buildSystemPrompt(scored, references, signals)

	for _, want := range []string{
		"Celine (person, family): lives in Amsterdam [wife of the user]",
		"Volta (project, work)",
		"Race plan: marathon schedule for spring",
		"-0.6",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPromptMinimal(t *testing.T) {
	prompt := buildSystemPrompt(nil, nil, nil)

	if strings.Contains(prompt, "Known context") {
		t.Errorf("empty context should not produce a context section")
	}
	if strings.Contains(prompt, "capacity change") {
		t.Errorf("no signals should mean no capacity note")
	}
}

type fakeSignalSource struct {
	signals []signal.Signal
}

func (f *fakeSignalSource) Name() string { return "fake" }

func (f *fakeSignalSource) Sync(ctx context.Context, since *time.Time) ([]signal.Signal, error) {
	return f.signals, nil
}

func TestGatherSignals(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterSignalSource(&fakeSignalSource{signals: []signal.Signal{
		{Source: "fake", Type: "sleep", CapacityImpact: -0.5},
	}})

	e, err := New(Config{DBPath: ":memory:"}, WithLLM(&fakeLLMClient{}), WithRegistry(registry))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer e.Close()

	signals := e.gatherSignals(context.Background())
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].CapacityImpact != -0.5 {
		t.Errorf("capacity impact: got %f", signals[0].CapacityImpact)
	}
}

func TestGatherReferencesRequiresTrigger(t *testing.T) {
	searcher := &fakeSearcher{results: []reference.SearchResult{{ID: "n1", Content: "note"}}}
	registry := NewRegistry()
	registry.RegisterSearcher("notes", searcher)

	e, err := New(Config{DBPath: ":memory:"}, WithLLM(&fakeLLMClient{}), WithRegistry(registry))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	if got := e.gatherReferences(ctx, "how are you?"); len(got) != 0 {
		t.Errorf("plain query must not search references, got %d results", len(got))
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called without trigger")
	}

	got := e.gatherReferences(ctx, "check my notes about the marathon")
	if len(got) != 1 {
		t.Errorf("explicit phrase should search references, got %d results", len(got))
	}
	if searcher.calls != 1 {
		t.Errorf("expected 1 search call, got %d", searcher.calls)
	}
}

type fakeSearcher struct {
	results []reference.SearchResult
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts reference.SearchOptions) ([]reference.SearchResult, error) {
	f.calls++
	return f.results, nil
}
