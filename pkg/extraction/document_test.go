package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/lifectx/engine/pkg/store"
)

const sampleDocument = `About me

My wife Celine and I live in Amsterdam. I work at Acme Corp as an engineering
manager, and on the side I'm building a startup around fitness coaching.
My main goal is to run the Rotterdam Marathon in April 2027.
I train with the Zuid Runners club three times a week.`

func TestDocumentExtractSuccess(t *testing.T) {
	fake := &fakeLLMClient{response: `{
		"summary": "A personal introduction covering family, work and running.",
		"domains": ["family", "work", "sport"],
		"entities": [
			{"name": "Celine", "type": "person", "domain": "family", "relationship": "wife"},
			{"name": "Acme Corp", "type": "company", "domain": "work"},
			{"name": "Rotterdam Marathon", "type": "goal", "domain": "sport", "priority": "critical", "date": "2027-04"},
			{"name": "Zuid Runners", "type": "concept", "domain": "sport"}
		],
		"topics_not_covered": ["health"]
	}`}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 4 {
		t.Fatalf("expected 4 entities, got %d", len(result.Entities))
	}
	if result.Summary == "" {
		t.Errorf("expected a summary")
	}
	if len(result.Domains) != 3 {
		t.Errorf("expected 3 domains, got %d", len(result.Domains))
	}

	celine := result.Entities[0]
	if celine.Name != "Celine" || celine.Relationship != "wife" {
		t.Errorf("expected Celine with relationship wife, got %q/%q", celine.Name, celine.Relationship)
	}

	goal := result.Entities[2]
	if goal.Type != store.EntityGoal || goal.Priority != PriorityCritical {
		t.Errorf("goal: got type %q priority %q", goal.Type, goal.Priority)
	}
	if goal.TargetDate != "2027-04" {
		t.Errorf("goal target date: got %q, want 2027-04", goal.TargetDate)
	}
}

func TestDocumentExtractDropsGenericReferences(t *testing.T) {
	fake := &fakeLLMClient{response: `{
		"summary": "s",
		"domains": ["work"],
		"entities": [
			{"name": "startup", "type": "company", "domain": "work"},
			{"name": "Celine", "type": "person", "domain": "family"}
		],
		"topics_not_covered": []
	}`}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 1 {
		t.Fatalf("expected only the named person, got %d entities", len(result.Entities))
	}
	if result.Entities[0].Name != "Celine" {
		t.Errorf("expected Celine to survive, got %q", result.Entities[0].Name)
	}
}

func TestDocumentExtractDropsNonVerbatimNames(t *testing.T) {
	fake := &fakeLLMClient{response: `{
		"summary": "s",
		"domains": [],
		"entities": [{"name": "Bob", "type": "person"}],
		"topics_not_covered": []
	}`}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 0 {
		t.Fatalf("expected hallucinated entity to be dropped, got %d entities", len(result.Entities))
	}
}

func TestDocumentExtractNormalizesUnknownType(t *testing.T) {
	fake := &fakeLLMClient{response: `{
		"summary": "s",
		"domains": [],
		"entities": [{"name": "Celine", "type": "spouse"}],
		"topics_not_covered": []
	}`}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	if result.Entities[0].Type != store.EntityConcept {
		t.Errorf("unknown type should normalize to concept, got %q", result.Entities[0].Type)
	}
}

func TestDocumentExtractFocusRequiresConfirmation(t *testing.T) {
	fake := &fakeLLMClient{response: `{
		"summary": "s",
		"domains": [],
		"entities": [{"name": "Celine", "type": "focus", "needs_confirmation": false}],
		"topics_not_covered": []
	}`}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(result.Entities))
	}
	if !result.Entities[0].Disposition.NeedsConfirmation() {
		t.Errorf("focus candidates must always require confirmation")
	}
}

func TestDocumentExtractKeepsSynthesizedFocus(t *testing.T) {
	// A focus name is inferred across statements and does not appear
	// verbatim in the document; it must survive the verbatim gate while
	// hallucinated names of other types still get dropped.
	fake := &fakeLLMClient{response: `{
		"summary": "s",
		"domains": ["work", "sport"],
		"entities": [
			{"name": "Work-life balance", "type": "focus", "domain": "personal", "description": "juggling a job, a startup and marathon training"},
			{"name": "Bob", "type": "person"}
		],
		"topics_not_covered": []
	}`}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 1 {
		t.Fatalf("expected only the focus to survive, got %d entities", len(result.Entities))
	}
	focus := result.Entities[0]
	if focus.Name != "Work-life balance" || focus.Type != store.EntityFocus {
		t.Errorf("focus: got %q/%q", focus.Name, focus.Type)
	}
	if !focus.Disposition.NeedsConfirmation() {
		t.Errorf("synthesized focus must require confirmation")
	}
}

func TestDocumentExtractEmptyTextSkipsModelCall(t *testing.T) {
	fake := &fakeLLMClient{response: "{}"}
	extractor := NewDocumentExtractor(fake, nil)

	result, err := extractor.Extract(context.Background(), "   ", "empty.md")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("expected no model calls for empty text, got %d", fake.calls)
	}
	if len(result.Entities) != 0 {
		t.Errorf("expected empty extraction, got %d entities", len(result.Entities))
	}
}

func TestDocumentExtractModelFailurePropagates(t *testing.T) {
	fake := &fakeLLMClient{err: errors.New("rate limited by language model provider")}
	extractor := NewDocumentExtractor(fake, nil)

	_, err := extractor.Extract(context.Background(), sampleDocument, "about-me.md")
	if err == nil {
		t.Fatalf("expected error from model failure")
	}
}

func TestGenericReference(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		entity string
		want   bool
	}{
		{"determiner only", "I'm building a startup in Berlin", "startup", true},
		{"possessive only", "my wife and I moved", "wife", true},
		{"proper name after noun", "My wife Celine cooks", "Celine", false},
		{"name at sentence start", "Celine called me today", "Celine", false},
		{"mixed occurrences", "The project is late. Project Volta needs help.", "project", false},
		{"multi-word name", "the New York trip", "New York", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := genericReference(tt.text, tt.entity); got != tt.want {
				t.Errorf("genericReference(%q, %q) = %v, want %v", tt.text, tt.entity, got, tt.want)
			}
		})
	}
}
