package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/lifectx/engine/pkg/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *store.SQLiteStore, name string) *store.Entity {
	t.Helper()
	entity := &store.Entity{Name: name, Type: store.EntityConcept}
	if err := s.CreateEntity(context.Background(), entity); err != nil {
		t.Fatalf("failed to create entity %s: %v", name, err)
	}
	return entity
}

func mustLink(t *testing.T, s *store.SQLiteStore, a, b *store.Entity) {
	t.Helper()
	if _, err := s.UpsertRelationship(context.Background(), a.ID, b.ID, store.RelationMentionedWith, 1.0); err != nil {
		t.Fatalf("failed to link %s-%s: %v", a.Name, b.Name, err)
	}
}

func TestTraverseCycleTerminates(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	c := mustCreate(t, s, "C")
	mustLink(t, s, a, b)
	mustLink(t, s, b, c)
	mustLink(t, s, c, a)

	sub, err := NewTraverser(s).Traverse(context.Background(), a.ID, 5)
	if err != nil {
		t.Fatalf("Traverse returned error: %v", err)
	}

	if len(sub.Entities) != 3 {
		t.Errorf("entities: got %d, want 3", len(sub.Entities))
	}
	if len(sub.Relationships) != 3 {
		t.Errorf("relationships: got %d, want 3", len(sub.Relationships))
	}
}

func TestTraverseRespectsMaxDepth(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	c := mustCreate(t, s, "C")
	d := mustCreate(t, s, "D")
	mustLink(t, s, a, b)
	mustLink(t, s, b, c)
	mustLink(t, s, c, d)

	sub, err := NewTraverser(s).Traverse(context.Background(), a.ID, 1)
	if err != nil {
		t.Fatalf("Traverse returned error: %v", err)
	}

	if len(sub.Entities) != 2 {
		t.Fatalf("entities at depth 1: got %d, want 2", len(sub.Entities))
	}
	for _, e := range sub.Entities {
		if e.Name != "A" && e.Name != "B" {
			t.Errorf("unexpected entity %q at depth 1", e.Name)
		}
	}

	sub, err = NewTraverser(s).Traverse(context.Background(), a.ID, 2)
	if err != nil {
		t.Fatalf("Traverse returned error: %v", err)
	}
	if len(sub.Entities) != 3 {
		t.Errorf("entities at depth 2: got %d, want 3", len(sub.Entities))
	}
}

func TestTraverseDepthZeroReturnsStartOnly(t *testing.T) {
	s := newTestStore(t)
	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	mustLink(t, s, a, b)

	sub, err := NewTraverser(s).Traverse(context.Background(), a.ID, 0)
	if err != nil {
		t.Fatalf("Traverse returned error: %v", err)
	}

	if len(sub.Entities) != 1 || sub.Entities[0].ID != a.ID {
		t.Errorf("expected only the start entity, got %d entities", len(sub.Entities))
	}
	if len(sub.Relationships) != 0 {
		t.Errorf("expected no relationships at depth 0, got %d", len(sub.Relationships))
	}
}

func TestTraverseUnknownStart(t *testing.T) {
	s := newTestStore(t)

	_, err := NewTraverser(s).Traverse(context.Background(), "no-such-id", 2)
	if err == nil {
		t.Fatalf("expected error for unknown start entity")
	}
	if !errors.Is(err, store.ErrEntityNotFound) {
		t.Errorf("expected ErrEntityNotFound, got %v", err)
	}
}
