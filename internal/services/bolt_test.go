package services_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/vibeworks/code-studio/internal/models"
	"github.com/vibeworks/code-studio/internal/services"
)

func TestBoltDBRevisions(t *testing.T) {
	store, err := services.NewBoltDB(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewBoltDB() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	revs, err := store.Revisions(ctx)
	if err != nil {
		t.Fatalf("Revisions() error = %v", err)
	}
	if len(revs) != 0 {
		t.Fatalf("Revisions() on empty store = %d entries, want 0", len(revs))
	}

	first, err := store.AddRevision(ctx, models.Revision{
		ID:        "a",
		Prompt:    "build a landing page",
		Document:  "<html>v1</html>",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddRevision() error = %v", err)
	}

	second, err := store.AddRevision(ctx, models.Revision{
		ID:        "b",
		Prompt:    "make it dark mode",
		Document:  "<html>v2</html>",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddRevision() error = %v", err)
	}
	if first == second {
		t.Fatalf("AddRevision() returned duplicate IDs: %q", first)
	}

	revs, err = store.Revisions(ctx)
	if err != nil {
		t.Fatalf("Revisions() error = %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("Revisions() = %d entries, want 2", len(revs))
	}
	if revs[0].ID != second {
		t.Errorf("Revisions()[0].ID = %q, want newest %q", revs[0].ID, second)
	}
	if revs[0].Document != "" {
		t.Errorf("Revisions() listing should omit document bodies, got %q", revs[0].Document)
	}

	rev, err := store.Revision(ctx, first)
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if rev.Document != "<html>v1</html>" {
		t.Errorf("Revision().Document = %q, want %q", rev.Document, "<html>v1</html>")
	}
	if rev.Prompt != "build a landing page" {
		t.Errorf("Revision().Prompt = %q, want %q", rev.Prompt, "build a landing page")
	}

	missing, err := store.Revision(ctx, "nope")
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if missing.ID != "" {
		t.Errorf("Revision() for unknown id = %+v, want zero value", missing)
	}
}

func TestBoltDBRevisionsOrderPastNineEntries(t *testing.T) {
	store, err := services.NewBoltDB(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewBoltDB() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	ids := make([]string, 0, 12)
	for i := range 12 {
		id, err := store.AddRevision(ctx, models.Revision{
			ID:        fmt.Sprintf("m%d", i),
			Prompt:    fmt.Sprintf("change %d", i),
			Document:  "<html></html>",
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("AddRevision() error = %v", err)
		}
		ids = append(ids, id)
	}

	revs, err := store.Revisions(ctx)
	if err != nil {
		t.Fatalf("Revisions() error = %v", err)
	}
	if len(revs) != len(ids) {
		t.Fatalf("Revisions() = %d entries, want %d", len(revs), len(ids))
	}
	for i, rev := range revs {
		want := ids[len(ids)-1-i]
		if rev.ID != want {
			t.Fatalf("Revisions()[%d].ID = %q, want %q; listing must stay newest-first once the sequence passes nine", i, rev.ID, want)
		}
	}
}
