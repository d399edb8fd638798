package storage

import (
	"context"
	"testing"
)

func TestMemoryStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	older := sampleRun("r-old", "2026-01-01T00:00:00Z")
	newer := sampleRun("r-new", "2026-02-01T00:00:00Z")
	if err := store.SaveRun(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := store.SaveRun(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "r-new" || runs[1].ID != "r-old" {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	loaded, ok, err := store.GetRun(ctx, "r-old")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	loaded.Result.Marginals["X"][0][0] = 42
	again, _, _ := store.GetRun(ctx, "r-old")
	if again.Result.Marginals["X"][0][0] != 0.5 {
		t.Fatal("stored run shares memory with caller")
	}

	if err := store.DeleteRun(ctx, "r-old"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "r-old"); ok {
		t.Fatal("expected run to be deleted")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), sampleRun("r1", "")); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("", "")); err == nil {
		t.Fatal("expected missing id error")
	}
}
