package filesystem

import (
	"context"
	"errors"
	"testing"

	"paintbox/core"
)

func TestSetGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	want := []byte(`[{"identifier":"01ART"}]`)
	if err := store.Set(ctx, "gallery:user-1", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, "gallery:user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestGet_MissingKey(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Get(context.Background(), "gallery:nobody")
	if !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	store.Set(ctx, "k", []byte("first"))
	store.Set(ctx, "k", []byte("second"))

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("expected overwrite to win, got %s", got)
	}
}

func TestKeys_CannotEscapeBaseDir(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	// Traversal-looking keys are escaped into flat names; they round trip
	// without touching anything outside the base directory.
	key := "../../etc/passwd"
	if err := store.Set(ctx, key, []byte("harmless")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "harmless" {
		t.Errorf("expected round trip through escaped name, got %s", got)
	}
}

func TestEmptyKey_Rejected(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Set(context.Background(), "", []byte("x")); err == nil {
		t.Error("expected empty key to be rejected")
	}
}
