package kv

import (
	"context"
	"testing"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Set(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "a", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if string(got["a"]) != "1" {
		t.Errorf("expected a=1, got %q", got["a"])
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing key should be absent from result")
	}

	// Overwrite
	if err := s.Set(ctx, map[string][]byte{"a": []byte("3")}); err != nil {
		t.Fatal(err)
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || string(all["a"]) != "3" || string(all["b"]) != "2" {
		t.Errorf("unexpected contents: %v", all)
	}

	if err := s.Remove(ctx, "a", "never-set"); err != nil {
		t.Fatal(err)
	}
	all, err = s.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 key after remove, got %d", len(all))
	}

	// Empty calls are no-ops.
	if err := s.Set(ctx, nil); err != nil {
		t.Errorf("empty set: %v", err)
	}
	if err := s.Remove(ctx); err != nil {
		t.Errorf("empty remove: %v", err)
	}
	if got, err := s.Get(ctx); err != nil || len(got) != 0 {
		t.Errorf("empty get: %v %v", got, err)
	}
}
