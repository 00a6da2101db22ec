package kv

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v := []byte("abc")
	_ = s.Set(ctx, map[string][]byte{"k": v})
	v[0] = 'z'

	got, _ := s.Get(ctx, "k")
	if string(got["k"]) != "abc" {
		t.Errorf("stored value was aliased: %q", got["k"])
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("quota exceeded")

	s.FailWith(boom)
	if err := s.Set(ctx, map[string][]byte{"k": nil}); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	if _, err := s.GetAll(ctx); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}

	s.FailWith(nil)
	if err := s.Set(ctx, map[string][]byte{"k": nil}); err != nil {
		t.Errorf("expected recovery, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 key, got %d", s.Len())
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Close()
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
