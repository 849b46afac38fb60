package session

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreStructuralQueries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := NewID(42, "Wologda")
	points := []Point{
		{Detail: "Pickup at Main St"},
		{Detail: "Dropoff at 5th Ave", PhotoID: "photo-1"},
	}
	if err := store.Create(ctx, id, points); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := store.PointCount(ctx, id)
	if err != nil {
		t.Fatalf("point count: %v", err)
	}
	if n != 2 {
		t.Fatalf("point count = %d, want 2", n)
	}

	pt, err := store.PointAt(ctx, id, 1)
	if err != nil {
		t.Fatalf("point at: %v", err)
	}
	if pt.Index != 1 || pt.Detail != "Dropoff at 5th Ave" || !pt.HasPhoto() {
		t.Fatalf("unexpected point: %+v", pt)
	}

	if _, err := store.PointAt(ctx, id, 2); !errors.Is(err, ErrPointOutOfRange) {
		t.Fatalf("expected ErrPointOutOfRange, got %v", err)
	}
	if _, err := store.PointAt(ctx, id, -1); !errors.Is(err, ErrPointOutOfRange) {
		t.Fatalf("expected ErrPointOutOfRange, got %v", err)
	}

	other := NewID(43, "Pskov")
	if _, err := store.PointCount(ctx, other); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := NewID(7, "Pskov")
	if err := store.Create(ctx, id, []Point{{Detail: "only stop"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ids, err := store.ListByUser(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || !ids[0].Equal(id) {
		t.Fatalf("unexpected list: %+v", ids)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.Points(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	if ErrSessionNotFound.Code() != "SESSION_NOT_FOUND" {
		t.Fatalf("code = %s", ErrSessionNotFound.Code())
	}
	if ErrPointOutOfRange.Code() != "POINT_OUT_OF_RANGE" {
		t.Fatalf("code = %s", ErrPointOutOfRange.Code())
	}
}
