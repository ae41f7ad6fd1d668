package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/vuen/kiosk/internal/types"
)

type fakeBackend struct {
	types.Backend
	items []types.MenuItem
	err   error
}

func (b *fakeBackend) Menu(context.Context) ([]types.MenuItem, error) {
	return b.items, b.err
}

func menu() []types.MenuItem {
	return []types.MenuItem{
		{Name: "Taco", Price: 3.50, ImageRef: "taco.png"},
		{Name: "Carne Asada Burrito", Price: 9.25},
	}
}

func TestRefreshAndResolve(t *testing.T) {
	c := New(&fakeBackend{items: menu()}, t.TempDir())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", c.Len())
	}

	item, ok := c.Resolve("  carne asada BURRITO ")
	if !ok {
		t.Fatal("expected case-insensitive resolve")
	}
	if item.Price != 9.25 {
		t.Errorf("unexpected item %+v", item)
	}

	if _, ok := c.Resolve("Pizza"); ok {
		t.Error("did not expect Pizza to resolve")
	}
}

func TestRefreshErrorKeepsOldMenu(t *testing.T) {
	be := &fakeBackend{items: menu()}
	c := New(be, t.TempDir())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	be.err = errors.New("backend down")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 2 {
		t.Errorf("failed refresh must keep the cached menu, got %d items", c.Len())
	}
}

func TestRestoreFromCache(t *testing.T) {
	dir := t.TempDir()
	first := New(&fakeBackend{items: menu()}, dir)
	if err := first.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A fresh catalog with an unreachable backend restores from disk.
	second := New(&fakeBackend{err: errors.New("backend down")}, dir)
	if err := second.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if second.Len() != 2 {
		t.Errorf("expected cached menu restored, got %d items", second.Len())
	}
	if _, ok := second.Resolve("taco"); !ok {
		t.Error("expected Taco resolvable after restore")
	}
}
