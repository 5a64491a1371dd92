package services

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coinafrique-scraper/cache"
	"coinafrique-scraper/models"
)

func newTestCleanService(t *testing.T) *CleanService {
	t.Helper()
	store, err := cache.NewMemoryStore(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewCleanService(newTestCleaner(), store, newTestLogger())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCleanServiceMemoizes(t *testing.T) {
	svc := newTestCleanService(t)
	path := filepath.Join(t.TempDir(), "bulk.csv")
	writeFile(t, path, "V1,V2\nMouton à vendre,100 000 CFA\nChien,CFA\n")

	ctx := context.Background()
	first, err := svc.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := svc.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	hits, misses := svc.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("hits/misses: got %d/%d, want 1/1", hits, misses)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("rows: got %d and %d, want 2", len(first), len(second))
	}
	if second[0].Category != models.Sheep || second[0].Price != models.PriceOf(100000) {
		t.Errorf("cached row decoded wrong: %+v", second[0])
	}
	if second[1].Price.Valid {
		t.Errorf("missing price should survive the cache, got %+v", second[1].Price)
	}
}

func TestCleanServiceInvalidatesOnChange(t *testing.T) {
	svc := newTestCleanService(t)
	path := filepath.Join(t.TempDir(), "bulk.csv")
	writeFile(t, path, "V1,V2\nMouton,1000 CFA\n")

	ctx := context.Background()
	if _, err := svc.Load(ctx, path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	writeFile(t, path, "V1,V2\nMouton,1000 CFA\nLapin,2000 CFA\n")
	got, err := svc.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows after change: got %d, want 2", len(got))
	}
	if _, misses := svc.Stats(); misses != 2 {
		t.Errorf("misses: got %d, want 2", misses)
	}
}

func TestCleanServiceMissingFile(t *testing.T) {
	svc := newTestCleanService(t)
	_, err := svc.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want fs.ErrNotExist", err)
	}
}

func TestCleanServiceWithoutCache(t *testing.T) {
	svc := NewCleanService(newTestCleaner(), nil, newTestLogger())
	path := filepath.Join(t.TempDir(), "bulk.csv")
	writeFile(t, path, "V1_Nom_ou_details,V2_prix\nPoules,500 CFA\n")

	for i := 0; i < 2; i++ {
		got, err := svc.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got[0].Category != models.PoultryRabbitsPigeons {
			t.Errorf("category: got %s", got[0].Category)
		}
	}
	if hits, _ := svc.Stats(); hits != 0 {
		t.Errorf("hits without a store: got %d, want 0", hits)
	}
}
