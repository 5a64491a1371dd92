package coinafrique

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinafrique-scraper/models"
)

func TestPageURL(t *testing.T) {
	got, err := PageURL("https://sn.coinafrique.com/categorie/chiens", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://sn.coinafrique.com/categorie/chiens?page=3" {
		t.Errorf("PageURL: got %q", got)
	}

	got, _ = PageURL("https://sn.coinafrique.com/categorie/chiens?sort=new&page=9", 2)
	if got != "https://sn.coinafrique.com/categorie/chiens?page=2&sort=new" {
		t.Errorf("PageURL should replace an existing page param, got %q", got)
	}
}

func TestHTTPFetcherFetch(t *testing.T) {
	srv := newListingServer(t, []string{page(fullCard, noPriceCard)}, nil)
	f := NewHTTPFetcher(srv.CategoryURLs(), 5*time.Second, "test-agent")

	doc, err := f.Fetch(context.Background(), models.Dogs, 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := doc.Find(CardSelector).Length(); n != 2 {
		t.Errorf("cards: got %d, want 2", n)
	}
	if got := srv.Requested(); len(got) != 1 || got[0] != "1" {
		t.Errorf("requested pages: got %v", got)
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	srv := newListingServer(t, nil, map[string]bool{"2": true})
	f := NewHTTPFetcher(srv.CategoryURLs(), 5*time.Second, "")
	ctx := context.Background()

	tests := []struct {
		name     string
		category models.Category
		page     int
	}{
		{"server error", models.Dogs, 2},
		{"page zero", models.Dogs, 0},
		{"no base url", models.OtherAnimals, 1},
	}
	for _, tt := range tests {
		_, err := f.Fetch(ctx, tt.category, tt.page)
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Errorf("%s: got %v, want *FetchError", tt.name, err)
			continue
		}
		if fe.Page != tt.page {
			t.Errorf("%s: Page got %d, want %d", tt.name, fe.Page, tt.page)
		}
	}
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	srv := newListingServer(t, nil, nil)
	urls := srv.CategoryURLs()
	srv.Close()

	f := NewHTTPFetcher(urls, time.Second, "")
	_, err := f.Fetch(context.Background(), models.Dogs, 1)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Err == nil {
		t.Errorf("got %v, want *FetchError with a cause", err)
	}
}
