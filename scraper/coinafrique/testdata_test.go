package coinafrique

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"coinafrique-scraper/models"
)

const pageTemplate = `<!DOCTYPE html>
<html><head><title>Chiens | CoinAfrique</title></head>
<body><div class="row adcards">%s</div></body></html>`

const fullCard = `
<div class="col s6 m4 l3">
  <div class="card ad__card">
    <div class="card-image"><a href="/annonce/chiens/1"><img src="https://images.coinafrique.com/1.jpg" alt=""></a></div>
    <div class="card-content">
      <p class="ad__card-price">5 000 CFA</p>
      <p class="ad__card-description"> Chiot berger allemand </p>
      <p class="ad__card-location"><span class="material-icons">location_on</span></p>
    </div>
  </div>
</div>`

const noDigitsCard = `
<div class="col s6 m4 l3">
  <div class="card ad__card">
    <div class="card-image"><img alt="no source"></div>
    <p class="ad__card-price">CFA</p>
    <p class="ad__card-description">Rottweiler</p>
  </div>
</div>`

const noPriceCard = `
<div class="col s6 m4 l3">
  <div class="card ad__card">
    <p class="ad__card-description">Caniche nain</p>
    <p class="ad__card-location"><span>Thiès, Sénégal</span></p>
  </div>
</div>`

func page(cards ...string) string {
	return fmt.Sprintf(pageTemplate, strings.Join(cards, "\n"))
}

// listingServer serves pages[i] for ?page=i+1 and 500 for any page listed
// in failing. It records the requested page numbers in order.
type listingServer struct {
	*httptest.Server

	mu        sync.Mutex
	requested []string
}

func newListingServer(t *testing.T, pages []string, failing map[string]bool) *listingServer {
	t.Helper()
	ls := &listingServer{}
	ls.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("page")
		ls.mu.Lock()
		ls.requested = append(ls.requested, p)
		ls.mu.Unlock()

		if failing[p] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var n int
		if _, err := fmt.Sscanf(p, "%d", &n); err != nil || n < 1 || n > len(pages) {
			w.Write([]byte(page()))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(pages[n-1]))
	}))
	t.Cleanup(ls.Close)
	return ls
}

func (ls *listingServer) Requested() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.requested...)
}

func (ls *listingServer) CategoryURLs() map[models.Category]string {
	return map[models.Category]string{
		models.Dogs:  ls.URL + "/categorie/chiens",
		models.Sheep: ls.URL + "/categorie/moutons",
	}
}
