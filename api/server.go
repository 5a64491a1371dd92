package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"coinafrique-scraper/config"
	"coinafrique-scraper/metrics"
	"coinafrique-scraper/models"
	"coinafrique-scraper/scraper/coinafrique"
	"coinafrique-scraper/services"
	"coinafrique-scraper/storage"
	"coinafrique-scraper/utils"
)

// Deps are the collaborators the server drives. RawSinks and CleanSink may
// be empty; persistence failures are logged and never fail a request.
type Deps struct {
	Config    *config.Config
	Logger    *utils.Logger
	Scraper   *coinafrique.Scraper
	Cleaner   *services.CleanService
	Insights  *services.InsightService
	RawSinks  []storage.RawListingWriter
	CleanSink storage.CleanListingWriter
}

// Server exposes the scrape, summary and export views over HTTP.
type Server struct {
	Deps

	// scrapeMu serializes runs; only one scrape is in flight at a time.
	scrapeMu sync.Mutex

	dataMu  sync.RWMutex
	scraped []*models.Listing
}

// NewServer creates a Server with an empty scraped dataset.
func NewServer(d Deps) *Server {
	return &Server{Deps: d}
}

// Router returns the routes of the server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/categories", s.handleCategories).Methods("GET")
	r.HandleFunc("/api/scrape", s.handleScrape).Methods("POST")
	r.HandleFunc("/api/summary/scraped", s.handleScrapedSummary).Methods("GET")
	r.HandleFunc("/api/summary/cleaned", s.handleCleanedSummary).Methods("GET")
	r.HandleFunc("/api/export/scraped.csv", s.handleExportScraped).Methods("GET")
	r.HandleFunc("/api/export/cleaned.csv", s.handleExportCleaned).Methods("GET")
	r.HandleFunc("/api/export/raw.csv", s.handleExportRaw).Methods("GET")
	r.HandleFunc("/api/feedback", s.handleFeedback).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	return r
}

// Scraped returns a snapshot of every record scraped since startup.
func (s *Server) Scraped() []*models.Listing {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return append([]*models.Listing(nil), s.scraped...)
}

type categoryView struct {
	Label string `json:"label"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	URL   string `json:"url"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryView, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, categoryView{
			Label: string(c),
			Name:  c.DisplayName(),
			Slug:  c.Slug(),
			URL:   s.Config.CategoryURLs[c],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pages := 1
	if v := r.URL.Query().Get("pages"); v != "" {
		pages, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, coinafrique.ErrInvalidPageCount)
			return
		}
	}

	s.scrapeMu.Lock()
	defer s.scrapeMu.Unlock()

	listings, m, err := s.Scraper.Run(r.Context(), category, pages)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, coinafrique.ErrInvalidPageCount) || errors.Is(err, models.ErrUnknownCategory) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	s.dataMu.Lock()
	s.scraped = append(s.scraped, listings...)
	s.dataMu.Unlock()

	for _, perr := range storage.AppendAll(r.Context(), listings, s.RawSinks...) {
		s.warnPersistence(perr)
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleScrapedSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Insights.Generate(s.Scraped()))
}

func (s *Server) handleCleanedSummary(w http.ResponseWriter, r *http.Request) {
	listings, ok := s.loadCleaned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Insights.Generate(listings))
}

func (s *Server) handleExportScraped(w http.ResponseWriter, r *http.Request) {
	writeCSV(w, "scraped.csv", s.Scraped(), storage.LayoutRaw, s.Logger)
}

func (s *Server) handleExportCleaned(w http.ResponseWriter, r *http.Request) {
	listings, ok := s.loadCleaned(w, r)
	if !ok {
		return
	}
	writeCSV(w, "cleaned.csv", listings, storage.LayoutCleaned, s.Logger)
}

// handleExportRaw passes the bulk input through untouched.
func (s *Server) handleExportRaw(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.Config.BulkInputPath)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	defer f.Close()

	setCSVHeaders(w, "raw.csv")
	if _, err := io.Copy(w, f); err != nil {
		s.Logger.Warn("[api] raw export interrupted: %v", err)
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": s.Config.FeedbackURL})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// loadCleaned cleans the bulk input and replaces the cleaned snapshot in
// the clean sink. On failure it writes the response itself.
func (s *Server) loadCleaned(w http.ResponseWriter, r *http.Request) ([]*models.Listing, bool) {
	listings, err := s.Cleaner.Load(r.Context(), s.Config.BulkInputPath)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, os.ErrNotExist):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrUnknownSchema):
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return nil, false
	}

	if s.CleanSink != nil {
		if err := s.CleanSink.ReplaceCleaned(r.Context(), listings); err != nil {
			s.warnPersistence(err)
		}
	}
	return listings, true
}

func (s *Server) warnPersistence(err error) {
	metrics.PersistenceFailures.WithLabelValues(storage.SinkOf(err)).Inc()
	s.Logger.Warn("[api] persistence failed: %v", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func setCSVHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
}

func writeCSV(w http.ResponseWriter, name string, listings []*models.Listing, layout storage.Layout, logger *utils.Logger) {
	setCSVHeaders(w, name)
	if err := storage.WriteListingsCSV(w, listings, layout); err != nil {
		logger.Warn("[api] export %s failed: %v", name, err)
	}
}
