package coinafrique

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinafrique-scraper/config"
	"coinafrique-scraper/metrics"
	"coinafrique-scraper/models"
	"coinafrique-scraper/services"
	"coinafrique-scraper/utils"
)

// ErrInvalidPageCount is returned when a run asks for fewer than one page or
// more than the configured maximum.
var ErrInvalidPageCount = errors.New("invalid page count")

// Observer receives progress events from a run. Rendering them is up to the host.
type Observer interface {
	OnProgress(done, total int)
	OnComplete(m models.RunMetrics)
}

type multiObserver []Observer

func (m multiObserver) OnProgress(done, total int) {
	for _, o := range m {
		o.OnProgress(done, total)
	}
}

func (m multiObserver) OnComplete(metrics models.RunMetrics) {
	for _, o := range m {
		o.OnComplete(metrics)
	}
}

// MultiObserver fans events out to every observer in order.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

// LogObserver writes progress events to a logger.
type LogObserver struct {
	Logger *utils.Logger
}

func (o LogObserver) OnProgress(done, total int) {
	o.Logger.Info("[coinafrique] progress %d/%d pages", done, total)
}

func (o LogObserver) OnComplete(m models.RunMetrics) {
	o.Logger.Info("[coinafrique] run complete: %d records | category %s | %.1fs | %d/%d pages ok",
		m.RecordCount, m.Category.DisplayName(), m.ElapsedSeconds, m.PagesFetched, m.PagesRequested)
}

// Scraper drives the fetcher across the pages of one category.
type Scraper struct {
	logger    *utils.Logger
	fetcher   Fetcher
	extractor *Extractor
	pacer     *utils.Pacer
	retry     *utils.RetryConfig
	observer  Observer
	maxPages  int
}

// New creates a ready-to-use Scraper. A nil observer reports nothing.
func New(cfg *config.Config, logger *utils.Logger, fetcher Fetcher, observer Observer) *Scraper {
	if observer == nil {
		observer = MultiObserver()
	}
	return &Scraper{
		logger:    logger,
		fetcher:   fetcher,
		extractor: NewExtractor(logger),
		pacer:     utils.NewPacer(cfg.PageDelay),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.FetchMaxAttempts,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		observer: observer,
		maxPages: cfg.MaxPages,
	}
}

// Run scrapes pages 1..pages of a category in order. A failed page is
// logged and skipped. Every record is tagged with the requested category.
// The only errors are invalid input and cancellation; in the latter case
// the partial dataset is discarded.
func (s *Scraper) Run(ctx context.Context, category models.Category, pages int) ([]*models.Listing, models.RunMetrics, error) {
	m := models.RunMetrics{Category: category, PagesRequested: pages}

	if !category.Valid() {
		return nil, m, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	if pages < 1 || (s.maxPages > 0 && pages > s.maxPages) {
		return nil, m, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidPageCount, pages, s.maxPages)
	}

	s.logger.Info("[coinafrique] Starting scrape of %s: %d pages", category.DisplayName(), pages)
	start := time.Now()
	listings := make([]*models.Listing, 0)
	label := string(category)

	for page := 1; page <= pages; page++ {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, m, err
		}

		fields, dropped, err := s.scrapePage(ctx, category, page)
		s.pacer.Done()
		if err != nil {
			if ctx.Err() != nil {
				return nil, m, ctx.Err()
			}
			m.PagesFailed++
			metrics.PagesFailed.WithLabelValues(label).Inc()
			s.logger.Error("[coinafrique] Page %d failed: %v", page, err)
		} else {
			m.PagesFetched++
			m.FragmentsDropped += dropped
			metrics.PagesFetched.WithLabelValues(label).Inc()
			for _, f := range fields {
				listings = append(listings, newListing(f, category))
			}
			metrics.RecordsExtracted.WithLabelValues(label).Add(float64(len(fields)))
			s.logger.Info("[coinafrique] Page %d done: %d cards, %d collected so far", page, len(fields), len(listings))
		}

		s.observer.OnProgress(page, pages)
	}

	m.RecordCount = len(listings)
	m.Elapsed = time.Since(start)
	m.ElapsedSeconds = m.Elapsed.Seconds()

	if m.NoData() {
		s.logger.Warn("[coinafrique] No data extracted for %s; the page structure may have changed", category.DisplayName())
	}
	s.observer.OnComplete(m)
	return listings, m, nil
}

func (s *Scraper) scrapePage(ctx context.Context, category models.Category, page int) ([]models.Fields, int, error) {
	var fields []models.Fields
	var dropped int
	err := s.retry.Do(ctx, fmt.Sprintf("fetch-page-%d", page), func() error {
		doc, err := s.fetcher.Fetch(ctx, category, page)
		if err != nil {
			return err
		}
		fields, dropped = s.extractor.ExtractPage(doc)
		return nil
	})
	if dropped > 0 {
		metrics.FragmentsDropped.Add(float64(dropped))
	}
	return fields, dropped, err
}

// newListing builds the record for a freshly scraped card. The category is
// trusted from the request, so no keyword matching happens here.
func newListing(f models.Fields, category models.Category) *models.Listing {
	return &models.Listing{
		Details:  f.Details,
		RawPrice: f.RawPrice,
		Location: f.Location,
		ImageURL: f.ImageURL,
		Category: category,
		Price:    services.NormalizePrice(f.RawPrice),
	}
}
