package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinafrique-scraper/api"
	"coinafrique-scraper/cache"
	"coinafrique-scraper/config"
	"coinafrique-scraper/metrics"
	"coinafrique-scraper/models"
	"coinafrique-scraper/scraper/coinafrique"
	"coinafrique-scraper/services"
	"coinafrique-scraper/storage"
	"coinafrique-scraper/utils"
)

func main() {
	mode := flag.String("mode", "scrape", "scrape | clean | serve")
	categoryName := flag.String("category", string(models.Dogs), "category label, display name or slug (scrape mode)")
	pages := flag.Int("pages", 1, "number of listing pages to scrape")
	input := flag.String("input", "", "bulk CSV to clean (defaults to BULK_INPUT_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLoggerWithOptions(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Coinafrique Scraping System starting (mode: %s) ===", *mode)
	logger.Info("Config: db: %s | fetch: %s | delay: %s | max pages: %d | cache: %s",
		cfg.DBDriver, cfg.FetchMode, cfg.PageDelay, cfg.MaxPages, cfg.CacheBackend)

	var code int
	switch *mode {
	case "scrape":
		code = runScrape(ctx, cfg, logger, *categoryName, *pages)
	case "clean":
		path := *input
		if path == "" {
			path = cfg.BulkInputPath
		}
		code = runClean(ctx, cfg, logger, path)
	case "serve":
		code = runServe(ctx, cfg, logger)
	default:
		logger.Error("Unknown mode %q (want scrape, clean or serve)", *mode)
		code = 2
	}
	stop()
	os.Exit(code)
}

func runScrape(ctx context.Context, cfg *config.Config, logger *utils.Logger, categoryName string, pages int) int {
	category, err := models.ParseCategory(categoryName)
	if err != nil {
		logger.Error("%v", err)
		return 2
	}

	fetcher, closeFetcher, err := coinafrique.NewFetcher(cfg)
	if err != nil {
		logger.Error("Failed to create fetcher: %v", err)
		return 1
	}
	defer closeFetcher()

	observer := coinafrique.MultiObserver(coinafrique.LogObserver{Logger: logger}, metrics.Observer{})
	listings, m, err := coinafrique.New(cfg, logger, fetcher, observer).Run(ctx, category, pages)
	if err != nil {
		logger.Error("Scrape of %s failed: %v", category.DisplayName(), err)
		return 1
	}
	if m.NoData() {
		logger.Error("No listings were scraped. Exiting.")
		return 1
	}

	logger.Info("Scraped %d listings, persisting...", len(listings))

	store := openStore(ctx, cfg, logger)
	sinks := []storage.RawListingWriter{}
	if csvWriter, err := storage.NewCSVWriter(cfg.RawCSVPath); err != nil {
		logger.Warn("CSV sink unavailable: %v", err)
	} else {
		defer csvWriter.Close()
		sinks = append(sinks, csvWriter)
	}
	if store != nil {
		defer store.Close()
		sinks = append(sinks, store)
	}
	for _, perr := range storage.AppendAll(ctx, listings, sinks...) {
		metrics.PersistenceFailures.WithLabelValues(storage.SinkOf(perr)).Inc()
		logger.Warn("Persistence failed: %v", perr)
	}

	insightSvc := services.NewInsightService(logger)
	var table rawReader
	if store != nil {
		table = store
	}
	insightSvc.Print(os.Stdout, summarizeRun(ctx, insightSvc, logger, listings, table))
	fmt.Printf("  Done. Raw CSV → %s | database: %s\n\n", cfg.RawCSVPath, cfg.DBDriver)
	return 0
}

func runClean(ctx context.Context, cfg *config.Config, logger *utils.Logger, path string) int {
	cleanSvc, closeCache, err := newCleanService(ctx, cfg, logger)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	defer closeCache()

	listings, err := cleanSvc.Load(ctx, path)
	if err != nil {
		logger.Error("Cleaning failed: %v", err)
		return 1
	}
	logger.Info("Cleaned dataset: %d listings from %s", len(listings), path)

	if store := openStore(ctx, cfg, logger); store != nil {
		defer store.Close()
		if err := store.ReplaceCleaned(ctx, listings); err != nil {
			metrics.PersistenceFailures.WithLabelValues(storage.SinkOf(err)).Inc()
			logger.Warn("Persistence failed: %v", err)
		} else {
			logger.Info("Clean listings stored (database: %s)", cfg.DBDriver)
		}
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(os.Stdout, insightSvc.Generate(listings))
	return 0
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) int {
	fetcher, closeFetcher, err := coinafrique.NewFetcher(cfg)
	if err != nil {
		logger.Error("Failed to create fetcher: %v", err)
		return 1
	}
	defer closeFetcher()

	cleanSvc, closeCache, err := newCleanService(ctx, cfg, logger)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	defer closeCache()

	deps := api.Deps{
		Config: cfg,
		Logger: logger,
		Scraper: coinafrique.New(cfg, logger, fetcher,
			coinafrique.MultiObserver(coinafrique.LogObserver{Logger: logger}, metrics.Observer{})),
		Cleaner:  cleanSvc,
		Insights: services.NewInsightService(logger),
	}
	if csvWriter, err := storage.NewCSVWriter(cfg.RawCSVPath); err != nil {
		logger.Warn("CSV sink unavailable: %v", err)
	} else {
		defer csvWriter.Close()
		deps.RawSinks = append(deps.RawSinks, csvWriter)
	}
	if store := openStore(ctx, cfg, logger); store != nil {
		defer store.Close()
		deps.RawSinks = append(deps.RawSinks, store)
		deps.CleanSink = store
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed: %v", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Shutdown: %v", err)
		}
	}
	return 0
}

// openStore connects the SQL sink. It returns nil when DB_DRIVER is "none"
// or the database is unreachable; persistence then degrades to CSV only.
func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) *storage.SQLStore {
	if cfg.DBDriver == "none" || cfg.DBDriver == "" {
		return nil
	}
	store, err := storage.NewSQLStore(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Warn("Database unavailable, continuing without it: %v", err)
		if cfg.DBDriver == "postgres" {
			logger.Warn("Make sure Docker is running: docker compose up -d")
		}
		return nil
	}
	return store
}

func newCleanService(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*services.CleanService, func(), error) {
	mode, err := services.ParseSignalMode(cfg.ClassifierMode)
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.New(ctx, cache.Options{
		Backend:       cfg.CacheBackend,
		TTL:           cfg.CacheTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	closeCache := func() {}
	if err != nil {
		logger.Warn("Clean cache disabled: %v", err)
		store = nil
	} else {
		closeCache = func() { _ = store.Close() }
	}

	cleaner := services.NewCleaner(logger, services.NewClassifier(mode))
	return services.NewCleanService(cleaner, store, logger), closeCache, nil
}

type rawReader interface {
	FetchRaw(ctx context.Context) ([]*models.Listing, error)
}

// summarizeRun summarizes the dataset of this run. The raw table holds every
// run ever persisted, so it is only reported as a row count.
func summarizeRun(ctx context.Context, insights *services.InsightService, logger *utils.Logger, listings []*models.Listing, table rawReader) *models.Summary {
	if table != nil {
		stored, err := table.FetchRaw(ctx)
		if err != nil {
			logger.Warn("Failed to read back the raw table: %v", err)
		} else {
			all := insights.Generate(withNormalizedPrices(stored))
			logger.Info("Raw table now holds %d listings (%d priced) across %d categories",
				all.TotalCount, all.PricedCount, all.ActiveCategories())
		}
	}
	return insights.Generate(listings)
}

// withNormalizedPrices derives the numeric price of rows read back from the
// raw table, which only stores the source text.
func withNormalizedPrices(rows []*models.Listing) []*models.Listing {
	out := make([]*models.Listing, len(rows))
	for i, r := range rows {
		l := *r
		l.Price = services.NormalizePrice(l.RawPrice)
		out[i] = &l
	}
	return out
}
