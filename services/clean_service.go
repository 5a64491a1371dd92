package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"coinafrique-scraper/cache"
	"coinafrique-scraper/models"
	"coinafrique-scraper/storage"
	"coinafrique-scraper/utils"
)

// cacheEntry is what the clean cache stores per input source.
type cacheEntry struct {
	Fingerprint string            `json:"fingerprint"`
	Listings    []*models.Listing `json:"listings"`
}

// CleanService loads a bulk CSV and cleans it, memoizing the result per
// input path. An entry is valid only while the file's size, modification
// time and content hash are unchanged.
type CleanService struct {
	cleaner *Cleaner
	store   cache.Store
	logger  *utils.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCleanService creates a CleanService. A nil store disables caching.
func NewCleanService(cleaner *Cleaner, store cache.Store, logger *utils.Logger) *CleanService {
	return &CleanService{cleaner: cleaner, store: store, logger: logger}
}

// Load returns the cleaned dataset for the file at path. A missing file
// yields an error wrapping fs.ErrNotExist.
func (s *CleanService) Load(ctx context.Context, path string) ([]*models.Listing, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("clean: resolve %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	sum := sha256.Sum256(data)
	fingerprint := fmt.Sprintf("%d:%d:%s", info.Size(), info.ModTime().UnixNano(), hex.EncodeToString(sum[:]))
	key := "clean:" + abs

	if listings, ok := s.lookup(ctx, key, fingerprint); ok {
		s.hits.Add(1)
		s.logger.Debug("[clean] cache hit for %s", abs)
		return listings, nil
	}
	s.misses.Add(1)

	table, err := storage.ReadTable(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("clean: %s: %w", abs, err)
	}
	listings, err := s.cleaner.Clean(table)
	if err != nil {
		return nil, fmt.Errorf("clean: %s: %w", abs, err)
	}

	s.remember(ctx, key, cacheEntry{Fingerprint: fingerprint, Listings: listings})
	return listings, nil
}

// Stats returns the cache hit and miss counts since creation.
func (s *CleanService) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

func (s *CleanService) lookup(ctx context.Context, key, fingerprint string) ([]*models.Listing, bool) {
	if s.store == nil {
		return nil, false
	}
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("[clean] cache read failed: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("[clean] discarding undecodable cache entry: %v", err)
		return nil, false
	}
	if entry.Fingerprint != fingerprint {
		s.logger.Info("[clean] input changed, recomputing")
		return nil, false
	}
	return entry.Listings, true
}

func (s *CleanService) remember(ctx context.Context, key string, entry cacheEntry) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("[clean] encode cache entry: %v", err)
		return
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		s.logger.Warn("[clean] cache write failed: %v", err)
	}
}
