package storage

import (
	"context"
	"errors"
	"fmt"

	"coinafrique-scraper/models"
)

// RawListingWriter appends freshly scraped listings. Existing rows are kept.
type RawListingWriter interface {
	AppendRaw(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// CleanListingWriter replaces the cleaned snapshot with a new one.
type CleanListingWriter interface {
	ReplaceCleaned(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// PersistenceError reports a sink write failure. The caller treats it as a
// warning; the in-memory dataset stays valid.
type PersistenceError struct {
	Sink  string
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: write %s: %v", e.Sink, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AppendAll appends listings to every writer. A failing writer does not
// stop the others; every failure is returned.
func AppendAll(ctx context.Context, listings []*models.Listing, writers ...RawListingWriter) []error {
	var errs []error
	for _, w := range writers {
		if err := w.AppendRaw(ctx, listings); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// SinkOf names the sink of a persistence failure, or "unknown".
func SinkOf(err error) string {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Sink
	}
	return "unknown"
}
