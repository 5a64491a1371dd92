package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"coinafrique-scraper/models"
)

// Layout selects the column set of an exported CSV.
type Layout int

const (
	// LayoutRaw is the scraped table: details, price_raw, location, image_ref, category.
	LayoutRaw Layout = iota
	// LayoutCleaned adds source_url and the numeric price.
	LayoutCleaned
)

var (
	rawColumns     = []string{"details", "price_raw", "location", "image_ref", "category"}
	cleanedColumns = []string{"details", "price_raw", "location", "image_ref", "source_url", "category", "price"}
)

// Columns returns the header row of the layout.
func (l Layout) Columns() []string {
	if l == LayoutCleaned {
		return cleanedColumns
	}
	return rawColumns
}

func (l Layout) row(x *models.Listing) []string {
	if l == LayoutCleaned {
		return []string{
			models.Deref(x.Details),
			models.Deref(x.RawPrice),
			models.Deref(x.Location),
			models.Deref(x.ImageURL),
			models.Deref(x.SourceURL),
			string(x.Category),
			x.Price.String(),
		}
	}
	return []string{
		models.Deref(x.Details),
		models.Deref(x.RawPrice),
		models.Deref(x.Location),
		models.Deref(x.ImageURL),
		string(x.Category),
	}
}

// WriteListingsCSV writes a header row and one row per listing in order.
// Nil fields and missing prices become empty cells.
func WriteListingsCSV(w io.Writer, listings []*models.Listing, layout Layout) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(layout.Columns()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := writeRows(cw, listings, layout); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeRows(cw *csv.Writer, listings []*models.Listing, layout Layout) error {
	for _, l := range listings {
		if err := cw.Write(layout.row(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	return nil
}

// ReadTable reads any delimited export into a RawTable without interpreting
// its columns. Rows may have differing lengths.
func ReadTable(r io.Reader) (*models.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &models.RawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	table := &models.RawTable{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// ReadListingsCSV reads back a file written by WriteListingsCSV in either
// layout. Empty cells become nil.
func ReadListingsCSV(r io.Reader) ([]*models.Listing, error) {
	table, err := ReadTable(r)
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(table.Header))
	for i, h := range table.Header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range rawColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("csv: missing column %q", col)
		}
	}

	get := func(row []string, col string) *string {
		i, ok := idx[col]
		if !ok || i >= len(row) || row[i] == "" {
			return nil
		}
		v := row[i]
		return &v
	}

	listings := make([]*models.Listing, 0, len(table.Rows))
	for n, row := range table.Rows {
		cat, err := models.ParseCategory(models.Deref(get(row, "category")))
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", n+1, err)
		}
		l := &models.Listing{
			Details:   get(row, "details"),
			RawPrice:  get(row, "price_raw"),
			Location:  get(row, "location"),
			ImageURL:  get(row, "image_ref"),
			SourceURL: get(row, "source_url"),
			Category:  cat,
		}
		if p := get(row, "price"); p != nil {
			if l.Price, err = parseStoredPrice(*p); err != nil {
				return nil, fmt.Errorf("csv: row %d: %w", n+1, err)
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}
