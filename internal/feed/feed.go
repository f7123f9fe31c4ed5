// Package feed parses the SAP lifecycle feed, pushed as JSON or uploaded as
// a spreadsheet.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/lifecycle"
)

// Record is one feed row: a lifecycle date for a variant plus the product
// reference codes SAP carries alongside it.
type Record struct {
	SKU      string    `json:"sku"`
	Variant  string    `json:"variant"`
	DateCode string    `json:"date_code"`
	Date     time.Time `json:"date"`
	Brand    string    `json:"brand,omitempty"`
	Category string    `json:"category,omitempty"`
	Artist   string    `json:"artist,omitempty"`
	Process  string    `json:"process,omitempty"`
}

// RowError is a row that could not be turned into a Record.
type RowError struct {
	Row     int    `json:"row"`
	SKU     string `json:"sku,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

var dateLayouts = []string{"2006-01-02", "20060102", "02.01.2006", "01-02-06"}

// ParseDate accepts ISO dates, SAP's compact YYYYMMDD, the dotted
// DD.MM.YYYY export format and excelize's default mm-dd-yy rendering.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return lifecycle.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

type jsonRecord struct {
	SKU      string `json:"sku"`
	Variant  string `json:"variant"`
	DateCode string `json:"date_code"`
	Date     string `json:"date"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	Artist   string `json:"artist"`
	Process  string `json:"process"`
}

// DecodeJSON reads a JSON array of records. Rows with a missing SKU or an
// unparsable date are returned as row errors; the rest are kept.
func DecodeJSON(r io.Reader) ([]Record, []RowError, error) {
	var raw []jsonRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode feed: %w", err)
	}

	records := make([]Record, 0, len(raw))
	rowErrs := make([]RowError, 0)
	for i, jr := range raw {
		rec, err := newRecord(jr.SKU, jr.Variant, jr.DateCode, jr.Date, jr.Brand, jr.Category, jr.Artist, jr.Process)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 1, SKU: strings.TrimSpace(jr.SKU), Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

var errMissingSKU = errors.New("missing SKU")

func newRecord(sku, variant, dateCode, date, brand, category, artist, process string) (Record, error) {
	rec := Record{
		SKU:      strings.TrimSpace(sku),
		Variant:  strings.TrimSpace(variant),
		DateCode: normalizeDateCode(dateCode),
		Brand:    strings.TrimSpace(brand),
		Category: strings.TrimSpace(category),
		Artist:   strings.TrimSpace(artist),
		Process:  strings.TrimSpace(process),
	}
	if rec.SKU == "" {
		return Record{}, errMissingSKU
	}
	if strings.TrimSpace(date) == "" && rec.DateCode == "" {
		// reference-only row
		return rec, nil
	}
	d, err := ParseDate(date)
	if err != nil {
		return Record{}, err
	}
	rec.Date = d
	return rec, nil
}

// normalizeDateCode restores the leading zero spreadsheets drop ("1" -> "01").
func normalizeDateCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) == 1 && code[0] >= '0' && code[0] <= '9' {
		return "0" + code
	}
	return code
}

// VariantKey identifies a variant in the feed.
type VariantKey struct {
	SKU     string
	Variant string
}

// Group is every record for one variant, in feed order.
type Group struct {
	Key     VariantKey
	Records []Record
}

// GroupByVariant groups records per (SKU, variant) in order of first
// appearance.
func GroupByVariant(records []Record) []Group {
	index := make(map[VariantKey]int)
	groups := make([]Group, 0)
	for _, r := range records {
		k := VariantKey{SKU: r.SKU, Variant: r.Variant}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
