package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-03-07", "20250307", "07.03.2025", "03-07-25", " 2025-03-07 "} {
		got, err := ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseDate("next week"); err == nil {
		t.Error("expected error for free text")
	}
}

func TestDecodeJSON(t *testing.T) {
	body := `[
		{"sku":"MUG-01","variant":"Large","date_code":"1","date":"2025-03-07","brand":"Acme"},
		{"sku":"","variant":"Small","date_code":"02","date":"2025-03-07"},
		{"sku":"MUG-02","variant":"","date_code":"02","date":"soon"},
		{"sku":"MUG-03","brand":"Acme"}
	]`

	records, rowErrs, err := DecodeJSON(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v, want 2", records)
	}
	if records[0].DateCode != "01" || records[0].Brand != "Acme" {
		t.Errorf("record = %+v", records[0])
	}
	if !records[1].Date.IsZero() || records[1].SKU != "MUG-03" {
		t.Errorf("reference-only record = %+v", records[1])
	}
	if len(rowErrs) != 2 || rowErrs[0].Row != 2 || rowErrs[1].SKU != "MUG-02" {
		t.Errorf("row errors = %+v", rowErrs)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	if _, _, err := DecodeJSON(strings.NewReader(`{"sku":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGroupByVariant(t *testing.T) {
	records := []Record{
		{SKU: "A", Variant: "L", DateCode: "01"},
		{SKU: "B", Variant: "", DateCode: "02"},
		{SKU: "A", Variant: "L", DateCode: "02"},
		{SKU: "A", Variant: "S", DateCode: "01"},
	}
	groups := GroupByVariant(records)
	if len(groups) != 3 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Key != (VariantKey{SKU: "A", Variant: "L"}) || len(groups[0].Records) != 2 || groups[0].Records[1].DateCode != "02" {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].Key.SKU != "B" || groups[2].Key.Variant != "S" {
		t.Errorf("group order = %+v", groups)
	}
}

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestReadSpreadsheet(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"SKU", "Variant", "DateCode", "Date", "Brand", "Category", "Artist", "Process", "Notes"},
		{"MUG-01", "Large", "01", "2025-03-07", "Acme", "Mugs", "Jane Doe", "Screen Print", "ignored"},
		{},
		{"MUG-01", "Large", "2", "20250401"},
		{"MUG-02", "", "05", "not a date"},
	})

	records, rowErrs, err := ReadSpreadsheet(buf)
	if err != nil {
		t.Fatalf("ReadSpreadsheet: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].Artist != "Jane Doe" || records[0].Process != "Screen Print" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].DateCode != "02" || records[1].Date.Month() != time.April {
		t.Errorf("second record = %+v", records[1])
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 5 || rowErrs[0].SKU != "MUG-02" {
		t.Errorf("row errors = %+v", rowErrs)
	}
}

func TestReadSpreadsheet_MissingColumn(t *testing.T) {
	buf := buildWorkbook(t, [][]any{{"SKU", "Variant", "Date"}, {"MUG-01", "", "2025-03-07"}})
	if _, _, err := ReadSpreadsheet(buf); err == nil || !strings.Contains(err.Error(), "datecode") {
		t.Fatalf("error = %v, want missing datecode column", err)
	}
}
