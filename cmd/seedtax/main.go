// Command seedtax converts the GST HSN/SAC Excel file into a SQL seed file
// for the tax_codes table. Goods codes come from the HSN_Master_v1 sheet and
// service codes from the SAC_Master sheet.
// Usage: go run ./cmd/seedtax
// Output: db/seeds/tax_codes.sql
package main

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

const batchSize = 500

type taxCodeEntry struct {
	code        string
	category    string // goods or services
	description string
	rate        float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	xlsxPath := "AI Tool - GST_HSN Code summary_19.02.2025.xlsx"
	outPath := "db/seeds/tax_codes.sql"

	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return fmt.Errorf("open Excel file: %w", err)
	}
	defer func() { _ = f.Close() }()

	seen := make(map[string]bool)
	var entries []taxCodeEntry

	// Sheet 0: HSN_Master_v1 (goods)
	goods, err := parseGoodsSheet(f, seen)
	if err != nil {
		return fmt.Errorf("parse goods sheet: %w", err)
	}
	entries = append(entries, goods...)
	log.Printf("goods sheet: %d entries", len(goods))

	// Sheet 2: SAC_Master (services)
	services, err := parseServicesSheet(f, seen)
	if err != nil {
		return fmt.Errorf("parse services sheet: %w", err)
	}
	entries = append(entries, services...)
	log.Printf("services sheet: %d entries", len(services))

	// Write SQL file with batched multi-row INSERTs.
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	w := func(s string) error { _, werr := fmt.Fprintln(out, s); return werr }

	for _, line := range []string{
		"-- Tax code seed data generated from Excel.",
		fmt.Sprintf("-- %d entries (goods + services) in batches of %d.", len(entries), batchSize),
		"-- Run: make seed-taxcodes",
		"BEGIN;",
		"",
	} {
		if werr := w(line); werr != nil {
			return fmt.Errorf("write header: %w", werr)
		}
	}

	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := writeBatch(out, entries[i:end]); err != nil {
			return fmt.Errorf("write batch at offset %d: %w", i, err)
		}
	}

	for _, line := range []string{"", "COMMIT;"} {
		if werr := w(line); werr != nil {
			return fmt.Errorf("write footer: %w", werr)
		}
	}

	log.Printf("Generated %d total entries (%d batches) in %s",
		len(entries), (len(entries)+batchSize-1)/batchSize, outPath)
	return nil
}

// parseGoodsSheet reads the HSN_Master_v1 sheet (index 0).
// Columns: F(5)=4-digit, H(7)=4-digit desc, I(8)=6-digit, J(9)=6-digit desc,
// K(10)=8-digit, M(12)=8-digit desc, N(13)=GST rate (percentage formatted).
// Data starts at row index 5.
func parseGoodsSheet(f *excelize.File, seen map[string]bool) ([]taxCodeEntry, error) {
	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	var entries []taxCodeEntry
	for i := 5; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 14 {
			continue
		}

		rateStr := strings.TrimSpace(cellVal(row, 13))
		if rateStr == "" {
			continue
		}

		rateStr = strings.TrimSuffix(rateStr, "%")
		var rate float64
		if _, serr := fmt.Sscanf(rateStr, "%f", &rate); serr != nil {
			continue
		}

		if code := strings.TrimSpace(cellVal(row, 10)); code != "" && isNumeric(code) {
			entries = addEntry(entries, seen, code, "goods", strings.TrimSpace(cellVal(row, 12)), rate)
		}
		if code := strings.TrimSpace(cellVal(row, 8)); code != "" && isNumeric(code) {
			entries = addEntry(entries, seen, code, "goods", strings.TrimSpace(cellVal(row, 9)), rate)
		}
		if code := strings.TrimSpace(cellVal(row, 5)); code != "" && isNumeric(code) {
			entries = addEntry(entries, seen, code, "goods", strings.TrimSpace(cellVal(row, 7)), rate)
		}
	}
	return entries, nil
}

// parseServicesSheet reads the SAC_Master sheet (index 2).
// Columns: A(0)=4-digit SAC, B(1)=4-digit desc, C(2)=6-digit SAC, D(3)=6-digit desc,
// E(4)=GST rate (free text like "18%", "Exempt", "5% (without ITC)", "12%-18%").
// Data starts at row index 3.
func parseServicesSheet(f *excelize.File, seen map[string]bool) ([]taxCodeEntry, error) {
	rows, err := f.GetRows("SAC_Master")
	if err != nil {
		return nil, err
	}

	var entries []taxCodeEntry
	for i := 3; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 5 {
			continue
		}

		rateStr := strings.TrimSpace(cellVal(row, 4))
		rates := parseServiceRate(rateStr)
		if len(rates) == 0 {
			continue
		}

		code6 := strings.TrimSpace(cellVal(row, 2))
		desc6 := strings.TrimSpace(cellVal(row, 3))
		code4 := strings.TrimSpace(cellVal(row, 0))
		desc4 := strings.TrimSpace(cellVal(row, 1))

		for _, rate := range rates {
			if code6 != "" && isNumeric(code6) {
				entries = addEntry(entries, seen, code6, "services", desc6, rate)
			}
			if code4 != "" && isNumeric(code4) {
				entries = addEntry(entries, seen, code4, "services", desc4, rate)
			}
		}
	}
	return entries, nil
}

// ratePattern matches a number followed by "%".
var ratePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// parseServiceRate extracts GST rate(s) from free-text SAC rate strings.
// Examples:
//
//	"18%"                                     → [18]
//	"Exempt"                                  → [0]
//	"12%-18%"                                 → [12, 18]
//	"1% (without ITC) or 5% (without ITC)"   → [1, 5]
func parseServiceRate(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	lower := strings.ToLower(s)
	if lower == "exempt" || lower == "nil" {
		return []float64{0}
	}

	matches := ratePattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[float64]bool)
	var rates []float64
	for _, m := range matches {
		var rate float64
		if _, err := fmt.Sscanf(m[1], "%f", &rate); err == nil && !seen[rate] {
			seen[rate] = true
			rates = append(rates, rate)
		}
	}
	return rates
}

func addEntry(entries []taxCodeEntry, seen map[string]bool, code, category, description string, rate float64) []taxCodeEntry {
	key := fmt.Sprintf("%s|%s|%.2f", code, category, rate)
	if seen[key] {
		return entries
	}
	seen[key] = true
	return append(entries, taxCodeEntry{code: code, category: category, description: description, rate: rate})
}

func writeBatch(out *os.File, batch []taxCodeEntry) error {
	if len(batch) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO tax_codes (code, category, description, rate) VALUES\n")

	for i := range batch {
		e := &batch[i]
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "  ('%s', '%s', '%s', %.2f)",
			escapeSQL(e.code), e.category, escapeSQL(e.description), e.rate)
	}
	b.WriteString("\nON CONFLICT DO NOTHING;\n")

	_, err := fmt.Fprintln(out, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func cellVal(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
