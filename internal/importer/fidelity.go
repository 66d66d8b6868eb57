// Package importer ingests brokerage position exports. The Fidelity CSV
// format buries the position table below free-form preamble lines, so
// the parser scans for the header row instead of assuming it comes
// first.
package importer

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/pkg/models"
)

// ParseFidelityCSV reads a Fidelity positions export and returns the
// position set it describes. Rows with a pending or unparseable symbol
// or quantity are skipped, never fatal.
func ParseFidelityCSV(r io.Reader) ([]models.Position, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	start := -1
	for i, line := range lines {
		if strings.Contains(line, "Security ID") && strings.Contains(line, "Quantity") {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, nil
	}

	headers := splitCSVLine(lines[start])
	symIdx := findHeader(headers, "Security ID")
	qtyIdx := findHeader(headers, "Quantity")
	descIdx := findHeader(headers, "Security Description")
	priceIdx := findHeader(headers, "Last Price", "Price", "Close")
	acctIdx := findHeader(headers, "Account")
	if symIdx == -1 || qtyIdx == -1 {
		return nil, nil
	}

	var positions []models.Position
	for _, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := splitCSVLine(line)
		if len(row) <= max(symIdx, qtyIdx) {
			continue
		}

		symbol := row[symIdx]
		if symbol == "" || symbol == "Pending" {
			continue
		}
		quantity, err := parseNumber(row[qtyIdx])
		if err != nil {
			continue
		}

		desc := ""
		if descIdx > -1 && descIdx < len(row) {
			desc = strings.Trim(row[descIdx], `"`)
		}
		account := ""
		if acctIdx > -1 && acctIdx < len(row) {
			account = row[acctIdx]
		}

		isCash := holdings.IsCashPosition(symbol, desc)
		isFixedIncome := holdings.IsBond(symbol, desc)

		price := 0.0
		if isCash {
			price = 1.0
		}
		if priceIdx > -1 && priceIdx < len(row) && row[priceIdx] != "" {
			if p, err := parseNumber(row[priceIdx]); err == nil {
				price = p
			}
		}

		p := models.Position{
			ID:          uuid.NewString(),
			Account:     account,
			Symbol:      symbol,
			Description: desc,
			Kind:        models.KindStock,
			Quantity:    quantity,
			Price:       price,
		}
		switch {
		case isCash:
			p.Kind = models.KindCash
		case isFixedIncome:
			p.Kind = models.KindBond
			p.YieldPct = holdings.CouponFromDescription(desc)
		}

		positions = append(positions, p)
	}
	return positions, nil
}

// splitCSVLine splits one line on commas, honoring double-quoted fields
// so descriptions like "APPLE, INC" survive intact.
func splitCSVLine(line string) []string {
	var row []string
	var current strings.Builder
	inQuotes := false
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			row = append(row, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	row = append(row, strings.TrimSpace(current.String()))
	return row
}

// findHeader returns the index of the first header containing any of
// the given substrings, or -1.
func findHeader(headers []string, needles ...string) int {
	for _, needle := range needles {
		for i, h := range headers {
			if strings.Contains(h, needle) {
				return i
			}
		}
	}
	return -1
}

// parseNumber strips currency formatting before parsing.
func parseNumber(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", `"`, "").Replace(strings.TrimSpace(s))
	return strconv.ParseFloat(cleaned, 64)
}
