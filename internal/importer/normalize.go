// Package importer implements the payroll-export import pipeline: cell
// normalization, row parsing with the ERP's continuation quirks, the
// new/removed/existing reconciliation report, and the transactional merge
// into the roster.
package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// serialEpoch anchors spreadsheet serial dates. The ERP export inherits
// the historical 1900 leap-year bug, so the epoch sits two days before
// 1900-01-01 rather than one.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var serialPattern = regexp.MustCompile(`^\d{5}$`)

// dateLayouts lists the textual date formats the ERP emits, tried in order.
var dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

// ParseDate interprets a date cell from the export. Five-digit numbers are
// spreadsheet serials; everything else is tried against the known textual
// layouts. Empty cells, the literal "0" and unparseable values all report
// absent rather than failing.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return time.Time{}, false
	}

	if serialPattern.MatchString(s) {
		serial, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		return serialEpoch.AddDate(0, 0, serial), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDays converts a day-count cell to a decimal. The export writes
// decimals with either comma or dot separators depending on which machine
// generated it. Empty or invalid cells degrade to zero.
func ParseDays(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
