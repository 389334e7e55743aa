package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedInput reports input the CSV reader could not process at all.
// Individual bad rows never trigger it; they are skipped and counted.
var ErrMalformedInput = errors.New("importer: malformed input")

// Row is one normalized line of the export: an employee's identity joined
// with one acquisition period. The JSON form is what gets parked in the
// batch store between upload and confirm, so dates and day counts must
// survive a text round trip.
type Row struct {
	OrgUnitRaw    string          `json:"org_unit_raw"`
	OrgUnit       string          `json:"org_unit"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	TitleRaw      string          `json:"title_raw"`
	Title         string          `json:"title"`
	HiredOn       *time.Time      `json:"hired_on,omitempty"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	IdealDeadline *time.Time      `json:"ideal_deadline,omitempty"`
	MaxDeadline   *time.Time      `json:"max_deadline,omitempty"`
	AbsenceDays   decimal.Decimal `json:"absence_days"`
	EntitledDays  decimal.Decimal `json:"entitled_days"`
	TakenDays     decimal.Decimal `json:"taken_days"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
	ScheduledDays decimal.Decimal `json:"scheduled_days"`
}

// Stats summarizes what the parser dropped or flagged while scanning.
type Stats struct {
	// DataRows counts non-empty records after the header row.
	DataRows int
	// Skipped counts rows dropped for a missing code or an unparseable
	// acquisition period.
	Skipped int
	// UnmappedOrgUnits counts rows per company code that has no org unit
	// mapping yet.
	UnmappedOrgUnits map[string]int
}

// The export pads out to at least this many columns; short rows are
// topped up with empty cells before positional reads.
const minColumns = 15

// headerMarker locates the header row. The label varies between exports
// ("FUNCIONÁRIO", "FUNCIONARIO", extra suffixes) but the stem is stable.
const headerMarker = "FUNCION"

// detectDelimiter samples the head of the file. Tab-separated exports
// always contain at least one tab; otherwise whichever of ';' and ','
// appears more often wins, with ',' taking ties.
func detectDelimiter(text string) rune {
	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	if strings.ContainsRune(sample, '\t') {
		return '\t'
	}
	if strings.Count(sample, ";") > strings.Count(sample, ",") {
		return ';'
	}
	return ','
}

// carried holds the identity fields a continuation row inherits. The ERP
// leaves code/name/title/unit/hire date blank on an employee's second and
// later period rows.
type carried struct {
	orgUnit string
	code    string
	name    string
	title   string
	hiredOn *time.Time
}

// Parse converts raw export text into normalized rows. Bad rows are
// skipped and counted, never fatal; the returned error is reserved for
// input the reader cannot make sense of at all.
func Parse(text string) ([]Row, Stats, error) {
	stats := Stats{UnmappedOrgUnits: make(map[string]int)}
	text = strings.TrimPrefix(text, "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		rows        []Row
		last        carried
		headerFound bool
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if emptyRecord(record) {
			continue
		}

		if !headerFound {
			headerFound = isHeaderRecord(record)
			continue
		}
		stats.DataRows++

		for len(record) < minColumns {
			record = append(record, "")
		}

		orgUnitRaw := strings.TrimSpace(record[0])
		code := strings.TrimSpace(record[1])
		name := strings.TrimSpace(record[2])
		titleRaw := strings.TrimSpace(record[3])
		hiredOn := optionalDate(record[4])
		periodStart, startOK := ParseDate(record[5])
		periodEnd, endOK := ParseDate(record[6])

		if code == "" {
			orgUnitRaw = last.orgUnit
			code = last.code
			name = last.name
			titleRaw = last.title
			hiredOn = last.hiredOn
		} else {
			last = carried{orgUnit: orgUnitRaw, code: code, name: name, title: titleRaw, hiredOn: hiredOn}
		}

		if !startOK || !endOK || code == "" {
			stats.Skipped++
			continue
		}

		orgUnit, known := CanonicalOrgUnit(orgUnitRaw)
		if !known && orgUnitRaw != "" {
			stats.UnmappedOrgUnits[orgUnitKey(orgUnitRaw)]++
		}

		rows = append(rows, Row{
			OrgUnitRaw:    orgUnitRaw,
			OrgUnit:       orgUnit,
			Code:          code,
			Name:          name,
			TitleRaw:      titleRaw,
			Title:         CanonicalTitle(titleRaw),
			HiredOn:       hiredOn,
			PeriodStart:   periodStart,
			PeriodEnd:     periodEnd,
			IdealDeadline: optionalDate(record[7]),
			MaxDeadline:   optionalDate(record[8]),
			AbsenceDays:   ParseDays(record[9]),
			EntitledDays:  ParseDays(record[10]),
			TakenDays:     ParseDays(record[11]),
			RemainingDays: ParseDays(record[12]),
			ScheduledDays: ParseDays(record[13]),
		})
	}

	return rows, stats, nil
}

func emptyRecord(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}

func isHeaderRecord(record []string) bool {
	for _, cell := range record {
		if strings.Contains(strings.ToUpper(strings.TrimSpace(cell)), headerMarker) {
			return true
		}
	}
	return false
}

func optionalDate(raw string) *time.Time {
	if t, ok := ParseDate(raw); ok {
		return &t
	}
	return nil
}
