package importer

import "sort"

// NewEmployee pairs a code with the first display name seen for it in the
// batch, for the operator review screen.
type NewEmployee struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Analysis is the reconciliation report between a parsed batch and the
// currently active roster.
type Analysis struct {
	New      []string `json:"new"`
	Removed  []string `json:"removed"`
	Existing []string `json:"existing"`

	// NewEmployees lists each new code once, in order of first appearance
	// in the batch.
	NewEmployees []NewEmployee `json:"new_employees"`
}

// Analyze splits the batch's employee codes against the active ones in
// storage. The three code sets are disjoint and come back sorted; the
// review list keeps the batch's row order.
func Analyze(rows []Row, activeCodes []string) Analysis {
	inBatch := make(map[string]bool, len(rows))
	for _, row := range rows {
		inBatch[row.Code] = true
	}
	active := make(map[string]bool, len(activeCodes))
	for _, code := range activeCodes {
		active[code] = true
	}

	var analysis Analysis
	for code := range inBatch {
		if active[code] {
			analysis.Existing = append(analysis.Existing, code)
		} else {
			analysis.New = append(analysis.New, code)
		}
	}
	for _, code := range activeCodes {
		if !inBatch[code] {
			analysis.Removed = append(analysis.Removed, code)
		}
	}
	sort.Strings(analysis.New)
	sort.Strings(analysis.Removed)
	sort.Strings(analysis.Existing)

	seen := make(map[string]bool, len(analysis.New))
	for _, row := range rows {
		if active[row.Code] || seen[row.Code] {
			continue
		}
		seen[row.Code] = true
		analysis.NewEmployees = append(analysis.NewEmployees, NewEmployee{Code: row.Code, Name: row.Name})
	}

	return analysis
}
