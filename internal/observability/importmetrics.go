package observability

import "github.com/prometheus/client_golang/prometheus"

// ImportMetrics tracks data quality across payroll export imports. Unmapped
// company codes are the early-warning signal that the ERP grew a new branch
// before anyone extended the mapping table.
type ImportMetrics struct {
	uploadsTotal    *prometheus.CounterVec
	rowsSkipped     prometheus.Counter
	orgUnitUnmapped *prometheus.CounterVec
}

// NewImportMetrics registers the import counters on the given registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provisio_imports_total",
		Help: "Import batches by outcome (uploaded, committed, discarded, expired).",
	}, []string{"outcome"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provisio_import_rows_skipped_total",
		Help: "Rows dropped during parsing for missing code or unparseable period dates.",
	})
	unmapped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provisio_import_org_unit_unmapped_total",
		Help: "Rows whose company code has no org unit mapping, by code.",
	}, []string{"code"})
	reg.MustRegister(uploads, skipped, unmapped)
	return &ImportMetrics{
		uploadsTotal:    uploads,
		rowsSkipped:     skipped,
		orgUnitUnmapped: unmapped,
	}
}

// ObserveUpload counts a batch outcome.
func (m *ImportMetrics) ObserveUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSkippedRows adds to the dropped-row counter.
func (m *ImportMetrics) ObserveSkippedRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsSkipped.Add(float64(n))
}

// ObserveUnmappedOrgUnit counts a row carrying an unknown company code.
func (m *ImportMetrics) ObserveUnmappedOrgUnit(code string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orgUnitUnmapped.WithLabelValues(code).Add(float64(n))
}
