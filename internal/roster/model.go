// Package roster holds the persisted employee vacation roster: employees,
// their acquisition periods as imported from the payroll ERP, and the
// vacation installments staff schedule against each period.
package roster

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Employee is one collaborator known to the roster. Identity fields are
// overwritten by each import; the active flag tracks presence in the most
// recent payroll export (employees are deactivated, never deleted).
type Employee struct {
	ID         int64      `json:"id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	TitleRaw   string     `json:"title_raw"`
	Title      string     `json:"title"`
	OrgUnitRaw string     `json:"org_unit_raw"`
	OrgUnit    string     `json:"org_unit"`
	HiredOn    *time.Time `json:"hired_on,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Periods []AcquisitionPeriod `json:"periods,omitempty"`
}

// AcquisitionPeriod is one vacation-entitlement window for an employee,
// keyed by (employee, starts_on). Date and day-count fields come from the
// ERP and are overwritten on re-import; installments and notes are only
// ever touched by direct user action.
type AcquisitionPeriod struct {
	ID            int64           `json:"id"`
	EmployeeID    int64           `json:"employee_id"`
	StartsOn      time.Time       `json:"starts_on"`
	EndsOn        time.Time       `json:"ends_on"`
	IdealDeadline *time.Time      `json:"ideal_deadline,omitempty"`
	MaxDeadline   *time.Time      `json:"max_deadline,omitempty"`
	AbsenceDays   decimal.Decimal `json:"absence_days"`
	EntitledDays  decimal.Decimal `json:"entitled_days"`
	TakenDays     decimal.Decimal `json:"taken_days"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
	ScheduledDays decimal.Decimal `json:"scheduled_days"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Installments []Installment `json:"installments,omitempty"`

	// Derived for API responses, filled in by the service layer.
	Status      PeriodStatus `json:"status,omitempty"`
	StatusLabel string       `json:"status_label,omitempty"`
}

// Installment is a scheduled slice of vacation days inside a period. A
// period may be split across several months, each with its own day count
// and free-text note.
type Installment struct {
	ID        int64            `json:"id"`
	PeriodID  int64            `json:"period_id"`
	Month     string           `json:"month"`
	Days      *decimal.Decimal `json:"days,omitempty"`
	Note      string           `json:"note"`
	CreatedAt time.Time        `json:"created_at"`
}

// ImportRecord is one append-only audit entry per committed import.
type ImportRecord struct {
	ID          int64     `json:"id"`
	ImportedAt  time.Time `json:"imported_at"`
	TotalRows   int       `json:"total_rows"`
	New         int       `json:"new"`
	Deactivated int       `json:"deactivated"`
	Updated     int       `json:"updated"`
	Note        string    `json:"note,omitempty"`
}

// PeriodStatus classifies a period against its vacation deadlines.
type PeriodStatus string

const (
	StatusOK            PeriodStatus = "ok"
	StatusWarning       PeriodStatus = "warning"
	StatusUrgent        PeriodStatus = "urgent"
	StatusNoEntitlement PeriodStatus = "no_entitlement"
)

// Label returns the badge text shown next to a period.
func (s PeriodStatus) Label() string {
	switch s {
	case StatusUrgent:
		return "Urgente"
	case StatusWarning:
		return "Atenção"
	case StatusNoEntitlement:
		return "Sem dias"
	case StatusOK:
		return "OK"
	}
	return "-"
}

// StatusAt derives the deadline state of the period as of today. A period
// with no entitled days is reported as such even when its deadlines have
// passed. The ideal deadline triggers a warning once it is warningWindow
// days away or closer, overdue included, as long as the hard maximum has
// not been crossed.
func (p AcquisitionPeriod) StatusAt(today time.Time, warningWindow int) PeriodStatus {
	if p.EntitledDays.IsZero() {
		return StatusNoEntitlement
	}
	if p.MaxDeadline != nil && today.After(*p.MaxDeadline) {
		return StatusUrgent
	}
	if p.IdealDeadline != nil {
		days := int(p.IdealDeadline.Sub(today).Hours() / 24)
		if days <= warningWindow {
			return StatusWarning
		}
	}
	return StatusOK
}

// DaysUsed sums the day counts of the given installments, skipping the
// ones scheduled without a count.
func DaysUsed(installments []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range installments {
		if inst.Days != nil {
			total = total.Add(*inst.Days)
		}
	}
	return total
}

var monthNames = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// MonthLabel renders a "2025-07" month as "Jul/2025". Anything that does
// not parse comes back unchanged.
func MonthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return monthNames[t.Month()-1] + "/" + strconv.Itoa(t.Year())
}

// MonthLabel is the display form of the installment's target month.
func (i Installment) MonthLabel() string {
	return MonthLabel(i.Month)
}

// MarshalJSON adds the rendered month alongside the raw value so clients
// never re-implement the Portuguese month table.
func (i Installment) MarshalJSON() ([]byte, error) {
	type plain Installment
	return json.Marshal(struct {
		plain
		MonthDisplay string `json:"month_display"`
	}{plain(i), i.MonthLabel()})
}
