package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

var (
	ErrPeriodNotFound      = errors.New("roster: period not found")
	ErrInstallmentNotFound = errors.New("roster: installment not found")
	ErrBadMonth            = errors.New("roster: invalid month")
	ErrBadDays             = errors.New("roster: invalid days")
)

// CapacityError rejects an installment that would push the scheduled total
// past the period's entitled days.
type CapacityError struct {
	Entitled  decimal.Decimal
	Used      decimal.Decimal
	Available decimal.Decimal
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Limite excedido. Disponível: %dd de %dd (%dd já usados).",
		e.Available.IntPart(), e.Entitled.IntPart(), e.Used.IntPart())
}

// OverviewData is the dashboard read model: the filtered active roster with
// per-period status plus headline counters.
type OverviewData struct {
	Employees  []Employee    `json:"employees"`
	Total      int           `json:"total"`
	Urgent     int           `json:"urgent"`
	Warning    int           `json:"warning"`
	LastImport *ImportRecord `json:"last_import,omitempty"`
	Search     string        `json:"search,omitempty"`
	AsOf       time.Time     `json:"as_of"`
}

// PeriodView is the refreshed slice of a single period returned after an
// installment mutation, enough for the client to redraw in place.
type PeriodView struct {
	PeriodID     int64           `json:"period_id"`
	Installments []Installment   `json:"installments"`
	DaysUsed     decimal.Decimal `json:"days_used"`
	EntitledDays decimal.Decimal `json:"entitled_days"`
	Status       PeriodStatus    `json:"status"`
	StatusLabel  string          `json:"status_label"`
}

// Service owns the roster read model and installment scheduling.
type Service struct {
	repo          Repository
	logger        *slog.Logger
	warningWindow int
	now           func() time.Time
}

// NewService builds Service. warningWindow is the number of days before the
// ideal deadline at which a period starts flagging.
func NewService(repo Repository, logger *slog.Logger, warningWindow int) *Service {
	return &Service{repo: repo, logger: logger, warningWindow: warningWindow, now: time.Now}
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Overview loads the active roster, optionally filtered by a substring match
// on name or title, and derives deadline statuses and counters as of today.
// Counters cover the filtered set, matching what the table displays.
func (s *Service) Overview(ctx context.Context, search string) (*OverviewData, error) {
	search = strings.TrimSpace(search)

	var (
		employees []Employee
		last      *ImportRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = s.repo.ActiveEmployees(gctx, search)
		return err
	})
	g.Go(func() error {
		var err error
		last, err = s.repo.LastImport(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := s.today()
	data := &OverviewData{
		Employees:  employees,
		Total:      len(employees),
		LastImport: last,
		Search:     search,
		AsOf:       today,
	}
	for i := range data.Employees {
		for j := range data.Employees[i].Periods {
			p := &data.Employees[i].Periods[j]
			p.Status = p.StatusAt(today, s.warningWindow)
			p.StatusLabel = p.Status.Label()
			switch p.Status {
			case StatusUrgent:
				data.Urgent++
			case StatusWarning:
				data.Warning++
			}
		}
	}
	if data.Employees == nil {
		data.Employees = []Employee{}
	}
	return data, nil
}

// AddInstallment schedules vacation days against a period. Month must be a
// real YYYY-MM month. Days is optional free input ("10", "7,5"); when given
// and the period has entitled days, the new total may not exceed them.
func (s *Service) AddInstallment(ctx context.Context, periodID int64, month, days, note string) (*PeriodView, error) {
	month = strings.TrimSpace(month)
	if !monthPattern.MatchString(month) {
		return nil, ErrBadMonth
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, ErrBadMonth
	}

	var parsed *decimal.Decimal
	if raw := strings.TrimSpace(days); raw != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
		if err != nil || d.IsNegative() {
			return nil, ErrBadDays
		}
		parsed = &d
	}

	period, err := s.repo.PeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, ErrPeriodNotFound
	}

	installments, err := s.repo.InstallmentsByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	// The capacity check only applies when a day count was supplied and the
	// period actually grants days; date-only reservations always go through.
	if parsed != nil && !period.EntitledDays.IsZero() {
		used := DaysUsed(installments)
		if used.Add(*parsed).GreaterThan(period.EntitledDays) {
			return nil, &CapacityError{
				Entitled:  period.EntitledDays,
				Used:      used,
				Available: period.EntitledDays.Sub(used),
			}
		}
	}

	inst := &Installment{
		PeriodID: periodID,
		Month:    month,
		Days:     parsed,
		Note:     strings.TrimSpace(note),
	}
	if err := s.repo.InsertInstallment(ctx, inst); err != nil {
		return nil, err
	}

	s.logger.Info("installment scheduled",
		slog.Int64("period_id", periodID),
		slog.String("month", month),
	)
	return s.periodView(ctx, period)
}

// RemoveInstallment deletes one scheduled installment and returns the view
// of the period it belonged to.
func (s *Service) RemoveInstallment(ctx context.Context, installmentID int64) (*PeriodView, error) {
	periodID, found, err := s.repo.DeleteInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInstallmentNotFound
	}

	period, err := s.repo.PeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, ErrPeriodNotFound
	}

	s.logger.Info("installment removed",
		slog.Int64("installment_id", installmentID),
		slog.Int64("period_id", periodID),
	)
	return s.periodView(ctx, period)
}

func (s *Service) periodView(ctx context.Context, period *AcquisitionPeriod) (*PeriodView, error) {
	installments, err := s.repo.InstallmentsByPeriod(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	if installments == nil {
		installments = []Installment{}
	}
	status := period.StatusAt(s.today(), s.warningWindow)
	return &PeriodView{
		PeriodID:     period.ID,
		Installments: installments,
		DaysUsed:     DaysUsed(installments),
		EntitledDays: period.EntitledDays,
		Status:       status,
		StatusLabel:  status.Label(),
	}, nil
}
