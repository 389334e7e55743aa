package roster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeRepo is a map-backed Repository double for service and handler tests.
type fakeRepo struct {
	employees    []Employee
	periods      map[int64]*AcquisitionPeriod
	installments map[int64][]Installment
	lastImport   *ImportRecord
	nextID       int64

	lastSearch string
	listErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		periods:      make(map[int64]*AcquisitionPeriod),
		installments: make(map[int64][]Installment),
	}
}

func (r *fakeRepo) addPeriod(id int64, entitled decimal.Decimal) *AcquisitionPeriod {
	p := &AcquisitionPeriod{ID: id, EmployeeID: 1, EntitledDays: entitled}
	r.periods[id] = p
	return p
}

func (r *fakeRepo) addInstallment(periodID int64, days *decimal.Decimal) Installment {
	r.nextID++
	inst := Installment{ID: r.nextID, PeriodID: periodID, Month: "2025-01", Days: days}
	r.installments[periodID] = append(r.installments[periodID], inst)
	return inst
}

func (r *fakeRepo) ActiveEmployees(ctx context.Context, search string) ([]Employee, error) {
	r.lastSearch = search
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.employees, nil
}

func (r *fakeRepo) ActiveCodes(ctx context.Context) ([]string, error) { return nil, nil }

func (r *fakeRepo) EmployeesByCodes(ctx context.Context, codes []string) ([]Employee, error) {
	return nil, nil
}

func (r *fakeRepo) PeriodByID(ctx context.Context, id int64) (*AcquisitionPeriod, error) {
	p, ok := r.periods[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) InstallmentsByPeriod(ctx context.Context, periodID int64) ([]Installment, error) {
	return append([]Installment(nil), r.installments[periodID]...), nil
}

func (r *fakeRepo) InsertInstallment(ctx context.Context, inst *Installment) error {
	r.nextID++
	inst.ID = r.nextID
	inst.CreatedAt = time.Now().UTC()
	r.installments[inst.PeriodID] = append(r.installments[inst.PeriodID], *inst)
	return nil
}

func (r *fakeRepo) DeleteInstallment(ctx context.Context, id int64) (int64, bool, error) {
	for periodID, list := range r.installments {
		for i, inst := range list {
			if inst.ID == id {
				r.installments[periodID] = append(list[:i], list[i+1:]...)
				return periodID, true, nil
			}
		}
	}
	return 0, false, nil
}

func (r *fakeRepo) LastImport(ctx context.Context) (*ImportRecord, error) {
	return r.lastImport, nil
}

// fixedClockService pins today to 2025-08-15 so deadline math is stable.
func fixedClockService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, logger, 60)
	svc.now = func() time.Time { return time.Date(2025, time.August, 15, 12, 30, 0, 0, time.UTC) }
	return svc
}

func TestOverviewDerivesStatusAndCounters(t *testing.T) {
	repo := newFakeRepo()
	repo.lastImport = &ImportRecord{ID: 9, TotalRows: 120}
	repo.employees = []Employee{
		{ID: 1, Name: "ANA", Periods: []AcquisitionPeriod{
			{ID: 10, EntitledDays: decimal.NewFromInt(30), MaxDeadline: datePtr(2025, time.August, 1)},
			{ID: 11, EntitledDays: decimal.NewFromInt(30), IdealDeadline: datePtr(2025, time.September, 1)},
		}},
		{ID: 2, Name: "BETO", Periods: []AcquisitionPeriod{
			{ID: 12, EntitledDays: decimal.Zero},
			{ID: 13, EntitledDays: decimal.NewFromInt(30), IdealDeadline: datePtr(2026, time.January, 1)},
		}},
	}
	svc := fixedClockService(repo)

	data, err := svc.Overview(context.Background(), "  an  ")
	require.NoError(t, err)

	require.Equal(t, "an", repo.lastSearch)
	require.Equal(t, 2, data.Total)
	require.Equal(t, 1, data.Urgent)
	require.Equal(t, 1, data.Warning)
	require.Equal(t, date(2025, time.August, 15), data.AsOf)

	ana := data.Employees[0]
	require.Equal(t, StatusUrgent, ana.Periods[0].Status)
	require.Equal(t, "Urgente", ana.Periods[0].StatusLabel)
	require.Equal(t, StatusWarning, ana.Periods[1].Status)

	beto := data.Employees[1]
	require.Equal(t, StatusNoEntitlement, beto.Periods[0].Status)
	require.Equal(t, "Sem dias", beto.Periods[0].StatusLabel)
	require.Equal(t, StatusOK, beto.Periods[1].Status)

	require.NotNil(t, data.LastImport)
	require.Equal(t, int64(9), data.LastImport.ID)
}

func TestOverviewEmptyRoster(t *testing.T) {
	svc := fixedClockService(newFakeRepo())

	data, err := svc.Overview(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, data.Employees)
	require.Empty(t, data.Employees)
	require.Zero(t, data.Total)
	require.Nil(t, data.LastImport)
}

func TestOverviewPropagatesStorageFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("connection refused")
	svc := fixedClockService(repo)

	_, err := svc.Overview(context.Background(), "")
	require.ErrorIs(t, err, repo.listErr)
}

func TestAddInstallmentSchedulesDays(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	svc := fixedClockService(repo)

	view, err := svc.AddInstallment(context.Background(), 10, "2025-07", "7,5", "  praia  ")
	require.NoError(t, err)

	require.Equal(t, int64(10), view.PeriodID)
	require.Len(t, view.Installments, 1)
	inst := view.Installments[0]
	require.Equal(t, "2025-07", inst.Month)
	require.NotNil(t, inst.Days)
	require.True(t, decimal.NewFromFloat(7.5).Equal(*inst.Days))
	require.Equal(t, "praia", inst.Note)
	require.True(t, decimal.NewFromFloat(7.5).Equal(view.DaysUsed))
	require.Equal(t, StatusOK, view.Status)
	require.Equal(t, "OK", view.StatusLabel)
}

func TestAddInstallmentRejectsOverCapacity(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	used := decimal.NewFromInt(15)
	repo.addInstallment(10, &used)
	svc := fixedClockService(repo)

	_, err := svc.AddInstallment(context.Background(), 10, "2025-07", "10", "")
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	require.True(t, decimal.NewFromInt(20).Equal(capErr.Entitled))
	require.True(t, decimal.NewFromInt(15).Equal(capErr.Used))
	require.True(t, decimal.NewFromInt(5).Equal(capErr.Available))
	require.Equal(t, "Limite excedido. Disponível: 5d de 20d (15d já usados).", capErr.Error())

	// Nothing was written.
	require.Len(t, repo.installments[10], 1)
}

func TestAddInstallmentFillsCapacityExactly(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	used := decimal.NewFromInt(15)
	repo.addInstallment(10, &used)
	svc := fixedClockService(repo)

	view, err := svc.AddInstallment(context.Background(), 10, "2025-07", "5", "")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(20).Equal(view.DaysUsed))
}

func TestAddInstallmentDateOnlyBypassesCapacity(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	used := decimal.NewFromInt(20)
	repo.addInstallment(10, &used)
	svc := fixedClockService(repo)

	view, err := svc.AddInstallment(context.Background(), 10, "2025-07", "", "só a reserva do mês")
	require.NoError(t, err)
	require.Len(t, view.Installments, 2)
	require.True(t, decimal.NewFromInt(20).Equal(view.DaysUsed))
}

func TestAddInstallmentNoEntitlementSkipsCapacity(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.Zero)
	svc := fixedClockService(repo)

	view, err := svc.AddInstallment(context.Background(), 10, "2025-07", "10", "")
	require.NoError(t, err)
	require.Len(t, view.Installments, 1)
}

func TestAddInstallmentValidatesMonth(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	svc := fixedClockService(repo)
	ctx := context.Background()

	for _, month := range []string{"", "2025-7", "07/2025", "2025-13", "2025-00"} {
		_, err := svc.AddInstallment(ctx, 10, month, "", "")
		require.ErrorIs(t, err, ErrBadMonth, "month %q", month)
	}

	_, err := svc.AddInstallment(ctx, 10, "  2025-07  ", "", "")
	require.NoError(t, err)
}

func TestAddInstallmentValidatesDays(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	svc := fixedClockService(repo)
	ctx := context.Background()

	for _, days := range []string{"-1", "abc", "10,5,5"} {
		_, err := svc.AddInstallment(ctx, 10, "2025-07", days, "")
		require.ErrorIs(t, err, ErrBadDays, "days %q", days)
	}
}

func TestAddInstallmentUnknownPeriod(t *testing.T) {
	svc := fixedClockService(newFakeRepo())

	_, err := svc.AddInstallment(context.Background(), 404, "2025-07", "", "")
	require.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestRemoveInstallment(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	ten := decimal.NewFromInt(10)
	first := repo.addInstallment(10, &ten)
	second := repo.addInstallment(10, nil)
	svc := fixedClockService(repo)

	view, err := svc.RemoveInstallment(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), view.PeriodID)
	require.Len(t, view.Installments, 1)
	require.Equal(t, second.ID, view.Installments[0].ID)
	require.True(t, view.DaysUsed.IsZero())
}

func TestRemoveInstallmentUnknown(t *testing.T) {
	svc := fixedClockService(newFakeRepo())

	_, err := svc.RemoveInstallment(context.Background(), 404)
	require.ErrorIs(t, err, ErrInstallmentNotFound)
}
