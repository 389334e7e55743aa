package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository is the storage surface for the roster read model and for
// installment mutations. Absent records come back as nil (or found=false)
// rather than as errors.
type Repository interface {
	ActiveEmployees(ctx context.Context, search string) ([]Employee, error)
	ActiveCodes(ctx context.Context) ([]string, error)
	EmployeesByCodes(ctx context.Context, codes []string) ([]Employee, error)
	PeriodByID(ctx context.Context, id int64) (*AcquisitionPeriod, error)
	InstallmentsByPeriod(ctx context.Context, periodID int64) ([]Installment, error)
	InsertInstallment(ctx context.Context, inst *Installment) error
	DeleteInstallment(ctx context.Context, id int64) (periodID int64, found bool, err error)
	LastImport(ctx context.Context) (*ImportRecord, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed roster repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const employeeColumns = `id, code, name, title_raw, title, org_unit_raw, org_unit, hired_on, active, created_at, updated_at`

// Periods and installments are read with their day counters cast to text;
// NUMERIC lands as a string and is re-parsed into a decimal on scan.
const periodColumns = `id, employee_id, starts_on, ends_on, ideal_deadline, max_deadline,
	absence_days::text, entitled_days::text, taken_days::text, remaining_days::text, scheduled_days::text,
	created_at, updated_at`

// ActiveEmployees lists the active roster ordered by name, with nested
// periods and installments, optionally filtered by a case-insensitive
// substring match on name or title.
func (r *repository) ActiveEmployees(ctx context.Context, search string) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE active = TRUE`
	args := []any{}
	if search != "" {
		query += ` AND (name ILIKE $1 OR title ILIKE $1)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("roster: list employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	ids := []int64{}
	for rows.Next() {
		var e Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, fmt.Errorf("roster: scan employee: %w", err)
		}
		employees = append(employees, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster: list employees: %w", err)
	}
	if len(employees) == 0 {
		return employees, nil
	}

	periods, err := r.periodsByEmployees(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range employees {
		employees[i].Periods = periods[employees[i].ID]
	}
	return employees, nil
}

func (r *repository) periodsByEmployees(ctx context.Context, employeeIDs []int64) (map[int64][]AcquisitionPeriod, error) {
	const query = `SELECT ` + periodColumns + `
		FROM acquisition_periods
		WHERE employee_id = ANY($1)
		ORDER BY employee_id, starts_on`

	rows, err := r.pool.Query(ctx, query, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("roster: list periods: %w", err)
	}
	defer rows.Close()

	byEmployee := make(map[int64][]AcquisitionPeriod)
	periodIDs := []int64{}
	for rows.Next() {
		var p AcquisitionPeriod
		if err := scanPeriod(rows, &p); err != nil {
			return nil, fmt.Errorf("roster: scan period: %w", err)
		}
		byEmployee[p.EmployeeID] = append(byEmployee[p.EmployeeID], p)
		periodIDs = append(periodIDs, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster: list periods: %w", err)
	}
	if len(periodIDs) == 0 {
		return byEmployee, nil
	}

	installments, err := r.installmentsByPeriods(ctx, periodIDs)
	if err != nil {
		return nil, err
	}
	for employeeID, periods := range byEmployee {
		for i := range periods {
			periods[i].Installments = installments[periods[i].ID]
		}
		byEmployee[employeeID] = periods
	}
	return byEmployee, nil
}

func (r *repository) installmentsByPeriods(ctx context.Context, periodIDs []int64) (map[int64][]Installment, error) {
	const query = `SELECT id, period_id, month, days::text, note, created_at
		FROM vacation_installments
		WHERE period_id = ANY($1)
		ORDER BY period_id, month, id`

	rows, err := r.pool.Query(ctx, query, periodIDs)
	if err != nil {
		return nil, fmt.Errorf("roster: list installments: %w", err)
	}
	defer rows.Close()

	byPeriod := make(map[int64][]Installment)
	for rows.Next() {
		var inst Installment
		if err := scanInstallment(rows, &inst); err != nil {
			return nil, fmt.Errorf("roster: scan installment: %w", err)
		}
		byPeriod[inst.PeriodID] = append(byPeriod[inst.PeriodID], inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster: list installments: %w", err)
	}
	return byPeriod, nil
}

func (r *repository) ActiveCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM employees WHERE active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("roster: active codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("roster: scan code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster: active codes: %w", err)
	}
	return codes, nil
}

func (r *repository) EmployeesByCodes(ctx context.Context, codes []string) ([]Employee, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE code = ANY($1) ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("roster: employees by code: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, fmt.Errorf("roster: scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster: employees by code: %w", err)
	}
	return employees, nil
}

func (r *repository) PeriodByID(ctx context.Context, id int64) (*AcquisitionPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM acquisition_periods WHERE id = $1`

	var p AcquisitionPeriod
	err := scanPeriod(r.pool.QueryRow(ctx, query, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster: period by id: %w", err)
	}
	return &p, nil
}

func (r *repository) InstallmentsByPeriod(ctx context.Context, periodID int64) ([]Installment, error) {
	const query = `SELECT id, period_id, month, days::text, note, created_at
		FROM vacation_installments
		WHERE period_id = $1
		ORDER BY month, id`

	rows, err := r.pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("roster: installments: %w", err)
	}
	defer rows.Close()

	var installments []Installment
	for rows.Next() {
		var inst Installment
		if err := scanInstallment(rows, &inst); err != nil {
			return nil, fmt.Errorf("roster: scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roster: installments: %w", err)
	}
	return installments, nil
}

func (r *repository) InsertInstallment(ctx context.Context, inst *Installment) error {
	const query = `INSERT INTO vacation_installments (period_id, month, days, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	var days *string
	if inst.Days != nil {
		s := inst.Days.StringFixed(1)
		days = &s
	}
	err := r.pool.QueryRow(ctx, query, inst.PeriodID, inst.Month, days, inst.Note).
		Scan(&inst.ID, &inst.CreatedAt)
	if err != nil {
		return fmt.Errorf("roster: insert installment: %w", err)
	}
	return nil
}

func (r *repository) DeleteInstallment(ctx context.Context, id int64) (int64, bool, error) {
	const query = `DELETE FROM vacation_installments WHERE id = $1 RETURNING period_id`

	var periodID int64
	err := r.pool.QueryRow(ctx, query, id).Scan(&periodID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("roster: delete installment: %w", err)
	}
	return periodID, true, nil
}

func (r *repository) LastImport(ctx context.Context) (*ImportRecord, error) {
	const query = `SELECT id, imported_at, total_rows, new_count, deactivated_count, updated_count, note
		FROM import_records
		ORDER BY imported_at DESC, id DESC
		LIMIT 1`

	var rec ImportRecord
	err := r.pool.QueryRow(ctx, query).Scan(
		&rec.ID, &rec.ImportedAt, &rec.TotalRows, &rec.New, &rec.Deactivated, &rec.Updated, &rec.Note,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster: last import: %w", err)
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner, e *Employee) error {
	return row.Scan(
		&e.ID, &e.Code, &e.Name, &e.TitleRaw, &e.Title,
		&e.OrgUnitRaw, &e.OrgUnit, &e.HiredOn, &e.Active,
		&e.CreatedAt, &e.UpdatedAt,
	)
}

func scanPeriod(row rowScanner, p *AcquisitionPeriod) error {
	var absence, entitled, taken, remaining, scheduled string
	if err := row.Scan(
		&p.ID, &p.EmployeeID, &p.StartsOn, &p.EndsOn, &p.IdealDeadline, &p.MaxDeadline,
		&absence, &entitled, &taken, &remaining, &scheduled,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return err
	}
	var err error
	if p.AbsenceDays, err = decimal.NewFromString(absence); err != nil {
		return err
	}
	if p.EntitledDays, err = decimal.NewFromString(entitled); err != nil {
		return err
	}
	if p.TakenDays, err = decimal.NewFromString(taken); err != nil {
		return err
	}
	if p.RemainingDays, err = decimal.NewFromString(remaining); err != nil {
		return err
	}
	if p.ScheduledDays, err = decimal.NewFromString(scheduled); err != nil {
		return err
	}
	return nil
}

func scanInstallment(row rowScanner, inst *Installment) error {
	var days *string
	if err := row.Scan(&inst.ID, &inst.PeriodID, &inst.Month, &days, &inst.Note, &inst.CreatedAt); err != nil {
		return err
	}
	if days != nil {
		d, err := decimal.NewFromString(*days)
		if err != nil {
			return err
		}
		inst.Days = &d
	}
	return nil
}
