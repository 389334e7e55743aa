package importer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/provisio-hr/provisio/internal/platform/db"
	"github.com/provisio-hr/provisio/internal/roster"
)

// TxRepository is the commit-scoped storage port. Every call made during
// one commit shares the same transaction, so either the whole batch lands
// or none of it does.
type TxRepository interface {
	FindEmployee(ctx context.Context, code string) (*roster.Employee, error)
	InsertEmployee(ctx context.Context, e *roster.Employee) error
	UpdateEmployee(ctx context.Context, e *roster.Employee) error
	FindPeriodID(ctx context.Context, employeeID int64, startsOn time.Time) (int64, bool, error)
	InsertPeriod(ctx context.Context, p *roster.AcquisitionPeriod) error
	UpdatePeriod(ctx context.Context, p *roster.AcquisitionPeriod) error
	DeactivateEmployeesNotIn(ctx context.Context, codes []string) (int, error)
	InsertImportRecord(ctx context.Context, rec *roster.ImportRecord) error
}

// Repository runs commit work inside a storage transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed commit repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) FindEmployee(ctx context.Context, code string) (*roster.Employee, error) {
	const query = `
		SELECT id, code, name, title_raw, title, org_unit_raw, org_unit, hired_on, active, created_at, updated_at
		FROM employees
		WHERE code = $1`

	var e roster.Employee
	err := r.tx.QueryRow(ctx, query, code).Scan(
		&e.ID, &e.Code, &e.Name, &e.TitleRaw, &e.Title,
		&e.OrgUnitRaw, &e.OrgUnit, &e.HiredOn, &e.Active,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *txRepository) InsertEmployee(ctx context.Context, e *roster.Employee) error {
	const query = `
		INSERT INTO employees (code, name, title_raw, title, org_unit_raw, org_unit, hired_on, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return r.tx.QueryRow(ctx, query,
		e.Code, e.Name, e.TitleRaw, e.Title, e.OrgUnitRaw, e.OrgUnit, e.HiredOn, e.Active,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateEmployee overwrites the identity columns and reactivates the
// employee. The hire date is kept as first imported.
func (r *txRepository) UpdateEmployee(ctx context.Context, e *roster.Employee) error {
	const query = `
		UPDATE employees
		SET name = $2, title_raw = $3, title = $4, org_unit_raw = $5, org_unit = $6, active = TRUE, updated_at = now()
		WHERE id = $1`

	_, err := r.tx.Exec(ctx, query, e.ID, e.Name, e.TitleRaw, e.Title, e.OrgUnitRaw, e.OrgUnit)
	return err
}

func (r *txRepository) FindPeriodID(ctx context.Context, employeeID int64, startsOn time.Time) (int64, bool, error) {
	const query = `SELECT id FROM acquisition_periods WHERE employee_id = $1 AND starts_on = $2`

	var id int64
	err := r.tx.QueryRow(ctx, query, employeeID, startsOn).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *txRepository) InsertPeriod(ctx context.Context, p *roster.AcquisitionPeriod) error {
	const query = `
		INSERT INTO acquisition_periods
			(employee_id, starts_on, ends_on, ideal_deadline, max_deadline,
			 absence_days, entitled_days, taken_days, remaining_days, scheduled_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return r.tx.QueryRow(ctx, query,
		p.EmployeeID, p.StartsOn, p.EndsOn, p.IdealDeadline, p.MaxDeadline,
		p.AbsenceDays.StringFixed(1), p.EntitledDays.StringFixed(1),
		p.TakenDays.StringFixed(1), p.RemainingDays.StringFixed(1),
		p.ScheduledDays.StringFixed(1),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdatePeriod overwrites the ERP-sourced fields of the period keyed by
// (employee, starts_on). Installments and notes live in their own table
// and are never touched from the import path.
func (r *txRepository) UpdatePeriod(ctx context.Context, p *roster.AcquisitionPeriod) error {
	const query = `
		UPDATE acquisition_periods
		SET ends_on = $3, ideal_deadline = $4, max_deadline = $5,
		    absence_days = $6, entitled_days = $7, taken_days = $8,
		    remaining_days = $9, scheduled_days = $10, updated_at = now()
		WHERE employee_id = $1 AND starts_on = $2`

	_, err := r.tx.Exec(ctx, query,
		p.EmployeeID, p.StartsOn, p.EndsOn, p.IdealDeadline, p.MaxDeadline,
		p.AbsenceDays.StringFixed(1), p.EntitledDays.StringFixed(1),
		p.TakenDays.StringFixed(1), p.RemainingDays.StringFixed(1),
		p.ScheduledDays.StringFixed(1),
	)
	return err
}

func (r *txRepository) DeactivateEmployeesNotIn(ctx context.Context, codes []string) (int, error) {
	const query = `
		UPDATE employees
		SET active = FALSE, updated_at = now()
		WHERE active = TRUE AND NOT (code = ANY($1))`

	tag, err := r.tx.Exec(ctx, query, codes)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *txRepository) InsertImportRecord(ctx context.Context, rec *roster.ImportRecord) error {
	const query = `
		INSERT INTO import_records (total_rows, new_count, deactivated_count, updated_count, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, imported_at`

	return r.tx.QueryRow(ctx, query,
		rec.TotalRows, rec.New, rec.Deactivated, rec.Updated, rec.Note,
	).Scan(&rec.ID, &rec.ImportedAt)
}
