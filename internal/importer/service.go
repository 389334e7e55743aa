package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/provisio-hr/provisio/internal/observability"
	"github.com/provisio-hr/provisio/internal/platform/db"
	"github.com/provisio-hr/provisio/internal/platform/httpx"
	"github.com/provisio-hr/provisio/internal/roster"
)

// Sentinel errors surfaced at the upload boundary.
var (
	ErrEmptyUpload = errors.New("importer: empty upload")
	ErrNoValidRows = errors.New("importer: no valid rows")
)

// RosterReader is the read access the import pipeline needs on the
// current roster.
type RosterReader interface {
	ActiveCodes(ctx context.Context) ([]string, error)
	EmployeesByCodes(ctx context.Context, codes []string) ([]roster.Employee, error)
}

// Options are the operator's confirm-time decisions.
type Options struct {
	AdmitNew          bool `json:"admit_new"`
	DeactivateMissing bool `json:"deactivate_missing"`
}

// Summary mirrors the audit counts of one committed import. Updated
// counts employee identity refreshes and period overwrites together, the
// way the audit history has always reported it.
type Summary struct {
	TotalRows   int `json:"total_rows"`
	New         int `json:"new"`
	Deactivated int `json:"deactivated"`
	Updated     int `json:"updated"`
}

// UploadResult is the review payload handed back after parsing, before
// anything is written.
type UploadResult struct {
	Token            string            `json:"token"`
	TotalRows        int               `json:"total_rows"`
	SkippedRows      int               `json:"skipped_rows"`
	NewEmployees     []NewEmployee     `json:"new_employees"`
	RemovedEmployees []roster.Employee `json:"removed_employees"`
	ExistingCount    int               `json:"existing_count"`
}

// Service drives the two-step import: Upload parses and parks a batch for
// review, Confirm merges it into the roster, Discard throws it away.
type Service struct {
	repo    Repository
	roster  RosterReader
	store   BatchStore
	logger  *slog.Logger
	metrics *observability.ImportMetrics
}

// NewService constructs the import service.
func NewService(repo Repository, rosterReader RosterReader, store BatchStore, logger *slog.Logger, metrics *observability.ImportMetrics) *Service {
	return &Service{repo: repo, roster: rosterReader, store: store, logger: logger, metrics: metrics}
}

// Upload parses the export content, reconciles it against the active
// roster and parks the batch for confirmation. Nothing is written.
func (s *Service) Upload(ctx context.Context, content, filename string) (UploadResult, error) {
	if strings.TrimSpace(content) == "" {
		return UploadResult{}, ErrEmptyUpload
	}

	rows, stats, err := Parse(content)
	if err != nil {
		return UploadResult{}, err
	}
	if len(rows) == 0 {
		return UploadResult{}, ErrNoValidRows
	}
	s.observeDataQuality(stats)

	activeCodes, err := s.roster.ActiveCodes(ctx)
	if err != nil {
		return UploadResult{}, fmt.Errorf("importer: active codes: %w", err)
	}
	analysis := Analyze(rows, activeCodes)

	removed, err := s.roster.EmployeesByCodes(ctx, analysis.Removed)
	if err != nil {
		return UploadResult{}, fmt.Errorf("importer: removed employees: %w", err)
	}

	batch := Batch{
		Token:      uuid.NewString(),
		Filename:   filename,
		Rows:       rows,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.store.Put(ctx, batch); err != nil {
		return UploadResult{}, err
	}
	s.metrics.ObserveUpload("uploaded")

	return UploadResult{
		Token:            batch.Token,
		TotalRows:        len(rows),
		SkippedRows:      stats.Skipped,
		NewEmployees:     analysis.NewEmployees,
		RemovedEmployees: removed,
		ExistingCount:    len(analysis.Existing),
	}, nil
}

// Confirm merges a parked batch into the roster under the operator's
// flags. The batch is only released after the commit lands, so a failed
// commit can be retried with the same token.
func (s *Service) Confirm(ctx context.Context, token string, opts Options) (Summary, error) {
	batch, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			s.metrics.ObserveUpload("expired")
		}
		return Summary{}, err
	}

	summary, err := s.commit(ctx, batch.Rows, opts)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Summary{}, fmt.Errorf("%w: concurrent import detected", httpx.ErrDuplicate)
		}
		return Summary{}, err
	}

	if err := s.store.Delete(ctx, token); err != nil {
		// The commit already landed; the leftover batch expires on its own.
		s.logger.Warn("release batch after commit", slog.String("token", token), slog.Any("error", err))
	}
	s.metrics.ObserveUpload("committed")

	s.logger.Info("import committed",
		slog.String("token", token),
		slog.Int("total_rows", summary.TotalRows),
		slog.Int("new", summary.New),
		slog.Int("deactivated", summary.Deactivated),
		slog.Int("updated", summary.Updated),
	)
	return summary, nil
}

// Discard drops a parked batch without committing it.
func (s *Service) Discard(ctx context.Context, token string) error {
	if _, err := s.store.Get(ctx, token); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	s.metrics.ObserveUpload("discarded")
	return nil
}

// commit applies the batch in one transaction, row for row in batch
// order. Employees are upserted by code, periods by (employee, start);
// period updates overwrite only ERP-sourced fields so installments and
// notes survive any number of re-imports. The audit record is written
// inside the same transaction.
func (s *Service) commit(ctx context.Context, rows []Row, opts Options) (Summary, error) {
	summary := Summary{TotalRows: len(rows)}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Codes created in this batch but not admitted; their remaining
		// rows are skipped so they do not get reactivated or grow periods.
		notAdmitted := make(map[string]bool)

		for _, row := range rows {
			if notAdmitted[row.Code] {
				continue
			}

			employee, err := tx.FindEmployee(ctx, row.Code)
			if err != nil {
				return fmt.Errorf("find employee %s: %w", row.Code, err)
			}

			if employee == nil {
				created := roster.Employee{
					Code:       row.Code,
					Name:       row.Name,
					TitleRaw:   row.TitleRaw,
					Title:      row.Title,
					OrgUnitRaw: row.OrgUnitRaw,
					OrgUnit:    row.OrgUnit,
					HiredOn:    row.HiredOn,
					Active:     opts.AdmitNew,
				}
				if err := tx.InsertEmployee(ctx, &created); err != nil {
					return fmt.Errorf("insert employee %s: %w", row.Code, err)
				}
				if !opts.AdmitNew {
					notAdmitted[row.Code] = true
					continue
				}
				summary.New++
				employee = &created
			} else {
				employee.Name = row.Name
				employee.TitleRaw = row.TitleRaw
				employee.Title = row.Title
				employee.OrgUnitRaw = row.OrgUnitRaw
				employee.OrgUnit = row.OrgUnit
				employee.Active = true
				if err := tx.UpdateEmployee(ctx, employee); err != nil {
					return fmt.Errorf("update employee %s: %w", row.Code, err)
				}
				summary.Updated++
			}

			period := roster.AcquisitionPeriod{
				EmployeeID:    employee.ID,
				StartsOn:      row.PeriodStart,
				EndsOn:        row.PeriodEnd,
				IdealDeadline: row.IdealDeadline,
				MaxDeadline:   row.MaxDeadline,
				AbsenceDays:   row.AbsenceDays,
				EntitledDays:  row.EntitledDays,
				TakenDays:     row.TakenDays,
				RemainingDays: row.RemainingDays,
				ScheduledDays: row.ScheduledDays,
			}
			periodID, found, err := tx.FindPeriodID(ctx, employee.ID, row.PeriodStart)
			if err != nil {
				return fmt.Errorf("find period %s/%s: %w", row.Code, row.PeriodStart.Format("2006-01-02"), err)
			}
			if found {
				period.ID = periodID
				if err := tx.UpdatePeriod(ctx, &period); err != nil {
					return fmt.Errorf("update period %s/%s: %w", row.Code, row.PeriodStart.Format("2006-01-02"), err)
				}
				summary.Updated++
			} else {
				if err := tx.InsertPeriod(ctx, &period); err != nil {
					return fmt.Errorf("insert period %s/%s: %w", row.Code, row.PeriodStart.Format("2006-01-02"), err)
				}
			}
		}

		if opts.DeactivateMissing {
			codes := batchCodes(rows)
			n, err := tx.DeactivateEmployeesNotIn(ctx, codes)
			if err != nil {
				return fmt.Errorf("deactivate missing: %w", err)
			}
			summary.Deactivated = n
		}

		record := roster.ImportRecord{
			TotalRows:   summary.TotalRows,
			New:         summary.New,
			Deactivated: summary.Deactivated,
			Updated:     summary.Updated,
		}
		if err := tx.InsertImportRecord(ctx, &record); err != nil {
			return fmt.Errorf("insert import record: %w", err)
		}
		return nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("importer: commit: %w", err)
	}
	return summary, nil
}

func batchCodes(rows []Row) []string {
	seen := make(map[string]bool, len(rows))
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		if seen[row.Code] {
			continue
		}
		seen[row.Code] = true
		codes = append(codes, row.Code)
	}
	return codes
}

func (s *Service) observeDataQuality(stats Stats) {
	s.metrics.ObserveSkippedRows(stats.Skipped)
	if stats.Skipped > 0 {
		s.logger.Warn("rows skipped during parse", slog.Int("count", stats.Skipped))
	}
	for code, n := range stats.UnmappedOrgUnits {
		s.metrics.ObserveUnmappedOrgUnit(code, n)
		s.logger.Warn("unmapped org unit code", slog.String("code", code), slog.Int("rows", n))
	}
}
