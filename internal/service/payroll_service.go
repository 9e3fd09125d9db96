package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/workpulse/shiftpay-api/internal/models"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
	"github.com/workpulse/shiftpay-api/pkg/export"
)

type payrollEntryRepository interface {
	Create(ctx context.Context, entry *models.PayrollEntry) error
	GetByID(ctx context.Context, id int64) (*models.PayrollEntry, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]models.PayrollEntry, error)
	SetTotals(ctx context.Context, id int64, total decimal.Decimal, appliedCount int) error
}

type appliedAdjustmentReader interface {
	ListByPayrollEntry(ctx context.Context, payrollEntryID int64) ([]models.Adjustment, error)
	SumApplied(ctx context.Context, payrollEntryID int64) (decimal.Decimal, error)
}

type adjustmentApplier interface {
	ClaimUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error)
	Apply(ctx context.Context, adjustmentIDs []int64, payrollEntryID int64, appliedBy int64) (int, error)
}

type statementExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// PayrollService runs payroll computations over the adjustment ledger and
// exports statements. It is the downstream consumer of the ledger's claim and
// apply hand-off; nothing else mutates payroll totals.
type PayrollService struct {
	entries     payrollEntryRepository
	adjustments appliedAdjustmentReader
	applier     adjustmentApplier
	csv         *export.CSVExporter
	pdf         statementExporter
	formats     map[string]struct{}
	logger      *zap.Logger
}

// NewPayrollService constructs the service. An empty formats list enables
// every supported statement format.
func NewPayrollService(entries payrollEntryRepository, adjustments appliedAdjustmentReader, applier adjustmentApplier, formats []string, logger *zap.Logger) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	var enabled map[string]struct{}
	if len(formats) > 0 {
		enabled = make(map[string]struct{}, len(formats))
		for _, f := range formats {
			enabled[f] = struct{}{}
		}
	}
	return &PayrollService{
		entries:     entries,
		adjustments: adjustments,
		applier:     applier,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		formats:     enabled,
		logger:      logger,
	}
}

// Run executes one payroll computation: create the entry, claim the employee's
// unapplied adjustments for the period, apply them, and store the signed total.
// A concurrent run over an overlapping period can never double-claim an entry;
// the conditional apply update is the serialization point, and the totals are
// recomputed from what was actually claimed.
func (s *PayrollService) Run(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time, createdBy int64) (*models.PayrollRunResult, error) {
	if employeeID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee_id is required")
	}
	if !periodEnd.After(periodStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period_end must be after period_start")
	}

	entry := &models.PayrollEntry{
		EmployeeID:  employeeID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedBy:   createdBy,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payroll entry")
	}

	claimed, err := s.applier.ClaimUnapplied(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(claimed))
	for i, adj := range claimed {
		ids[i] = adj.ID
	}

	applied, err := s.applier.Apply(ctx, ids, entry.ID, createdBy)
	if err != nil {
		return nil, err
	}

	// The claim list is advisory; the apply count and the per-entry sum are
	// authoritative, since a concurrent run may have taken some entries first.
	total, err := s.adjustments.SumApplied(ctx, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total applied adjustments")
	}
	if err := s.entries.SetTotals(ctx, entry.ID, total, applied); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payroll totals")
	}
	entry.AdjustmentTotal = total
	entry.AppliedCount = applied

	appliedAdjustments, err := s.adjustments.ListByPayrollEntry(ctx, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applied adjustments")
	}

	s.logger.Info("payroll run completed",
		zap.Int64("payroll_entry_id", entry.ID),
		zap.Int64("employee_id", employeeID),
		zap.Int("applied", applied),
		zap.String("total", total.String()))

	return &models.PayrollRunResult{Entry: *entry, Adjustments: appliedAdjustments}, nil
}

// Get fetches one payroll entry.
func (s *PayrollService) Get(ctx context.Context, id int64) (*models.PayrollEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payroll entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch payroll entry")
	}
	return entry, nil
}

// ListByEmployee returns an employee's payroll entries.
func (s *PayrollService) ListByEmployee(ctx context.Context, employeeID int64) ([]models.PayrollEntry, error) {
	entries, err := s.entries.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payroll entries")
	}
	return entries, nil
}

// Statement renders the applied adjustments of a payroll entry as CSV or PDF.
func (s *PayrollService) Statement(ctx context.Context, payrollEntryID int64, format string) ([]byte, string, error) {
	if format == "" {
		format = "csv"
	}
	if s.formats != nil {
		if _, ok := s.formats[format]; !ok {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("statement format %q is not enabled", format))
		}
	}
	entry, err := s.Get(ctx, payrollEntryID)
	if err != nil {
		return nil, "", err
	}
	adjustments, err := s.adjustments.ListByPayrollEntry(ctx, payrollEntryID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applied adjustments")
	}

	headers := []string{"ID", "Type", "Amount", "Description", "Created"}
	rows := make([]map[string]string, 0, len(adjustments))
	for _, adj := range adjustments {
		rows = append(rows, map[string]string{
			"ID":          fmt.Sprintf("%d", adj.ID),
			"Type":        string(adj.Type),
			"Amount":      adj.Amount.String(),
			"Description": adj.Description,
			"Created":     adj.CreatedAt.Format("2006-01-02"),
		})
	}
	dataset := export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: []map[string]string{{
			"Description": "Total",
			"Amount":      entry.AdjustmentTotal.String(),
		}},
	}

	title := fmt.Sprintf("Payroll adjustments %d (%s - %s)",
		entry.EmployeeID,
		entry.PeriodStart.Format("2006-01-02"),
		entry.PeriodEnd.Format("2006-01-02"))

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported statement format %q", format))
	}
}
