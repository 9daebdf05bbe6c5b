// Package maintenance holds the operator-facing ledger jobs: retention
// cleanup, orphan detection, and backup/restore of the ledger table.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	ledgerrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/ledger"
)

// orphanReportLimit caps one report; more than this means something is badly
// wrong and the count alone is the signal.
const orphanReportLimit = 1000

// Report summarizes one cleanup run.
type Report struct {
	DryRun        bool              `json:"dry_run"`
	RetentionDays int               `json:"retention_days"`
	Cutoff        string            `json:"cutoff"` // YYYY-MM-DD
	RowsExpired   int64             `json:"rows_expired"`
	RowsDeleted   int64             `json:"rows_deleted"`
	Batches       int               `json:"batches"`
	Orphans       []model.OrphanRow `json:"orphans,omitempty"`
	OrphanCount   int               `json:"orphan_count"`
}

type Service interface {
	// Cleanup deletes ledger rows of terminal bookings older than the
	// retention window, in batches. dryRun reports what would be deleted
	// without touching anything. Safe to run repeatedly.
	Cleanup(ctx context.Context, retentionDays int, dryRun bool) (*Report, error)

	// Backup exports every ledger row with its booking context.
	Backup(ctx context.Context) (*model.LedgerExport, error)

	// Restore replaces the whole ledger table with the export's rows. All
	// rows are validated before anything is deleted.
	Restore(ctx context.Context, export *model.LedgerExport) (int64, error)
}

type service struct {
	store         ledgerrepo.Store
	log           *slog.Logger
	retentionDays int
	batchSize     int
	now           func() time.Time
}

func New(store ledgerrepo.Store, log *slog.Logger, retentionDays, batchSize int) Service {
	return &service{
		store:         store,
		log:           log,
		retentionDays: retentionDays,
		batchSize:     batchSize,
		now:           time.Now,
	}
}

func (s *service) Cleanup(ctx context.Context, retentionDays int, dryRun bool) (*Report, error) {
	if retentionDays <= 0 {
		retentionDays = s.retentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)

	rep := &Report{
		DryRun:        dryRun,
		RetentionDays: retentionDays,
		Cutoff:        cutoff.Format(model.DateFormat),
	}

	expired, err := s.store.CountExpiredRows(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count expired rows: %w", err)
	}
	rep.RowsExpired = expired

	if !dryRun {
		for {
			n, err := s.store.DeleteExpiredRows(ctx, cutoff, s.batchSize)
			if err != nil {
				return nil, fmt.Errorf("delete expired rows: %w", err)
			}
			if n == 0 {
				break
			}
			rep.RowsDeleted += n
			rep.Batches++
		}
	}

	orphans, err := s.store.FindOrphanRows(ctx, orphanReportLimit)
	if err != nil {
		return nil, fmt.Errorf("find orphan rows: %w", err)
	}
	rep.Orphans = orphans
	rep.OrphanCount = len(orphans)
	if rep.OrphanCount > 0 {
		s.log.Warn("ledger rows reference missing bookings",
			"orphan_count", rep.OrphanCount)
	}

	s.log.Info("ledger cleanup finished",
		"dry_run", dryRun,
		"cutoff", rep.Cutoff,
		"rows_expired", rep.RowsExpired,
		"rows_deleted", rep.RowsDeleted,
		"batches", rep.Batches)
	return rep, nil
}

func (s *service) Backup(ctx context.Context) (*model.LedgerExport, error) {
	rows, err := s.store.ExportRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("export ledger rows: %w", err)
	}
	return &model.LedgerExport{
		CreatedAt:     s.now().UTC(),
		RetentionDays: s.retentionDays,
		RowCount:      len(rows),
		Rows:          rows,
	}, nil
}

func (s *service) Restore(ctx context.Context, export *model.LedgerExport) (int64, error) {
	if export == nil {
		return 0, fmt.Errorf("restore: nil export")
	}
	if export.RowCount != len(export.Rows) {
		return 0, fmt.Errorf("restore: row_count %d does not match %d rows", export.RowCount, len(export.Rows))
	}
	n, err := s.store.ReplaceAllRows(ctx, export.Rows)
	if err != nil {
		return 0, fmt.Errorf("restore ledger rows: %w", err)
	}
	s.log.Info("ledger restored", "rows", n, "export_created_at", export.CreatedAt)
	return n, nil
}
