package maintenance_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	ledgerrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/ledger"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/maintenance"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *ledgerrepo.MemoryStore {
	t.Helper()
	store := ledgerrepo.NewMemory()
	store.SeedPackage(model.Package{
		ID:                        1,
		BaseDailyPrice:            1000,
		MaxConcurrentReservations: 5,
		Active:                    true,
	})
	return store
}

// book creates a booking over [pickup, ret] and returns its id.
func book(t *testing.T, store *ledgerrepo.MemoryStore, pickup, ret string) int64 {
	t.Helper()
	b := &model.Booking{
		Code:       "BK-TEST",
		UserID:     7,
		PackageID:  1,
		PickupDate: date(pickup),
		ReturnDate: date(ret),
		PickupTime: "09:00",
		ReturnTime: "18:00",
	}
	require.NoError(t, store.CreateBooking(context.Background(), b))
	return b.ID
}

func TestCleanup_DeletesOnlyExpiredTerminalRows(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// Ancient cancelled booking: its four rows are past retention.
	old := book(t, store, "2020-01-01", "2020-01-04")
	_, err := store.CancelBooking(ctx, old)
	require.NoError(t, err)

	// Recent cancelled booking: terminal but inside the retention window.
	recent := book(t, store, time.Now().UTC().Format("2006-01-02"), time.Now().UTC().Format("2006-01-02"))
	_, err = store.CancelBooking(ctx, recent)
	require.NoError(t, err)

	// Active booking: never eligible regardless of age.
	book(t, store, "2020-06-01", "2020-06-02")

	svc := maintenance.New(store, quietLog(), 90, 3)
	rep, err := svc.Cleanup(ctx, 0, false)
	require.NoError(t, err)
	require.Equal(t, 90, rep.RetentionDays)
	require.Equal(t, int64(4), rep.RowsExpired)
	require.Equal(t, int64(4), rep.RowsDeleted)
	require.Equal(t, 2, rep.Batches, "4 rows at batch size 3 takes two passes")

	// The active booking's rows still consume capacity.
	n, err := store.CountActive(ctx, 1, date("2020-06-01"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Re-running finds nothing: cleanup is idempotent.
	rep, err = svc.Cleanup(ctx, 0, false)
	require.NoError(t, err)
	require.Zero(t, rep.RowsExpired)
	require.Zero(t, rep.RowsDeleted)
	require.Zero(t, rep.Batches)
}

func TestCleanup_DryRunTouchesNothing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id := book(t, store, "2020-01-01", "2020-01-02")
	_, err := store.CancelBooking(ctx, id)
	require.NoError(t, err)

	svc := maintenance.New(store, quietLog(), 90, 500)
	rep, err := svc.Cleanup(ctx, 0, true)
	require.NoError(t, err)
	require.True(t, rep.DryRun)
	require.Equal(t, int64(2), rep.RowsExpired)
	require.Zero(t, rep.RowsDeleted)

	n, err := store.CountExpiredRows(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestCleanup_ReportsOrphansWithoutRepairing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// Rows pointing at a booking id that was never created.
	missing := int64(999)
	_, err := store.ReplaceAllRows(ctx, []model.ExportRow{
		{PackageID: 1, BookingID: &missing, Date: "2026-03-02", Status: model.LedgerReserved},
		{PackageID: 1, BookingID: &missing, Date: "2026-03-03", Status: model.LedgerReserved},
	})
	require.NoError(t, err)

	svc := maintenance.New(store, quietLog(), 90, 500)
	rep, err := svc.Cleanup(ctx, 0, false)
	require.NoError(t, err)
	require.Equal(t, 2, rep.OrphanCount)
	require.Len(t, rep.Orphans, 2)
	require.Equal(t, missing, rep.Orphans[0].BookingID)

	// Orphans are reported, never deleted.
	orphans, err := store.FindOrphanRows(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 2)
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id := book(t, store, "2026-03-02", "2026-03-04")
	require.NoError(t, store.ConfirmBooking(ctx, id))

	svc := maintenance.New(store, quietLog(), 90, 500)
	export, err := svc.Backup(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, export.RowCount)
	require.Len(t, export.Rows, 3)
	require.Equal(t, string(model.BookingConfirmed), export.Rows[0].BookingStatus)

	other := newStore(t)
	otherSvc := maintenance.New(other, quietLog(), 90, 500)
	n, err := otherSvc.Restore(ctx, export)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	rows, err := other.RowsInWindow(ctx, 1, date("2026-03-02"), date("2026-03-04"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		require.Equal(t, model.LedgerReserved, r.Status)
	}
}

func TestRestore_RejectsBadExports(t *testing.T) {
	store := newStore(t)
	svc := maintenance.New(store, quietLog(), 90, 500)
	ctx := context.Background()

	_, err := svc.Restore(ctx, nil)
	require.Error(t, err)

	_, err = svc.Restore(ctx, &model.LedgerExport{RowCount: 2, Rows: nil})
	require.Error(t, err)

	// A row with an unknown status fails before anything is replaced.
	book(t, store, "2026-03-02", "2026-03-02")
	_, err = svc.Restore(ctx, &model.LedgerExport{
		RowCount: 1,
		Rows:     []model.ExportRow{{PackageID: 1, Date: "2026-03-02", Status: "exploded"}},
	})
	require.Error(t, err)

	rows, err := store.RowsInWindow(ctx, 1, date("2026-03-02"), date("2026-03-02"))
	require.NoError(t, err)
	require.Len(t, rows, 1, "failed restore must not clear the ledger")
}
