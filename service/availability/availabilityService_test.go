package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/availability"
)

type catalogMock struct {
	pkg model.Package
}

func (m *catalogMock) GetPackage(_ context.Context, id int64) (*model.Package, error) {
	if id != m.pkg.ID {
		return nil, catalogrepo.ErrNotFound
	}
	cp := m.pkg
	return &cp, nil
}
func (m *catalogMock) ListActive(_ context.Context) ([]model.Package, error) { return nil, nil }

type ledgerMock struct {
	rows  []model.LedgerRow
	calls int
}

func (m *ledgerMock) RowsInWindow(_ context.Context, packageID int64, start, end time.Time) ([]model.LedgerRow, error) {
	m.calls++
	var out []model.LedgerRow
	for _, r := range m.rows {
		if r.PackageID == packageID && !r.Date.Before(start) && !r.Date.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(id int64, d string, status model.LedgerStatus) model.LedgerRow {
	bid := id
	return model.LedgerRow{ID: id, PackageID: 1, BookingID: &bid, Date: date(d), Status: status}
}

func newService(rows ...model.LedgerRow) (availability.Service, *ledgerMock) {
	cat := &catalogMock{pkg: model.Package{ID: 1, MaxConcurrentReservations: 2, Active: true}}
	led := &ledgerMock{rows: rows}
	return availability.New(cat, led, 2*time.Minute), led
}

func TestWindow_AggregatesConsumingRowsOnly(t *testing.T) {
	svc, _ := newService(
		row(1, "2026-03-02", model.LedgerReserved),
		row(2, "2026-03-02", model.LedgerPickedUp),
		row(3, "2026-03-03", model.LedgerMaintenance),
		row(4, "2026-03-03", model.LedgerCancelled),
		row(5, "2026-03-04", model.LedgerReturned),
	)

	w, err := svc.Window(context.Background(), 1, date("2026-03-02"), date("2026-03-05"), false)
	require.NoError(t, err)
	require.Equal(t, 2, w.Capacity)
	require.Equal(t, 2, w.Usage["2026-03-02"])
	require.Equal(t, 1, w.Usage["2026-03-03"])
	require.Zero(t, w.Usage["2026-03-04"]) // released rows do not count
	require.Zero(t, w.Usage["2026-03-05"]) // no rows at all
	require.Len(t, w.Reservations, 5)      // raw rows still reported
}

func TestWindow_FreshnessContract(t *testing.T) {
	svc, led := newService(row(1, "2026-03-02", model.LedgerReserved))
	ctx := context.Background()
	start, end := date("2026-03-02"), date("2026-03-04")

	first, err := svc.Window(ctx, 1, start, end, false)
	require.NoError(t, err)
	require.True(t, first.Cache.Fresh)
	require.Equal(t, 120, first.Cache.TTLSeconds)
	require.Equal(t, 1, led.calls)

	second, err := svc.Window(ctx, 1, start, end, false)
	require.NoError(t, err)
	require.False(t, second.Cache.Fresh)
	require.Equal(t, first.Usage, second.Usage)
	require.Equal(t, 1, led.calls, "cache hit must not touch the ledger")

	forced, err := svc.Window(ctx, 1, start, end, true)
	require.NoError(t, err)
	require.True(t, forced.Cache.Fresh)
	require.Equal(t, 2, led.calls)
}

func TestWindow_DistinctWindowsCacheSeparately(t *testing.T) {
	svc, led := newService()
	ctx := context.Background()

	_, err := svc.Window(ctx, 1, date("2026-03-02"), date("2026-03-03"), false)
	require.NoError(t, err)
	_, err = svc.Window(ctx, 1, date("2026-03-02"), date("2026-03-04"), false)
	require.NoError(t, err)
	require.Equal(t, 2, led.calls)
}

func TestInvalidate(t *testing.T) {
	svc, led := newService()
	ctx := context.Background()
	start, end := date("2026-03-02"), date("2026-03-04")

	_, err := svc.Window(ctx, 1, start, end, false)
	require.NoError(t, err)
	svc.Invalidate(1)

	w, err := svc.Window(ctx, 1, start, end, false)
	require.NoError(t, err)
	require.True(t, w.Cache.Fresh)
	require.Equal(t, 2, led.calls)
}

func TestWindow_BadRange(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Window(context.Background(), 1, date("2026-03-04"), date("2026-03-02"), false)
	require.ErrorIs(t, err, availability.ErrBadWindow)

	_, err = svc.Window(context.Background(), 1, date("2026-01-01"), date("2028-01-01"), false)
	require.ErrorIs(t, err, availability.ErrBadWindow)
}

func TestWindow_UnknownPackage(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Window(context.Background(), 42, date("2026-03-02"), date("2026-03-03"), false)
	require.ErrorIs(t, err, catalogrepo.ErrNotFound)
}

func TestCheck(t *testing.T) {
	svc, _ := newService(
		row(1, "2026-03-02", model.LedgerReserved),
		row(2, "2026-03-02", model.LedgerReserved),
	)
	ctx := context.Background()

	ok, err := svc.Check(ctx, 1, date("2026-03-02"), date("2026-03-03"))
	require.NoError(t, err)
	require.False(t, ok, "a full date anywhere in the window fails the check")

	ok, err = svc.Check(ctx, 1, date("2026-03-03"), date("2026-03-04"))
	require.NoError(t, err)
	require.True(t, ok)
}
