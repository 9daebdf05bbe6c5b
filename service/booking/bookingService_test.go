package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/config"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
	ledgerrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/ledger"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/booking"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/pricing"
)

type catalogMock struct {
	getFn func(ctx context.Context, id int64) (*model.Package, error)
}

func (m *catalogMock) GetPackage(ctx context.Context, id int64) (*model.Package, error) {
	return m.getFn(ctx, id)
}
func (m *catalogMock) ListActive(ctx context.Context) ([]model.Package, error) { return nil, nil }

var _ catalogrepo.Repo = (*catalogMock)(nil)

type invalMock struct {
	mu    sync.Mutex
	calls []int64
}

func (m *invalMock) Invalidate(packageID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, packageID)
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newCalc(t *testing.T) *pricing.Calculator {
	t.Helper()
	c, err := pricing.New(config.Pricing{
		Day2SurchargeBps:     4000,
		Day3To6SurchargeBps:  2000,
		Day7PlusSurchargeBps: 1000,
		WeekendHolidayBps:    1000,
		VATBps:               700,
	})
	require.NoError(t, err)
	return c
}

// fixture wires the allocator against the in-memory ledger store.
type fixture struct {
	svc   booking.Service
	store *ledgerrepo.MemoryStore
	inval *invalMock
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	store := ledgerrepo.NewMemory()
	pkg := model.Package{
		ID:                        1,
		Name:                      "Streaming Kit A",
		BaseDailyPrice:            100_000,
		MaxConcurrentReservations: capacity,
		Active:                    true,
	}
	store.SeedPackage(pkg)

	cat := &catalogMock{getFn: func(_ context.Context, id int64) (*model.Package, error) {
		if id != pkg.ID {
			return nil, catalogrepo.ErrNotFound
		}
		cp := pkg
		return &cp, nil
	}}
	inval := &invalMock{}
	return &fixture{
		svc:   booking.New(cat, store, newCalc(t), inval),
		store: store,
		inval: inval,
	}
}

func reserveInput(pickup, ret string) booking.ReserveInput {
	return booking.ReserveInput{
		PackageID:  1,
		PickupDate: date(pickup),
		ReturnDate: date(ret),
		PickupTime: "09:00",
		ReturnTime: "18:00",
	}
}

func TestReserve_Validation(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, _, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-05", "2026-03-02"))
	require.Equal(t, booking.ErrInvalidRange, booking.Code(err))

	in := reserveInput("2026-03-02", "2026-03-03")
	in.PackageID = 99
	_, _, err = f.svc.Reserve(ctx, 7, in)
	require.Equal(t, booking.ErrPackageNotFound, booking.Code(err))

	// Nothing may be written for a rejected request.
	n, err := f.store.CountActive(ctx, 1, date("2026-03-02"))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestReserve_InactivePackage(t *testing.T) {
	f := newFixture(t, 2)
	inactive := model.Package{ID: 2, BaseDailyPrice: 1000, MaxConcurrentReservations: 1}
	f.store.SeedPackage(inactive)

	cat := &catalogMock{getFn: func(_ context.Context, id int64) (*model.Package, error) {
		cp := inactive
		return &cp, nil
	}}
	svc := booking.New(cat, f.store, newCalc(t), f.inval)

	in := reserveInput("2026-03-02", "2026-03-03")
	in.PackageID = 2
	_, _, err := svc.Reserve(context.Background(), 7, in)
	require.Equal(t, booking.ErrPackageInactive, booking.Code(err))
}

func TestReserve_Success(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	b, quote, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-02", "2026-03-04"))
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, b.Status)
	require.NotEmpty(t, b.Code)
	require.Equal(t, quote.Total, b.TotalPrice)
	require.Equal(t, 3, quote.RentalDays)

	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		n, err := f.store.CountActive(ctx, 1, date(d))
		require.NoError(t, err)
		require.Equal(t, 1, n, "date %s", d)
	}
	require.Equal(t, []int64{1}, f.inval.calls)
}

func TestReserve_CapacityConflictLeavesNoRows(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, _, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-02", "2026-03-06"))
	require.NoError(t, err)

	// Overlaps on a single date; the whole request must be rejected with
	// nothing written for the non-overlapping dates either.
	_, _, err = f.svc.Reserve(ctx, 8, reserveInput("2026-03-06", "2026-03-09"))
	require.Equal(t, booking.ErrCapacityConflict, booking.Code(err))

	for _, d := range []string{"2026-03-07", "2026-03-08", "2026-03-09"} {
		n, err := f.store.CountActive(ctx, 1, date(d))
		require.NoError(t, err)
		require.Zero(t, n, "date %s", d)
	}
}

func TestReserve_ConcurrentOverCapacity(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	const attempts = 6
	var wg sync.WaitGroup
	results := make([]error, attempts)
	ids := make([]int64, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _, err := f.svc.Reserve(ctx, int64(100+i), reserveInput("2026-03-02", "2026-03-02"))
			results[i] = err
			if b != nil {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	var won []int64
	for i, err := range results {
		if err == nil {
			won = append(won, ids[i])
		} else {
			require.Equal(t, booking.ErrCapacityConflict, booking.Code(err))
		}
	}
	require.Len(t, won, 2)

	n, err := f.store.CountActive(ctx, 1, date("2026-03-02"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Releasing one unit admits exactly one more request.
	require.NoError(t, f.svc.Cancel(ctx, 0, true, won[0]))
	_, _, err = f.svc.Reserve(ctx, 200, reserveInput("2026-03-02", "2026-03-02"))
	require.NoError(t, err)
	_, _, err = f.svc.Reserve(ctx, 201, reserveInput("2026-03-02", "2026-03-02"))
	require.Equal(t, booking.ErrCapacityConflict, booking.Code(err))
}

func TestCancel_ReleasesEveryDate(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	b, _, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-02", "2026-03-05"))
	require.NoError(t, err)

	require.Equal(t, booking.ErrNotOwner, booking.Code(f.svc.Cancel(ctx, 8, false, b.ID)))
	require.NoError(t, f.svc.Cancel(ctx, 7, false, b.ID))

	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"} {
		n, err := f.store.CountActive(ctx, 1, date(d))
		require.NoError(t, err)
		require.Zero(t, n, "date %s", d)
	}

	// Cancelling twice is a status error, not a second release.
	require.Equal(t, booking.ErrBadStatus, booking.Code(f.svc.Cancel(ctx, 7, false, b.ID)))
}

func TestReschedule_ConflictKeepsOriginal(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, _, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-02", "2026-03-03"))
	require.NoError(t, err)
	b2, _, err := f.svc.Reserve(ctx, 8, reserveInput("2026-03-04", "2026-03-05"))
	require.NoError(t, err)

	// Target window is taken; the move must fail whole and leave b2's
	// original rows in place.
	_, err = f.svc.Reschedule(ctx, 8, false, b2.ID, date("2026-03-02"), date("2026-03-03"), "09:00", "18:00")
	require.Equal(t, booking.ErrCapacityConflict, booking.Code(err))

	n, err := f.store.CountActive(ctx, 1, date("2026-03-04"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestReschedule_MovesWindowAndReprices(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	b, _, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-02", "2026-03-02"))
	require.NoError(t, err)
	oneDay := b.TotalPrice

	out, err := f.svc.Reschedule(ctx, 7, false, b.ID, date("2026-03-09"), date("2026-03-10"), "09:00", "18:00")
	require.NoError(t, err)
	require.Equal(t, date("2026-03-09"), out.PickupDate)
	require.Greater(t, out.TotalPrice, oneDay)

	n, err := f.store.CountActive(ctx, 1, date("2026-03-02"))
	require.NoError(t, err)
	require.Zero(t, n)
	n, err = f.store.CountActive(ctx, 1, date("2026-03-09"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestWorkflowTransitions(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	b, _, err := f.svc.Reserve(ctx, 7, reserveInput("2026-03-02", "2026-03-03"))
	require.NoError(t, err)

	// Out-of-order transitions are rejected.
	require.Equal(t, booking.ErrBadStatus, booking.Code(f.svc.MarkPickedUp(ctx, b.ID)))

	require.NoError(t, f.svc.Confirm(ctx, b.ID))
	require.NoError(t, f.svc.MarkPickedUp(ctx, b.ID))

	// Picked-up rows still consume capacity.
	n, err := f.store.CountActive(ctx, 1, date("2026-03-02"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, f.svc.Complete(ctx, b.ID))
	n, err = f.store.CountActive(ctx, 1, date("2026-03-02"))
	require.NoError(t, err)
	require.Zero(t, n)
}
