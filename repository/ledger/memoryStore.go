package ledgerrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
)

// MemoryStore is an in-memory Store for tests and local development. A single
// mutex around every operation gives it the same all-or-nothing admission
// semantics the Postgres store gets from its package row lock.
type MemoryStore struct {
	mu       sync.Mutex
	packages map[int64]*model.Package
	bookings map[int64]*model.Booking
	rows     map[int64]*model.LedgerRow
	nextID   int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		packages: make(map[int64]*model.Package),
		bookings: make(map[int64]*model.Booking),
		rows:     make(map[int64]*model.LedgerRow),
		nextID:   1,
	}
}

// SeedPackage registers a package so admission checks can read its capacity.
func (s *MemoryStore) SeedPackage(p model.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.packages[p.ID] = &cp
}

func (s *MemoryStore) id() int64 {
	v := s.nextID
	s.nextID++
	return v
}

func (s *MemoryStore) consumingByDate(packageID int64, start, end time.Time) map[string]int {
	usage := make(map[string]int)
	for _, r := range s.rows {
		if r.PackageID != packageID || !r.Status.Consuming() {
			continue
		}
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		usage[r.Date.Format(model.DateFormat)]++
	}
	return usage
}

func (s *MemoryStore) headroom(packageID int64, start, end time.Time, capacity int) bool {
	usage := s.consumingByDate(packageID, start, end)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if usage[d.Format(model.DateFormat)] >= capacity {
			return false
		}
	}
	return true
}

func (s *MemoryStore) insertRowsLocked(packageID, bookingID int64, start, end time.Time) {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		id := s.id()
		s.rows[id] = &model.LedgerRow{
			ID:        id,
			PackageID: packageID,
			BookingID: &bookingID,
			Date:      d,
			Status:    model.LedgerReserved,
			CreatedAt: time.Now().UTC(),
		}
	}
}

func (s *MemoryStore) retireRowsLocked(bookingID int64, to model.LedgerStatus) int64 {
	var n int64
	for _, r := range s.rows {
		if r.BookingID != nil && *r.BookingID == bookingID && r.Status.Consuming() {
			r.Status = to
			n++
		}
	}
	return n
}

func (s *MemoryStore) CreateBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[b.PackageID]
	if !ok {
		return ErrPackageNotFound
	}
	if !p.Active {
		return ErrPackageInactive
	}
	if !s.headroom(b.PackageID, b.PickupDate, b.ReturnDate, p.MaxConcurrentReservations) {
		return ErrNoCapacity
	}

	b.ID = s.id()
	b.Status = model.BookingPending
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.bookings[b.ID] = &cp
	s.insertRowsLocked(b.PackageID, b.ID, b.PickupDate, b.ReturnDate)
	return nil
}

func (s *MemoryStore) CancelBooking(_ context.Context, bookingID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return 0, ErrNotFound
	}
	if b.Status.Terminal() {
		return 0, ErrBadTransition
	}
	now := time.Now().UTC()
	b.Status = model.BookingCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return s.retireRowsLocked(bookingID, model.LedgerCancelled), nil
}

func (s *MemoryStore) Rebook(_ context.Context, bookingID int64, pickup, ret time.Time, pickupTime, returnTime string, newTotal int64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		return nil, ErrBadTransition
	}
	p, ok := s.packages[b.PackageID]
	if !ok {
		return nil, ErrPackageNotFound
	}
	if !p.Active {
		return nil, ErrPackageInactive
	}

	// Evaluate the new window with the booking's own rows excluded, but do
	// not mutate until admission is certain.
	old := make([]*model.LedgerRow, 0)
	for _, r := range s.rows {
		if r.BookingID != nil && *r.BookingID == bookingID && r.Status.Consuming() {
			old = append(old, r)
		}
	}
	for _, r := range old {
		r.Status = model.LedgerCancelled
	}
	if !s.headroom(b.PackageID, pickup, ret, p.MaxConcurrentReservations) {
		for _, r := range old {
			r.Status = model.LedgerReserved
		}
		return nil, ErrNoCapacity
	}

	s.insertRowsLocked(b.PackageID, bookingID, pickup, ret)
	b.PickupDate, b.ReturnDate = pickup, ret
	b.PickupTime, b.ReturnTime = pickupTime, returnTime
	b.TotalPrice = newTotal
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) transition(bookingID int64, from, to model.BookingStatus, rowStatus model.LedgerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	if b.Status != from {
		return ErrBadTransition
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	if rowStatus != "" {
		s.retireRowsLocked(bookingID, rowStatus)
	}
	return nil
}

func (s *MemoryStore) ConfirmBooking(_ context.Context, bookingID int64) error {
	return s.transition(bookingID, model.BookingPending, model.BookingConfirmed, "")
}

func (s *MemoryStore) MarkPickedUp(_ context.Context, bookingID int64) error {
	return s.transition(bookingID, model.BookingConfirmed, model.BookingPickedUp, model.LedgerPickedUp)
}

func (s *MemoryStore) CompleteBooking(_ context.Context, bookingID int64) error {
	return s.transition(bookingID, model.BookingPickedUp, model.BookingCompleted, model.LedgerReturned)
}

func (s *MemoryStore) GetBooking(_ context.Context, bookingID int64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListUserBookings(_ context.Context, userID int64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountActive(_ context.Context, packageID int64, date time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumingByDate(packageID, date, date)[date.Format(model.DateFormat)], nil
}

func (s *MemoryStore) RowsInWindow(_ context.Context, packageID int64, start, end time.Time) ([]model.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.LedgerRow
	for _, r := range s.rows {
		if r.PackageID != packageID || r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) expiredLocked(cutoff time.Time) []int64 {
	var ids []int64
	for id, r := range s.rows {
		if r.BookingID == nil {
			continue
		}
		b, ok := s.bookings[*r.BookingID]
		if !ok || !b.Status.Terminal() {
			continue
		}
		relevant := b.ReturnDate
		if relevant.IsZero() {
			relevant = b.UpdatedAt
		}
		if relevant.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *MemoryStore) CountExpiredRows(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.expiredLocked(cutoff))), nil
}

func (s *MemoryStore) DeleteExpiredRows(_ context.Context, cutoff time.Time, batch int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.expiredLocked(cutoff)
	if len(ids) > batch {
		ids = ids[:batch]
	}
	for _, id := range ids {
		delete(s.rows, id)
	}
	return int64(len(ids)), nil
}

func (s *MemoryStore) FindOrphanRows(_ context.Context, limit int) ([]model.OrphanRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.OrphanRow
	for _, r := range s.rows {
		if r.BookingID == nil {
			continue
		}
		if _, ok := s.bookings[*r.BookingID]; !ok {
			out = append(out, model.OrphanRow{
				RowID:     r.ID,
				PackageID: r.PackageID,
				BookingID: *r.BookingID,
				Date:      r.Date,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowID < out[j].RowID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ExportRows(_ context.Context) ([]model.ExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.ExportRow, 0, len(ids))
	for _, id := range ids {
		r := s.rows[id]
		er := model.ExportRow{
			PackageID: r.PackageID,
			BookingID: r.BookingID,
			Date:      r.Date.Format(model.DateFormat),
			Status:    r.Status,
		}
		if r.BookingID != nil {
			if b, ok := s.bookings[*r.BookingID]; ok {
				er.BookingStatus = string(b.Status)
				er.PickupDate = b.PickupDate.Format(model.DateFormat)
				er.ReturnDate = b.ReturnDate.Format(model.DateFormat)
			}
		}
		out = append(out, er)
	}
	return out, nil
}

func (s *MemoryStore) ReplaceAllRows(_ context.Context, rows []model.ExportRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[int64]*model.LedgerRow, len(rows))
	next := s.nextID
	for i, r := range rows {
		if !model.ValidLedgerStatus(r.Status) {
			return 0, fmt.Errorf("restore row %d: unknown status %q", i, r.Status)
		}
		d, err := time.Parse(model.DateFormat, r.Date)
		if err != nil {
			return 0, fmt.Errorf("restore row %d: bad date %q", i, r.Date)
		}
		id := next
		next++
		fresh[id] = &model.LedgerRow{
			ID:        id,
			PackageID: r.PackageID,
			BookingID: r.BookingID,
			Date:      d,
			Status:    r.Status,
			CreatedAt: time.Now().UTC(),
		}
	}
	s.rows = fresh
	s.nextID = next
	return int64(len(rows)), nil
}

var _ Store = (*MemoryStore)(nil)
