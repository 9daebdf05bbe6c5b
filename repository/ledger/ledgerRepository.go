// Package ledgerrepo owns all persisted capacity state: the per-(package,
// date) availability ledger and the booking records written atomically with
// it. It is the single authority for admission decisions; callers never
// check-then-write around it.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
)

var (
	// ErrNoCapacity means at least one date in the requested window is at
	// the package's concurrent-reservation limit.
	ErrNoCapacity = errors.New("capacity exhausted for requested window")

	ErrNotFound        = errors.New("booking not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrPackageInactive = errors.New("package inactive")
	ErrBadTransition   = errors.New("booking status does not allow this transition")
)

// Store is the durable availability ledger plus the booking writes that must
// commit atomically with it. Implementations guarantee that two concurrent
// CreateBooking/Rebook calls can never both succeed when only one unit of
// capacity remains for any shared date.
type Store interface {
	// CreateBooking admits or rejects the booking in one atomic unit:
	// capacity check over [PickupDate, ReturnDate], one reserved ledger row
	// per date, and the booking record. On success the booking's ID and
	// timestamps are filled in. Returns ErrNoCapacity without partial
	// writes when any date is full.
	CreateBooking(ctx context.Context, b *model.Booking) error

	// CancelBooking retires the booking's consuming ledger rows and marks
	// the booking cancelled. Returns the number of rows released.
	CancelBooking(ctx context.Context, bookingID int64) (int64, error)

	// Rebook atomically moves a booking to a new window: the old rows are
	// retired and the new window is admitted under the same capacity guard,
	// in one transaction. On conflict the original reservation is left
	// untouched.
	Rebook(ctx context.Context, bookingID int64, pickup, ret time.Time, pickupTime, returnTime string, newTotal int64) (*model.Booking, error)

	ConfirmBooking(ctx context.Context, bookingID int64) error
	MarkPickedUp(ctx context.Context, bookingID int64) error
	CompleteBooking(ctx context.Context, bookingID int64) error

	GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]model.Booking, error)

	CountActive(ctx context.Context, packageID int64, date time.Time) (int, error)
	RowsInWindow(ctx context.Context, packageID int64, start, end time.Time) ([]model.LedgerRow, error)

	// Maintenance. DeleteExpiredRows removes at most batch rows per call so
	// long-running cleanups never hold wide locks.
	CountExpiredRows(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredRows(ctx context.Context, cutoff time.Time, batch int) (int64, error)
	FindOrphanRows(ctx context.Context, limit int) ([]model.OrphanRow, error)
	ExportRows(ctx context.Context) ([]model.ExportRow, error)
	ReplaceAllRows(ctx context.Context, rows []model.ExportRow) (int64, error)
}

// consumingSQL is the ledger status set that counts against capacity,
// inlined where queries filter on it.
const consumingSQL = `('reserved','picked_up','maintenance')`

type store struct{ db *sql.DB }

func New(db *sql.DB) Store { return &store{db} }

func (s *store) CreateBooking(ctx context.Context, b *model.Booking) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	capacity, err := lockPackage(ctx, tx, b.PackageID)
	if err != nil {
		return err
	}
	if err = checkHeadroom(ctx, tx, b.PackageID, b.PickupDate, b.ReturnDate, capacity); err != nil {
		return err
	}

	const ins = `
INSERT INTO bookings (code, user_id, package_id, pickup_date, return_date, pickup_time, return_time, status, total_price, location, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, ins,
		b.Code, b.UserID, b.PackageID, b.PickupDate, b.ReturnDate,
		b.PickupTime, b.ReturnTime, model.BookingPending, b.TotalPrice,
		b.Location, b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}
	b.Status = model.BookingPending

	if err = insertRows(ctx, tx, b.PackageID, b.ID, b.PickupDate, b.ReturnDate); err != nil {
		return err
	}
	return tx.Commit()
}

// lockPackage takes the package row lock that serializes admission per
// package. Without it two transactions could both count headroom before
// either's rows become visible.
func lockPackage(ctx context.Context, tx *sql.Tx, packageID int64) (int, error) {
	const q = `
SELECT max_concurrent_reservations, active
FROM packages
WHERE id = $1
FOR UPDATE`
	var capacity int
	var active bool
	err := tx.QueryRowContext(ctx, q, packageID).Scan(&capacity, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPackageNotFound
	}
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, ErrPackageInactive
	}
	return capacity, nil
}

// checkHeadroom verifies every date in [pickup, ret] has fewer consuming rows
// than capacity. Must run while the package row lock is held.
func checkHeadroom(ctx context.Context, tx *sql.Tx, packageID int64, pickup, ret time.Time, capacity int) error {
	const q = `
SELECT COALESCE(MAX(c), 0)
FROM (
    SELECT COUNT(*) AS c
    FROM availability_ledger
    WHERE package_id = $1
      AND reserve_date BETWEEN $2 AND $3
      AND status IN ` + consumingSQL + `
    GROUP BY reserve_date
) per_date`
	var worst int
	if err := tx.QueryRowContext(ctx, q, packageID, pickup, ret).Scan(&worst); err != nil {
		return err
	}
	if worst >= capacity {
		return ErrNoCapacity
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, packageID, bookingID int64, pickup, ret time.Time) error {
	const q = `
INSERT INTO availability_ledger (package_id, booking_id, reserve_date, status)
SELECT $1, $2, d::date, 'reserved'
FROM generate_series($3::date, $4::date, interval '1 day') AS d`
	_, err := tx.ExecContext(ctx, q, packageID, bookingID, pickup, ret)
	return err
}

func (s *store) CancelBooking(ctx context.Context, bookingID int64) (released int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	status, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return 0, err
	}
	if status.Terminal() {
		return 0, ErrBadTransition
	}

	const upd = `
UPDATE bookings
SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
WHERE id = $1`
	if _, err = tx.ExecContext(ctx, upd, bookingID); err != nil {
		return 0, err
	}

	released, err = retireRows(ctx, tx, bookingID, model.LedgerCancelled)
	if err != nil {
		return 0, err
	}
	return released, tx.Commit()
}

func (s *store) Rebook(ctx context.Context, bookingID int64, pickup, ret time.Time, pickupTime, returnTime string, newTotal int64) (out *model.Booking, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var packageID int64
	var status model.BookingStatus
	const sel = `
SELECT package_id, status
FROM bookings
WHERE id = $1
FOR UPDATE`
	err = tx.QueryRowContext(ctx, sel, bookingID).Scan(&packageID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != model.BookingPending && status != model.BookingConfirmed {
		return nil, ErrBadTransition
	}

	capacity, err := lockPackage(ctx, tx, packageID)
	if err != nil {
		return nil, err
	}

	// Retire the old rows first so the booking's own reservation does not
	// count against its new window. A conflict below rolls this back.
	if _, err = retireRows(ctx, tx, bookingID, model.LedgerCancelled); err != nil {
		return nil, err
	}
	if err = checkHeadroom(ctx, tx, packageID, pickup, ret, capacity); err != nil {
		return nil, err
	}
	if err = insertRows(ctx, tx, packageID, bookingID, pickup, ret); err != nil {
		return nil, err
	}

	const upd = `
UPDATE bookings
SET pickup_date = $2, return_date = $3, pickup_time = $4, return_time = $5,
    total_price = $6, updated_at = NOW()
WHERE id = $1
RETURNING id, code, user_id, package_id, pickup_date, return_date, pickup_time, return_time,
          status, total_price, location, notes, created_at, updated_at, cancelled_at`
	out, err = scanBooking(tx.QueryRowContext(ctx, upd, bookingID, pickup, ret, pickupTime, returnTime, newTotal))
	if err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

func (s *store) ConfirmBooking(ctx context.Context, bookingID int64) error {
	return s.transition(ctx, bookingID, model.BookingPending, model.BookingConfirmed, "")
}

func (s *store) MarkPickedUp(ctx context.Context, bookingID int64) error {
	return s.transition(ctx, bookingID, model.BookingConfirmed, model.BookingPickedUp, model.LedgerPickedUp)
}

func (s *store) CompleteBooking(ctx context.Context, bookingID int64) error {
	return s.transition(ctx, bookingID, model.BookingPickedUp, model.BookingCompleted, model.LedgerReturned)
}

// transition moves a booking from one status to the next and, when rowStatus
// is non-empty, moves its consuming ledger rows along with it.
func (s *store) transition(ctx context.Context, bookingID int64, from, to model.BookingStatus, rowStatus model.LedgerStatus) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	status, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if status != from {
		return ErrBadTransition
	}

	const upd = `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err = tx.ExecContext(ctx, upd, bookingID, to); err != nil {
		return err
	}
	if rowStatus != "" {
		if _, err = retireRows(ctx, tx, bookingID, rowStatus); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func lockBooking(ctx context.Context, tx *sql.Tx, bookingID int64) (model.BookingStatus, error) {
	const q = `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`
	var status model.BookingStatus
	err := tx.QueryRowContext(ctx, q, bookingID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// retireRows moves all consuming rows of a booking to a non-counting state.
func retireRows(ctx context.Context, tx *sql.Tx, bookingID int64, to model.LedgerStatus) (int64, error) {
	const q = `
UPDATE availability_ledger
SET status = $2
WHERE booking_id = $1
  AND status IN ` + consumingSQL
	res, err := tx.ExecContext(ctx, q, bookingID, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const bookingCols = `id, code, user_id, package_id, pickup_date, return_date, pickup_time, return_time,
       status, total_price, location, notes, created_at, updated_at, cancelled_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanBooking(r rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := r.Scan(
		&b.ID, &b.Code, &b.UserID, &b.PackageID, &b.PickupDate, &b.ReturnDate,
		&b.PickupTime, &b.ReturnTime, &b.Status, &b.TotalPrice,
		&b.Location, &b.Notes, &b.CreatedAt, &b.UpdatedAt, &b.CancelledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *store) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE id = $1`
	return scanBooking(s.db.QueryRowContext(ctx, q, bookingID))
}

func (s *store) ListUserBookings(ctx context.Context, userID int64) ([]model.Booking, error) {
	q := `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *store) CountActive(ctx context.Context, packageID int64, date time.Time) (int, error) {
	const q = `
SELECT COUNT(*)
FROM availability_ledger
WHERE package_id = $1 AND reserve_date = $2 AND status IN ` + consumingSQL
	var n int
	err := s.db.QueryRowContext(ctx, q, packageID, date).Scan(&n)
	return n, err
}

func (s *store) RowsInWindow(ctx context.Context, packageID int64, start, end time.Time) ([]model.LedgerRow, error) {
	const q = `
SELECT id, package_id, booking_id, reserve_date, status, created_at
FROM availability_ledger
WHERE package_id = $1 AND reserve_date BETWEEN $2 AND $3
ORDER BY reserve_date, id`
	rows, err := s.db.QueryContext(ctx, q, packageID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LedgerRow
	for rows.Next() {
		var lr model.LedgerRow
		if err := rows.Scan(&lr.ID, &lr.PackageID, &lr.BookingID, &lr.Date, &lr.Status, &lr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// expiredCond selects ledger rows whose booking is terminal and whose
// relevant date (return date, falling back to last update) is before cutoff.
const expiredCond = `
FROM availability_ledger al
JOIN bookings b ON b.id = al.booking_id
WHERE b.status IN ('completed','cancelled')
  AND COALESCE(b.return_date, b.updated_at::date) < $1::date`

func (s *store) CountExpiredRows(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+expiredCond, cutoff).Scan(&n)
	return n, err
}

func (s *store) DeleteExpiredRows(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		return 0, fmt.Errorf("batch must be > 0, got %d", batch)
	}
	q := `
DELETE FROM availability_ledger
WHERE id IN (SELECT al.id ` + expiredCond + ` ORDER BY al.id LIMIT $2)`
	res, err := s.db.ExecContext(ctx, q, cutoff, batch)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *store) FindOrphanRows(ctx context.Context, limit int) ([]model.OrphanRow, error) {
	const q = `
SELECT al.id, al.package_id, al.booking_id, al.reserve_date
FROM availability_ledger al
LEFT JOIN bookings b ON b.id = al.booking_id
WHERE al.booking_id IS NOT NULL AND b.id IS NULL
ORDER BY al.id
LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OrphanRow
	for rows.Next() {
		var o model.OrphanRow
		if err := rows.Scan(&o.RowID, &o.PackageID, &o.BookingID, &o.Date); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *store) ExportRows(ctx context.Context) ([]model.ExportRow, error) {
	const q = `
SELECT al.package_id, al.booking_id, to_char(al.reserve_date, 'YYYY-MM-DD'), al.status,
       COALESCE(b.status, ''),
       COALESCE(to_char(b.pickup_date, 'YYYY-MM-DD'), ''),
       COALESCE(to_char(b.return_date, 'YYYY-MM-DD'), '')
FROM availability_ledger al
LEFT JOIN bookings b ON b.id = al.booking_id
ORDER BY al.id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExportRow
	for rows.Next() {
		var r model.ExportRow
		if err := rows.Scan(&r.PackageID, &r.BookingID, &r.Date, &r.Status,
			&r.BookingStatus, &r.PickupDate, &r.ReturnDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *store) ReplaceAllRows(ctx context.Context, rows []model.ExportRow) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_ledger`); err != nil {
		return 0, err
	}

	const ins = `
INSERT INTO availability_ledger (package_id, booking_id, reserve_date, status)
VALUES ($1, $2, $3::date, $4)`
	for i, r := range rows {
		if !model.ValidLedgerStatus(r.Status) {
			err = fmt.Errorf("restore row %d: unknown status %q", i, r.Status)
			return 0, err
		}
		if _, perr := time.Parse(model.DateFormat, r.Date); perr != nil {
			err = fmt.Errorf("restore row %d: bad date %q", i, r.Date)
			return 0, err
		}
		if _, err = tx.ExecContext(ctx, ins, r.PackageID, r.BookingID, r.Date, r.Status); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
