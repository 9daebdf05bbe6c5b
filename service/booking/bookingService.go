package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
	ledgerrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/ledger"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/pricing"
)

// errors used by controllers

type ErrCode string

const (
	ErrInvalidRange     ErrCode = "INVALID_RANGE"
	ErrPackageNotFound  ErrCode = "PACKAGE_NOT_FOUND"
	ErrPackageInactive  ErrCode = "PACKAGE_INACTIVE"
	ErrCapacityConflict ErrCode = "CAPACITY_CONFLICT"
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrNotOwner         ErrCode = "NOT_OWNER"
	ErrBadStatus        ErrCode = "BAD_STATUS"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts the error code, or "" for infrastructure failures.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Invalidator drops cached availability windows after a ledger write.
type Invalidator interface {
	Invalidate(packageID int64)
}

type ReserveInput struct {
	PackageID  int64
	PickupDate time.Time
	ReturnDate time.Time
	PickupTime string
	ReturnTime string
	Location   *string
	Notes      *string
}

type Service interface {
	// Reserve admits or rejects a booking. The admission decision is made
	// inside the ledger store's transaction; everything before it is
	// advisory validation.
	Reserve(ctx context.Context, userID int64, in ReserveInput) (*model.Booking, *pricing.Breakdown, error)

	// Cancel releases every ledger row of the booking's window.
	Cancel(ctx context.Context, actorID int64, admin bool, bookingID int64) error

	// Reschedule moves a booking to a new window as one atomic unit: either
	// the new window is admitted or the original reservation stands.
	Reschedule(ctx context.Context, actorID int64, admin bool, bookingID int64, pickup, ret time.Time, pickupTime, returnTime string) (*model.Booking, error)

	// Staff workflow transitions.
	Confirm(ctx context.Context, bookingID int64) error
	MarkPickedUp(ctx context.Context, bookingID int64) error
	Complete(ctx context.Context, bookingID int64) error

	Get(ctx context.Context, actorID int64, admin bool, bookingID int64) (*model.Booking, error)
	ListMine(ctx context.Context, userID int64) ([]model.Booking, error)
}

type service struct {
	catalog catalogrepo.Repo
	store   ledgerrepo.Store
	calc    *pricing.Calculator
	inval   Invalidator
}

func New(catalog catalogrepo.Repo, store ledgerrepo.Store, calc *pricing.Calculator, inval Invalidator) Service {
	return &service{catalog: catalog, store: store, calc: calc, inval: inval}
}

func (s *service) Reserve(ctx context.Context, userID int64, in ReserveInput) (*model.Booking, *pricing.Breakdown, error) {
	if err := validateRange(in.PickupDate, in.ReturnDate); err != nil {
		return nil, nil, err
	}

	pkg, err := s.catalog.GetPackage(ctx, in.PackageID)
	if errors.Is(err, catalogrepo.ErrNotFound) {
		return nil, nil, makeErr(ErrPackageNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	if !pkg.Active {
		return nil, nil, makeErr(ErrPackageInactive)
	}

	quote, err := s.calc.Quote(pkg.BaseDailyPrice, in.PickupDate, in.ReturnDate)
	if err != nil {
		return nil, nil, makeErr(ErrInvalidRange)
	}

	b := &model.Booking{
		Code:       newCode(),
		UserID:     userID,
		PackageID:  in.PackageID,
		PickupDate: in.PickupDate,
		ReturnDate: in.ReturnDate,
		PickupTime: in.PickupTime,
		ReturnTime: in.ReturnTime,
		TotalPrice: quote.Total,
		Location:   in.Location,
		Notes:      in.Notes,
	}

	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, nil, mapStoreErr(err)
	}
	s.inval.Invalidate(in.PackageID)
	return b, quote, nil
}

func (s *service) Cancel(ctx context.Context, actorID int64, admin bool, bookingID int64) error {
	b, err := s.owned(ctx, actorID, admin, bookingID)
	if err != nil {
		return err
	}
	if _, err := s.store.CancelBooking(ctx, bookingID); err != nil {
		return mapStoreErr(err)
	}
	s.inval.Invalidate(b.PackageID)
	return nil
}

func (s *service) Reschedule(ctx context.Context, actorID int64, admin bool, bookingID int64, pickup, ret time.Time, pickupTime, returnTime string) (*model.Booking, error) {
	if err := validateRange(pickup, ret); err != nil {
		return nil, err
	}
	b, err := s.owned(ctx, actorID, admin, bookingID)
	if err != nil {
		return nil, err
	}

	pkg, err := s.catalog.GetPackage(ctx, b.PackageID)
	if err != nil {
		return nil, err
	}
	quote, err := s.calc.Quote(pkg.BaseDailyPrice, pickup, ret)
	if err != nil {
		return nil, makeErr(ErrInvalidRange)
	}

	out, err := s.store.Rebook(ctx, bookingID, pickup, ret, pickupTime, returnTime, quote.Total)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	s.inval.Invalidate(b.PackageID)
	return out, nil
}

func (s *service) Confirm(ctx context.Context, bookingID int64) error {
	return s.transition(ctx, bookingID, s.store.ConfirmBooking)
}

func (s *service) MarkPickedUp(ctx context.Context, bookingID int64) error {
	return s.transition(ctx, bookingID, s.store.MarkPickedUp)
}

func (s *service) Complete(ctx context.Context, bookingID int64) error {
	return s.transition(ctx, bookingID, s.store.CompleteBooking)
}

func (s *service) transition(ctx context.Context, bookingID int64, op func(context.Context, int64) error) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := op(ctx, bookingID); err != nil {
		return mapStoreErr(err)
	}
	s.inval.Invalidate(b.PackageID)
	return nil
}

func (s *service) Get(ctx context.Context, actorID int64, admin bool, bookingID int64) (*model.Booking, error) {
	return s.owned(ctx, actorID, admin, bookingID)
}

func (s *service) ListMine(ctx context.Context, userID int64) ([]model.Booking, error) {
	return s.store.ListUserBookings(ctx, userID)
}

func (s *service) owned(ctx context.Context, actorID int64, admin bool, bookingID int64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !admin && b.UserID != actorID {
		return nil, makeErr(ErrNotOwner)
	}
	return b, nil
}

func validateRange(pickup, ret time.Time) error {
	if pickup.IsZero() || ret.IsZero() || ret.Before(pickup) {
		return makeErr(ErrInvalidRange)
	}
	return nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ledgerrepo.ErrNoCapacity):
		return makeErr(ErrCapacityConflict)
	case errors.Is(err, ledgerrepo.ErrNotFound):
		return makeErr(ErrNotFound)
	case errors.Is(err, ledgerrepo.ErrPackageNotFound):
		return makeErr(ErrPackageNotFound)
	case errors.Is(err, ledgerrepo.ErrPackageInactive):
		return makeErr(ErrPackageInactive)
	case errors.Is(err, ledgerrepo.ErrBadTransition):
		return makeErr(ErrBadStatus)
	default:
		return err
	}
}

func newCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BK-" + raw[:10]
}
