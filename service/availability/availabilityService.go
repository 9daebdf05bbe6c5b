// Package availability is the read path over the ledger: per-date usage
// aggregation behind a TTL cache. Never consulted for admission decisions —
// the ledger store's transaction is the only authority there.
package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
)

var ErrBadWindow = errors.New("bad availability window")

// maxWindowDays bounds a single query; callers page longer ranges.
const maxWindowDays = 370

// LedgerReader is the slice of the ledger store this service needs.
type LedgerReader interface {
	RowsInWindow(ctx context.Context, packageID int64, start, end time.Time) ([]model.LedgerRow, error)
}

type CacheMeta struct {
	TTLSeconds int  `json:"ttl_seconds"`
	Fresh      bool `json:"fresh"`
}

// Window is the availability snapshot for one package over [Start, End].
type Window struct {
	PackageID    int64             `json:"package_id"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Capacity     int               `json:"capacity"`
	Usage        map[string]int    `json:"per_date_usage"` // date -> consuming rows; absent means zero
	Reservations []model.LedgerRow `json:"reservations"`
	Cache        CacheMeta         `json:"cache"`
}

type Service interface {
	// Window returns usage per date. forceFresh bypasses the cache; a
	// served cache hit is marked Fresh=false.
	Window(ctx context.Context, packageID int64, start, end time.Time, forceFresh bool) (*Window, error)

	// Check is the advisory pre-check: true when every date in the window
	// currently has headroom. UI hint only.
	Check(ctx context.Context, packageID int64, start, end time.Time) (bool, error)

	// Invalidate drops every cached window for the package.
	Invalidate(packageID int64)
}

type service struct {
	catalog catalogrepo.Repo
	ledger  LedgerReader
	cache   *gocache.Cache
	ttl     time.Duration
}

func New(catalog catalogrepo.Repo, ledger LedgerReader, ttl time.Duration) Service {
	return &service{
		catalog: catalog,
		ledger:  ledger,
		cache:   gocache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

type snapshot struct {
	capacity     int
	usage        map[string]int
	reservations []model.LedgerRow
}

func (s *service) Window(ctx context.Context, packageID int64, start, end time.Time, forceFresh bool) (*Window, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, ErrBadWindow
	}
	if model.RentalDays(start, end) > maxWindowDays {
		return nil, ErrBadWindow
	}

	key := windowKey(packageID, start, end)
	if !forceFresh {
		if v, ok := s.cache.Get(key); ok {
			return s.assemble(packageID, start, end, v.(*snapshot), false), nil
		}
	}

	snap, err := s.load(ctx, packageID, start, end)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, snap, gocache.DefaultExpiration)
	return s.assemble(packageID, start, end, snap, true), nil
}

func (s *service) load(ctx context.Context, packageID int64, start, end time.Time) (*snapshot, error) {
	pkg, err := s.catalog.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	rows, err := s.ledger.RowsInWindow(ctx, packageID, start, end)
	if err != nil {
		return nil, err
	}

	usage := make(map[string]int)
	for _, r := range rows {
		if r.Status.Consuming() {
			usage[r.Date.Format(model.DateFormat)]++
		}
	}
	return &snapshot{
		capacity:     pkg.MaxConcurrentReservations,
		usage:        usage,
		reservations: rows,
	}, nil
}

func (s *service) assemble(packageID int64, start, end time.Time, snap *snapshot, fresh bool) *Window {
	return &Window{
		PackageID:    packageID,
		Start:        start,
		End:          end,
		Capacity:     snap.capacity,
		Usage:        snap.usage,
		Reservations: snap.reservations,
		Cache: CacheMeta{
			TTLSeconds: int(s.ttl.Seconds()),
			Fresh:      fresh,
		},
	}
}

func (s *service) Check(ctx context.Context, packageID int64, start, end time.Time) (bool, error) {
	w, err := s.Window(ctx, packageID, start, end, false)
	if err != nil {
		return false, err
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if w.Usage[d.Format(model.DateFormat)] >= w.Capacity {
			return false, nil
		}
	}
	return true, nil
}

func (s *service) Invalidate(packageID int64) {
	prefix := fmt.Sprintf("win:%d:", packageID)
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

func windowKey(packageID int64, start, end time.Time) string {
	return fmt.Sprintf("win:%d:%s:%s", packageID,
		start.Format(model.DateFormat), end.Format(model.DateFormat))
}
