// Package pricing computes tiered rental price breakdowns. Pure arithmetic,
// no I/O: all amounts are int64 minor currency units and the exact subtotal
// is carried in basis-point units so rounding happens once, at the reported
// figures, never per day.
package pricing

import (
	"fmt"
	"time"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/config"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
)

const (
	bpsDenom = 10_000

	// maxBasePrice and maxRentalDays bound the int64 fixed-point math.
	maxBasePrice  = 1_000_000_000
	maxRentalDays = 366
)

type Breakdown struct {
	RentalDays              int   `json:"rental_days"`
	BaseDay                 int64 `json:"base_day"`
	Day2Surcharge           int64 `json:"day2_surcharge"`
	Day3To6Surcharge        int64 `json:"day3_to_6_surcharge"`
	Day7PlusSurcharge       int64 `json:"day7_plus_surcharge"`
	WeekendHolidaySurcharge int64 `json:"weekend_holiday_surcharge"`
	Subtotal                int64 `json:"subtotal"`
	Tax                     int64 `json:"tax"`
	Total                   int64 `json:"total"`
}

type Calculator struct {
	day2Bps    int64
	midBps     int64
	longBps    int64
	weekendBps int64
	vatBps     int64
	holidays   map[string]struct{}
}

// New builds a calculator from configured rates. Holiday entries must be
// YYYY-MM-DD.
func New(cfg config.Pricing) (*Calculator, error) {
	c := &Calculator{
		day2Bps:    cfg.Day2SurchargeBps,
		midBps:     cfg.Day3To6SurchargeBps,
		longBps:    cfg.Day7PlusSurchargeBps,
		weekendBps: cfg.WeekendHolidayBps,
		vatBps:     cfg.VATBps,
		holidays:   make(map[string]struct{}, len(cfg.Holidays)),
	}
	for _, h := range cfg.Holidays {
		if _, err := time.Parse(model.DateFormat, h); err != nil {
			return nil, fmt.Errorf("bad holiday date %q: %w", h, err)
		}
		c.holidays[h] = struct{}{}
	}
	return c, nil
}

// AddHolidays merges additional holiday dates, e.g. fetched from the public
// holiday API at startup.
func (c *Calculator) AddHolidays(dates []time.Time) {
	for _, d := range dates {
		c.holidays[d.Format(model.DateFormat)] = struct{}{}
	}
}

// IsSurchargedDay reports whether a calendar day carries the weekend/holiday
// surcharge.
func (c *Calculator) IsSurchargedDay(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return true
	}
	_, ok := c.holidays[d.Format(model.DateFormat)]
	return ok
}

// tierBps is the surcharge tier for rental day i (1-based). Day 1 carries the
// base charge, not a tier.
func (c *Calculator) tierBps(i int) int64 {
	switch {
	case i <= 1:
		return 0
	case i == 2:
		return c.day2Bps
	case i <= 6:
		return c.midBps
	default:
		return c.longBps
	}
}

// Quote prices the inclusive window [pickup, ret] at basePrice per base day.
func (c *Calculator) Quote(basePrice int64, pickup, ret time.Time) (*Breakdown, error) {
	if basePrice <= 0 || basePrice > maxBasePrice {
		return nil, fmt.Errorf("base price out of range: %d", basePrice)
	}
	if ret.Before(pickup) {
		return nil, fmt.Errorf("return date before pickup date")
	}
	days := model.RentalDays(pickup, ret)
	if days > maxRentalDays {
		return nil, fmt.Errorf("rental too long: %d days", days)
	}

	// Accumulate everything in basis points of the base price; the exact
	// subtotal is basePrice*totalBps/10000 with no intermediate rounding.
	var day2, mid, long, weekend int64
	d := pickup
	for i := 1; i <= days; i++ {
		switch {
		case i == 2:
			day2 += c.day2Bps
		case i >= 3 && i <= 6:
			mid += c.midBps
		case i >= 7:
			long += c.longBps
		}
		if c.IsSurchargedDay(d) {
			weekend += c.weekendBps
		}
		d = d.AddDate(0, 0, 1)
	}

	baseBps := int64(bpsDenom) // day 1
	totalBps := baseBps + day2 + mid + long + weekend

	subtotalX := basePrice * totalBps                        // 1e-4 minor units, exact
	totalX := subtotalX*bpsDenom + subtotalX*c.vatBps        // 1e-8 minor units, exact
	subtotal := roundBps(subtotalX, bpsDenom)                // rounded once
	total := roundBps(totalX, int64(bpsDenom)*int64(bpsDenom))

	b := &Breakdown{
		RentalDays:              days,
		BaseDay:                 basePrice,
		Day2Surcharge:           roundBps(basePrice*day2, bpsDenom),
		Day3To6Surcharge:        roundBps(basePrice*mid, bpsDenom),
		Day7PlusSurcharge:       roundBps(basePrice*long, bpsDenom),
		WeekendHolidaySurcharge: roundBps(basePrice*weekend, bpsDenom),
		Subtotal:                subtotal,
		Tax:                     total - subtotal,
		Total:                   total,
	}
	return b, nil
}

// roundBps divides with round-half-up.
func roundBps(x, denom int64) int64 {
	return (x + denom/2) / denom
}
