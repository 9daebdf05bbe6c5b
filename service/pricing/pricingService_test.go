package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/config"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/pricing"
)

func defaultRates(holidays ...string) config.Pricing {
	return config.Pricing{
		Day2SurchargeBps:     4000,
		Day3To6SurchargeBps:  2000,
		Day7PlusSurchargeBps: 1000,
		WeekendHolidayBps:    1000,
		VATBps:               700,
		Holidays:             holidays,
	}
}

func mustCalc(t *testing.T, cfg config.Pricing) *pricing.Calculator {
	t.Helper()
	c, err := pricing.New(cfg)
	require.NoError(t, err)
	return c
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// 2026-03-02 is a Monday.
var monday = date("2026-03-02")

func TestQuote_SingleDay(t *testing.T) {
	c := mustCalc(t, defaultRates())

	b, err := c.Quote(1000, monday, monday)
	require.NoError(t, err)
	require.Equal(t, 1, b.RentalDays)
	require.Equal(t, int64(1000), b.Subtotal)
	require.Equal(t, int64(70), b.Tax)
	require.Equal(t, int64(1070), b.Total)
}

func TestQuote_TwoDays(t *testing.T) {
	c := mustCalc(t, defaultRates())

	b, err := c.Quote(1000, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 2, b.RentalDays)
	require.Equal(t, int64(400), b.Day2Surcharge)
	require.Equal(t, int64(0), b.WeekendHolidaySurcharge)
	require.Equal(t, int64(1400), b.Subtotal)
	require.Equal(t, int64(98), b.Tax)
	require.Equal(t, int64(1498), b.Total)
}

func TestQuote_TwoDaysWithHoliday(t *testing.T) {
	// Tuesday is a configured holiday: +10% of base on that day.
	c := mustCalc(t, defaultRates("2026-03-03"))

	b, err := c.Quote(1000, monday, date("2026-03-03"))
	require.NoError(t, err)
	require.Equal(t, int64(100), b.WeekendHolidaySurcharge)
	require.Equal(t, int64(1500), b.Subtotal)
	require.Equal(t, int64(105), b.Tax)
	require.Equal(t, int64(1605), b.Total)
}

func TestQuote_SevenDaySpan(t *testing.T) {
	c := mustCalc(t, defaultRates())

	// Mon..Sun: day1 base, day2 +40%, days 3-6 +20% each, day7 +10%,
	// Sat+Sun each +10% weekend.
	b, err := c.Quote(1000, monday, date("2026-03-08"))
	require.NoError(t, err)
	require.Equal(t, 7, b.RentalDays)
	require.Equal(t, int64(1000), b.BaseDay)
	require.Equal(t, int64(400), b.Day2Surcharge)
	require.Equal(t, int64(800), b.Day3To6Surcharge)
	require.Equal(t, int64(100), b.Day7PlusSurcharge)
	require.Equal(t, int64(200), b.WeekendHolidaySurcharge)
	require.Equal(t, int64(2500), b.Subtotal)
	require.Equal(t, int64(175), b.Tax)
	require.Equal(t, int64(2675), b.Total)
}

func TestQuote_WeekendOnDayOne(t *testing.T) {
	c := mustCalc(t, defaultRates())

	b, err := c.Quote(1000, date("2026-03-07"), date("2026-03-07")) // Saturday
	require.NoError(t, err)
	require.Equal(t, int64(100), b.WeekendHolidaySurcharge)
	require.Equal(t, int64(1100), b.Subtotal)
}

func TestQuote_BadInput(t *testing.T) {
	c := mustCalc(t, defaultRates())

	if _, err := c.Quote(0, monday, monday); err == nil {
		t.Fatal("expected error for zero base price")
	}
	if _, err := c.Quote(1000, monday, monday.AddDate(0, 0, -1)); err == nil {
		t.Fatal("expected error for inverted range")
	}
	if _, err := c.Quote(1000, monday, monday.AddDate(2, 0, 0)); err == nil {
		t.Fatal("expected error for absurd duration")
	}
}

func TestNew_RejectsBadHoliday(t *testing.T) {
	_, err := pricing.New(defaultRates("03/02/2026"))
	require.Error(t, err)
}

func TestQuote_Properties(t *testing.T) {
	c := mustCalc(t, defaultRates("2026-04-13", "2026-04-14"))

	rapid.Check(t, func(t *rapid.T) {
		// Bases divisible by 10000 make every component integer-exact.
		base := rapid.Int64Range(1, 10_000).Draw(t, "base") * 10_000
		days := rapid.IntRange(1, 60).Draw(t, "days")
		offset := rapid.IntRange(0, 400).Draw(t, "offset")
		pickup := date("2026-01-01").AddDate(0, 0, offset)
		ret := pickup.AddDate(0, 0, days-1)

		b, err := c.Quote(base, pickup, ret)
		if err != nil {
			t.Fatalf("quote failed: %v", err)
		}
		if b.RentalDays != days {
			t.Fatalf("rental days %d, want %d", b.RentalDays, days)
		}
		if b.Total != b.Subtotal+b.Tax {
			t.Fatalf("total %d != subtotal %d + tax %d", b.Total, b.Subtotal, b.Tax)
		}
		sum := b.BaseDay + b.Day2Surcharge + b.Day3To6Surcharge + b.Day7PlusSurcharge + b.WeekendHolidaySurcharge
		if sum != b.Subtotal {
			t.Fatalf("components sum %d != subtotal %d", sum, b.Subtotal)
		}

		// One more day never makes the rental cheaper.
		longer, err := c.Quote(base, pickup, ret.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("longer quote failed: %v", err)
		}
		if longer.Total < b.Total {
			t.Fatalf("total decreased when extending: %d -> %d", b.Total, longer.Total)
		}
	})
}
