// Package main booking API.
//
// @title           Streaming Equipment Booking API
// @version         1.0
// @description     Rental package catalog, availability ledger and bookings.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer"
	availabilityctrl "github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/availability"
	bookingctrl "github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/booking"
	catalogctrl "github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/catalog"
	maintenancectrl "github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/maintenance"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/validation"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/config"
	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
	holidayrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/holiday"
	ledgerrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/ledger"
	availabilitysvc "github.com/chokky-education/live-streaming-booking-system-2-sub001/service/availability"
	bookingsvc "github.com/chokky-education/live-streaming-booking-system-2-sub001/service/booking"
	maintenancesvc "github.com/chokky-education/live-streaming-booking-system-2-sub001/service/maintenance"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/service/pricing"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	// repos
	cr := catalogrepo.New(db)
	store := ledgerrepo.New(db)

	// pricing, with holidays from config plus the optional remote feed
	calc, err := pricing.New(cfg.Pricing)
	if err != nil {
		log.Error("bad pricing config", "err", err)
		os.Exit(1)
	}
	if cfg.HolidayAPIKey != "" {
		loadHolidays(ctx, log, calc, cfg.HolidayAPIKey)
	}

	// services
	avs := availabilitysvc.New(cr, store, cfg.CacheTTL)
	bks := bookingsvc.New(cr, store, calc, avs)
	mts := maintenancesvc.New(store, log, cfg.CleanupRetentionDays, cfg.CleanupBatchSize)

	// controllers
	v := validator.New()
	catalogC := &catalogctrl.Controller{Repo: cr, Log: log}
	availabilityC := &availabilityctrl.Controller{Svc: avs, Log: log}
	bookingC := &bookingctrl.Controller{Svc: bks, V: v, Log: log}
	maintenanceC := &maintenancectrl.Controller{Svc: mts, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	echoServer.Register(e, echoServer.C{
		Catalog:      catalogC,
		Availability: availabilityC,
		Booking:      bookingC,
		Maintenance:  maintenanceC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}

// loadHolidays merges this year's and next year's public holidays into the
// surcharge calendar. Failures are logged and skipped; the static HOLIDAYS
// list still applies.
func loadHolidays(ctx context.Context, log *slog.Logger, calc *pricing.Calculator, apiKey string) {
	country := os.Getenv("HOLIDAY_COUNTRY")
	if country == "" {
		country = "JP"
	}
	repo := holidayrepo.NewHTTP(apiKey)

	fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	year := time.Now().Year()
	for _, y := range []int{year, year + 1} {
		days, err := repo.FetchYear(fctx, country, y)
		if err != nil {
			log.Warn("holiday fetch failed", "country", country, "year", y, "err", err)
			continue
		}
		calc.AddHolidays(days)
		log.Info("holidays loaded", "country", country, "year", y, "count", len(days))
	}
}
