package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/availability"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/booking"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/catalog"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/controller/maintenance"
)

type C struct {
	Catalog      *catalog.Controller
	Availability *availability.Controller
	Booking      *booking.Controller
	Maintenance  *maintenance.Controller
	JWTSecret    string
}

func Register(e *echo.Echo, c C) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public: browsing and availability need no account.
	pub := e.Group("/v1")
	pub.GET("/packages", c.Catalog.List)
	pub.GET("/packages/:id", c.Catalog.Detail)
	pub.GET("/packages/:id/availability", c.Availability.Window)
	pub.GET("/availability/check", c.Availability.Check)

	// Authenticated
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
	}))

	authed.POST("/bookings", c.Booking.Create)
	authed.GET("/bookings/my", c.Booking.My)
	authed.GET("/bookings/:id", c.Booking.Get)
	authed.POST("/bookings/:id/cancel", c.Booking.Cancel)
	authed.POST("/bookings/:id/reschedule", c.Booking.Reschedule)

	// Staff workflow and ledger operations.
	admin := authed.Group("", AdminOnly())
	admin.POST("/bookings/:id/confirm", c.Booking.Confirm)
	admin.POST("/bookings/:id/pickup", c.Booking.Pickup)
	admin.POST("/bookings/:id/complete", c.Booking.Complete)
	admin.POST("/admin/maintenance/cleanup", c.Maintenance.Cleanup)
	admin.GET("/admin/maintenance/backup", c.Maintenance.Backup)
	admin.POST("/admin/maintenance/restore", c.Maintenance.Restore)
}
