package booking

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/app/echoServer/jwtx"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	bs "github.com/chokky-education/live-streaming-booking-system-2-sub001/service/booking"
)

type Controller struct {
	Svc bs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/bookings
func (h *Controller) Create(c echo.Context) error {
	var req CreateBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	pickup, _ := time.Parse(model.DateFormat, req.PickupDate)
	ret, _ := time.Parse(model.DateFormat, req.ReturnDate)

	b, quote, err := h.Svc.Reserve(c.Request().Context(), uid, bs.ReserveInput{
		PackageID:  req.PackageID,
		PickupDate: pickup,
		ReturnDate: ret,
		PickupTime: req.PickupTime,
		ReturnTime: req.ReturnTime,
		Location:   req.Location,
		Notes:      req.Notes,
	})
	if err != nil {
		if bs.Code(err) == bs.ErrCapacityConflict {
			// Conflicts are expected under load; keep the actor and window
			// visible for capacity planning.
			h.Log.Warn("booking capacity conflict",
				"user_id", uid,
				"package_id", req.PackageID,
				"pickup_date", req.PickupDate,
				"return_date", req.ReturnDate)
		} else {
			h.Log.Error("booking create", "err", err)
		}
		return h.mapErr(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"booking": b,
		"pricing": quote,
	})
}

// GET /v1/bookings/my
func (h *Controller) My(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := h.Svc.ListMine(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("booking list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/bookings/:id
func (h *Controller) Get(c echo.Context) error {
	uid, id, ok := h.actorAndID(c)
	if !ok {
		return nil
	}
	b, err := h.Svc.Get(c.Request().Context(), uid, jwtx.IsAdmin(c), id)
	if err != nil {
		return h.mapErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	uid, id, ok := h.actorAndID(c)
	if !ok {
		return nil
	}
	if err := h.Svc.Cancel(c.Request().Context(), uid, jwtx.IsAdmin(c), id); err != nil {
		return h.mapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
}

// POST /v1/bookings/:id/reschedule
func (h *Controller) Reschedule(c echo.Context) error {
	uid, id, ok := h.actorAndID(c)
	if !ok {
		return nil
	}
	var req RescheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	pickup, _ := time.Parse(model.DateFormat, req.PickupDate)
	ret, _ := time.Parse(model.DateFormat, req.ReturnDate)

	b, err := h.Svc.Reschedule(c.Request().Context(), uid, jwtx.IsAdmin(c), id, pickup, ret, req.PickupTime, req.ReturnTime)
	if err != nil {
		if bs.Code(err) == bs.ErrCapacityConflict {
			h.Log.Warn("reschedule capacity conflict",
				"user_id", uid,
				"booking_id", id,
				"pickup_date", req.PickupDate,
				"return_date", req.ReturnDate)
		}
		return h.mapErr(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/confirm  (admin)
func (h *Controller) Confirm(c echo.Context) error {
	return h.staffTransition(c, h.Svc.Confirm, "confirmed")
}

// POST /v1/bookings/:id/pickup  (admin)
func (h *Controller) Pickup(c echo.Context) error {
	return h.staffTransition(c, h.Svc.MarkPickedUp, "picked_up")
}

// POST /v1/bookings/:id/complete  (admin)
func (h *Controller) Complete(c echo.Context) error {
	return h.staffTransition(c, h.Svc.Complete, "completed")
}

func (h *Controller) staffTransition(c echo.Context, op func(ctx context.Context, bookingID int64) error, msg string) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := op(c.Request().Context(), id); err != nil {
		h.Log.Error("booking transition", "target", msg, "booking_id", id, "err", err)
		return h.mapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// actorAndID pulls the authenticated user and the path id. On failure the
// response has already been written and ok is false.
func (h *Controller) actorAndID(c echo.Context) (uid, id int64, ok bool) {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		return 0, 0, false
	}
	id, err = strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
		return 0, 0, false
	}
	return uid, id, true
}

func (h *Controller) mapErr(c echo.Context, err error) error {
	switch bs.Code(err) {
	case bs.ErrInvalidRange:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date range"})
	case bs.ErrPackageNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "package not found"})
	case bs.ErrPackageInactive:
		return c.JSON(http.StatusConflict, echo.Map{"message": "package inactive"})
	case bs.ErrCapacityConflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": "no availability for requested dates"})
	case bs.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "booking not found"})
	case bs.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	case bs.ErrBadStatus:
		return c.JSON(http.StatusConflict, echo.Map{"message": "booking status does not allow this"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
