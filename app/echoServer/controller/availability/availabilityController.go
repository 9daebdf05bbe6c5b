package availability

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
	avsvc "github.com/chokky-education/live-streaming-booking-system-2-sub001/service/availability"
)

type Controller struct {
	Svc avsvc.Service
	Log *slog.Logger
}

// GET /v1/packages/:id/availability?start=YYYY-MM-DD&end=YYYY-MM-DD&force_fresh=true
func (h *Controller) Window(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	start, end, ok := parseWindow(c)
	if !ok {
		return nil
	}
	forceFresh := c.QueryParam("force_fresh") == "true"

	w, err := h.Svc.Window(c.Request().Context(), id, start, end, forceFresh)
	if err != nil {
		return h.mapErr(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

// GET /v1/availability/check?package_id=N&start=YYYY-MM-DD&end=YYYY-MM-DD
//
// Advisory only: a positive answer can be stale the moment it is sent. The
// booking endpoint makes the binding decision.
func (h *Controller) Check(c echo.Context) error {
	id, err := strconv.ParseInt(c.QueryParam("package_id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid package_id"})
	}
	start, end, ok := parseWindow(c)
	if !ok {
		return nil
	}

	available, err := h.Svc.Check(c.Request().Context(), id, start, end)
	if err != nil {
		return h.mapErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"package_id": id,
		"start":      start.Format(model.DateFormat),
		"end":        end.Format(model.DateFormat),
		"available":  available,
	})
}

func parseWindow(c echo.Context) (start, end time.Time, ok bool) {
	start, err := time.Parse(model.DateFormat, c.QueryParam("start"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid start date"})
		return start, end, false
	}
	end, err = time.Parse(model.DateFormat, c.QueryParam("end"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid end date"})
		return start, end, false
	}
	return start, end, true
}

func (h *Controller) mapErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, avsvc.ErrBadWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date range"})
	case errors.Is(err, catalogrepo.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "package not found"})
	default:
		h.Log.Error("availability query", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
