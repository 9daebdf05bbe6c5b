package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	catalogrepo "github.com/chokky-education/live-streaming-booking-system-2-sub001/repository/catalog"
)

type Controller struct {
	Repo catalogrepo.Repo
	Log  *slog.Logger
}

// GET /v1/packages
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Repo.ListActive(c.Request().Context())
	if err != nil {
		h.Log.Error("package list error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/packages/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Repo.GetPackage(c.Request().Context(), id)
	if errors.Is(err, catalogrepo.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "package not found"})
	}
	if err != nil {
		h.Log.Error("package detail error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, row)
}
