package maintenance

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	ms "github.com/chokky-education/live-streaming-booking-system-2-sub001/service/maintenance"
)

type Controller struct {
	Svc ms.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CleanupReq struct {
	RetentionDays int  `json:"retention_days" validate:"omitempty,gte=1,lte=3650"`
	DryRun        bool `json:"dry_run"`
}

// POST /v1/admin/maintenance/cleanup
func (h *Controller) Cleanup(c echo.Context) error {
	var req CleanupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	rep, err := h.Svc.Cleanup(c.Request().Context(), req.RetentionDays, req.DryRun)
	if err != nil {
		h.Log.Error("ledger cleanup", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, rep)
}

// GET /v1/admin/maintenance/backup
func (h *Controller) Backup(c echo.Context) error {
	export, err := h.Svc.Backup(c.Request().Context())
	if err != nil {
		h.Log.Error("ledger backup", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, export)
}

// POST /v1/admin/maintenance/restore
func (h *Controller) Restore(c echo.Context) error {
	var export model.LedgerExport
	if err := c.Bind(&export); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}

	n, err := h.Svc.Restore(c.Request().Context(), &export)
	if err != nil {
		h.Log.Error("ledger restore", "err", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"restored": n})
}
