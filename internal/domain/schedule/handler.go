package schedule

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/slotgrid"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

// Handler exposes the schedule manager over HTTP. It owns payload
// validation (required booking fields, date format) so the service only
// reasons about temporal overlap.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/schedule/grid", h.GetGrid)
	api.GET("/schedule/day", h.GetDayView)

	api.POST("/appointments/check", h.CheckBooking)
	api.POST("/appointments", h.ProposeBooking)
	api.POST("/appointments/proposals/:id/confirm", h.ConfirmBooking)
	api.POST("/appointments/proposals/:id/abandon", h.AbandonBooking)

	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.DELETE("/appointments/:id", h.CancelAppointment)
	api.POST("/appointments/:id/move", h.MoveAppointment)
}

// GetGrid handles GET /schedule/grid.
func (h *Handler) GetGrid(c echo.Context) error {
	g := h.svc.Grid()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"labels":       g.Labels(),
		"close":        g.Close(),
		"slot_minutes": g.SlotMinutes(),
	})
}

// GetDayView handles GET /schedule/day.
func (h *Handler) GetDayView(c echo.Context) error {
	date := c.QueryParam("date")
	if err := validDate(date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rows, err := h.svc.DayView(c.Request().Context(), date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}

// checkRequest is the JSON body for the conflict check endpoint.
type checkRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CheckBooking handles POST /appointments/check.
func (h *Handler) CheckBooking(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validDate(req.Date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.CheckBooking(c.Request().Context(), req.Date, req.StartTime, req.EndTime)
	if err != nil {
		if errors.Is(err, slotgrid.ErrUnknownLabel) || errors.Is(err, slotgrid.ErrInvalidInterval) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// ProposeBooking handles POST /appointments. A booking on an empty day
// commits immediately (201); one on a day with existing appointments comes
// back 202 with the conflict report and a proposal token.
func (h *Handler) ProposeBooking(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validBooking(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	decision, err := h.svc.ProposeBooking(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, slotgrid.ErrUnknownLabel) || errors.Is(err, slotgrid.ErrInvalidInterval) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if decision.State == StateAutoAccepted {
		return c.JSON(http.StatusCreated, decision)
	}
	return c.JSON(http.StatusAccepted, decision)
}

// ConfirmBooking handles POST /appointments/proposals/:id/confirm.
func (h *Handler) ConfirmBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid proposal id")
	}
	appt, err := h.svc.ConfirmBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrProposalNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

// AbandonBooking handles POST /appointments/proposals/:id/abandon.
// Abandoning is idempotent: stale tokens succeed with no effect.
func (h *Handler) AbandonBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid proposal id")
	}
	h.svc.AbandonBooking(c.Request().Context(), id)
	return c.NoContent(http.StatusNoContent)
}

// ListAppointments handles GET /appointments. With a date param it returns
// that day's appointments ordered by start time; without, a paginated list.
func (h *Handler) ListAppointments(c echo.Context) error {
	if date := c.QueryParam("date"); date != "" {
		if err := validDate(date); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		items, err := h.svc.ListByDate(c.Request().Context(), date)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, items)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// GetAppointment handles GET /appointments/:id.
func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

// UpdateAppointment handles PUT /appointments/:id (full replacement).
func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if a.PatientName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_name is required")
	}
	updated, err := h.svc.UpdateAppointment(c.Request().Context(), &a)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

// CancelAppointment handles DELETE /appointments/:id.
func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.CancelAppointment(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// moveRequest is the JSON body for the move endpoint. The caller sends a
// resolved slot label, never a pixel offset.
type moveRequest struct {
	NewStartTime string `json:"new_start_time"`
}

// MoveAppointment handles POST /appointments/:id/move. A stale id is a
// no-op answered with 204, matching the drag-gesture contract.
func (h *Handler) MoveAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	moved, err := h.svc.Move(c.Request().Context(), id, req.NewStartTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if moved == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, moved)
}

func validDate(date string) error {
	if date == "" {
		return errors.New("date is required")
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return errors.New("date must be formatted YYYY-MM-DD")
	}
	return nil
}

func validBooking(req BookingRequest) error {
	if req.PatientName == "" {
		return errors.New("patient_name is required")
	}
	if req.StartTime == "" || req.EndTime == "" {
		return errors.New("start_time and end_time are required")
	}
	return validDate(req.Date)
}
