package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/maix-platform/registration-service/internal/dto"
	"github.com/maix-platform/registration-service/internal/models"
	"github.com/maix-platform/registration-service/internal/repository"
	"github.com/maix-platform/registration-service/internal/service"
)

// userIDHeader carries the authenticated requester identity, set by the
// platform gateway. An absent header means an anonymous caller.
const userIDHeader = "X-User-ID"

const defaultListLimit = 50

type RegistrationHandler struct {
	svc       service.RegistrationService
	eventRepo repository.EventRepository
}

func NewRegistrationHandler(svc service.RegistrationService, eventRepo repository.EventRepository) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, eventRepo: eventRepo}
}

func (h *RegistrationHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.GET("/:id/status", h.GetEventStatus)
	events.POST("/:id/registrations", h.CreateRegistration)
	events.GET("/:id/registrations", h.ListRegistrations)
	events.GET("/:id/registrations/stats", h.GetRegistrationStats)
	events.GET("/:id/registrations/lookup", h.LookupRegistration)

	e.GET("/api/v1/registrations/:id", h.GetRegistration)
	e.PATCH("/api/v1/registrations/:id", h.UpdateRegistration)
	e.DELETE("/api/v1/registrations/:id", h.CancelRegistration)
}

func requesterID(c echo.Context) *string {
	if id := c.Request().Header.Get(userIDHeader); id != "" {
		return &id
	}
	return nil
}

func parseID(c echo.Context, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+what+" id")
	}
	return uint(id), nil
}

func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrRegistrationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrPrivateEvent):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDuplicateRegistration),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrCapacityExceeded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEventNotAccepting):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *RegistrationHandler) CreateRegistration(c echo.Context) error {
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	var req dto.CreateRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	reg, err := h.svc.CreateRegistration(c.Request().Context(), eventID, service.CreateRegistrationInput{
		Name:   req.Name,
		Email:  req.Email,
		Notes:  req.Notes,
		UserID: requesterID(c),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) UpdateRegistration(c echo.Context) error {
	regID, err := parseID(c, "registration")
	if err != nil {
		return err
	}

	requester := requesterID(c)
	if requester == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing "+userIDHeader+" header")
	}

	var req dto.UpdateRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var input service.UpdateRegistrationInput
	if req.Status != nil {
		status := models.RegistrationStatus(strings.ToUpper(*req.Status))
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid registration status")
		}
		input.Status = &status
	}
	input.Notes = req.Notes

	reg, err := h.svc.UpdateRegistration(c.Request().Context(), *requester, regID, input)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) CancelRegistration(c echo.Context) error {
	regID, err := parseID(c, "registration")
	if err != nil {
		return err
	}

	input := service.CancelRegistrationInput{UserID: requesterID(c)}
	if email := c.QueryParam("email"); email != "" {
		input.Email = &email
	}
	if input.Email == nil && input.UserID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "email or requester identity is required")
	}

	reg, err := h.svc.CancelRegistration(c.Request().Context(), regID, input)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) GetRegistration(c echo.Context) error {
	id, err := parseID(c, "registration")
	if err != nil {
		return err
	}

	reg, err := h.svc.GetRegistration(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) LookupRegistration(c echo.Context) error {
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	email := c.QueryParam("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	reg, err := h.svc.GetRegistrationByEmail(c.Request().Context(), eventID, email)
	if err != nil {
		return toHTTPError(err)
	}
	if reg == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no active registration for this email")
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) ListRegistrations(c echo.Context) error {
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	requester := requesterID(c)
	if requester == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing "+userIDHeader+" header")
	}

	var statuses []models.RegistrationStatus
	for _, s := range c.QueryParams()["status"] {
		status := models.RegistrationStatus(strings.ToUpper(s))
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid registration status: "+s)
		}
		statuses = append(statuses, status)
	}

	limit := defaultListLimit
	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
	}

	regs, total, err := h.svc.ListEventRegistrations(c.Request().Context(), *requester, eventID, service.ListFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.RegistrationListResponse{
		Registrations: make([]dto.RegistrationResponse, len(regs)),
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}
	for i, r := range regs {
		resp.Registrations[i] = dto.ToRegistrationResponse(&r)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) GetRegistrationStats(c echo.Context) error {
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	stats, err := h.svc.GetRegistrationStats(c.Request().Context(), eventID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *RegistrationHandler) GetEventStatus(c echo.Context) error {
	eventID, err := parseID(c, "event")
	if err != nil {
		return err
	}

	event, err := h.eventRepo.FindByID(c.Request().Context(), eventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	}

	stats, err := h.svc.GetRegistrationStats(c.Request().Context(), eventID)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.EventStatusResponse{
		ID:             event.ID,
		Title:          event.Title,
		Status:         event.Status,
		IsPublic:       event.IsPublic,
		OrganizationID: event.OrganizationID,
		Capacity:       event.Capacity,
		Confirmed:      stats.Confirmed,
		Waitlisted:     stats.Waitlisted,
	}
	if event.Capacity != nil {
		available := int64(*event.Capacity) - stats.Confirmed
		if available < 0 {
			available = 0
		}
		resp.SpotsAvailable = &available
	}

	return c.JSON(http.StatusOK, resp)
}
