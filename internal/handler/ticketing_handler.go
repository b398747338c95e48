package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/service"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

type Commands interface {
	IssueTicket(ctx context.Context, in service.IssueInput) dto.Result
	CheckInTicket(ctx context.Context, in service.CheckInInput) dto.Result
	CancelRegistration(ctx context.Context, in service.CancelInput) dto.Result
	GetRegistration(ctx context.Context, id string, reader identity.Principal) dto.Result
}

type TicketingHandler struct {
	cmds Commands
}

func NewTicketingHandler(cmds Commands) *TicketingHandler {
	return &TicketingHandler{cmds: cmds}
}

func (h *TicketingHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1", auth)
	api.POST("/events/:id/tickets", h.IssueTicket)
	api.POST("/events/:id/check-ins", h.CheckIn)
	api.GET("/registrations/:id", h.GetRegistration)
	api.DELETE("/registrations/:id", h.CancelRegistration)
}

func (h *TicketingHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TicketingHandler) IssueTicket(c echo.Context) error {
	p, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return respond(c, unauthenticated())
	}

	var req dto.IssueTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res := h.cmds.IssueTicket(c.Request().Context(), service.IssueInput{
		EventID:      c.Param("id"),
		UserID:       p.UserID,
		TicketTypeID: req.TicketTypeID,
	})
	if res.Success {
		return c.JSON(http.StatusCreated, res)
	}
	return respond(c, res)
}

func (h *TicketingHandler) CheckIn(c echo.Context) error {
	p, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return respond(c, unauthenticated())
	}

	var req dto.CheckInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	return respond(c, h.cmds.CheckInTicket(c.Request().Context(), service.CheckInInput{
		Token:   req.Token,
		EventID: c.Param("id"),
		Staff:   p,
	}))
}

func (h *TicketingHandler) CancelRegistration(c echo.Context) error {
	p, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return respond(c, unauthenticated())
	}

	return respond(c, h.cmds.CancelRegistration(c.Request().Context(), service.CancelInput{
		RegistrationID: c.Param("id"),
		Requester:      p,
	}))
}

func (h *TicketingHandler) GetRegistration(c echo.Context) error {
	p, ok := identity.FromContext(c.Request().Context())
	if !ok {
		return respond(c, unauthenticated())
	}

	return respond(c, h.cmds.GetRegistration(c.Request().Context(), c.Param("id"), p))
}

func respond(c echo.Context, res dto.Result) error {
	return c.JSON(StatusFor(res), res)
}

func unauthenticated() dto.Result {
	return dto.Fail(string(apperror.CodeUnauthenticated), "authentication required", nil)
}

// StatusFor picks the HTTP status for a command result from its error code.
// Named business rules that are not listed map to 422.
func StatusFor(res dto.Result) int {
	if res.Success || res.Error == nil {
		return http.StatusOK
	}
	switch apperror.Code(res.Error.Code) {
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperror.CodeUnauthorized:
		return http.StatusForbidden
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeDuplicateRegistration:
		return http.StatusConflict
	case apperror.CodeDatabase, apperror.CodeConfiguration, apperror.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
