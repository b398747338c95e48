// Package command is the boundary between the ticketing services and their
// callers. Every call returns a dto.Result; no error or panic escapes.
package command

import (
	"context"
	"fmt"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/service"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	unexpectedMessage = "unexpected error"
	tracerName        = "github.com/Eursukkul/booking-microservice/ticketing-service/internal/command"
)

type Commands struct {
	issuance     service.IssuanceService
	checkIn      service.CheckInService
	cancellation service.CancellationService
	registration service.RegistrationService
	l            logger.Logger
	tracer       trace.Tracer
}

func New(
	issuance service.IssuanceService,
	checkIn service.CheckInService,
	cancellation service.CancellationService,
	registration service.RegistrationService,
	l logger.Logger,
) *Commands {
	return &Commands{
		issuance:     issuance,
		checkIn:      checkIn,
		cancellation: cancellation,
		registration: registration,
		l:            l,
		tracer:       otel.Tracer(tracerName),
	}
}

func (c *Commands) IssueTicket(ctx context.Context, in service.IssueInput) (res dto.Result) {
	ctx, span := c.tracer.Start(ctx, "command.IssueTicket")
	defer span.End()
	defer c.recover(ctx, "IssueTicket", &res)

	out, err := c.issuance.Issue(ctx, in)
	if err != nil {
		return c.fail(ctx, "IssueTicket", err)
	}
	return dto.OK(dto.ToTicketResponse(out))
}

func (c *Commands) CheckInTicket(ctx context.Context, in service.CheckInInput) (res dto.Result) {
	ctx, span := c.tracer.Start(ctx, "command.CheckInTicket")
	defer span.End()
	defer c.recover(ctx, "CheckInTicket", &res)

	out, err := c.checkIn.CheckIn(ctx, in)
	if err != nil {
		return c.fail(ctx, "CheckInTicket", err)
	}
	return dto.OK(dto.ToCheckInResponse(out))
}

func (c *Commands) CancelRegistration(ctx context.Context, in service.CancelInput) (res dto.Result) {
	ctx, span := c.tracer.Start(ctx, "command.CancelRegistration")
	defer span.End()
	defer c.recover(ctx, "CancelRegistration", &res)

	out, err := c.cancellation.Cancel(ctx, in)
	if err != nil {
		return c.fail(ctx, "CancelRegistration", err)
	}
	return dto.OK(dto.ToCancelResponse(out))
}

func (c *Commands) GetRegistration(ctx context.Context, id string, reader identity.Principal) (res dto.Result) {
	ctx, span := c.tracer.Start(ctx, "command.GetRegistration")
	defer span.End()
	defer c.recover(ctx, "GetRegistration", &res)

	out, err := c.registration.Get(ctx, id, reader)
	if err != nil {
		return c.fail(ctx, "GetRegistration", err)
	}
	return dto.OK(dto.ToRegistrationResponse(out))
}

// fail converts err into a failed Result. Expected outcomes go back as-is;
// store and unclassified failures are logged and masked.
func (c *Commands) fail(ctx context.Context, op string, err error) dto.Result {
	span := trace.SpanFromContext(ctx)

	appErr, ok := apperror.As(err)
	if ok && apperror.Expected(err) {
		c.l.Debugf(ctx, "command.%s: %s: %s", op, appErr.Code, appErr.Message)
		span.SetAttributes(attribute.String("ticketing.error_code", string(appErr.Code)))
		return dto.Fail(string(appErr.Code), appErr.Message, appErr.Details)
	}

	c.l.Errorf(ctx, "command.%s: %v", op, err)
	code := apperror.CodeInternal
	if ok {
		code = appErr.Code
	}
	span.SetAttributes(attribute.String("ticketing.error_code", string(code)))
	span.RecordError(err)
	span.SetStatus(codes.Error, unexpectedMessage)
	return dto.Fail(string(code), unexpectedMessage, nil)
}

func (c *Commands) recover(ctx context.Context, op string, res *dto.Result) {
	if r := recover(); r != nil {
		*res = c.fail(ctx, op, fmt.Errorf("panic: %v", r))
	}
}
