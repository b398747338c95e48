package dto

import (
	"time"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/service"
)

// Result is the envelope every ticketing command returns. Exactly one of
// Data and Error is set.
type Result struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

func Fail(code, message string, details map[string]any) Result {
	return Result{Error: &ErrorBody{Code: code, Message: message, Details: details}}
}

type TicketResponse struct {
	RegistrationID string    `json:"registration_id"`
	TicketTypeID   string    `json:"ticket_type_id"`
	Token          string    `json:"token"`
	IssuedAt       time.Time `json:"issued_at"`
}

type CheckInResponse struct {
	RegistrationID string    `json:"registration_id"`
	HolderID       string    `json:"holder_id"`
	TicketTypeID   string    `json:"ticket_type_id"`
	CheckedInAt    time.Time `json:"checked_in_at"`
}

type CancelResponse struct {
	RegistrationID string    `json:"registration_id"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

type RegistrationResponse struct {
	ID           string                    `json:"id"`
	EventID      string                    `json:"event_id"`
	TicketTypeID string                    `json:"ticket_type_id"`
	UserID       string                    `json:"user_id"`
	Status       models.RegistrationStatus `json:"status"`
	Token        string                    `json:"token,omitempty"`
	CheckedInAt  *time.Time                `json:"checked_in_at,omitempty"`
	CheckedInBy  *string                   `json:"checked_in_by,omitempty"`
	CancelledAt  *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
}

func ToTicketResponse(r *service.IssueResult) TicketResponse {
	return TicketResponse{
		RegistrationID: r.RegistrationID,
		TicketTypeID:   r.TicketTypeID,
		Token:          r.Token,
		IssuedAt:       r.IssuedAt,
	}
}

func ToCheckInResponse(r *service.CheckInResult) CheckInResponse {
	return CheckInResponse{
		RegistrationID: r.RegistrationID,
		HolderID:       r.HolderID,
		TicketTypeID:   r.TicketTypeID,
		CheckedInAt:    r.CheckedInAt,
	}
}

func ToCancelResponse(r *service.CancelResult) CancelResponse {
	return CancelResponse{
		RegistrationID: r.RegistrationID,
		CancelledAt:    r.CancelledAt,
	}
}

func ToRegistrationResponse(v *service.RegistrationView) RegistrationResponse {
	reg := v.Registration
	return RegistrationResponse{
		ID:           reg.ID,
		EventID:      reg.EventID,
		TicketTypeID: reg.TicketTypeID,
		UserID:       reg.UserID,
		Status:       reg.Status,
		Token:        v.Token,
		CheckedInAt:  reg.CheckedInAt,
		CheckedInBy:  reg.CheckedInBy,
		CancelledAt:  reg.CancelledAt,
		CreatedAt:    reg.CreatedAt,
	}
}
