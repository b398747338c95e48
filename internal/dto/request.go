package dto

type IssueTicketRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
}

type CheckInRequest struct {
	Token string `json:"token"`
}
