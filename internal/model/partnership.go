package model

import "time"

// Partnership statuses.
const (
	PartnershipPending  = "pending"
	PartnershipAccepted = "accepted"
)

// Partnership is an accountability-partner link. The requester invites
// by email; once accepted, both sides can read each other's progress.
type Partnership struct {
	ID            int64     `json:"id"`
	RequesterID   int64     `json:"requester_id"`
	ReceiverEmail string    `json:"receiver_email"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PartnershipRequest is an incoming request joined with the requester's
// display identity, for rendering in the requests list.
type PartnershipRequest struct {
	Partnership
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
}
