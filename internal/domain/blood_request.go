package domain

import (
	"time"

	"github.com/google/uuid"
)

type BloodRequest struct {
	ID             uuid.UUID     `json:"id" db:"request_id"`
	Kind           RequestKind   `json:"kind" db:"kind"`
	RequesterEmail string        `json:"requester_email" db:"requester_email"`
	RecipientEmail *string       `json:"recipient_email,omitempty" db:"recipient_email"`
	BloodType      string        `json:"blood_type" db:"blood_type"`
	DonationType   DonationType  `json:"donation_type" db:"donation_type"`
	Units          int           `json:"units" db:"units"`
	Urgency        Urgency       `json:"urgency" db:"urgency"`
	Status         RequestStatus `json:"status" db:"status"`
	ResponderEmail *string       `json:"responder_email,omitempty" db:"responder_email"`
	Message        *string       `json:"message,omitempty" db:"message"`
	CreatedAt      time.Time     `json:"date" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

type RequestKind string

const (
	RequestBroadcast RequestKind = "broadcast"
	RequestDirect    RequestKind = "direct"
	RequestEmergency RequestKind = "emergency"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "Pending"
	RequestInProgress RequestStatus = "In Progress"
	RequestFulfilled  RequestStatus = "Fulfilled"
	RequestDeclined   RequestStatus = "Declined"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestInProgress, RequestFulfilled, RequestDeclined:
		return true
	default:
		return false
	}
}

type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	default:
		return false
	}
}

// RequestPatch is applied by a conditional status transition.
type RequestPatch struct {
	Status         RequestStatus
	ResponderEmail *string
}

type RequestFilter struct {
	RequesterEmail string
	ResponderEmail string
	Status         *RequestStatus
}

type CreateRequestInput struct {
	BloodType    string       `json:"blood_type" validate:"required"`
	DonationType DonationType `json:"donation_type" validate:"required"`
	Units        int          `json:"units" validate:"required,gt=0"`
	Urgency      Urgency      `json:"urgency" validate:"required"`
}

type CreateDirectRequestInput struct {
	RecipientEmail string       `json:"recipient_email" validate:"required,email"`
	BloodType      string       `json:"blood_type" validate:"required"`
	DonationType   DonationType `json:"donation_type" validate:"required"`
	Units          int          `json:"units" validate:"required,gt=0"`
	Urgency        Urgency      `json:"urgency" validate:"required"`
}

type EmergencyInput struct {
	Message   string `json:"message" validate:"required"`
	BloodType string `json:"blood_type,omitempty"`
}

type DeclineInput struct {
	NotificationID *uuid.UUID `json:"notification_id,omitempty"`
	Reason         string     `json:"reason"`
}
