package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID              uuid.UUID        `json:"id" db:"notification_id"`
	Type            NotificationType `json:"type" db:"type"`
	RecipientEmail  string           `json:"recipient_email" db:"recipient_email"`
	RequesterEmail  string           `json:"requester_email" db:"requester_email"`
	RequesterName   string           `json:"requester_name" db:"requester_name"`
	RequesterMobile *string          `json:"requester_mobile,omitempty" db:"requester_mobile"`
	RequestID       *uuid.UUID       `json:"request_id,omitempty" db:"request_id"`
	OfferID         *uuid.UUID       `json:"offer_id,omitempty" db:"offer_id"`
	Message         string           `json:"message" db:"message"`
	BloodType       string           `json:"blood_type" db:"blood_type"`
	Units           *int             `json:"units,omitempty" db:"units"`
	Urgency         string           `json:"urgency" db:"urgency"`
	IsRead          bool             `json:"read" db:"is_read"`
	ReadAt          *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt       time.Time        `json:"date" db:"created_at"`
}

type NotificationType string

const (
	NotifRequest   NotificationType = "request"
	NotifResponse  NotificationType = "response"
	NotifDecline   NotificationType = "decline"
	NotifEmergency NotificationType = "emergency"
	NotifOffer     NotificationType = "offer"
	NotifClaim     NotificationType = "claim"
)

// NotApplicable fills blood type and urgency on notifications that carry no request details.
const NotApplicable = "N/A"

// NotificationTemplate is one event to be delivered to many recipients.
// ActorEmail is never notified.
type NotificationTemplate struct {
	Type            NotificationType
	ActorEmail      string
	RequesterEmail  string
	RequesterName   string
	RequesterMobile *string
	RequestID       *uuid.UUID
	OfferID         *uuid.UUID
	Message         string
	BloodType       string
	Units           *int
	Urgency         string
}

// For builds the notification delivered to recipient.
func (t NotificationTemplate) For(recipient string) *Notification {
	bloodType := t.BloodType
	if bloodType == "" {
		bloodType = NotApplicable
	}
	urgency := t.Urgency
	if urgency == "" {
		urgency = NotApplicable
	}
	return &Notification{
		ID:              uuid.New(),
		Type:            t.Type,
		RecipientEmail:  recipient,
		RequesterEmail:  t.RequesterEmail,
		RequesterName:   t.RequesterName,
		RequesterMobile: t.RequesterMobile,
		RequestID:       t.RequestID,
		OfferID:         t.OfferID,
		Message:         t.Message,
		BloodType:       bloodType,
		Units:           t.Units,
		Urgency:         urgency,
	}
}
