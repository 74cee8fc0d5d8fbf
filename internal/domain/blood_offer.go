package domain

import (
	"time"

	"github.com/google/uuid"
)

type BloodOffer struct {
	ID             uuid.UUID    `json:"id" db:"offer_id"`
	CreatorEmail   string       `json:"creator_email" db:"creator_email"`
	CreatorName    string       `json:"creator_name" db:"creator_name"`
	BloodType      string       `json:"blood_type" db:"blood_type"`
	DonationType   DonationType `json:"donation_type" db:"donation_type"`
	Units          int          `json:"units" db:"units"`
	Message        string       `json:"message" db:"message"`
	Status         OfferStatus  `json:"status" db:"status"`
	ClaimedByEmail *string      `json:"claimed_by_email,omitempty" db:"claimed_by_email"`
	ClaimedByName  *string      `json:"claimed_by_name,omitempty" db:"claimed_by_name"`
	ClaimedAt      *time.Time   `json:"claimed_at,omitempty" db:"claimed_at"`
	CreatedAt      time.Time    `json:"date" db:"created_at"`
}

type OfferStatus string

const (
	OfferAvailable OfferStatus = "Available"
	OfferClaimed   OfferStatus = "Claimed"
)

type OfferClaim struct {
	Email string
	Name  string
}

type CreateOfferInput struct {
	BloodType    string       `json:"blood_type" validate:"required"`
	DonationType DonationType `json:"donation_type" validate:"required"`
	Units        int          `json:"units" validate:"required,gt=0"`
	Message      string       `json:"message"`
}

// ClaimResult reports the outcome of a claim attempt. A lost race is not an error:
// Claimed is false and Status carries the stored status.
type ClaimResult struct {
	Claimed bool        `json:"claimed"`
	Status  OfferStatus `json:"status"`
	Offer   *BloodOffer `json:"offer,omitempty"`
}
