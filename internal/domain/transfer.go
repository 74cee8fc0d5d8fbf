package domain

import (
	"time"

	"github.com/google/uuid"
)

type Transfer struct {
	ID           uuid.UUID    `json:"id" db:"transfer_id"`
	Source       string       `json:"source" db:"source"`
	Destination  string       `json:"destination" db:"destination"`
	BloodType    string       `json:"blood_type" db:"blood_type"`
	DonationType DonationType `json:"donation_type" db:"donation_type"`
	Units        int          `json:"units" db:"units"`
	Date         time.Time    `json:"date" db:"transfer_date"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

type CreateTransferInput struct {
	Source       string       `json:"source"`
	Destination  string       `json:"destination" validate:"required"`
	BloodType    string       `json:"blood_type" validate:"required"`
	DonationType DonationType `json:"donation_type" validate:"required"`
	Units        int          `json:"units" validate:"required,gt=0"`
	Date         *time.Time   `json:"date,omitempty"`
}

type UpdateTransferInput struct {
	Destination  *string       `json:"destination,omitempty"`
	BloodType    *string       `json:"blood_type,omitempty"`
	DonationType *DonationType `json:"donation_type,omitempty"`
	Units        *int          `json:"units,omitempty"`
	Date         *time.Time    `json:"date,omitempty"`
}
