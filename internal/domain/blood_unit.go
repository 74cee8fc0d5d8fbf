package domain

import (
	"time"

	"github.com/google/uuid"
)

type DonationType string

const (
	DonationWholeBlood    DonationType = "whole_blood"
	DonationPlasma        DonationType = "plasma"
	DonationRedBloodCells DonationType = "red_blood_cells"
)

func (t DonationType) IsValid() bool {
	switch t {
	case DonationWholeBlood, DonationPlasma, DonationRedBloodCells:
		return true
	default:
		return false
	}
}

// ExpirationDate derives a unit's expiry from its collection date.
// Whole blood and red blood cells keep 42 days, plasma 365 days.
func ExpirationDate(collectionDate time.Time, t DonationType) time.Time {
	if t == DonationPlasma {
		return collectionDate.AddDate(0, 0, 365)
	}
	return collectionDate.AddDate(0, 0, 42)
}

var bloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

func IsValidBloodType(t string) bool {
	return bloodTypes[t]
}

// BloodUnit is one inventory lot owned by the facility in Location.
type BloodUnit struct {
	ID             uuid.UUID    `json:"id" db:"unit_id"`
	BloodType      string       `json:"blood_type" db:"blood_type"`
	DonationType   DonationType `json:"donation_type" db:"donation_type"`
	Units          int          `json:"units" db:"units"`
	CollectionDate time.Time    `json:"collection_date" db:"collection_date"`
	ExpirationDate time.Time    `json:"expiration_date" db:"expiration_date"`
	Location       string       `json:"location" db:"location"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

type CreateBloodUnitInput struct {
	BloodType      string       `json:"blood_type" validate:"required"`
	DonationType   DonationType `json:"donation_type" validate:"required"`
	Units          int          `json:"units" validate:"required,gt=0"`
	CollectionDate time.Time    `json:"collection_date" validate:"required"`
}

type UpdateBloodUnitInput struct {
	BloodType      *string       `json:"blood_type,omitempty"`
	DonationType   *DonationType `json:"donation_type,omitempty"`
	Units          *int          `json:"units,omitempty"`
	CollectionDate *time.Time    `json:"collection_date,omitempty"`
}

// FacilityAvailability is a facility listed by blood type search.
type FacilityAvailability struct {
	Email               string           `json:"email"`
	Name                string           `json:"name"`
	Role                UserRole         `json:"role"`
	Region              *string          `json:"region,omitempty"`
	Mobile              *string          `json:"mobile,omitempty"`
	AvailableBloodTypes []string         `json:"available_blood_types"`
	InventorySummary    InventorySummary `json:"inventory_summary"`
}
