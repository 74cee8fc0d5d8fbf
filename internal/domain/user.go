package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"user_id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"full_name" db:"full_name"`
	Mobile       *string    `json:"mobile,omitempty" db:"mobile"`
	Region       *string    `json:"region,omitempty" db:"region"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	BloodType    *string    `json:"blood_type,omitempty" db:"blood_type"`

	// Derived from the facility's blood units. Written only by the inventory aggregator.
	AvailableBloodTypes pq.StringArray   `json:"available_blood_types,omitempty" db:"available_blood_types"`
	InventorySummary    InventorySummary `json:"inventory_summary" db:"inventory_summary"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type UserRole string

const (
	RoleDonor      UserRole = "Donor"
	RoleIndividual UserRole = "Individual"
	RoleHospital   UserRole = "Hospital"
	RoleBloodBank  UserRole = "BloodBank"
	RoleAdmin      UserRole = "Admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleDonor, RoleIndividual, RoleHospital, RoleBloodBank, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsFacility reports whether the role owns blood inventory.
func (r UserRole) IsFacility() bool {
	return r == RoleHospital || r == RoleBloodBank
}

type UserStatus string

const (
	UserActive UserStatus = "active"
	UserBanned UserStatus = "banned"
)

func (s UserStatus) IsValid() bool {
	return s == UserActive || s == UserBanned
}

func (u *User) IsActive() bool {
	return u.Status == UserActive
}

func (u *User) IsFacility() bool {
	return u.Role.IsFacility()
}

func (u *User) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// InventorySummary holds unit totals per donation type.
type InventorySummary struct {
	WholeBlood    int `json:"whole_blood"`
	Plasma        int `json:"plasma"`
	RedBloodCells int `json:"red_blood_cells"`
}

func (s *InventorySummary) Add(t DonationType, units int) {
	switch t {
	case DonationWholeBlood:
		s.WholeBlood += units
	case DonationPlasma:
		s.Plasma += units
	case DonationRedBloodCells:
		s.RedBloodCells += units
	}
}

func (s InventorySummary) Total() int {
	return s.WholeBlood + s.Plasma + s.RedBloodCells
}

// SummarizeUnits folds units into per donation type totals and the sorted set of blood types present.
func SummarizeUnits(units []BloodUnit) (InventorySummary, []string) {
	var summary InventorySummary
	seen := make(map[string]struct{})
	for _, u := range units {
		summary.Add(u.DonationType, u.Units)
		seen[u.BloodType] = struct{}{}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return summary, types
}

func (s InventorySummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *InventorySummary) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = InventorySummary{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("inventory_summary: unsupported scan type")
	}
}

type CreateUserInput struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	FullName  string   `json:"full_name" validate:"required,min=2"`
	Mobile    *string  `json:"mobile,omitempty"`
	Region    *string  `json:"region,omitempty"`
	Role      UserRole `json:"role" validate:"required"`
	BloodType *string  `json:"blood_type,omitempty"`
}

type UpdateUserInput struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=2"`
	Mobile    *string `json:"mobile,omitempty"`
	Region    *string `json:"region,omitempty"`
	BloodType *string `json:"blood_type,omitempty"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SetStatusInput struct {
	Status UserStatus `json:"status" validate:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
