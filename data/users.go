package data

import (
	"time"

	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"github.com/google/uuid"
)

type Role string

const (
	RoleReader Role = "reader"
	RoleAdmin  Role = "admin"
)

type Membership string

const (
	MembershipFree    Membership = "free"
	MembershipPremium Membership = "premium"
)

// User defines a user model. Users are read-only to the lending workflows.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	Membership Membership `json:"membership"`
	CreatedAt  time.Time  `json:"created_at"`
	Active     bool       `json:"is_active"`
}

func (u User) CanBorrow() bool {
	return u.Active
}

func (u User) IsPremium() bool {
	return u.Membership == MembershipPremium
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoanLimit returns the maximum number of simultaneous active loans.
func (u User) LoanLimit() int {
	if u.IsPremium() {
		return PremiumLoanLimit
	}
	return FreeLoanLimit
}

func ValidateEmail(v *validator.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
}

func ValidateUser(v *validator.Validator, user *User) {
	v.Check(user.Name != "", "name", "must be provided")
	v.Check(len(user.Name) <= 500, "name", "must not be more than 500 bytes long")
	ValidateEmail(v, user.Email)
	v.Check(validator.PermittedValue(user.Role, RoleReader, RoleAdmin), "role", "must be reader or admin")
	v.Check(validator.PermittedValue(user.Membership, MembershipFree, MembershipPremium), "membership", "must be free or premium")
}
