// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account that owns companies. Users sign in with a one-time
// passcode sent to their email address.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email" json:"email"` // normalized lowercase
	FirstName  string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName   string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	FullNameCI string             `bson:"full_name_ci,omitempty" json:"-"` // lowercase, diacritics-stripped
	Role       string             `bson:"role" json:"role"`                // user | admin

	OTP *OTP `bson:"otp,omitempty" json:"-"`

	CompanyIDs []primitive.ObjectID `bson:"company_ids" json:"company_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OTP is the pending one-time passcode. Only the bcrypt hash is stored.
type OTP struct {
	Hash      string    `bson:"hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	Attempts  int       `bson:"attempts"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
