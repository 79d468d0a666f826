package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
)

type User struct {
	ID             string    `bson:"user_id" json:"id"`
	Email          string    `bson:"email,omitempty" json:"email,omitempty"`
	Mobile         string    `bson:"mobile,omitempty" json:"mobile,omitempty"`
	CountryCode    string    `bson:"country_code,omitempty" json:"countryCode,omitempty"`
	PasswordHash   string    `bson:"password_hash,omitempty" json:"-"` // never expose hash in JSON
	PasswordSet    bool      `bson:"password_set" json:"passwordSet"`
	EmailVerified  bool      `bson:"email_verified" json:"emailVerified"`
	MobileVerified bool      `bson:"mobile_verified" json:"mobileVerified"`
	FirstName      string    `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName       string    `bson:"last_name,omitempty" json:"lastName,omitempty"`
	DOB            string    `bson:"dob,omitempty" json:"dob,omitempty"`
	ProfilePhoto   string    `bson:"profile_photo,omitempty" json:"profilePhoto,omitempty"`
	Role           string    `bson:"role" json:"role"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
}
