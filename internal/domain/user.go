package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicatePhone = errors.New("phone number already registered")

// User is a registered blood donor. Password holds only the bcrypt hash.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email,omitempty"`
	PhoneNumber      string     `json:"phone_number"`
	BloodGroup       string     `json:"blood_group"`
	LastDonationDate *time.Time `json:"last_donation_date,omitempty"`
	City             string     `json:"city"`
	Country          string     `json:"country"`
	Password         string     `json:"-"`
	RegistrationDate time.Time  `json:"registration_date"`
}

type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByPhone(phone string) (*User, error)
	ListAll() ([]*User, error)
	ListByBloodGroup(group string) ([]*User, error)
}

// BloodGroups is the set of accepted donor blood groups.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func IsValidBloodGroup(group string) bool {
	for _, g := range BloodGroups {
		if g == group {
			return true
		}
	}
	return false
}

// NewUserID returns an opaque donor identifier like "USER_1A2B3C4D".
func NewUserID() string {
	return "USER_" + strings.ToUpper(uuid.New().String()[:8])
}
