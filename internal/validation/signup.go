// Package validation checks and normalizes donor signup requests before
// they reach the auth usecase.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/blood-donation/backend/internal/domain"
)

const dateLayout = "2006-01-02"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const passwordSpecials = `!@#$%^&*()-_=+[]{}|;:,.<>?/`

// FieldError describes one rejected signup field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type SignupRequest struct {
	Name             string `json:"name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email,omitempty"`
	PhoneNumber      string `json:"phone_number"`
	BloodGroup       string `json:"blood_group"`
	LastDonationDate string `json:"last_donation_date,omitempty"`
	City             string `json:"city"`
	Country          string `json:"country"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirm_password"`
}

// Validate applies every field rule and, when all pass, returns the
// normalized donor record (without password hash or ID).
func (r *SignupRequest) Validate() (*domain.User, []FieldError) {
	var errs []FieldError
	fail := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	user := &domain.User{}

	user.Name = strings.TrimSpace(r.Name)
	if msg := validateName(user.Name); msg != "" {
		fail("name", msg)
	}

	user.LastName = strings.TrimSpace(r.LastName)
	if msg := validateName(user.LastName); msg != "" {
		fail("last_name", msg)
	}

	if email := strings.TrimSpace(r.Email); email != "" {
		if !emailPattern.MatchString(email) {
			fail("email", "Invalid email format")
		} else {
			user.Email = strings.ToLower(email)
		}
	}

	digits := stripNonDigits(r.PhoneNumber)
	if len(digits) < 10 || len(digits) > 15 {
		fail("phone_number", "Phone number should be between 10-15 digits")
	} else {
		user.PhoneNumber = digits
	}

	group := strings.ToUpper(strings.TrimSpace(r.BloodGroup))
	if !domain.IsValidBloodGroup(group) {
		fail("blood_group", "Blood group must be one of: "+strings.Join(domain.BloodGroups, ", "))
	} else {
		user.BloodGroup = group
	}

	if r.LastDonationDate != "" {
		date, err := time.Parse(dateLayout, r.LastDonationDate)
		if err != nil {
			fail("last_donation_date", "Date must be in YYYY-MM-DD format")
		} else if date.After(time.Now()) {
			fail("last_donation_date", "Last donation date cannot be in the future")
		} else {
			user.LastDonationDate = &date
		}
	}

	user.City = strings.TrimSpace(r.City)
	if user.City == "" {
		fail("city", "City cannot be empty")
	}

	if !strings.EqualFold(strings.TrimSpace(r.Country), "pakistan") {
		fail("country", "Currently, only registrations from Pakistan are accepted.")
	} else {
		user.Country = "Pakistan"
	}

	if msg := validatePassword(r.Password); msg != "" {
		fail("password", msg)
	}
	if r.ConfirmPassword != r.Password {
		fail("confirm_password", "Passwords do not match")
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return user, nil
}

func validateName(name string) string {
	if name == "" {
		return "Name cannot be empty"
	}
	for _, c := range name {
		if !unicode.IsLetter(c) && c != ' ' {
			return "Name should only contain letters and spaces"
		}
	}
	return ""
}

func validatePassword(password string) string {
	if len(password) < 8 || len(password) > 20 {
		return "Password must be between 8 and 20 characters long."
	}
	hasUpper := false
	hasSpecial := false
	for _, c := range password {
		if unicode.IsUpper(c) {
			hasUpper = true
		}
		if strings.ContainsRune(passwordSpecials, c) {
			hasSpecial = true
		}
	}
	if !hasUpper {
		return "Password must contain at least one uppercase letter."
	}
	if !hasSpecial {
		return "Password must contain at least one special character."
	}
	return ""
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
