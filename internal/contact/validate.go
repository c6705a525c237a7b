package contact

import (
	"regexp"
	"strings"
	"time"
)

const (
	msgRequired     = "This field is required"
	msgInvalidEmail = "Please enter a valid email address"
	msgInvalidPhone = "Please enter a valid phone number"
	msgPrivacy      = "Please accept the privacy policy"
	msgUrgency      = "Please choose normal, high or urgent"
	msgDate         = "Please enter a valid date"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[0-9\s\-()]{10,}$`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// ValidPhone reports whether s looks like a phone number of at least ten characters.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "contact: validation failed"
}

type fieldCheck map[string]string

func (f fieldCheck) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f[field] = msgRequired
		return false
	}
	return true
}

func (f fieldCheck) email(field, value string) {
	if f.required(field, value) && !ValidEmail(strings.TrimSpace(value)) {
		f[field] = msgInvalidEmail
	}
}

func (f fieldCheck) phone(field, value string, required bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			f[field] = msgRequired
		}
		return
	}
	if !ValidPhone(value) {
		f[field] = msgInvalidPhone
	}
}

func (f fieldCheck) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// Validate checks the general contact form.
func (r *GeneralRequest) Validate() error {
	f := fieldCheck{}
	f.required("name", r.Name)
	f.email("email", r.Email)
	f.phone("phone", r.Phone, false)
	f.required("message", r.Message)
	if !r.Privacy {
		f["privacy"] = msgPrivacy
	}
	return f.err()
}

// Validate checks the service request form.
func (r *ServiceRequestInput) Validate() error {
	f := fieldCheck{}
	f.required("name", r.Name)
	f.email("email", r.Email)
	f.phone("phone", r.Phone, true)
	f.required("serviceType", r.ServiceType)
	f.required("description", r.Description)
	if d := strings.TrimSpace(r.PreferredDate); d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			f["preferredDate"] = msgDate
		}
	}
	switch strings.TrimSpace(r.Urgency) {
	case "", UrgencyNormal, UrgencyHigh, UrgencyUrgent:
	default:
		f["urgency"] = msgUrgency
	}
	return f.err()
}
