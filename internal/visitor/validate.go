package visitor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const minNameLength = 2

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`)
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid visitor: " + strings.Join(parts, "; ")
}

// Normalize trims surrounding whitespace from every field.
func (in Input) Normalize() Input {
	return Input{
		Name:            strings.TrimSpace(in.Name),
		Company:         strings.TrimSpace(in.Company),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		HostName:        strings.TrimSpace(in.HostName),
		HostEmail:       strings.TrimSpace(in.HostEmail),
		ArrivalDate:     strings.TrimSpace(in.ArrivalDate),
		ArrivalTime:     strings.TrimSpace(in.ArrivalTime),
		Purpose:         strings.TrimSpace(in.Purpose),
		CarRegistration: strings.TrimSpace(in.CarRegistration),
	}
}

// Validate checks registration input against now. The arrival date may not
// fall before now's calendar day, so a same-day arrival is accepted.
// WalkIn defaults the date to today and relies on this.
// It returns nil or a *ValidationError.
func (in Input) Validate(now time.Time) error {
	fields := make(map[string]string)

	checkName := func(field, value, label string) {
		if value == "" {
			fields[field] = label + " is required"
		} else if len([]rune(value)) < minNameLength {
			fields[field] = fmt.Sprintf("%s must be at least %d characters", label, minNameLength)
		}
	}
	checkName("name", in.Name, "name")
	checkName("company", in.Company, "company")
	checkName("host_name", in.HostName, "host name")

	if in.Email == "" {
		fields["email"] = "email is required"
	} else if !emailPattern.MatchString(in.Email) {
		fields["email"] = "email is not a valid address"
	}

	if in.HostEmail != "" && !emailPattern.MatchString(in.HostEmail) {
		fields["host_email"] = "host email is not a valid address"
	}

	if in.Phone == "" {
		fields["phone"] = "phone is required"
	} else if !phonePattern.MatchString(in.Phone) {
		fields["phone"] = "phone is not a valid number"
	}

	if in.ArrivalDate == "" {
		fields["arrival_date"] = "arrival date is required"
	} else if d, err := time.ParseInLocation("2006-01-02", in.ArrivalDate, now.Location()); err != nil {
		fields["arrival_date"] = "arrival date must be YYYY-MM-DD"
	} else {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if d.Before(today) {
			fields["arrival_date"] = "arrival date cannot be in the past"
		}
	}

	if in.ArrivalTime != "" {
		if _, err := time.Parse("15:04", in.ArrivalTime); err != nil {
			fields["arrival_time"] = "arrival time must be HH:MM"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
