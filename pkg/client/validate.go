package client

import (
	"regexp"
	"strconv"
	"strings"
)

// Validation messages shown to users of the interactive client.
const (
	MsgNameRequired = "Please provide Customer name"
	MsgAgeInvalid   = "Please enter valid age"
	MsgAgeNotPos    = "Age can't be 0, Please enter valid age"
	MsgPhoneInvalid = "Please enter valid phone in XXX XXX-XXXX format or press Enter to leave it empty"
)

var phonePattern = regexp.MustCompile(`^\d{3} \d{3}-\d{4}$`)

// ValidationError reports input rejected before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateName requires a non-empty name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: MsgNameRequired}
	}
	return nil
}

// ValidateAge accepts an empty age or a positive integer.
func ValidateAge(age string) error {
	age = strings.TrimSpace(age)
	if age == "" {
		return nil
	}
	n, err := strconv.Atoi(age)
	if err != nil {
		return &ValidationError{Field: "age", Message: MsgAgeInvalid}
	}
	if n <= 0 {
		return &ValidationError{Field: "age", Message: MsgAgeNotPos}
	}
	return nil
}

// ValidatePhone accepts an empty phone or one in XXX XXX-XXXX format.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" || phonePattern.MatchString(phone) {
		return nil
	}
	return &ValidationError{Field: "phone", Message: MsgPhoneInvalid}
}
