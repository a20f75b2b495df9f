package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Alice"))
	assert.Equal(t, MsgNameRequired, message(ValidateName("")))
	assert.Equal(t, MsgNameRequired, message(ValidateName("   ")))
}

func TestValidateAge(t *testing.T) {
	tests := []struct {
		age  string
		want string
	}{
		{"", ""},
		{"30", ""},
		{" 7 ", ""},
		{"0", MsgAgeNotPos},
		{"-4", MsgAgeNotPos},
		{"twenty", MsgAgeInvalid},
		{"3.5", MsgAgeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.age, func(t *testing.T) {
			assert.Equal(t, tt.want, message(ValidateAge(tt.age)))
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"", true},
		{"555 123-4567", true},
		{"5551234567", false},
		{"555-123-4567", false},
		{"55 123-4567", false},
		{"555 123-456", false},
		{"abc def-ghij", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, MsgPhoneInvalid, message(err))
		})
	}
}
