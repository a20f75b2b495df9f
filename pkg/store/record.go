package store

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Record is a single customer entry. Name is the unique, case-sensitive key;
// the remaining fields are free-form and may be empty.
type Record struct {
	Name    string `json:"name"`
	Age     Age    `json:"age"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Age is an optional customer age. The zero value means "no age".
//
// The server stores whatever text the client sent; the client is responsible
// for rejecting non-numeric or non-positive values. On the JSON wire an age
// that parses as an integer is written as a number, anything else as a string.
type Age string

// ParseAge converts bootstrap text into an Age. Surrounding whitespace is
// ignored and any value that is not an integer becomes the empty Age.
//
// Example:
//
//	store.ParseAge(" 30 ")  // "30"
//	store.ParseAge("twenty") // ""
func ParseAge(s string) Age {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return AgeOf(n)
}

// AgeOf returns the Age holding n.
func AgeOf(n int) Age {
	return Age(strconv.Itoa(n))
}

// Int returns the integer value of the age, if it has one.
func (a Age) Int() (int, bool) {
	if a == "" {
		return 0, false
	}
	n, err := strconv.Atoi(string(a))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsEmpty reports whether no age is set.
func (a Age) IsEmpty() bool {
	return a == ""
}

func (a Age) String() string {
	return string(a)
}

// MarshalJSON implements json.Marshaler.
func (a Age) MarshalJSON() ([]byte, error) {
	if n, ok := a.Int(); ok && strconv.Itoa(n) == string(a) {
		return strconv.AppendInt(nil, int64(n), 10), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON implements json.Unmarshaler. It accepts a number, a string or
// null; null decodes to the empty Age.
func (a *Age) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decoding age")
		}
		*a = Age(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrapf(err, "decoding age %s", data)
	}
	*a = Age(n.String())
	return nil
}
