// Package cas holds the CAS registry number, the key every unit of work in the
// harvester is addressed by.
package cas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Number is a CAS registry number stored as its bare digits (7732185), the
// way CCCBDB accepts it in its query form.
type Number string

// Parse trims the input and validates that it only contains digits with
// optional dash separators. The dashed form (7732-18-5) is normalized to the
// bare digits so both spellings name the same identifier.
func Parse(raw string) (Number, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty cas number")
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return "", fmt.Errorf("invalid cas number %q", raw)
	}

	var digits strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits.WriteByte(c)
		case c == '-':
			if s[i-1] == '-' {
				return "", fmt.Errorf("invalid cas number %q", raw)
			}
		default:
			return "", fmt.Errorf("invalid cas number %q", raw)
		}
	}
	if digits.Len() == 0 {
		return "", fmt.Errorf("invalid cas number %q", raw)
	}
	return Number(digits.String()), nil
}

func (n Number) String() string {
	return string(n)
}

// UnmarshalJSON accepts both JSON strings and JSON integers, registries
// written by older tooling store the numbers as integers.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*n = parsed
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("cas number must be a string or an integer: %w", err)
	}
	parsed, err := Parse(num.String())
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// UnmarshalText lets Number be used as a JSON object key.
func (n *Number) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
