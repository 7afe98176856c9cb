package model

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// FormatPhone renders a provider-returned digit string for display,
// e.g. "14066097428" -> "+1 406-609-7428". Falls back to the raw digits
// when the number does not parse.
func FormatPhone(digits string) string {
	input := strings.TrimSpace(digits)
	if input == "" {
		return ""
	}
	if !strings.HasPrefix(input, "+") {
		input = "+" + input
	}
	num, err := phonenumbers.Parse(input, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return digits
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
