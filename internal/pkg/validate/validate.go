package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxFullNameLength = 120
	maxPhoneLength    = 32
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{5,}$`)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// FullName collapses inner whitespace and rejects empty or overlong names.
func FullName(raw string) (string, bool) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" || utf8.RuneCountInString(name) > maxFullNameLength {
		return "", false
	}
	return name, true
}

// Phone accepts an empty value; otherwise digits with optional +, spaces,
// dashes and parentheses.
func Phone(raw string) (string, bool) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", true
	}
	if len(phone) > maxPhoneLength || !phonePattern.MatchString(phone) {
		return "", false
	}
	return phone, true
}
