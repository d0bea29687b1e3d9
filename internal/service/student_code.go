package service

import (
	"fmt"
	"strings"
	"unicode"
)

const studentCodePrefix = "AZN"

// BuildStudentCode derives the human-readable test-taker identifier:
// AZN-<classDigits>-<nameInitials>-<zero-padded serial>-<random suffix>.
// The serial is a best-effort count-based ordinal (concurrent registrations
// may collide on it) and the suffix exists for local legibility only. True
// uniqueness of the persisted code is enforced at submission time by the
// store's constraint, never here.
func BuildStudentCode(classApplyingFor, studentName string, serial int) string {
	return fmt.Sprintf("%s-%s-%s-%03d-%s",
		studentCodePrefix,
		classDigits(classApplyingFor),
		nameInitials(studentName),
		serial,
		randomCode(4),
	)
}

// classDigits keeps only the digits of the class label ("Class 8" -> "8").
func classDigits(class string) string {
	var b strings.Builder
	for _, r := range class {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

// nameInitials takes the first letter of up to three name words, uppercased.
func nameInitials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) {
				b.WriteRune(unicode.ToUpper(r))
			}
			break
		}
		if b.Len() >= 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}
