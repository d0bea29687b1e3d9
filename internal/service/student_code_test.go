package service

import (
	"strings"
	"testing"
)

func TestBuildStudentCode(t *testing.T) {
	code := BuildStudentCode("Class 8", "Ali Raza Khan", 7)
	if !strings.HasPrefix(code, "AZN-8-ARK-007-") {
		t.Errorf("code = %q, want AZN-8-ARK-007-* prefix", code)
	}
	parts := strings.Split(code, "-")
	if len(parts) != 5 || len(parts[4]) != 4 {
		t.Errorf("code = %q, want a 4-character random suffix", code)
	}
}

func TestBuildStudentCodeDistinctSuffixes(t *testing.T) {
	a := BuildStudentCode("Class 8", "Ali Khan", 1)
	b := BuildStudentCode("Class 8", "Ali Khan", 1)
	if a == b {
		t.Errorf("two codes for the same student collided: %q", a)
	}
}

func TestClassDigits(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Class 8", "8"},
		{"10th", "10"},
		{"Nursery", "0"},
		{"Class 12 Science", "12"},
	}
	for _, tt := range tests {
		if got := classDigits(tt.in); got != tt.want {
			t.Errorf("classDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameInitials(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Ali Khan", "AK"},
		{"ali raza khan", "ARK"},
		{"Muhammad Bilal Ahmed Siddiqui", "MBA"},
		{"Zara", "Z"},
		{"", "X"},
		{"  123  ", "X"},
	}
	for _, tt := range tests {
		if got := nameInitials(tt.in); got != tt.want {
			t.Errorf("nameInitials(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
