package validation

import (
	"strings"
	"testing"
)

func TestValidUsername_Valid(t *testing.T) {
	valids := []string{
		"abc",
		"alice",
		"bob_01",
		"img-worker2",
		"a" + strings.Repeat("b", 31), // 32 chars
	}
	for _, v := range valids {
		if !ValidUsername(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
}

func TestValidUsername_Invalid(t *testing.T) {
	invalids := []string{
		"",          // empty
		"ab",        // too short
		"Alice",     // uppercase
		"two words", // space
		"_lead",     // starts with separator
		"a" + strings.Repeat("b", 32), // 33 chars
	}
	for _, v := range invalids {
		if ValidUsername(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidTaskType(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"image", true},
		{"video_upscale", true},
		{"sdxl-turbo", true},
		{"a", true},
		{"a" + strings.Repeat("b", 63), true},
		{"", false},
		{"IMAGE", false},
		{"bad type", false},
		{"-lead", false},
		{"a" + strings.Repeat("b", 64), false},
	}
	for _, c := range cases {
		if got := ValidTaskType(c.in); got != c.ok {
			t.Fatalf("ValidTaskType(%q) = %v, want %v", c.in, got, c.ok)
		}
	}
}
