package testutil

import "testing"

func TestStripAnsiCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, expected string
	}{
		{"plain", "plain"},
		{"\x1b[1mbold\x1b[0m", "bold"},
		{"\x1b[38;5;39mn=64\x1b[0m us", "n=64 us"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripAnsiCodes(tt.in); got != tt.expected {
			t.Errorf("StripAnsiCodes(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func TestAssertContainsAll(t *testing.T) {
	t.Parallel()
	AssertContainsAll(t, "\x1b[1mMatrix\x1b[0m 4x4", "Matrix 4x4", "4x4")
}
