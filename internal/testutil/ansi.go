// Package testutil holds helpers shared by the CLI-facing tests.
package testutil

import (
	"regexp"
	"strings"
	"testing"
)

// ansiRegex matches CSI escape sequences such as "\x1b[38;5;39m".
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripAnsiCodes removes ANSI escape sequences from s.
func StripAnsiCodes(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// AssertContainsAll fails t for every want missing from the colour-stripped
// output.
func AssertContainsAll(t testing.TB, output string, want ...string) {
	t.Helper()
	plain := StripAnsiCodes(output)
	for _, w := range want {
		if !strings.Contains(plain, w) {
			t.Errorf("expected output to contain %q, got:\n%s", w, plain)
		}
	}
}
