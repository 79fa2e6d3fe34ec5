package bookingid

import (
	"regexp"
	"testing"
)

var refPattern = regexp.MustCompile(`^BK-\d{8}[A-Z0-9]{6}$`)

func TestGenerate_Format(t *testing.T) {
	gen := New()
	for i := 0; i < 100; i++ {
		ref := gen.Generate()
		if !refPattern.MatchString(ref) {
			t.Fatalf("reference %q does not match BK-<8 digits><6 alnum>", ref)
		}
	}
}

func TestGenerate_Distinct(t *testing.T) {
	gen := New()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := gen.Generate()
		if seen[ref] {
			t.Fatalf("duplicate reference %q after %d generations", ref, i)
		}
		seen[ref] = true
	}
}
