package identity

import (
	"testing"

	"vrscout/models"
)

func TestFingerprintStable(t *testing.T) {
	a := &models.NormalizedAddress{
		StreetLine1: "123 Gulf View Lane",
		City:        "Santa Rosa Beach",
		State:       "FL",
		PostalCode:  "32459",
	}
	b := &models.NormalizedAddress{
		StreetLine1: "123 Gulf View Ln",
		City:        "santa rosa beach",
		State:       "fl",
		PostalCode:  "32459",
	}

	if Fingerprint(a) != Fingerprint(b) {
		t.Errorf("equivalent addresses produced different fingerprints:\n%s\n%s",
			Fingerprint(a), Fingerprint(b))
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	a := &models.NormalizedAddress{StreetLine1: "123 Gulf View Ln", City: "Destin", State: "FL"}
	b := &models.NormalizedAddress{StreetLine1: "125 Gulf View Ln", City: "Destin", State: "FL"}

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("different street numbers collided")
	}
}

func TestNormalizeStreet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123 Gulf View Lane", "123 gulf view ln"},
		{"456 North Beach Street", "456 n beach st"},
		{"789 Scenic Hwy, Apt 4", "789 scenic hwy apt 4"},
		{"  100   Main  Avenue ", "100 main ave"},
	}
	for _, tt := range tests {
		if got := NormalizeStreet(tt.in); got != tt.want {
			t.Errorf("NormalizeStreet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeStreetWordBoundaries(t *testing.T) {
	// "Lane" as part of a name must not collapse; only whole words do.
	if got := NormalizeStreet("12 Lanesboro Ct"); got != "12 lanesboro ct" {
		t.Errorf("NormalizeStreet = %q", got)
	}
}
