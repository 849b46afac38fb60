package session

import (
	"strings"
	"testing"
	"time"
)

func TestIDStringRoundTrip(t *testing.T) {
	id := NewID(42, "Wologda")
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(id) {
		t.Fatalf("round trip mismatch: %+v != %+v", parsed, id)
	}
}

func TestParseIDLocationWithUnderscores(t *testing.T) {
	id := ID{
		UserID:    7,
		Location:  "Nizhny_Novgorod_East",
		CreatedAt: time.Date(2025, 9, 14, 10, 30, 0, 0, time.UTC),
		Suffix:    "ab12cd34",
	}
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Location != "Nizhny_Novgorod_East" {
		t.Fatalf("location = %q", parsed.Location)
	}
	if !parsed.Equal(id) {
		t.Fatalf("round trip mismatch: %+v != %+v", parsed, id)
	}
}

func TestParseIDMalformed(t *testing.T) {
	for _, raw := range []string{"", "42", "42_city", "x_city_20250914_103000_ab12"} {
		if _, err := ParseID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestCanonicalDistinguishesAmbiguousTuples(t *testing.T) {
	at := time.Date(2025, 9, 14, 10, 30, 0, 0, time.UTC)
	// Tuples whose naive joins would collide.
	a := ID{UserID: 1, Location: "ab", CreatedAt: at, Suffix: "c"}
	b := ID{UserID: 1, Location: "a", CreatedAt: at, Suffix: "bc"}
	if a.Canonical() == b.Canonical() {
		t.Fatalf("canonical collision: %q", a.Canonical())
	}
	c := ID{UserID: 12, Location: "x", CreatedAt: at, Suffix: "s"}
	d := ID{UserID: 1, Location: "2x", CreatedAt: at, Suffix: "s"}
	if c.Canonical() == d.Canonical() {
		t.Fatalf("canonical collision: %q", c.Canonical())
	}
}

func TestCanonicalHandlesNonLatinLocations(t *testing.T) {
	id := NewID(99, strings.Repeat("Вологда・大阪", 20))
	canon := id.Canonical()
	if !strings.Contains(canon, "l=") {
		t.Fatalf("canonical missing location field: %q", canon)
	}
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Canonical() != canon {
		t.Fatalf("canonical not stable across round trip")
	}
}
