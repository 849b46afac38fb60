package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/routedesk/courierbot/courier/session"
)

func sessionAt(userID int64, location string) session.ID {
	return session.ID{
		UserID:    userID,
		Location:  location,
		CreatedAt: time.Date(2025, 9, 14, 10, 30, 0, 0, time.UTC),
		Suffix:    "ab12cd34",
	}
}

func TestEncodeDeterministic(t *testing.T) {
	codec := NewCodec()
	ref := PointRef(sessionAt(42, "Wologda"), 3)
	first := codec.Encode(ref)
	for i := 0; i < 10; i++ {
		if got := codec.Encode(ref); got != first {
			t.Fatalf("encode not deterministic: %v != %v", got, first)
		}
	}
	if len(first.Code) != DefaultCodeLen {
		t.Fatalf("code length = %d, want %d", len(first.Code), DefaultCodeLen)
	}
}

func TestEncodeSizeBound(t *testing.T) {
	codec := NewCodec()
	locations := []string{
		"NYC",
		strings.Repeat("Вологда", 30),
		strings.Repeat("大阪市中央区久太郎町", 20),
		strings.Repeat("🚚", 200),
	}
	for _, loc := range locations {
		for _, ref := range []Reference{
			RouteRef(sessionAt(42, loc)),
			PointRef(sessionAt(42, loc), 17),
			PhotoRef(sessionAt(42, loc), 17),
		} {
			tok := codec.Encode(ref)
			if n := len(tok.String()); n > MaxDataBytes {
				t.Fatalf("token %q exceeds limit: %d bytes", tok, n)
			}
		}
	}
}

func TestEncodeDistinguishesKinds(t *testing.T) {
	codec := NewCodec()
	sid := sessionAt(42, "Wologda")
	point := codec.Encode(PointRef(sid, 0))
	photo := codec.Encode(PhotoRef(sid, 0))
	if point.String() == photo.String() {
		t.Fatalf("point and photo tokens collide: %v", point)
	}
	route := codec.Encode(RouteRef(sid))
	if route.Kind != KindRoute || point.Kind != KindPoint || photo.Kind != KindPhoto {
		t.Fatal("kind not preserved by encoding")
	}
}

func TestEncodeLenClamps(t *testing.T) {
	codec := NewCodec()
	ref := RouteRef(sessionAt(1, "x"))
	if got := codec.EncodeLen(ref, 4); len(got.Code) != DefaultCodeLen {
		t.Fatalf("short length not clamped: %d", len(got.Code))
	}
	if got := codec.EncodeLen(ref, 500); len(got.Code) != MaxCodeLen {
		t.Fatalf("long length not clamped: %d", len(got.Code))
	}
	long := codec.EncodeLen(ref, MaxCodeLen)
	if len(long.String()) > MaxDataBytes {
		t.Fatalf("max-length token %q exceeds limit", long)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		kind Kind
	}{
		{"r:abc123def456", KindRoute},
		{"rp:abc123def456", KindPoint},
		{"p:abc123def456", KindPhoto},
	}
	for _, tc := range cases {
		tok, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if tok.Kind != tc.kind || tok.Code != "abc123def456" {
			t.Fatalf("parse %q = %+v", tc.raw, tok)
		}
		if tok.String() != tc.raw {
			t.Fatalf("string round trip: %q != %q", tok.String(), tc.raw)
		}
	}

	for _, raw := range []string{"", "abc", "x:abc", "r:", "routes|abc"} {
		if _, err := Parse(raw); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("parse %q: expected ErrMalformedToken, got %v", raw, err)
		}
	}
}

func TestReferenceCanonicalUnambiguous(t *testing.T) {
	a := PointRef(sessionAt(1, "a;idx=2"), 1)
	b := PointRef(sessionAt(1, "a"), 1)
	if a.Canonical() == b.Canonical() {
		t.Fatalf("canonical collision: %q", a.Canonical())
	}
	route := RouteRef(sessionAt(1, "a"))
	point := PointRef(sessionAt(1, "a"), 0)
	if route.Canonical() == point.Canonical() {
		t.Fatalf("route/point canonical collision: %q", route.Canonical())
	}
}
