package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	timestampLayout = "20060102_150405"
	suffixBytes     = 4
)

// ID identifies one courier route instance. The tuple is immutable once
// created; Location is free-form text and may contain any script.
type ID struct {
	UserID    int64     `json:"user_id"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	Suffix    string    `json:"suffix"`
}

// NewID mints a session identifier for a courier and a location.
// The creation timestamp is truncated to whole seconds so the string
// and struct forms round-trip exactly.
func NewID(userID int64, location string) ID {
	buf := make([]byte, suffixBytes)
	_, _ = rand.Read(buf)
	return ID{
		UserID:    userID,
		Location:  location,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Suffix:    hex.EncodeToString(buf),
	}
}

// String renders the id in the storage/display form
// "<user>_<location>_<YYYYMMDD>_<HHMMSS>_<suffix>".
func (id ID) String() string {
	return fmt.Sprintf("%d_%s_%s_%s", id.UserID, id.Location, id.CreatedAt.UTC().Format(timestampLayout), id.Suffix)
}

// Canonical returns the unambiguous serialization used as hash input for
// short tokens. Free-form fields carry a byte-length prefix so no two
// distinct tuples produce the same canonical string.
func (id ID) Canonical() string {
	var b strings.Builder
	b.WriteString("u=")
	b.WriteString(strconv.FormatInt(id.UserID, 10))
	b.WriteString(";t=")
	b.WriteString(id.CreatedAt.UTC().Format("20060102150405"))
	b.WriteString(";s=")
	b.WriteString(strconv.Itoa(len(id.Suffix)))
	b.WriteByte(':')
	b.WriteString(id.Suffix)
	b.WriteString(";l=")
	b.WriteString(strconv.Itoa(len(id.Location)))
	b.WriteByte(':')
	b.WriteString(id.Location)
	return b.String()
}

// Equal reports whether two ids name the same session.
func (id ID) Equal(other ID) bool {
	return id.UserID == other.UserID &&
		id.Location == other.Location &&
		id.CreatedAt.Equal(other.CreatedAt) &&
		id.Suffix == other.Suffix
}

// IsZero reports whether the id is the zero value.
func (id ID) IsZero() bool {
	return id.UserID == 0 && id.Location == "" && id.CreatedAt.IsZero() && id.Suffix == ""
}

// ParseID restores an ID from its String form. Locations may themselves
// contain underscores, so the fixed fields are taken from both ends and
// the remainder is the location.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "_")
	if len(parts) < 5 {
		return ID{}, fmt.Errorf("session: malformed id %q", s)
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("session: malformed user id in %q: %w", s, err)
	}
	suffix := parts[len(parts)-1]
	date := parts[len(parts)-3]
	clock := parts[len(parts)-2]
	created, err := time.ParseInLocation(timestampLayout, date+"_"+clock, time.UTC)
	if err != nil {
		return ID{}, fmt.Errorf("session: malformed timestamp in %q: %w", s, err)
	}
	location := strings.Join(parts[1:len(parts)-3], "_")
	return ID{UserID: userID, Location: location, CreatedAt: created, Suffix: suffix}, nil
}
