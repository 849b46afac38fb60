// Package token compresses structured route references into short opaque
// codes that fit Telegram's 64 byte callback data limit, with reliable
// reverse lookup through a keyed store.
package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/routedesk/courierbot/courier/session"
)

// Kind discriminates what a token stands for.
type Kind uint8

const (
	// KindRoute addresses a whole route session.
	KindRoute Kind = iota + 1
	// KindPoint addresses one point within a session.
	KindPoint
	// KindPhoto addresses the photo attached to a point.
	KindPhoto
)

// Prefix returns the wire prefix for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindRoute:
		return "r"
	case KindPoint:
		return "rp"
	case KindPhoto:
		return "p"
	}
	return ""
}

// KindForPrefix resolves a wire prefix back to its kind.
func KindForPrefix(prefix string) (Kind, bool) {
	switch prefix {
	case "r":
		return KindRoute, true
	case "rp":
		return KindPoint, true
	case "p":
		return KindPhoto, true
	}
	return 0, false
}

// Reference is the logical payload a token stands for: a route, a point,
// or a point's photo.
type Reference struct {
	Kind    Kind       `json:"kind"`
	Session session.ID `json:"session"`
	Index   int        `json:"index,omitempty"`
}

// RouteRef builds a reference to a whole session.
func RouteRef(id session.ID) Reference {
	return Reference{Kind: KindRoute, Session: id}
}

// PointRef builds a reference to one point of a session.
func PointRef(id session.ID, index int) Reference {
	return Reference{Kind: KindPoint, Session: id, Index: index}
}

// PhotoRef builds a reference to the photo of one point.
func PhotoRef(id session.ID, index int) Reference {
	return Reference{Kind: KindPhoto, Session: id, Index: index}
}

// Equal reports whether two references name the same target.
func (r Reference) Equal(other Reference) bool {
	return r.Kind == other.Kind && r.Index == other.Index && r.Session.Equal(other.Session)
}

// Canonical returns the serialization hashed by the codec. The session id
// part is length-prefixed so distinct references never canonicalize alike.
func (r Reference) Canonical() string {
	sid := r.Session.Canonical()
	var b strings.Builder
	b.WriteString(r.Kind.Prefix())
	b.WriteString(";sid=")
	b.WriteString(strconv.Itoa(len(sid)))
	b.WriteByte(':')
	b.WriteString(sid)
	if r.Kind != KindRoute {
		b.WriteString(";idx=")
		b.WriteString(strconv.Itoa(r.Index))
	}
	return b.String()
}

// Token is the size-bounded encoding of exactly one Reference.
type Token struct {
	Kind Kind
	Code string
}

// String renders the token as "<prefix>:<code>".
func (t Token) String() string { return t.Kind.Prefix() + ":" + t.Code }

// Parse restores a Token from its wire form "<prefix>:<code>".
func Parse(raw string) (Token, error) {
	prefix, code, ok := strings.Cut(raw, ":")
	if !ok || code == "" {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, raw)
	}
	kind, ok := KindForPrefix(prefix)
	if !ok {
		return Token{}, fmt.Errorf("%w: unknown prefix %q", ErrMalformedToken, prefix)
	}
	return Token{Kind: kind, Code: code}, nil
}

// Error is a token error with a stable machine code.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrMalformedToken means the raw value does not match any known prefix.
	ErrMalformedToken = &Error{code: "MALFORMED_TOKEN", msg: "malformed token"}
	// ErrUnknownToken means a well-formed token is absent from the store.
	ErrUnknownToken = &Error{code: "UNKNOWN_TOKEN", msg: "unknown token"}
	// ErrTokenCollision means a code already maps to a different reference.
	ErrTokenCollision = &Error{code: "TOKEN_COLLISION", msg: "token code collision"}
)
