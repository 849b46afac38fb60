// Package session owns the ordered route point sequence per session id and
// answers the structural queries navigation depends on.
package session

import "context"

// Point is one ordered stop within a session. Index is zero-based and
// stable for the lifetime of the session.
type Point struct {
	Index   int    `db:"point_idx" json:"index"`
	Detail  string `db:"detail" json:"detail"`
	PhotoID string `db:"photo_file_id" json:"photo_id,omitempty"`
}

// HasPhoto reports whether the point carries a photo reference.
func (p Point) HasPhoto() bool { return p.PhotoID != "" }

// Error is a model error carrying a stable machine code for log schemas.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrSessionNotFound means the session was deleted or never existed.
	ErrSessionNotFound = &Error{code: "SESSION_NOT_FOUND", msg: "route session not found"}
	// ErrPointOutOfRange means a point index fell outside [0, point count).
	ErrPointOutOfRange = &Error{code: "POINT_OUT_OF_RANGE", msg: "route point index out of range"}
)

// Store persists sessions and their points. Implementations must tolerate
// concurrent access across independent session ids.
type Store interface {
	// Create stores a session and its full ordered point list.
	Create(ctx context.Context, id ID, points []Point) error
	// PointCount returns the number of points, or ErrSessionNotFound.
	PointCount(ctx context.Context, id ID) (int, error)
	// PointAt returns the point at index, or ErrSessionNotFound /
	// ErrPointOutOfRange. The two kinds stay distinguishable because they
	// drive different user-facing messages.
	PointAt(ctx context.Context, id ID, index int) (Point, error)
	// Points returns the full ordered point list for a session.
	Points(ctx context.Context, id ID) ([]Point, error)
	// Delete removes a session and its points.
	Delete(ctx context.Context, id ID) error
	// ListByUser returns the ids of sessions owned by a courier.
	ListByUser(ctx context.Context, userID int64) ([]ID, error)
}
