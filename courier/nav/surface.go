// Package nav drives point-to-point navigation through a route session and
// decides how each point is rendered on top of the chat message it replaces.
package nav

// SurfaceKind is the closed set of content shapes a single chat message
// can hold.
type SurfaceKind uint8

const (
	// SurfaceText is a plain text message.
	SurfaceText SurfaceKind = iota
	// SurfacePhoto is a photo message with a caption.
	SurfacePhoto
)

// Control is one inline button attached to a rendered surface. Key selects
// the callback handler; Token is the short opaque payload it carries.
type Control struct {
	Label string
	Key   string
	Token string
}

// Surface is the transient rendered state of a single chat message. It is
// rebuilt from route point content on every navigation step and never
// persisted.
type Surface struct {
	Kind     SurfaceKind
	Text     string
	PhotoID  string
	Controls [][]Control
}

// HasPhoto reports whether the surface carries photo content.
func (s Surface) HasPhoto() bool { return s.Kind == SurfacePhoto }
