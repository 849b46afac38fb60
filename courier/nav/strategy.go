package nav

import (
	"context"

	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
)

// Action is what the render strategy decided to do with the current
// message surface.
type Action uint8

const (
	// ActionEdit rewrites the current text message in place.
	ActionEdit Action = iota
	// ActionSend posts a new message and leaves the old one untouched.
	ActionSend
	// ActionReplace posts a new message, then best-effort deletes the
	// superseded one.
	ActionReplace
)

// Decide maps (current surface kind, target content kind) to an action.
// Telegram cannot edit a photo into a text message or attach a photo to a
// text edit, so only the text-to-text cell edits in place.
func Decide(current SurfaceKind, targetHasPhoto bool) Action {
	switch {
	case current == SurfaceText && !targetHasPhoto:
		return ActionEdit
	case current == SurfaceText && targetHasPhoto:
		return ActionSend
	default:
		return ActionReplace
	}
}

// Screen describes the chat message a navigation step renders over.
type Screen struct {
	Ref  MessageRef
	Kind SurfaceKind
}

// Renderer applies the decided action through the transport with the
// loss-free fallback: a failed edit or send is retried exactly once as a
// brand-new send, and superseded-message deletion never blocks or errors.
type Renderer struct {
	transport Transport
}

// NewRenderer wraps a transport.
func NewRenderer(transport Transport) *Renderer {
	return &Renderer{transport: transport}
}

// Render places target over the screen and returns the ref of the message
// now showing it. An error is returned only when both the primary action
// and the fallback send failed; the caller keeps its prior state then.
func (r *Renderer) Render(ctx context.Context, screen Screen, target Surface) (MessageRef, error) {
	action := Decide(screen.Kind, target.HasPhoto())

	switch action {
	case ActionEdit:
		if err := r.transport.Edit(ctx, screen.Ref, target); err != nil {
			logger.Warn(ctx, "nav.render", "edit.fallback",
				slog.Int("message_id", screen.Ref.MessageID),
				slog.String("err", err.Error()),
			)
			return r.transport.Send(ctx, screen.Ref.ChatID, target)
		}
		return screen.Ref, nil

	case ActionSend:
		ref, err := r.transport.Send(ctx, screen.Ref.ChatID, target)
		if err != nil {
			logger.Warn(ctx, "nav.render", "send.retry",
				slog.String("err", err.Error()),
			)
			return r.transport.Send(ctx, screen.Ref.ChatID, target)
		}
		return ref, nil

	default: // ActionReplace
		ref, err := r.transport.Send(ctx, screen.Ref.ChatID, target)
		if err != nil {
			logger.Warn(ctx, "nav.render", "send.retry",
				slog.String("err", err.Error()),
			)
			ref, err = r.transport.Send(ctx, screen.Ref.ChatID, target)
			if err != nil {
				return MessageRef{}, err
			}
		}
		if delErr := r.transport.Delete(ctx, screen.Ref); delErr != nil {
			// Best effort: the stale message stays visible and inert.
			logger.Warn(ctx, "nav.render", "delete.skipped",
				slog.Int("message_id", screen.Ref.MessageID),
				slog.String("err", delErr.Error()),
			)
		}
		return ref, nil
	}
}
