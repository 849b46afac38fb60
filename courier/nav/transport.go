package nav

import "context"

// MessageRef addresses one delivered chat message for later edits or
// deletion.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the ref addresses no message.
func (r MessageRef) IsZero() bool { return r.ChatID == 0 && r.MessageID == 0 }

// Transport is the external send/edit/delete surface of the chat platform.
// Edit must be expected to fail whenever the target message's shape differs
// from a plain text surface; the render strategy exists to absorb that.
type Transport interface {
	Send(ctx context.Context, chatID int64, s Surface) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, s Surface) error
	Delete(ctx context.Context, ref MessageRef) error
}
