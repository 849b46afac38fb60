package router

import (
	"time"

	tg "github.com/routedesk/courierbot/core/telegram"
	"github.com/routedesk/courierbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversation is the minimal interface for a multi-step input flow,
// such as an admin assembling a route point by point.
type Conversation interface {
	InProgress(userID int64) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and photo updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
}

// TextRoutes builds handlers for text and photo routing. Active
// conversations take priority over command lookup.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if conv != nil && c.Sender() != nil && conv.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "conversation", start, "", func() error {
				return conv.Handle(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if conv != nil && c.Sender() != nil && conv.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "conversation_photo", start, "", func() error {
				return conv.Handle(c)
			})
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
