package bot

import (
	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
	tg "github.com/routedesk/courierbot/core/telegram"
	"github.com/routedesk/courierbot/core/telegram/callbacks"
	tghelpers "github.com/routedesk/courierbot/core/telegram/helpers"
	"github.com/routedesk/courierbot/courier/nav"
	"github.com/routedesk/courierbot/courier/token"

	tele "gopkg.in/telebot.v4"
)

// dropKey is the callback unique on route deletion buttons. The payload is
// a route token, so deletion goes through the same resolution path as
// navigation.
const dropKey = "drop"

// draftCancelKey is the callback unique on the draft prompt's cancel button.
const draftCancelKey = "draft_cancel"

// screenFrom captures the message the pressed button is attached to.
func screenFrom(c tele.Context) nav.Screen {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nav.Screen{}
	}
	msg := cb.Message
	screen := nav.Screen{
		Ref: nav.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID},
	}
	if msg.Photo != nil {
		screen.Kind = nav.SurfacePhoto
	}
	return screen
}

// registerNavCallbacks binds the navigation engine to its button keys.
func registerNavCallbacks(reg *tg.Registry, ctl *nav.Controller) {
	open := func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		return ctl.Open(ctx, callbacks.CallbackPayload(c), screenFrom(c))
	}
	step := func(delta int) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			return ctl.Step(ctx, callbacks.CallbackPayload(c), delta, screenFrom(c))
		}
	}

	_ = reg.RegisterCallback(nav.KeyRoute, open)
	_ = reg.RegisterCallback(nav.KeyPoint, open)
	_ = reg.RegisterCallback(nav.KeyPhoto, open)
	_ = reg.RegisterCallback(nav.KeyNext, step(+1))
	_ = reg.RegisterCallback(nav.KeyPrev, step(-1))
}

// registerDraftCancelCallback binds the cancel button on the draft prompt.
func (a *App) registerDraftCancelCallback(reg *tg.Registry) {
	_ = reg.RegisterCallback(draftCancelKey, func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		if a.drafts.Cancel(sender.ID) {
			return tghelpers.EditOrSendText(c, "Draft discarded.")
		}
		return tghelpers.EditOrSendText(c, "Nothing to cancel.")
	})
}

// registerDropCallback binds the route deletion button. Token records for
// the session are purged after the session rows so a stale button can never
// resolve to a live route.
func (a *App) registerDropCallback(reg *tg.Registry) {
	_ = reg.RegisterCallback(dropKey, func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if sender := c.Sender(); sender == nil || !a.cfg.IsAdmin(sender.ID) {
			return c.Respond(&tele.CallbackResponse{Text: "Not allowed."})
		}

		ref, err := a.issuer.Resolve(ctx, callbacks.CallbackPayload(c))
		if err != nil {
			return tghelpers.EditOrSendText(c, "This route is no longer available.")
		}
		if ref.Kind != token.KindRoute {
			return tghelpers.EditOrSendText(c, "This button is no longer valid.")
		}

		if err := a.sessions.Delete(ctx, ref.Session); err != nil {
			logger.Error(ctx, "bot", "route.drop.failed",
				slog.String("session_id", ref.Session.String()),
				slog.String("err", err.Error()),
			)
			return tghelpers.EditOrSendText(c, "Could not delete the route, try again.")
		}
		if err := a.issuer.DropSession(ctx, ref.Session); err != nil {
			logger.Warn(ctx, "bot", "route.drop.tokens",
				slog.String("session_id", ref.Session.String()),
				slog.String("err", err.Error()),
			)
		}

		logger.Info(ctx, "bot", "route.dropped",
			slog.String("session_id", ref.Session.String()),
		)
		return tghelpers.EditOrSendText(c, "Route deleted.")
	})
}
