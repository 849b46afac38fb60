package middleware

import (
	"runtime/debug"

	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
	tghelpers "github.com/routedesk/courierbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				ctx := tghelpers.BuildContext(c)
				logger.Error(ctx, "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
