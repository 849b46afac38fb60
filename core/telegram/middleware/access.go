package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminIDs []int64
	OnReject tele.HandlerFunc
}

func (o AdminOptions) allows(userID int64) bool {
	if len(o.AdminIDs) == 0 {
		return false
	}
	for _, id := range o.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AdminOnlyMiddleware ensures that only configured admins can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || !opts.allows(user.ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
