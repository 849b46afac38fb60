package bot

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
	tg "github.com/routedesk/courierbot/core/telegram"
	"github.com/routedesk/courierbot/core/telegram/commands"
	tghelpers "github.com/routedesk/courierbot/core/telegram/helpers"
	"github.com/routedesk/courierbot/core/telegram/keyboard"
	"github.com/routedesk/courierbot/courier/nav"
	"github.com/routedesk/courierbot/courier/session"
	"github.com/routedesk/courierbot/courier/token"

	tele "gopkg.in/telebot.v4"
)

const startText = "*Courier route assistant*\n\n" +
	"/routes lists your routes; open one and walk it point by point\\.\n" +
	"Admins build routes with /newroute and remove them with /droproute\\."

func (a *App) registerCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "What this bot does",
	})
	reg.RegisterCommand("/routes", commands.Command{
		Handler:     a.handleRoutes,
		Description: "List your routes",
	})
	reg.RegisterCommand("/newroute", commands.Command{
		Handler:     a.handleNewRoute,
		Description: "Build a new route",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Discard the route draft",
		Hidden:      true,
	})
	reg.RegisterCommand("/droproute", commands.Command{
		Handler:     a.handleDropRoute,
		Description: "Delete one of your routes",
		AdminOnly:   true,
	})
}

func (a *App) handleStart(c tele.Context) error {
	return tghelpers.SendMDV2(c, startText)
}

// handleRoutes lists the courier's routes as open buttons. Each button
// carries a freshly minted route token.
func (a *App) handleRoutes(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	ids, err := a.sessions.ListByUser(ctx, sender.ID)
	if err != nil {
		logger.Error(ctx, "bot", "routes.list.failed",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "Could not load your routes, try again.")
	}
	if len(ids) == 0 {
		return tghelpers.SendText(c, "You have no routes yet.")
	}

	btns, err := a.routeButtons(ctx, ids, nav.KeyRoute)
	if err != nil {
		return tghelpers.SendText(c, "Could not load your routes, try again.")
	}
	return c.Send(
		fmt.Sprintf("Your routes (%d):", len(ids)),
		keyboard.InlineButtons(btns),
	)
}

func (a *App) handleNewRoute(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	a.drafts.Start(sender.ID)
	return c.Send(
		"Building a new route. Send the location name.",
		keyboard.SingleCancelMarkup(draftCancelKey),
	)
}

func (a *App) handleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if a.drafts.Cancel(sender.ID) {
		return tghelpers.SendText(c, "Draft discarded.")
	}
	return tghelpers.SendText(c, "Nothing to cancel.")
}

// handleDropRoute lists the admin's routes as delete buttons sharing the
// navigation token scheme.
func (a *App) handleDropRoute(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	ids, err := a.sessions.ListByUser(ctx, sender.ID)
	if err != nil {
		logger.Error(ctx, "bot", "routes.list.failed",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "Could not load your routes, try again.")
	}
	if len(ids) == 0 {
		return tghelpers.SendText(c, "You have no routes to delete.")
	}

	btns, err := a.routeButtons(ctx, ids, dropKey)
	if err != nil {
		return tghelpers.SendText(c, "Could not load your routes, try again.")
	}
	return c.Send("Pick a route to delete:", keyboard.InlineButtons(btns))
}

// routeButtons mints a route token per session and labels each button with
// the location and creation date.
func (a *App) routeButtons(ctx context.Context, ids []session.ID, key string) ([]keyboard.InlineBtn, error) {
	btns := make([]keyboard.InlineBtn, 0, len(ids))
	for _, id := range ids {
		tok, err := a.issuer.Issue(ctx, token.RouteRef(id))
		if err != nil {
			logger.Error(ctx, "bot", "routes.token.failed",
				slog.String("session_id", id.String()),
				slog.String("err", err.Error()),
			)
			return nil, err
		}
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("📍 %s (%s)", id.Location, id.CreatedAt.Format("02 Jan")),
			Unique: key,
			Data:   tok.String(),
		})
	}
	return btns, nil
}
