// Package bot wires the navigation engine, the route stores, and the draft
// conversation flow into Telegram commands and callbacks.
package bot

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/routedesk/courierbot/core/telegram/keyboard"
	"github.com/routedesk/courierbot/courier/nav"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned when the transport is used before the bot
// instance exists.
var ErrNotBound = errors.New("bot: transport not bound")

// teleTransport adapts a telebot instance to the nav.Transport interface.
// The bot is created late in the run sequence, so the transport starts
// unbound and is attached from the OnStart hook.
type teleTransport struct {
	bot atomic.Pointer[tele.Bot]
}

func newTeleTransport() *teleTransport {
	return &teleTransport{}
}

// Bind attaches the live bot instance.
func (t *teleTransport) Bind(b *tele.Bot) {
	t.bot.Store(b)
}

func (t *teleTransport) current() (*tele.Bot, error) {
	b := t.bot.Load()
	if b == nil {
		return nil, ErrNotBound
	}
	return b, nil
}

func (t *teleTransport) Send(_ context.Context, chatID int64, s nav.Surface) (nav.MessageRef, error) {
	b, err := t.current()
	if err != nil {
		return nav.MessageRef{}, err
	}

	opts := &tele.SendOptions{ReplyMarkup: surfaceMarkup(s)}
	var msg *tele.Message
	if s.HasPhoto() {
		photo := &tele.Photo{
			File:    tele.File{FileID: s.PhotoID},
			Caption: s.Text,
		}
		msg, err = b.Send(tele.ChatID(chatID), photo, opts)
	} else {
		msg, err = b.Send(tele.ChatID(chatID), s.Text, opts)
	}
	if err != nil {
		return nav.MessageRef{}, err
	}
	return nav.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (t *teleTransport) Edit(_ context.Context, ref nav.MessageRef, s nav.Surface) error {
	b, err := t.current()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ReplyMarkup: surfaceMarkup(s)}
	_, err = b.Edit(storedMessage(ref), s.Text, opts)
	return err
}

func (t *teleTransport) Delete(_ context.Context, ref nav.MessageRef) error {
	b, err := t.current()
	if err != nil {
		return err
	}
	return b.Delete(storedMessage(ref))
}

func storedMessage(ref nav.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
}

// surfaceMarkup converts surface controls into an inline keyboard. The
// control key becomes the callback unique and the token its payload.
func surfaceMarkup(s nav.Surface) *tele.ReplyMarkup {
	if len(s.Controls) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(s.Controls))
	for _, row := range s.Controls {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, ctl := range row {
			btns = append(btns, keyboard.InlineBtn{
				Text:   ctl.Label,
				Unique: ctl.Key,
				Data:   ctl.Token,
			})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}
