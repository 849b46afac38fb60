package bot

import (
	"fmt"
	"strings"
	"sync"

	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
	"github.com/routedesk/courierbot/core/telegram/format"
	tghelpers "github.com/routedesk/courierbot/core/telegram/helpers"
	"github.com/routedesk/courierbot/core/telegram/keyboard"
	"github.com/routedesk/courierbot/courier/nav"
	"github.com/routedesk/courierbot/courier/session"
	"github.com/routedesk/courierbot/courier/token"

	tele "gopkg.in/telebot.v4"
)

type draftStage uint8

const (
	stageLocation draftStage = iota
	stagePoints
)

// draft accumulates one route under construction.
type draft struct {
	stage    draftStage
	location string
	points   []session.Point
}

// DraftManager holds in-progress route drafts keyed by the admin building
// them. One draft per user at a time; starting a new one discards the old.
type DraftManager struct {
	mu       sync.RWMutex
	drafts   map[int64]*draft
	sessions session.Store
	issuer   *token.Issuer
}

// NewDraftManager builds an empty manager over the given stores.
func NewDraftManager(sessions session.Store, issuer *token.Issuer) *DraftManager {
	return &DraftManager{
		drafts:   make(map[int64]*draft),
		sessions: sessions,
		issuer:   issuer,
	}
}

// Start opens a fresh draft for the user, replacing any existing one.
func (m *DraftManager) Start(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[userID] = &draft{stage: stageLocation}
}

// Cancel discards the user's draft. Reports whether one existed.
func (m *DraftManager) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drafts[userID]
	delete(m.drafts, userID)
	return ok
}

// InProgress reports whether the user is mid-draft.
func (m *DraftManager) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.drafts[userID]
	return ok
}

func (m *DraftManager) get(userID int64) (*draft, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[userID]
	return d, ok
}

// Handle consumes the next draft input: the location name first, then one
// point per text message. A photo attaches to the most recent point.
// "/done" commits the draft as a route session, "/cancel" discards it.
func (m *DraftManager) Handle(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	d, ok := m.get(sender.ID)
	if !ok {
		return nil
	}

	text := strings.TrimSpace(c.Text())
	switch strings.ToLower(text) {
	case "/cancel":
		m.Cancel(sender.ID)
		return tghelpers.SendText(c, "Draft discarded.")
	case "/done":
		return m.finish(c, sender.ID, d)
	}

	if msg := c.Message(); msg != nil && msg.Photo != nil {
		return m.attachPhoto(c, d, msg.Photo.FileID)
	}

	switch d.stage {
	case stageLocation:
		if text == "" {
			return tghelpers.SendText(c, "Send the route location name.")
		}
		m.mu.Lock()
		d.location = text
		d.stage = stagePoints
		m.mu.Unlock()
		return tghelpers.SendText(c,
			fmt.Sprintf("Route %q started. Send one point per message, a photo to attach it to the last point, /done to finish.", text))
	case stagePoints:
		if text == "" {
			return tghelpers.SendText(c, "Send the point description as text, or /done to finish.")
		}
		m.mu.Lock()
		d.points = append(d.points, session.Point{Index: len(d.points), Detail: text})
		n := len(d.points)
		m.mu.Unlock()
		return tghelpers.SendText(c, fmt.Sprintf("Point %d added. Next point, a photo, or /done.", n))
	}
	return nil
}

func (m *DraftManager) attachPhoto(c tele.Context, d *draft, fileID string) error {
	m.mu.Lock()
	if d.stage != stagePoints || len(d.points) == 0 {
		m.mu.Unlock()
		return tghelpers.SendText(c, "Add a point first, then send its photo.")
	}
	idx := len(d.points) - 1
	d.points[idx].PhotoID = fileID
	m.mu.Unlock()
	return tghelpers.SendText(c, fmt.Sprintf("Photo attached to point %d.", idx+1))
}

// finish persists the draft, mints the route token, and replies with an
// open button so the admin lands straight in navigation.
func (m *DraftManager) finish(c tele.Context, userID int64, d *draft) error {
	m.mu.Lock()
	if d.stage != stagePoints || len(d.points) == 0 {
		m.mu.Unlock()
		return tghelpers.SendText(c, "The draft has no points yet. Add at least one before /done.")
	}
	location := d.location
	points := make([]session.Point, len(d.points))
	copy(points, d.points)
	delete(m.drafts, userID)
	m.mu.Unlock()

	ctx := tghelpers.BuildContext(c)
	sid := session.NewID(userID, location)
	if err := m.sessions.Create(ctx, sid, points); err != nil {
		logger.Error(ctx, "bot", "draft.commit.failed",
			slog.String("session_id", sid.String()),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "Could not save the route, try again.")
	}

	tok, err := m.issuer.Issue(ctx, token.RouteRef(sid))
	if err != nil {
		logger.Error(ctx, "bot", "draft.token.failed",
			slog.String("session_id", sid.String()),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c,
			fmt.Sprintf("Route %q saved with %d points.", location, len(points)))
	}

	logger.Info(ctx, "bot", "draft.committed",
		slog.String("session_id", sid.String()),
		slog.Int("points", len(points)),
	)
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🚚 Open route", Unique: nav.KeyRoute, Data: tok.String()},
	})
	return tghelpers.SendMDV2(c,
		fmt.Sprintf("Route *%s* saved with %d points\\.", format.EscapeMarkdownV2(location), len(points)),
		markup,
	)
}
