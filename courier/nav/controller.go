package nav

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
	"github.com/routedesk/courierbot/courier/session"
	"github.com/routedesk/courierbot/courier/token"
)

// Callback handler keys carried by inline controls. The kind-prefix keys
// resolve through the token store; the step keys reinterpret the current
// point's token relative to its index.
const (
	KeyRoute = "r"
	KeyPoint = "rp"
	KeyPhoto = "p"
	KeyNext  = "nav_next"
	KeyPrev  = "nav_prev"
)

const (
	labelPrev   = "⬅️ Prev"
	labelNext   = "Next ➡️"
	labelRoute  = "📋 Route"
	labelPhoto  = "📷 Photo"
	labelToItem = "📍 Point"
)

// Notice texts shown when a navigation error is absorbed at the controller
// boundary.
const (
	noticeStaleButton = "This button is no longer valid."
	noticeGoneRoute   = "This route is no longer available."
	noticeNoSuchPoint = "There is no such point on this route."
	noticeEmptyRoute  = "This route has no points yet."
)

// Controller is the navigation state machine. The only steady state is
// "at point": each inbound token names a target, the controller renders it
// over the current screen and mints fresh control tokens for the result.
type Controller struct {
	sessions session.Store
	tokens   *token.Issuer
	renderer *Renderer
}

// NewController wires the route session model, the token issuer, and the
// chat transport together.
func NewController(sessions session.Store, tokens *token.Issuer, transport Transport) *Controller {
	return &Controller{
		sessions: sessions,
		tokens:   tokens,
		renderer: NewRenderer(transport),
	}
}

// Open resolves a raw token and renders its target: the route list for
// route tokens, the addressed point for point tokens, and the photo view
// for photo tokens. All four navigation error kinds are absorbed into
// informational surfaces; only internal faults are returned.
func (c *Controller) Open(ctx context.Context, raw string, screen Screen) error {
	ref, err := c.tokens.Resolve(ctx, raw)
	if err != nil {
		return c.absorb(ctx, screen, err)
	}
	switch ref.Kind {
	case token.KindRoute:
		return c.showRouteList(ctx, ref.Session, screen)
	case token.KindPoint:
		return c.showPointClamped(ctx, ref.Session, ref.Index, screen)
	case token.KindPhoto:
		return c.showPhoto(ctx, ref, screen)
	default:
		return c.absorb(ctx, screen, token.ErrMalformedToken)
	}
}

// Step moves relative to the point a raw token addresses: +1 for next,
// -1 for previous. Stepping past either boundary re-renders the current
// point; the endpoints are natural stops, never wraps or errors.
func (c *Controller) Step(ctx context.Context, raw string, delta int, screen Screen) error {
	ref, err := c.tokens.Resolve(ctx, raw)
	if err != nil {
		return c.absorb(ctx, screen, err)
	}
	if ref.Kind != token.KindPoint {
		return c.absorb(ctx, screen, token.ErrMalformedToken)
	}
	return c.showPointClamped(ctx, ref.Session, ref.Index+delta, screen)
}

// JumpTo renders an explicitly requested point index. Unlike stepping,
// an out-of-range index is answered with a "no such point" notice and no
// state changes.
func (c *Controller) JumpTo(ctx context.Context, sid session.ID, index int, screen Screen) error {
	if _, err := c.sessions.PointAt(ctx, sid, index); err != nil {
		return c.absorb(ctx, screen, err)
	}
	return c.showPointClamped(ctx, sid, index, screen)
}

func (c *Controller) showPointClamped(ctx context.Context, sid session.ID, index int, screen Screen) error {
	count, err := c.sessions.PointCount(ctx, sid)
	if err != nil {
		return c.absorb(ctx, screen, err)
	}
	if count == 0 {
		return c.notice(ctx, screen, noticeEmptyRoute)
	}
	if index < 0 {
		index = 0
	}
	if index >= count {
		index = count - 1
	}
	pt, err := c.sessions.PointAt(ctx, sid, index)
	if err != nil {
		return c.absorb(ctx, screen, err)
	}

	refs := pointControlRefs(sid, pt)
	target := c.pointSurface(sid, pt, count, refs)
	return c.commit(ctx, screen, target, refs)
}

func (c *Controller) showPhoto(ctx context.Context, ref token.Reference, screen Screen) error {
	pt, err := c.sessions.PointAt(ctx, ref.Session, ref.Index)
	if err != nil {
		return c.absorb(ctx, screen, err)
	}
	if !pt.HasPhoto() {
		return c.notice(ctx, screen, noticeStaleButton)
	}

	refs := []token.Reference{token.PointRef(ref.Session, pt.Index)}
	target := Surface{
		Kind:    SurfacePhoto,
		Text:    fmt.Sprintf("Point %d: %s", pt.Index+1, pt.Detail),
		PhotoID: pt.PhotoID,
		Controls: [][]Control{{
			{Label: labelToItem, Key: KeyPoint, Token: c.tokens.Codec().Encode(refs[0]).String()},
		}},
	}
	return c.commit(ctx, screen, target, refs)
}

func (c *Controller) showRouteList(ctx context.Context, sid session.ID, screen Screen) error {
	points, err := c.sessions.Points(ctx, sid)
	if err != nil {
		return c.absorb(ctx, screen, err)
	}

	text := fmt.Sprintf("🚚 Route %s, %d points:\n", sid.Location, len(points))
	var rows [][]Control
	refs := make([]token.Reference, 0, len(points))
	for _, pt := range points {
		text += fmt.Sprintf("%d. %s\n", pt.Index+1, pt.Detail)
		ref := token.PointRef(sid, pt.Index)
		refs = append(refs, ref)
		rows = append(rows, []Control{{
			Label: fmt.Sprintf("%d. %s", pt.Index+1, trimLabel(pt.Detail)),
			Key:   KeyPoint,
			Token: c.tokens.Codec().Encode(ref).String(),
		}})
	}
	if len(points) == 0 {
		text += noticeEmptyRoute
	}
	target := Surface{Kind: SurfaceText, Text: text, Controls: rows}
	return c.commit(ctx, screen, target, refs)
}

// pointSurface renders one point with its navigation controls. Prev and
// next both carry the current point's token; the step handlers apply the
// direction at press time, which keeps controls pointing at the point
// actually on screen.
func (c *Controller) pointSurface(sid session.ID, pt session.Point, count int, refs []token.Reference) Surface {
	codec := c.tokens.Codec()
	self := codec.Encode(token.PointRef(sid, pt.Index)).String()

	nav := []Control{
		{Label: labelPrev, Key: KeyPrev, Token: self},
		{Label: labelNext, Key: KeyNext, Token: self},
	}
	second := []Control{
		{Label: labelRoute, Key: KeyRoute, Token: codec.Encode(token.RouteRef(sid)).String()},
	}
	if pt.HasPhoto() {
		second = append(second, Control{
			Label: labelPhoto,
			Key:   KeyPhoto,
			Token: codec.Encode(token.PhotoRef(sid, pt.Index)).String(),
		})
	}

	kind := SurfaceText
	if pt.HasPhoto() {
		kind = SurfacePhoto
	}
	return Surface{
		Kind:     kind,
		Text:     fmt.Sprintf("📍 Point %d of %d\n\n%s", pt.Index+1, count, pt.Detail),
		PhotoID:  pt.PhotoID,
		Controls: [][]Control{nav, second},
	}
}

// commit renders the target and only then records the pre-computed control
// tokens, so a crash mid-render cannot persist a token for a surface that
// was never shown. When a collision extended a recorded code beyond what
// the surface carries, the surface is refreshed once with the extended
// tokens.
func (c *Controller) commit(ctx context.Context, screen Screen, target Surface, refs []token.Reference) error {
	shown, err := c.renderer.Render(ctx, screen, target)
	if err != nil {
		return fmt.Errorf("nav: render: %w", err)
	}

	extended := make(map[string]string)
	for _, ref := range refs {
		rendered := c.tokens.Codec().Encode(ref)
		issued, err := c.tokens.Issue(ctx, ref)
		if err != nil {
			return fmt.Errorf("nav: issue token: %w", err)
		}
		if issued.String() != rendered.String() {
			extended[rendered.String()] = issued.String()
		}
	}
	if len(extended) == 0 {
		return nil
	}

	logger.Warn(ctx, "nav", "controls.refresh",
		slog.Int("count", len(extended)),
	)
	for i, row := range target.Controls {
		for j, ctl := range row {
			if repl, ok := extended[ctl.Token]; ok {
				target.Controls[i][j].Token = repl
			}
		}
	}
	if _, err := c.renderer.Render(ctx, Screen{Ref: shown, Kind: target.Kind}, target); err != nil {
		// The stale buttons still resolve to a defined mapping.
		logger.Warn(ctx, "nav", "controls.refresh.failed",
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// absorb converts navigation error kinds into informational surfaces per
// the propagation policy; anything else is returned for the operational
// path.
func (c *Controller) absorb(ctx context.Context, screen Screen, err error) error {
	switch {
	case errors.Is(err, token.ErrMalformedToken), errors.Is(err, token.ErrUnknownToken):
		return c.notice(ctx, screen, noticeStaleButton)
	case errors.Is(err, session.ErrSessionNotFound):
		return c.notice(ctx, screen, noticeGoneRoute)
	case errors.Is(err, session.ErrPointOutOfRange):
		return c.notice(ctx, screen, noticeNoSuchPoint)
	default:
		return err
	}
}

func (c *Controller) notice(ctx context.Context, screen Screen, text string) error {
	_, err := c.renderer.Render(ctx, screen, Surface{Kind: SurfaceText, Text: text})
	if err != nil {
		return fmt.Errorf("nav: notice render: %w", err)
	}
	return nil
}

func pointControlRefs(sid session.ID, pt session.Point) []token.Reference {
	refs := []token.Reference{
		token.PointRef(sid, pt.Index),
		token.RouteRef(sid),
	}
	if pt.HasPhoto() {
		refs = append(refs, token.PhotoRef(sid, pt.Index))
	}
	return refs
}

func trimLabel(s string) string {
	const max = 24
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
