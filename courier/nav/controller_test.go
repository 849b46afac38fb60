package nav

import (
	"context"
	"strings"
	"testing"

	"github.com/routedesk/courierbot/courier/session"
	"github.com/routedesk/courierbot/courier/token"
)

type fixture struct {
	sessions session.Store
	issuer   *token.Issuer
	tr       *fakeTransport
	ctl      *Controller
	sid      session.ID
}

func newFixture(t *testing.T, points []session.Point) *fixture {
	t.Helper()
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	sid := session.NewID(42, "Wologda")
	if err := sessions.Create(ctx, sid, points); err != nil {
		t.Fatalf("create session: %v", err)
	}
	issuer := token.NewIssuer(token.NewCodec(), token.NewMemoryStore())
	tr := newFakeTransport()
	return &fixture{
		sessions: sessions,
		issuer:   issuer,
		tr:       tr,
		ctl:      NewController(sessions, issuer, tr),
		sid:      sid,
	}
}

func (f *fixture) pointToken(t *testing.T, index int) string {
	t.Helper()
	tok, err := f.issuer.Issue(context.Background(), token.PointRef(f.sid, index))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok.String()
}

func textScreen() Screen {
	return Screen{Ref: MessageRef{ChatID: 7, MessageID: 10}, Kind: SurfaceText}
}

func lastSurface(t *testing.T, tr *fakeTransport) Surface {
	t.Helper()
	if len(tr.edits) > 0 && len(tr.sends) == 0 {
		return tr.edits[len(tr.edits)-1]
	}
	if len(tr.sends) > 0 {
		return tr.sends[len(tr.sends)-1]
	}
	t.Fatal("nothing rendered")
	return Surface{}
}

func twoPoints() []session.Point {
	return []session.Point{
		{Detail: "Pickup at Main St"},
		{Detail: "Dropoff at 5th Ave", PhotoID: "photo-5th"},
	}
}

func TestStepClampsAtBoundaries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	// previous at index 0 stays at index 0
	if err := f.ctl.Step(ctx, f.pointToken(t, 0), -1, textScreen()); err != nil {
		t.Fatalf("step: %v", err)
	}
	got := lastSurface(t, f.tr)
	if !strings.Contains(got.Text, "Point 1 of 2") {
		t.Fatalf("expected point 1, got %q", got.Text)
	}

	// next at the last index stays there
	if err := f.ctl.Step(ctx, f.pointToken(t, 1), +1, Screen{Ref: MessageRef{ChatID: 7, MessageID: 11}, Kind: SurfacePhoto}); err != nil {
		t.Fatalf("step: %v", err)
	}
	got = lastSurface(t, f.tr)
	if !strings.Contains(got.Text, "Point 2 of 2") {
		t.Fatalf("expected point 2, got %q", got.Text)
	}
}

func TestStepMintsFreshControlTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	if err := f.ctl.Step(ctx, f.pointToken(t, 0), +1, textScreen()); err != nil {
		t.Fatalf("step: %v", err)
	}
	got := lastSurface(t, f.tr)
	if got.Kind != SurfacePhoto {
		t.Fatalf("point 1 carries a photo, got kind %v", got.Kind)
	}

	// Every rendered control must already resolve through the store.
	var checked int
	for _, row := range got.Controls {
		for _, ctl := range row {
			ref, err := f.issuer.Resolve(ctx, ctl.Token)
			if err != nil {
				t.Fatalf("control %q token unresolved: %v", ctl.Label, err)
			}
			switch ctl.Key {
			case KeyPrev, KeyNext, KeyPoint:
				if ref.Kind != token.KindPoint || ref.Index != 1 {
					t.Fatalf("control %q points at %+v", ctl.Label, ref)
				}
			case KeyRoute:
				if ref.Kind != token.KindRoute {
					t.Fatalf("route control resolves to %+v", ref)
				}
			case KeyPhoto:
				if ref.Kind != token.KindPhoto || ref.Index != 1 {
					t.Fatalf("photo control resolves to %+v", ref)
				}
			}
			checked++
		}
	}
	if checked < 4 {
		t.Fatalf("expected prev/next/route/photo controls, saw %d", checked)
	}
}

func TestScenarioTextPhotoText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	// Point 0 over a text surface: edited in place.
	if err := f.ctl.Step(ctx, f.pointToken(t, 0), 0, textScreen()); err != nil {
		t.Fatalf("show point 0: %v", err)
	}
	if s, e, d := f.tr.counts(); s != 0 || e != 1 || d != 0 {
		t.Fatalf("after point 0: sends/edits/deletes = %d/%d/%d, want 0/1/0", s, e, d)
	}

	// Point 1 has a photo: new message, old text untouched.
	if err := f.ctl.Step(ctx, f.pointToken(t, 0), +1, textScreen()); err != nil {
		t.Fatalf("show point 1: %v", err)
	}
	if s, e, d := f.tr.counts(); s != 1 || e != 1 || d != 0 {
		t.Fatalf("after point 1: sends/edits/deletes = %d/%d/%d, want 1/1/0", s, e, d)
	}

	// Back to point 0 over the photo surface: replace and delete.
	photoScreen := Screen{Ref: MessageRef{ChatID: 7, MessageID: 101}, Kind: SurfacePhoto}
	if err := f.ctl.Step(ctx, f.pointToken(t, 1), -1, photoScreen); err != nil {
		t.Fatalf("show point 0 again: %v", err)
	}
	if s, e, d := f.tr.counts(); s != 2 || e != 1 || d != 1 {
		t.Fatalf("after return: sends/edits/deletes = %d/%d/%d, want 2/1/1", s, e, d)
	}
	if f.tr.deletes[0] != photoScreen.Ref {
		t.Fatalf("deleted wrong message: %+v", f.tr.deletes[0])
	}
}

func TestOpenRouteListAndJump(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	routeTok, err := f.issuer.Issue(ctx, token.RouteRef(f.sid))
	if err != nil {
		t.Fatalf("issue route: %v", err)
	}
	if err := f.ctl.Open(ctx, routeTok.String(), textScreen()); err != nil {
		t.Fatalf("open route: %v", err)
	}
	list := lastSurface(t, f.tr)
	if !strings.Contains(list.Text, "Pickup at Main St") || !strings.Contains(list.Text, "Dropoff at 5th Ave") {
		t.Fatalf("route list missing points: %q", list.Text)
	}
	if len(list.Controls) != 2 {
		t.Fatalf("route list rows = %d, want 2", len(list.Controls))
	}

	// Pressing a point row opens that point.
	if err := f.ctl.Open(ctx, list.Controls[1][0].Token, textScreen()); err != nil {
		t.Fatalf("open point: %v", err)
	}
	got := lastSurface(t, f.tr)
	if !strings.Contains(got.Text, "Point 2 of 2") {
		t.Fatalf("expected point 2, got %q", got.Text)
	}
}

func TestOpenPhotoView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	photoTok, err := f.issuer.Issue(ctx, token.PhotoRef(f.sid, 1))
	if err != nil {
		t.Fatalf("issue photo: %v", err)
	}
	if err := f.ctl.Open(ctx, photoTok.String(), textScreen()); err != nil {
		t.Fatalf("open photo: %v", err)
	}
	got := lastSurface(t, f.tr)
	if got.Kind != SurfacePhoto || got.PhotoID != "photo-5th" {
		t.Fatalf("unexpected photo surface: %+v", got)
	}
}

func TestNavigationErrorsBecomeNotices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	// Unknown token
	if err := f.ctl.Open(ctx, "rp:000000000000", textScreen()); err != nil {
		t.Fatalf("unknown token must be absorbed: %v", err)
	}
	if got := lastSurface(t, f.tr); got.Text != noticeStaleButton {
		t.Fatalf("expected stale-button notice, got %q", got.Text)
	}

	// Malformed token
	if err := f.ctl.Open(ctx, "garbage", textScreen()); err != nil {
		t.Fatalf("malformed token must be absorbed: %v", err)
	}

	// Session deleted under a live token
	tok := f.pointToken(t, 0)
	if err := f.sessions.Delete(ctx, f.sid); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if err := f.ctl.Open(ctx, tok, textScreen()); err != nil {
		t.Fatalf("stale session token must be absorbed: %v", err)
	}
	if got := lastSurface(t, f.tr); got.Text != noticeGoneRoute {
		t.Fatalf("expected gone-route notice, got %q", got.Text)
	}
}

func TestJumpToOutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, twoPoints())

	if err := f.ctl.JumpTo(ctx, f.sid, 5, textScreen()); err != nil {
		t.Fatalf("jump must be absorbed: %v", err)
	}
	if got := lastSurface(t, f.tr); got.Text != noticeNoSuchPoint {
		t.Fatalf("expected no-such-point notice, got %q", got.Text)
	}
}
