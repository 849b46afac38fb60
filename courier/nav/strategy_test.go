package nav

import (
	"context"
	"errors"
	"testing"
)

// fakeTransport records every transport call and can be programmed to fail.
type fakeTransport struct {
	sends   []Surface
	edits   []Surface
	deletes []MessageRef

	failEdits   int
	failSends   int
	failDeletes bool

	nextMessageID int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextMessageID: 100}
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, s Surface) (MessageRef, error) {
	if f.failSends > 0 {
		f.failSends--
		return MessageRef{}, errors.New("send refused")
	}
	f.sends = append(f.sends, s)
	f.nextMessageID++
	return MessageRef{ChatID: chatID, MessageID: f.nextMessageID}, nil
}

func (f *fakeTransport) Edit(_ context.Context, _ MessageRef, s Surface) error {
	if f.failEdits > 0 {
		f.failEdits--
		return errors.New("message can't be edited")
	}
	f.edits = append(f.edits, s)
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, ref MessageRef) error {
	if f.failDeletes {
		return errors.New("message can't be deleted")
	}
	f.deletes = append(f.deletes, ref)
	return nil
}

func (f *fakeTransport) counts() (sends, edits, deletes int) {
	return len(f.sends), len(f.edits), len(f.deletes)
}

func TestDecideTable(t *testing.T) {
	cases := []struct {
		current  SurfaceKind
		hasPhoto bool
		want     Action
	}{
		{SurfaceText, false, ActionEdit},
		{SurfaceText, true, ActionSend},
		{SurfacePhoto, false, ActionReplace},
		{SurfacePhoto, true, ActionReplace},
	}
	for _, tc := range cases {
		if got := Decide(tc.current, tc.hasPhoto); got != tc.want {
			t.Fatalf("Decide(%v, %v) = %v, want %v", tc.current, tc.hasPhoto, got, tc.want)
		}
	}
}

func TestRenderTextOverTextEditsInPlace(t *testing.T) {
	tr := newFakeTransport()
	r := NewRenderer(tr)
	screen := Screen{Ref: MessageRef{ChatID: 1, MessageID: 10}, Kind: SurfaceText}

	ref, err := r.Render(context.Background(), screen, Surface{Kind: SurfaceText, Text: "hello"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if ref != screen.Ref {
		t.Fatalf("edit should keep message ref, got %+v", ref)
	}
	if s, e, d := tr.counts(); s != 0 || e != 1 || d != 0 {
		t.Fatalf("sends/edits/deletes = %d/%d/%d, want 0/1/0", s, e, d)
	}
}

func TestRenderPhotoOverTextSendsKeepingOld(t *testing.T) {
	tr := newFakeTransport()
	r := NewRenderer(tr)
	screen := Screen{Ref: MessageRef{ChatID: 1, MessageID: 10}, Kind: SurfaceText}

	ref, err := r.Render(context.Background(), screen, Surface{Kind: SurfacePhoto, PhotoID: "f1", Text: "cap"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if ref == screen.Ref {
		t.Fatal("photo render must produce a new message")
	}
	if s, e, d := tr.counts(); s != 1 || e != 0 || d != 0 {
		t.Fatalf("sends/edits/deletes = %d/%d/%d, want 1/0/0", s, e, d)
	}
}

func TestRenderTextOverPhotoReplaces(t *testing.T) {
	tr := newFakeTransport()
	r := NewRenderer(tr)
	screen := Screen{Ref: MessageRef{ChatID: 1, MessageID: 10}, Kind: SurfacePhoto}

	_, err := r.Render(context.Background(), screen, Surface{Kind: SurfaceText, Text: "plain"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if s, e, d := tr.counts(); s != 1 || e != 0 || d != 1 {
		t.Fatalf("sends/edits/deletes = %d/%d/%d, want 1/0/1", s, e, d)
	}
	if tr.deletes[0] != screen.Ref {
		t.Fatalf("deleted wrong message: %+v", tr.deletes[0])
	}
}

func TestRenderDeleteFailureIsSwallowed(t *testing.T) {
	tr := newFakeTransport()
	tr.failDeletes = true
	r := NewRenderer(tr)
	screen := Screen{Ref: MessageRef{ChatID: 1, MessageID: 10}, Kind: SurfacePhoto}

	ref, err := r.Render(context.Background(), screen, Surface{Kind: SurfaceText, Text: "plain"})
	if err != nil {
		t.Fatalf("delete failure must not propagate: %v", err)
	}
	if ref.IsZero() {
		t.Fatal("expected a delivered message ref")
	}
	if s, _, _ := tr.counts(); s != 1 {
		t.Fatalf("sends = %d, want 1", s)
	}
}

func TestRenderEditFailureFallsBackToSend(t *testing.T) {
	tr := newFakeTransport()
	tr.failEdits = 1
	r := NewRenderer(tr)
	screen := Screen{Ref: MessageRef{ChatID: 1, MessageID: 10}, Kind: SurfaceText}

	target := Surface{Kind: SurfaceText, Text: "intended content"}
	ref, err := r.Render(context.Background(), screen, target)
	if err != nil {
		t.Fatalf("fallback must succeed: %v", err)
	}
	if ref == screen.Ref {
		t.Fatal("fallback should deliver a new message")
	}
	if s, e, _ := tr.counts(); s != 1 || e != 0 {
		t.Fatalf("sends/edits = %d/%d, want 1/0", s, e)
	}
	if tr.sends[0].Text != "intended content" {
		t.Fatalf("fallback lost content: %q", tr.sends[0].Text)
	}
}

func TestRenderSendFailureRetriesOnce(t *testing.T) {
	tr := newFakeTransport()
	tr.failSends = 1
	r := NewRenderer(tr)
	screen := Screen{Ref: MessageRef{ChatID: 1, MessageID: 10}, Kind: SurfaceText}

	_, err := r.Render(context.Background(), screen, Surface{Kind: SurfacePhoto, PhotoID: "f1"})
	if err != nil {
		t.Fatalf("retry must succeed: %v", err)
	}
	if s, _, _ := tr.counts(); s != 1 {
		t.Fatalf("sends = %d, want 1 successful", s)
	}
}
