package hub_test

import (
	"strings"
	"testing"

	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/log"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// recordingLogger keeps every event it receives for assertions.
type recordingLogger struct {
	events []log.Event
}

func (l *recordingLogger) Log(ev log.Event) { l.events = append(l.events, ev) }

func scriptCard(ch *comtest.Channel, addr string) {
	ch.RespondLines(addr+"BU X",
		"STD_XY",
		"Motor Axes: X Y",
		"Axis Props: 74 74",
		"RING BUFFER_50",
	)
	ch.Respond(addr+"V", ":A Version: 3.30")
}

func TestBuildInfoCaching(t *testing.T) {
	ch := comtest.New()
	scriptCard(ch, "1")
	h := hub.New(ch)

	info, err := h.BuildInfo('1')
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "STD_XY" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Version != 3.30 {
		t.Errorf("Version = %v", info.Version)
	}

	// Second peripheral on the same card reuses the cache.
	if _, err := h.BuildInfo('1'); err != nil {
		t.Fatal(err)
	}
	if got := ch.Count("1BU X"); got != 1 {
		t.Fatalf("build report fetched %d times, want 1", got)
	}
	if got := ch.Count("1V"); got != 1 {
		t.Fatalf("version fetched %d times, want 1", got)
	}
}

func TestBuildInfoPerCard(t *testing.T) {
	ch := comtest.New()
	scriptCard(ch, "1")
	ch.RespondLines("2BU X", "STD_ZF", "Motor Axes: Z F", "Axis Props: 2 2")
	ch.Respond("2V", ":A Version: 2.89")
	h := hub.New(ch)

	a, err := h.BuildInfo('1')
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.BuildInfo('2')
	if err != nil {
		t.Fatal(err)
	}
	if a.Name == b.Name {
		t.Fatal("cards must have distinct build info")
	}
	if b.Version != 2.89 {
		t.Errorf("card 2 version = %v", b.Version)
	}
}

func TestUpdateShared(t *testing.T) {
	ch := comtest.New()
	h := hub.New(ch)

	newReg := func() *prop.Registry {
		reg := prop.NewRegistry()
		reg.MustAdd(prop.Metadata{
			Name: "SaveCardSettings", Type: prop.TypeEnum, Default: "no action",
			Enum: prop.NewEnumTable().
				Add("no action", 0).
				Add("save settings done", 4),
			AfterSet: func(p *prop.Property) error {
				t.Error("propagation must not run write handlers")
				return nil
			},
		})
		return reg
	}

	regA := newReg()
	regB := newReg()
	other := prop.NewRegistry() // different card
	other.MustAdd(prop.Metadata{
		Name: "SaveCardSettings", Type: prop.TypeEnum, Default: "no action",
		Enum: prop.NewEnumTable().Add("no action", 0).Add("save settings done", 4),
	})

	h.Register('1', regA)
	h.Register('1', regB)
	h.Register('2', other)

	h.UpdateShared('1', "SaveCardSettings", "save settings done")

	for i, reg := range []*prop.Registry{regA, regB} {
		if v, _ := reg.Cached("SaveCardSettings"); v != "save settings done" {
			t.Errorf("registry %d cached = %q", i, v)
		}
	}
	if v, _ := other.Cached("SaveCardSettings"); v != "no action" {
		t.Errorf("other card cached = %q, propagation crossed cards", v)
	}
	if ch.SentTotal() != 0 {
		t.Errorf("propagation sent commands: %v", ch.Sent())
	}
	if h.UpdatingShared() {
		t.Error("UpdatingShared still true after propagation")
	}
}

func TestUpdateSharedSiblingRejects(t *testing.T) {
	ch := comtest.New()
	ch.Respond("2RM F=2", ":A")
	h := hub.New(ch)
	rec := &recordingLogger{}
	h.SetLogger(rec)

	origin := prop.NewRegistry()
	origin.MustAdd(prop.Metadata{
		Name: "Mode", Type: prop.TypeEnum, Default: "One",
		Enum: prop.NewEnumTable().Add("One", 1).Add("Two", 2),
		AfterSet: func(p *prop.Property) error {
			if _, err := h.QueryVerify("2RM F=2", ":A"); err != nil {
				return err
			}
			h.UpdateShared('2', "Mode", p.Value())
			return nil
		},
	})
	// The sibling's table is missing the propagated value.
	sibling := prop.NewRegistry()
	sibling.MustAdd(prop.Metadata{
		Name: "Mode", Type: prop.TypeEnum, Default: "One",
		Enum: prop.NewEnumTable().Add("One", 1),
	})
	h.Register('2', origin)
	h.Register('2', sibling)

	// The controller acknowledged the write, so a sibling that cannot
	// hold the value must not fail the originating call or roll it back.
	if err := origin.Set("Mode", "Two"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := origin.Cached("Mode"); v != "Two" {
		t.Errorf("origin cached = %q, want Two", v)
	}
	if v, _ := sibling.Cached("Mode"); v != "One" {
		t.Errorf("sibling cached = %q, want One untouched", v)
	}
	if got := ch.Count("2RM F=2"); got != 1 {
		t.Errorf("wire writes = %d, want 1", got)
	}

	if len(rec.events) != 1 || rec.events[0].Category != log.CategoryError {
		t.Fatalf("logged events = %+v, want one error event", rec.events)
	}
	ev := rec.events[0]
	if !strings.Contains(ev.Command, "propagate Mode to card 2") {
		t.Errorf("event command = %q", ev.Command)
	}
	if ev.Error == nil || ev.Error.Message == "" {
		t.Errorf("event error = %+v", ev.Error)
	}
}

func TestErrAnswers(t *testing.T) {
	cases := []struct {
		answer string
		isErr  bool
		code   int
	}{
		{":N-4", true, 4},
		{":N-21", true, 21},
		{":A", false, 0},
		{":A X=5", false, 0},
	}
	for _, tc := range cases {
		if got := hub.IsErrAnswer(tc.answer); got != tc.isErr {
			t.Errorf("IsErrAnswer(%q) = %v", tc.answer, got)
		}
		if got := hub.ErrCode(tc.answer); got != tc.code {
			t.Errorf("ErrCode(%q) = %d, want %d", tc.answer, got, tc.code)
		}
	}
}
