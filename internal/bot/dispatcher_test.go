package bot

import (
	"testing"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

func TestDispatchOrder(t *testing.T) {
	d := newDispatcher(nil)

	var got []int
	d.RegisterEvent(EventMessage, func(Event) { got = append(got, 1) })
	d.RegisterEvent(EventMessage, func(Event) { got = append(got, 2) })
	d.RegisterEvent(EventMessage, func(Event) { got = append(got, 3) })

	d.Dispatch(Event{Kind: EventMessage, Message: "hi"})

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("handlers ran out of order: %v", got)
	}
}

func TestDispatchUnknownKindRejected(t *testing.T) {
	d := newDispatcher(nil)

	called := false
	d.RegisterEvent(EventKind("no_such_kind"), func(Event) { called = true })
	d.Dispatch(Event{Kind: EventKind("no_such_kind")})

	if called {
		t.Fatal("handler for unknown kind must not be registered")
	}
}

func TestDispatchPanicIsolation(t *testing.T) {
	d := newDispatcher(nil)

	var after bool
	d.RegisterEvent(EventMessage, func(Event) { panic("boom") })
	d.RegisterEvent(EventMessage, func(Event) { after = true })

	d.Dispatch(Event{Kind: EventMessage})

	if !after {
		t.Fatal("sibling handler must run after a panicking one")
	}
}

func TestRouteCommand(t *testing.T) {
	var reply string
	d := newDispatcher(func(s string) { reply = s })

	var got Command
	d.RegisterCommand("Ban", func(c Command) string {
		got = c
		return "done"
	})

	u := drrrclient.User{Name: "alice", Tripcode: "trip1"}
	d.HandleMessage("/BAN  bob", u)

	if got.Name != "ban" {
		t.Errorf("command name: got %q, want %q", got.Name, "ban")
	}
	if got.Args != "bob" {
		t.Errorf("args: got %q, want %q", got.Args, "bob")
	}
	if got.User.Tripcode != "trip1" {
		t.Errorf("user: got %q, want %q", got.User.Tripcode, "trip1")
	}
	if reply != "done" {
		t.Errorf("reply: got %q, want %q", reply, "done")
	}
}

func TestRouteCommandOverwrite(t *testing.T) {
	d := newDispatcher(nil)

	var which string
	d.RegisterCommand("x", func(Command) string { which = "first"; return "" })
	d.RegisterCommand("x", func(Command) string { which = "second"; return "" })

	d.HandleMessage("/x", drrrclient.User{})

	if which != "second" {
		t.Fatalf("re-registration must overwrite: got %q", which)
	}
}

func TestRouteUnknownCommandDropped(t *testing.T) {
	replied := false
	d := newDispatcher(func(string) { replied = true })

	messaged := false
	d.RegisterEvent(EventMessage, func(Event) { messaged = true })

	// не должно ни паниковать, ни отвечать, ни уходить в message
	d.HandleMessage("/unknowncmd whatever", drrrclient.User{})

	if replied {
		t.Error("unknown command must not produce a reply")
	}
	if messaged {
		t.Error("unknown command must not dispatch as plain message")
	}
}

func TestRoutePlainMessage(t *testing.T) {
	d := newDispatcher(nil)

	var got Event
	d.RegisterEvent(EventMessage, func(ev Event) { got = ev })

	d.HandleMessage("hello there", drrrclient.User{Name: "bob"})

	if got.Message != "hello there" || got.User.Name != "bob" {
		t.Fatalf("plain message not dispatched: %+v", got)
	}
}

func TestRouteCommandPanicContained(t *testing.T) {
	var reply string
	d := newDispatcher(func(s string) { reply = s })
	d.RegisterCommand("bad", func(Command) string { panic("boom") })

	d.HandleMessage("/bad", drrrclient.User{})

	if reply != "" {
		t.Fatalf("panicking command must not reply, got %q", reply)
	}
}

func TestRouteSilentCommand(t *testing.T) {
	replied := false
	d := newDispatcher(func(string) { replied = true })
	d.RegisterCommand("quiet", func(Command) string { return "" })

	d.HandleMessage("/quiet", drrrclient.User{})

	if replied {
		t.Fatal("empty reply must stay silent")
	}
}
