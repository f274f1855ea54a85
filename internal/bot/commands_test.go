package bot

import (
	"strings"
	"testing"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

func testBot() *DRRRBot {
	return New(Config{Name: "bot", DefaultAdmin: "admintrip"})
}

func (b *DRRRBot) drainOutbox() []string {
	b.outMu.Lock()
	defer b.outMu.Unlock()
	out := make([]string, 0, len(b.outbox))
	for _, m := range b.outbox {
		out = append(out, m.text)
	}
	b.outbox = nil
	return out
}

var (
	adminUser = drrrclient.User{ID: "u1", Name: "boss", Tripcode: "admintrip"}
	plainUser = drrrclient.User{ID: "u2", Name: "guest", Tripcode: "guesttrip"}
)

func TestAdminCommandAuthorization(t *testing.T) {
	b := testBot()

	b.HandleMessage("/ban alice", plainUser)
	if got := b.drainOutbox(); len(got) != 0 {
		t.Fatalf("non-admin must get no reply, got %v", got)
	}
	if b.room.IsBanned("alice") {
		t.Fatal("non-admin ban must not mutate state")
	}

	b.HandleMessage("/ban alice", adminUser)
	got := b.drainOutbox()
	if len(got) != 1 || got[0] != "banned: alice" {
		t.Fatalf("admin ban reply: got %v", got)
	}
	if !b.room.IsBanned("alice") {
		t.Fatal("admin ban must mutate state")
	}
}

func TestCommandCaseAndArgs(t *testing.T) {
	b := testBot()

	b.HandleMessage("/ADMIN newtrip", adminUser)
	got := b.drainOutbox()
	if len(got) != 1 || got[0] != "admin added: newtrip" {
		t.Fatalf("got %v", got)
	}
	if !b.room.IsAdmin("newtrip") {
		t.Fatal("uppercase command name must still route")
	}
}

func TestKickUnknownUser(t *testing.T) {
	b := testBot()
	b.HandleMessage("/kick nobody", adminUser)
	got := b.drainOutbox()
	if len(got) != 1 || got[0] != "user not found: nobody" {
		t.Fatalf("got %v", got)
	}
}

func TestPlayUsage(t *testing.T) {
	b := testBot()

	b.HandleMessage("/play onlytitle", plainUser)
	got := b.drainOutbox()
	if len(got) != 1 || got[0] != "usage: /play <title> <url>" {
		t.Fatalf("malformed play: got %v", got)
	}
	if b.player.Len() != 0 {
		t.Fatal("malformed play must not queue anything")
	}

	b.HandleMessage("/play mySong http://x/y.mp3", plainUser)
	got = b.drainOutbox()
	if len(got) != 1 || got[0] != "queued: mySong" {
		t.Fatalf("play reply: got %v", got)
	}
	if b.player.Len() != 1 {
		t.Fatal("play must queue the song")
	}
}

func TestMusicGate(t *testing.T) {
	b := testBot()
	b.room.SetAllowMusic(false)

	for _, cmd := range []string{"/play a http://b", "/next", "/playlist", "/rm 1"} {
		b.HandleMessage(cmd, plainUser)
		got := b.drainOutbox()
		if len(got) != 1 || got[0] != "music is disabled" {
			t.Errorf("%s with music off: got %v", cmd, got)
		}
	}
	if b.player.Len() != 0 {
		t.Fatal("gated commands must not touch the playlist")
	}
}

func TestPlaylistCommand(t *testing.T) {
	b := testBot()
	b.player.Add("songA", "http://a", "singerA")

	b.HandleMessage("/playlist", plainUser)
	got := b.drainOutbox()
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	want := "playlist:\n1. songA - singerA"
	if got[0] != want {
		t.Fatalf("playlist reply:\ngot  %q\nwant %q", got[0], want)
	}
}

func TestRmCommand(t *testing.T) {
	b := testBot()
	b.player.Add("songA", "http://a", "")

	b.HandleMessage("/rm x", plainUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "usage: /rm <index>" {
		t.Fatalf("non-numeric rm: got %v", got)
	}

	b.HandleMessage("/rm 1", plainUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "removed: songA" {
		t.Fatalf("rm 1: got %v", got)
	}
	if b.player.Len() != 0 {
		t.Fatal("rm must remove the song")
	}
}

func TestSearchNotConfigured(t *testing.T) {
	b := testBot()
	b.HandleMessage("/netmusic some song", plainUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "music search is not configured" {
		t.Fatalf("got %v", got)
	}
}

type fakeSearch struct{ song Song }

func (f fakeSearch) Search(string) (Song, error) { return f.song, nil }

func TestSearchQueues(t *testing.T) {
	b := testBot()
	b.SetMusicSearch(fakeSearch{song: Song{Title: "found", URL: "http://f", Singer: "x"}})

	b.HandleMessage("/qqmusic found", plainUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "queued: found - x" {
		t.Fatalf("got %v", got)
	}
	if b.player.Len() != 1 {
		t.Fatal("search result must land in the playlist")
	}
}

func TestModeCommand(t *testing.T) {
	b := testBot()

	b.HandleMessage("/mode LOOP", plainUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "play mode: loop" {
		t.Fatalf("got %v", got)
	}

	b.HandleMessage("/mode disco", plainUser)
	got := b.drainOutbox()
	if len(got) != 1 || !strings.Contains(got[0], "invalid mode") {
		t.Fatalf("got %v", got)
	}
}

func TestUsersCommand(t *testing.T) {
	b := testBot()

	b.HandleMessage("/users", plainUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "room: (empty)" {
		t.Fatalf("empty room: got %v", got)
	}

	b.snapMu.Lock()
	b.roster["u9"] = drrrclient.User{ID: "u9", Name: "alice"}
	b.snapMu.Unlock()

	b.HandleMessage("/users", plainUser)
	got := b.drainOutbox()
	if len(got) != 1 || !strings.Contains(got[0], "alice") {
		t.Fatalf("got %v", got)
	}
}

func TestWelcomeCommand(t *testing.T) {
	b := testBot()

	b.HandleMessage("/welcome ([ broken", adminUser)
	got := b.drainOutbox()
	if len(got) != 1 || !strings.HasPrefix(got[0], "bad pattern:") {
		t.Fatalf("invalid pattern: got %v", got)
	}

	b.HandleMessage("/welcome alice hi there", adminUser)
	b.drainOutbox()
	if msg, ok := b.room.WelcomeFor("alice", ""); !ok || msg != "hi there" {
		t.Fatalf("welcome rule not stored: %q %v", msg, ok)
	}
}

func TestListCommands(t *testing.T) {
	b := testBot()

	b.HandleMessage("/wl add trust1", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "whitelisted: trust1" {
		t.Fatalf("wl add: got %v", got)
	}
	if b.room.IsWhitelisted("stranger") {
		t.Fatal("non-empty whitelist must exclude strangers")
	}

	b.HandleMessage("/wl rm trust1", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "removed from whitelist: trust1" {
		t.Fatalf("wl rm: got %v", got)
	}
	if !b.room.IsWhitelisted("stranger") {
		t.Fatal("empty whitelist must admit everyone")
	}

	b.HandleMessage("/bl add spam1", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "blacklisted: spam1" {
		t.Fatalf("bl add: got %v", got)
	}
	if !b.room.IsBlacklisted("spam1") {
		t.Fatal("bl add must mutate state")
	}

	b.HandleMessage("/wl drop trust1", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "usage: /wl add|rm <tripcode>" {
		t.Fatalf("bad wl action: got %v", got)
	}
}

func TestMaxUsersCommand(t *testing.T) {
	b := testBot()

	b.HandleMessage("/maxusers 5", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "max users: 5" {
		t.Fatalf("maxusers: got %v", got)
	}
	if b.room.Policy().MaxUsers != 5 {
		t.Fatal("maxusers must update room policy")
	}

	b.HandleMessage("/maxusers 0", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "max users: unlimited" {
		t.Fatalf("maxusers 0: got %v", got)
	}

	b.HandleMessage("/maxusers lots", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "usage: /maxusers <n> (0 = unlimited)" {
		t.Fatalf("bad arg: got %v", got)
	}
}

func TestToggleCommands(t *testing.T) {
	b := testBot()

	b.HandleMessage("/ai on", adminUser)
	b.drainOutbox()
	if !b.AIEnabled() {
		t.Fatal("ai on must enable the flag")
	}

	b.HandleMessage("/hang off", adminUser)
	b.drainOutbox()
	if b.HangEnabled() {
		t.Fatal("hang off must disable the flag")
	}

	b.HandleMessage("/aimanage off", adminUser)
	b.drainOutbox()
	if b.AIManageEnabled() {
		t.Fatal("aimanage off must disable the flag")
	}
	b.HandleMessage("/aimanage on", adminUser)
	b.drainOutbox()
	if !b.AIManageEnabled() {
		t.Fatal("aimanage on must enable the flag")
	}

	b.HandleMessage("/ai maybe", adminUser)
	if got := b.drainOutbox(); len(got) != 1 || got[0] != "usage: /ai on|off" {
		t.Fatalf("bad toggle arg: got %v", got)
	}
}
