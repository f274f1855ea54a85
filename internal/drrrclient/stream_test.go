package drrrclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStreamDeliversSnapshots(t *testing.T) {
	up := websocket.Upgrader{}
	gotCookie := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie <- r.Header.Get("Cookie")
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"roomId": "r1", "name": "pushed"}`))
		// ждём закрытия со стороны клиента
		conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream(wsURL, "drrr-session-1=abc", "test-agent")

	connected := make(chan struct{}, 1)
	snapshots := make(chan *Room, 1)
	s.OnConnected = func() { connected <- struct{}{} }
	s.OnSnapshot = func(r *Room) { snapshots <- r }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("no connect callback")
	}
	if c := <-gotCookie; c != "drrr-session-1=abc" {
		t.Errorf("cookie: got %q", c)
	}

	select {
	case r := <-snapshots:
		if r.ID != "r1" || r.Name != "pushed" {
			t.Fatalf("snapshot: got %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestStreamDialFailure(t *testing.T) {
	s := NewStream("ws://127.0.0.1:1/nope", "", "")
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("dial to a dead endpoint must fail")
	}
}
