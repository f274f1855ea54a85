package drrrclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Stream — push-доставка снапшотов комнаты по WebSocket (альтернатива
// опросу; сам drrr отдаёт комнату только опросом, так что это точка
// расширения для шлюзов, умеющих пушить тот же JSON).
type Stream struct {
	url       string
	cookie    string
	userAgent string

	mu       sync.Mutex // conn и pingStop; closeConn зовётся из нескольких горутин
	conn     *websocket.Conn
	pingStop chan struct{}

	wmu    sync.Mutex // сериализует запись в сокет
	closed atomic.Bool

	OnConnecting   func()
	OnConnected    func()
	OnSnapshot     func(*Room)
	OnDisconnected func()
	OnError        func(error)
}

func NewStream(wsURL, cookie, userAgent string) *Stream {
	return &Stream{url: wsURL, cookie: cookie, userAgent: userAgent}
}

// Connect — устанавливает соединение и запускает readLoop.
// Отмена контекста — мягкий выход.
func (s *Stream) Connect(ctx context.Context) error {
	if s.OnConnecting != nil {
		s.OnConnecting()
	}
	conn, err := s.dial()
	if err != nil {
		return err
	}
	s.setConn(conn)
	s.closed.Store(false)
	if s.OnConnected != nil {
		s.OnConnected()
	}
	go s.readLoop(ctx)
	return nil
}

func (s *Stream) Close() {
	s.closed.Store(true)
	s.closeConn()
	if s.OnDisconnected != nil {
		s.OnDisconnected()
	}
}

func (s *Stream) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *Stream) getConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Stream) dial() (*websocket.Conn, error) {
	h := http.Header{}
	if s.cookie != "" {
		h.Set("Cookie", s.cookie)
	}
	if s.userAgent != "" {
		h.Set("User-Agent", s.userAgent)
	}
	conn, _, err := websocket.DefaultDialer.Dial(s.url, h)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	s.startPing(conn)
	return conn, nil
}

func (s *Stream) closeConn() {
	s.mu.Lock()
	s.stopPingLocked()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(500*time.Millisecond))
		_ = conn.Close()
	}
}

func (s *Stream) startPing(c *websocket.Conn) {
	s.mu.Lock()
	s.stopPingLocked()
	stop := make(chan struct{})
	s.pingStop = stop
	s.mu.Unlock()
	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.wmu.Lock()
				_ = c.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
				s.wmu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// только под s.mu: канал закрывается ровно один раз
func (s *Stream) stopPingLocked() {
	if s.pingStop != nil {
		close(s.pingStop)
		s.pingStop = nil
	}
}

func (s *Stream) readLoop(ctx context.Context) {
	defer func() {
		s.closed.Store(true)
		s.closeConn()
		if s.OnDisconnected != nil {
			s.OnDisconnected()
		}
	}()

	go func() {
		<-ctx.Done()
		s.closeConn()
	}()

	backoff := time.Second

	for {
		if conn := s.getConn(); conn != nil {
			_, data, err := conn.ReadMessage()
			if err == nil {
				var room Room
				if uerr := json.Unmarshal(data, &room); uerr != nil {
					if s.OnError != nil {
						s.OnError(uerr)
					}
					continue
				}
				if s.OnSnapshot != nil {
					s.OnSnapshot(&room)
				}
				backoff = time.Second
				continue
			}
			if s.OnError != nil && !s.closed.Load() {
				s.OnError(err)
			}
			if s.closed.Load() {
				return
			}
		}
		s.closeConn()

		// реконнект с ограниченным backoff
		for !s.closed.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			conn, derr := s.dial()
			if derr != nil {
				if s.OnError != nil {
					s.OnError(derr)
				}
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
				continue
			}
			s.setConn(conn)
			if s.OnConnected != nil {
				s.OnConnected()
			}
			backoff = time.Second
			break
		}
		if s.closed.Load() {
			return
		}
	}
}
