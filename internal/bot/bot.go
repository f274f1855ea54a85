package bot

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

// ErrNoActiveRoom — отправка без активной комнаты: предусловие не выполнено,
// сетевой вызов не делается.
var ErrNoActiveRoom = errors.New("no active room")

// MusicSearcher — внешний поиск по музыкальному каталогу (netmusic/qqmusic).
type MusicSearcher interface {
	Search(query string) (Song, error)
}

// Speech — внешний синтез речи; возвращает URL готового аудио.
type Speech interface {
	Synthesize(text string) (string, error)
}

type outMsg struct {
	id   string
	text string
	to   string
}

// DRRRBot — контроллер: владеет состоянием запуска и тумблерами, связывает
// клиент, диспетчер и хранилища, крутит периодический тик (здоровье
// соединения + слив исходящей очереди).
type DRRRBot struct {
	client *drrrclient.DRRR
	search MusicSearcher
	speech Speech

	dispatch *dispatcher
	room     *RoomState
	player   *Player

	cfg Config

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup

	// состояние комнаты и тумблеры
	stMu     sync.Mutex
	roomID   string
	aiOn     bool
	aiManage bool
	hangOn   bool

	lastOK      time.Time
	lastJoinTry time.Time
	joining     atomic.Bool
	polling     atomic.Bool

	// снапшот-дифф
	snapMu     sync.Mutex
	primed     bool
	lastUpdate float64
	roster     map[string]drrrclient.User
	lastHost   string

	outMu  sync.Mutex
	outbox []outMsg
}

func New(cfg Config) *DRRRBot {
	b := &DRRRBot{
		cfg:      cfg,
		room:     NewRoomState(cfg.DefaultAdmin),
		player:   NewPlayer(),
		aiOn:     cfg.AI,
		aiManage: cfg.AIManage,
		hangOn:   cfg.Hang,
		roster:   make(map[string]drrrclient.User),
	}
	b.dispatch = newDispatcher(b.enqueue)
	b.registerCommands()
	b.registerEventHandlers()
	return b
}

func (b *DRRRBot) SetClient(c *drrrclient.DRRR)   { b.client = c }
func (b *DRRRBot) SetMusicSearch(m MusicSearcher) { b.search = m }
func (b *DRRRBot) SetSpeech(s Speech)             { b.speech = s }

// SetStream — push-альтернатива опросу: снапшоты стрима уходят в тот же
// конвейер, что и ответы GetRoom. Снапшоты остановленного бота игнорируются.
func (b *DRRRBot) SetStream(s *drrrclient.Stream) {
	s.OnSnapshot = func(r *drrrclient.Room) {
		if !b.IsRunning() {
			return
		}
		b.stMu.Lock()
		b.lastOK = time.Now()
		b.stMu.Unlock()
		b.processSnapshot(r)
	}
	s.OnError = func(err error) {
		log.Warn().Str("module", "bot").Err(err).Msg("stream error")
	}
}

// Room/Player — прямой доступ к хранилищам (настройки, тесты).
func (b *DRRRBot) Room() *RoomState { return b.room }
func (b *DRRRBot) Player() *Player  { return b.player }

// подписчики категорий; dm/music оставлены как точки расширения
func (b *DRRRBot) registerEventHandlers() {
	b.dispatch.RegisterEvent(EventJoin, b.onJoin)
	b.dispatch.RegisterEvent(EventNewHost, func(ev Event) {
		log.Info().Str("module", "bot").Str("host", ev.User.Name).Msg("new room host")
	})
}

// onJoin — принуждение банов/списков/лимита мест и приветствия.
func (b *DRRRBot) onJoin(ev Event) {
	u := ev.User
	if b.room.IsBanned(u.ID) || b.room.IsBlacklisted(u.Tripcode) ||
		!b.room.IsWhitelisted(u.Tripcode) || b.room.ShouldKick(u.Name, u.Tripcode) {
		b.kickOnJoin(u, "moderation")
		return
	}
	if max := b.room.Policy().MaxUsers; max > 0 && b.rosterSize() > max {
		b.kickOnJoin(u, "room full")
		return
	}
	if msg, ok := b.room.WelcomeFor(u.Name, u.Tripcode); ok {
		b.enqueue(msg)
	}
}

func (b *DRRRBot) kickOnJoin(u drrrclient.User, reason string) {
	log.Info().Str("module", "bot").Str("user", u.Name).Str("id", u.ID).
		Str("reason", reason).Msg("kicking on join")
	if b.client != nil {
		b.client.Kick(u.ID, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot").Err(err).Str("user", u.Name).Msg("kick failed")
			}
		})
	}
}

func (b *DRRRBot) rosterSize() int {
	b.snapMu.Lock()
	defer b.snapMu.Unlock()
	return len(b.roster)
}

// ========================= lifecycle =========================

// Start — повторный запуск уже работающего бота: предупреждение, no-op.
func (b *DRRRBot) Start() error {
	if b.client == nil {
		return errors.New("client is not set")
	}

	b.mu.Lock()
	if b.stopCh != nil {
		b.mu.Unlock()
		log.Warn().Str("module", "bot").Msg("already running")
		return nil
	}
	stopCh := make(chan struct{})
	b.stopCh = stopCh
	b.mu.Unlock()

	b.wg.Add(1)
	go b.tickLoop(stopCh)

	log.Info().Str("module", "bot").Dur("tick", b.cfg.Tick).Msg("started")
	return nil
}

// Stop — после возврата ни одна итерация тика не начнётся; уже летящие
// вызовы клиента доживают, их колбэки становятся no-op.
func (b *DRRRBot) Stop() {
	b.mu.Lock()
	ch := b.stopCh
	b.stopCh = nil
	b.mu.Unlock()

	if ch == nil {
		log.Warn().Str("module", "bot").Msg("not running")
		return
	}
	close(ch)
	b.wg.Wait()
	log.Info().Str("module", "bot").Msg("stopped")
}

func (b *DRRRBot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopCh != nil
}

func (b *DRRRBot) tickLoop(stopCh chan struct{}) {
	defer b.wg.Done()
	t := time.NewTicker(b.cfg.Tick)
	defer t.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-t.C:
			b.tick()
		}
	}
}

// tick — любой свой сбой гасит и живёт дальше: цикл не умирает.
func (b *DRRRBot) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "bot").Interface("panic", r).Msg("tick recovered")
		}
	}()
	b.ensureRoom()
	b.poll()
	b.flushOutbox()
}

// ensureRoom — первый вход и ре-join при протухшем соединении (если hang
// включён). Не чаще одного раза за тик.
func (b *DRRRBot) ensureRoom() {
	if b.cfg.RoomID == "" || b.joining.Load() {
		return
	}

	b.stMu.Lock()
	joined := b.roomID != ""
	stale := joined && !b.lastOK.IsZero() && time.Since(b.lastOK) > b.cfg.StaleAfter
	hang := b.hangOn
	recent := time.Since(b.lastJoinTry) < b.cfg.Tick
	b.stMu.Unlock()

	if recent {
		return
	}
	if joined && (!stale || !hang) {
		return
	}

	b.stMu.Lock()
	b.lastJoinTry = time.Now()
	b.stMu.Unlock()
	b.joining.Store(true)

	roomID := b.cfg.RoomID
	b.client.Join(roomID, func(err error) {
		defer b.joining.Store(false)
		if !b.IsRunning() {
			return
		}
		if err != nil {
			log.Error().Str("module", "bot").Err(err).Str("room", roomID).Msg("join failed")
			return
		}
		b.stMu.Lock()
		b.roomID = roomID
		b.lastOK = time.Now()
		b.stMu.Unlock()
		log.Info().Str("module", "bot").Str("room", roomID).Msg("joined room")
	})
}

// poll — забираем снапшот; параллельные опросы не плодим.
func (b *DRRRBot) poll() {
	b.stMu.Lock()
	roomID := b.roomID
	b.stMu.Unlock()
	if roomID == "" || b.polling.Load() {
		return
	}
	b.polling.Store(true)

	b.client.GetRoom(roomID, func(r *drrrclient.Room, err error) {
		defer b.polling.Store(false)
		if !b.IsRunning() {
			return
		}
		if err != nil {
			log.Warn().Str("module", "bot").Err(err).Msg("snapshot fetch failed")
			return
		}
		b.stMu.Lock()
		b.lastOK = time.Now()
		b.stMu.Unlock()
		b.processSnapshot(r)
	})
}

// processSnapshot — превращает снапшот в дискретные события. Первый снапшот
// только фиксирует состояние: историю не переигрываем, старожилов не
// приветствуем.
func (b *DRRRBot) processSnapshot(r *drrrclient.Room) {
	b.snapMu.Lock()

	host := ""
	if r.Host != nil {
		host = r.Host.ID
	}

	if !b.primed {
		b.primed = true
		b.lastUpdate = r.Update
		b.lastHost = host
		for _, u := range r.Users {
			b.roster[u.ID] = u
		}
		b.snapMu.Unlock()
		return
	}

	var events []Event

	// кто пришёл / ушёл
	seen := make(map[string]struct{}, len(r.Users))
	for _, u := range r.Users {
		seen[u.ID] = struct{}{}
		if _, ok := b.roster[u.ID]; !ok {
			b.roster[u.ID] = u
			events = append(events, Event{Kind: EventJoin, User: u})
		}
	}
	for id, u := range b.roster {
		if _, ok := seen[id]; !ok {
			delete(b.roster, id)
			events = append(events, Event{Kind: EventLeave, User: u})
		}
	}

	// смена хоста
	if host != "" && host != b.lastHost {
		b.lastHost = host
		events = append(events, Event{Kind: EventNewHost, User: *r.Host})
	}

	// новые записи ленты за водяной отметкой
	maxSeen := b.lastUpdate
	var talks []drrrclient.Talk
	for _, t := range r.Talks {
		if t.Time <= b.lastUpdate {
			continue
		}
		if t.Time > maxSeen {
			maxSeen = t.Time
		}
		talks = append(talks, t)
	}
	if r.Update > maxSeen {
		maxSeen = r.Update
	}
	b.lastUpdate = maxSeen
	b.snapMu.Unlock()

	for _, ev := range events {
		b.dispatch.Dispatch(ev)
	}
	for _, t := range talks {
		b.handleTalk(t)
	}
}

func (b *DRRRBot) handleTalk(t drrrclient.Talk) {
	var from drrrclient.User
	if t.From != nil {
		from = *t.From
	}
	// свои сообщения не обрабатываем
	if from.Name == b.cfg.Name {
		return
	}

	switch t.Type {
	case "message":
		if t.To != nil {
			if !b.room.Policy().AllowDM {
				log.Debug().Str("module", "bot").Str("from", from.Name).Msg("dm dropped by policy")
				return
			}
			b.dispatch.Dispatch(Event{Kind: EventDM, Message: t.Message, User: from, To: *t.To})
			return
		}
		b.HandleMessage(t.Message, from)
	case "me":
		b.dispatch.Dispatch(Event{Kind: EventMessage, Message: t.Message, User: from})
	case "music":
		b.dispatch.Dispatch(Event{Kind: EventMusic, Message: t.Message, URL: t.URL, User: from})
	case "join", "leave", "new-host":
		// уже покрыто диффом состава и хоста
	default:
		log.Debug().Str("module", "bot").Str("type", t.Type).Msg("unhandled talk type")
	}
}

// HandleMessage — единая точка входа текста из комнаты в диспетчер.
func (b *DRRRBot) HandleMessage(text string, user drrrclient.User) {
	b.dispatch.HandleMessage(text, user)
}

// ========================= outbound =========================

// SendMessage — синхронная отправка; успех отчитывается только после
// завершения нижележащего POST.
func (b *DRRRBot) SendMessage(text string) error {
	b.stMu.Lock()
	room := b.roomID
	b.stMu.Unlock()
	if room == "" {
		return ErrNoActiveRoom
	}
	return b.client.SayAsync(text, "", "")
}

// enqueue — ответы команд и приветствия копятся в очереди и уходят тиком.
func (b *DRRRBot) enqueue(text string) {
	b.enqueueTo(text, "")
}

func (b *DRRRBot) enqueueTo(text, to string) {
	m := outMsg{id: uuid.NewString(), text: text, to: to}
	b.outMu.Lock()
	b.outbox = append(b.outbox, m)
	b.outMu.Unlock()
}

func (b *DRRRBot) flushOutbox() {
	b.stMu.Lock()
	room := b.roomID
	b.stMu.Unlock()
	if room == "" {
		return
	}

	b.outMu.Lock()
	pending := b.outbox
	b.outbox = nil
	b.outMu.Unlock()

	for _, m := range pending {
		m := m
		b.client.Say(m.text, m.to, "", func(err error) {
			if !b.IsRunning() {
				return
			}
			if err != nil {
				log.Error().Str("module", "bot").Str("msg_id", m.id).Err(err).Msg("send failed")
				return
			}
			log.Debug().Str("module", "bot").Str("msg_id", m.id).Msg("sent")
		})
	}
}

// ========================= toggles =========================

func (b *DRRRBot) setAI(on bool) {
	b.stMu.Lock()
	b.aiOn = on
	b.stMu.Unlock()
}

func (b *DRRRBot) AIEnabled() bool {
	b.stMu.Lock()
	defer b.stMu.Unlock()
	return b.aiOn
}

func (b *DRRRBot) setAIManage(on bool) {
	b.stMu.Lock()
	b.aiManage = on
	b.stMu.Unlock()
}

// AIManageEnabled — разрешены ли ИИ действия модерации (отдельно от самого ИИ).
func (b *DRRRBot) AIManageEnabled() bool {
	b.stMu.Lock()
	defer b.stMu.Unlock()
	return b.aiManage
}

func (b *DRRRBot) setHang(on bool) {
	b.stMu.Lock()
	b.hangOn = on
	b.stMu.Unlock()
}

func (b *DRRRBot) HangEnabled() bool {
	b.stMu.Lock()
	defer b.stMu.Unlock()
	return b.hangOn
}

// RoomID — id комнаты; пустой до первого успешного входа.
func (b *DRRRBot) RoomID() string {
	b.stMu.Lock()
	defer b.stMu.Unlock()
	return b.roomID
}

// findUser — по имени, трипкоду или id из текущего состава.
func (b *DRRRBot) findUser(key string) (drrrclient.User, bool) {
	b.snapMu.Lock()
	defer b.snapMu.Unlock()
	for _, u := range b.roster {
		if u.Name == key || u.ID == key || (u.Tripcode != "" && u.Tripcode == key) {
			return u, true
		}
	}
	return drrrclient.User{}, false
}
