package bot

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

// EventKind — категория события комнаты. Набор закрыт: регистрация на
// неизвестную категорию отклоняется (лог, не ошибка).
type EventKind string

const (
	EventJoin    EventKind = "join"
	EventLeave   EventKind = "leave"
	EventMessage EventKind = "message"
	EventDM      EventKind = "dm"
	EventMusic   EventKind = "music"
	EventNewHost EventKind = "new_host"
)

// Event — одно событие комнаты с полезной нагрузкой.
type Event struct {
	Kind    EventKind
	Message string
	URL     string
	User    drrrclient.User // отправитель / вошедший / новый хост
	To      drrrclient.User // получатель (dm)
}

// Command — вызов команды: имя (уже в нижнем регистре), хвост-аргументы
// и кто вызвал.
type Command struct {
	Name string
	Args string
	User drrrclient.User
}

type EventFunc func(Event)

// CommandFunc возвращает ответ для комнаты; "" — молчим.
type CommandFunc func(Command) string

// dispatcher — два реестра: категория → список подписчиков (пассивные
// наблюдатели, 1-ко-многим) и команда → единственный обработчик (активный
// ответчик). Разделение не даёт двойных ответов и позволяет подписчикам
// видеть всё, не владея исполнением.
type dispatcher struct {
	mu       sync.RWMutex
	events   map[EventKind][]EventFunc
	commands map[string]CommandFunc
	reply    func(string) // куда отдавать ответы команд
}

func newDispatcher(reply func(string)) *dispatcher {
	return &dispatcher{
		events: map[EventKind][]EventFunc{
			EventJoin:    nil,
			EventLeave:   nil,
			EventMessage: nil,
			EventDM:      nil,
			EventMusic:   nil,
			EventNewHost: nil,
		},
		commands: make(map[string]CommandFunc),
		reply:    reply,
	}
}

// RegisterEvent — подписка на категорию. Подписчики зовутся в порядке
// регистрации.
func (d *dispatcher) RegisterEvent(kind EventKind, fn EventFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[kind]; !ok {
		log.Warn().Str("module", "bot.dispatch").Str("event", string(kind)).Msg("unknown event kind, registration rejected")
		return
	}
	d.events[kind] = append(d.events[kind], fn)
}

// RegisterCommand — ровно один обработчик на имя; повторная регистрация
// перезаписывает предыдущий.
func (d *dispatcher) RegisterCommand(name string, fn CommandFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[strings.ToLower(name)] = fn
}

// Dispatch — раздаёт событие всем подписчикам категории. Паника одного
// обработчика гасится на месте и не мешает остальным.
func (d *dispatcher) Dispatch(ev Event) {
	d.mu.RLock()
	handlers := append([]EventFunc(nil), d.events[ev.Kind]...)
	d.mu.RUnlock()

	for i, fn := range handlers {
		d.safeEvent(ev.Kind, i, fn, ev)
	}
}

func (d *dispatcher) safeEvent(kind EventKind, i int, fn EventFunc, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "bot.dispatch").Str("event", string(kind)).Int("handler", i).
				Interface("panic", r).Msg("event handler panicked")
		}
	}()
	fn(ev)
}

// HandleMessage — единая точка входа для текста из комнаты: "/"-префикс
// уводит в реестр команд, всё остальное — событие message.
func (d *dispatcher) HandleMessage(text string, user drrrclient.User) {
	if !strings.HasPrefix(text, "/") {
		d.Dispatch(Event{Kind: EventMessage, Message: text, User: user})
		return
	}

	name, args := splitCommand(text)
	if name == "" {
		return
	}

	d.mu.RLock()
	fn, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		// незарегистрированная команда молча выбрасывается
		log.Debug().Str("module", "bot.dispatch").Str("command", name).Msg("no handler, dropped")
		return
	}

	reply := d.safeCommand(name, fn, Command{Name: name, Args: args, User: user})
	if reply != "" && d.reply != nil {
		d.reply(reply)
	}
}

func (d *dispatcher) safeCommand(name string, fn CommandFunc, c Command) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "bot.dispatch").Str("command", name).
				Interface("panic", r).Msg("command handler panicked")
			reply = ""
		}
	}()
	return fn(c)
}

// splitCommand — имя до первого пробела (в нижнем регистре), остальное —
// строка аргументов.
func splitCommand(text string) (name, args string) {
	parts := strings.SplitN(text[1:], " ", 2)
	name = strings.ToLower(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return name, args
}
