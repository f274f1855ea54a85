package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// PlayMode — режим выбора следующего трека.
type PlayMode string

const (
	ModeAlbum  PlayMode = "album"  // по порядку, сыгранное уходит из очереди
	ModeSingle PlayMode = "single" // один трек; next ничего не продолжает
	ModeRepeat PlayMode = "repeat" // повтор текущего
	ModeLoop   PlayMode = "loop"   // по кругу, очередь не расходуется
)

func validMode(m PlayMode) bool {
	switch m {
	case ModeAlbum, ModeSingle, ModeRepeat, ModeLoop:
		return true
	}
	return false
}

type Song struct {
	Title  string
	URL    string
	Singer string
}

// подпись трека: "title - singer", без singer — просто "title"
func (s Song) Label() string {
	if s.Singer != "" {
		return s.Title + " - " + s.Singer
	}
	return s.Title
}

// Player — очередь треков плюс указатель "сейчас играет". Порядок вставки =
// порядок воспроизведения. Мьютекс один на всё состояние.
type Player struct {
	mu       sync.Mutex
	playlist []Song
	current  *Song
	mode     PlayMode
	playing  bool
}

func NewPlayer() *Player {
	return &Player{mode: ModeAlbum}
}

func (p *Player) Add(title, url, singer string) string {
	s := Song{Title: title, URL: url, Singer: singer}
	p.mu.Lock()
	p.playlist = append(p.playlist, s)
	p.mu.Unlock()
	return "queued: " + s.Label()
}

// Remove — 0-based индекс; выход за границы — отчёт, очередь не трогаем.
func (p *Player) Remove(i int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.playlist) {
		return "index out of range"
	}
	s := p.playlist[i]
	p.playlist = append(p.playlist[:i], p.playlist[i+1:]...)
	return "removed: " + s.Label()
}

// List — нумерованный с единицы список очереди.
func (p *Player) List() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.playlist) == 0 {
		return "playlist: (empty)"
	}
	rows := make([]string, 0, len(p.playlist)+1)
	rows = append(rows, "playlist:")
	for i, s := range p.playlist {
		rows = append(rows, fmt.Sprintf("%d. %s", i+1, s.Label()))
	}
	return strings.Join(rows, "\n")
}

// Next — продвигает воспроизведение по текущему режиму. ok=false — очередь
// пуста либо режим single, где продолжения нет (playing сбрасывается,
// current обнуляется).
func (p *Player) Next() (Song, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.playlist) == 0 {
		p.current = nil
		p.playing = false
		return Song{}, false
	}

	var next Song
	switch p.mode {
	case ModeSingle:
		// следующего трека нет: воспроизведение останавливается,
		// очередь не трогаем
		p.current = nil
		p.playing = false
		return Song{}, false
	case ModeRepeat:
		if p.current != nil {
			next = *p.current
		} else {
			next = p.playlist[0] // из очереди не убираем
		}
	case ModeLoop:
		// по кругу: голова очереди уходит в хвост
		next = p.playlist[0]
		p.playlist = append(p.playlist[1:], next)
	default: // album
		next = p.takeAfterCurrent()
	}

	p.current = &next
	p.playing = true
	return next, true
}

// голова либо следующий за current; выбранный трек расходуется
func (p *Player) takeAfterCurrent() Song {
	idx := 0
	if p.current != nil {
		for i, s := range p.playlist {
			if s == *p.current {
				if i+1 < len(p.playlist) {
					idx = i + 1
				}
				break
			}
		}
	}
	s := p.playlist[idx]
	p.playlist = append(p.playlist[:idx], p.playlist[idx+1:]...)
	return s
}

func (p *Player) Stop() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.playing = false
	return "stopped"
}

func (p *Player) Clear() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlist = nil
	p.current = nil
	p.playing = false
	return "playlist cleared"
}

func (p *Player) SetMode(m PlayMode) string {
	if !validMode(m) {
		return fmt.Sprintf("invalid mode %q (album|single|repeat|loop)", string(m))
	}
	p.mu.Lock()
	p.mode = m
	p.mu.Unlock()
	return "play mode: " + string(m)
}

func (p *Player) Shuffle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.playlist) == 0 {
		return "playlist: (empty)"
	}
	rand.Shuffle(len(p.playlist), func(i, j int) {
		p.playlist[i], p.playlist[j] = p.playlist[j], p.playlist[i]
	})
	return "playlist shuffled"
}

func (p *Player) Mode() PlayMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Current — копия текущего трека, nil если ничего не играет.
func (p *Player) Current() *Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	s := *p.current
	return &s
}

func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.playlist)
}
