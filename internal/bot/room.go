package bot

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

// RoomPolicy — флаги комнаты; читаются командным слоем перед dm/music.
type RoomPolicy struct {
	AllowDM    bool
	AllowMusic bool
	MaxUsers   int // 0 — без ограничения
}

type welcomeRule struct {
	re  *regexp.Regexp
	msg string
}

// RoomState — модерационное состояние: админы (по трипкодам), баны (по id),
// белый/чёрный списки, правила приветствий и авто-кика. Все мутации и
// проверки — под одним мьютексом, одна мутация за раз.
type RoomState struct {
	mu           sync.Mutex
	defaultAdmin string
	admins       map[string]struct{}
	banned       map[string]struct{}
	whitelist    map[string]struct{}
	blacklist    map[string]struct{}
	welcome      []welcomeRule
	autoKick     []*regexp.Regexp
	policy       RoomPolicy
}

// NewRoomState — defaultAdmin попадает в набор сразу и не удаляется через
// RemoveAdmin (только правкой конфига).
func NewRoomState(defaultAdmin string) *RoomState {
	rs := &RoomState{
		defaultAdmin: defaultAdmin,
		admins:       make(map[string]struct{}),
		banned:       make(map[string]struct{}),
		whitelist:    make(map[string]struct{}),
		blacklist:    make(map[string]struct{}),
		policy:       RoomPolicy{AllowDM: true, AllowMusic: true},
	}
	if defaultAdmin != "" {
		rs.admins[defaultAdmin] = struct{}{}
	}
	return rs
}

// ---------- admins ----------

func (rs *RoomState) AddAdmin(tripcode string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.admins[tripcode]; ok {
		return "already admin: " + tripcode
	}
	rs.admins[tripcode] = struct{}{}
	return "admin added: " + tripcode
}

func (rs *RoomState) RemoveAdmin(tripcode string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if tripcode == rs.defaultAdmin {
		return "cannot remove default admin: " + tripcode
	}
	if _, ok := rs.admins[tripcode]; !ok {
		return "not an admin: " + tripcode
	}
	delete(rs.admins, tripcode)
	return "admin removed: " + tripcode
}

func (rs *RoomState) IsAdmin(tripcode string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.admins[tripcode]
	return ok
}

func (rs *RoomState) AdminCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.admins)
}

// ---------- bans ----------

func (rs *RoomState) Ban(userID string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.banned[userID]; ok {
		return "already banned: " + userID
	}
	rs.banned[userID] = struct{}{}
	return "banned: " + userID
}

func (rs *RoomState) Unban(userID string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.banned[userID]; !ok {
		return "not banned: " + userID
	}
	delete(rs.banned, userID)
	return "unbanned: " + userID
}

func (rs *RoomState) IsBanned(userID string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.banned[userID]
	return ok
}

func (rs *RoomState) BanCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.banned)
}

// ---------- white/black lists ----------

func (rs *RoomState) AddWhitelist(tripcode string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.whitelist[tripcode]; ok {
		return "already whitelisted: " + tripcode
	}
	rs.whitelist[tripcode] = struct{}{}
	return "whitelisted: " + tripcode
}

func (rs *RoomState) RemoveWhitelist(tripcode string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.whitelist[tripcode]; !ok {
		return "not whitelisted: " + tripcode
	}
	delete(rs.whitelist, tripcode)
	return "removed from whitelist: " + tripcode
}

// IsWhitelisted — пустой белый список означает "пускаем всех".
func (rs *RoomState) IsWhitelisted(tripcode string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.whitelist) == 0 {
		return true
	}
	_, ok := rs.whitelist[tripcode]
	return ok
}

func (rs *RoomState) AddBlacklist(tripcode string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.blacklist[tripcode]; ok {
		return "already blacklisted: " + tripcode
	}
	rs.blacklist[tripcode] = struct{}{}
	return "blacklisted: " + tripcode
}

func (rs *RoomState) RemoveBlacklist(tripcode string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.blacklist[tripcode]; !ok {
		return "not blacklisted: " + tripcode
	}
	delete(rs.blacklist, tripcode)
	return "removed from blacklist: " + tripcode
}

func (rs *RoomState) IsBlacklisted(tripcode string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.blacklist[tripcode]
	return ok
}

// ---------- welcome / auto-kick ----------

func (rs *RoomState) SetWelcome(pattern, msg string) (string, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.welcome = append(rs.welcome, welcomeRule{re: re, msg: msg})
	return "welcome rule set: " + pattern, nil
}

// WelcomeFor — первое правило, совпавшее с именем или трипкодом.
func (rs *RoomState) WelcomeFor(name, tripcode string) (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, w := range rs.welcome {
		if w.re.MatchString(name) || (tripcode != "" && w.re.MatchString(tripcode)) {
			return w.msg, true
		}
	}
	return "", false
}

func (rs *RoomState) AddKickPattern(pattern string) (string, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.autoKick = append(rs.autoKick, re)
	return "auto-kick pattern added: " + pattern, nil
}

func (rs *RoomState) ShouldKick(name, tripcode string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, re := range rs.autoKick {
		if re.MatchString(name) || (tripcode != "" && re.MatchString(tripcode)) {
			return true
		}
	}
	return false
}

// ---------- policy ----------

func (rs *RoomState) Policy() RoomPolicy {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.policy
}

func (rs *RoomState) SetAllowDM(v bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.policy.AllowDM = v
}

func (rs *RoomState) SetAllowMusic(v bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.policy.AllowMusic = v
}

func (rs *RoomState) SetMaxUsers(n int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.policy.MaxUsers = n
}

// ---------- rendering ----------

// ListUsers — нумерованный список занятых мест, трипкод через #.
func (rs *RoomState) ListUsers(users []drrrclient.User) string {
	if len(users) == 0 {
		return "room: (empty)"
	}
	rows := make([]string, 0, len(users)+1)
	rows = append(rows, fmt.Sprintf("users (%d):", len(users)))
	for i, u := range users {
		row := fmt.Sprintf("%d. %s", i+1, u.Name)
		if u.Tripcode != "" {
			row += " #" + u.Tripcode
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}
