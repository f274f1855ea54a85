package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

func (b *DRRRBot) registerCommands() {
	d := b.dispatch

	// ---------- admin ----------
	d.RegisterCommand("ai", b.adminOnly(b.cmdAI))
	d.RegisterCommand("aimanage", b.adminOnly(b.cmdAIManage))
	d.RegisterCommand("hang", b.adminOnly(b.cmdHang))
	d.RegisterCommand("kick", b.adminOnly(b.cmdKick))
	d.RegisterCommand("ban", b.adminOnly(b.cmdBan))
	d.RegisterCommand("unban", b.adminOnly(b.cmdUnban))
	d.RegisterCommand("admin", b.adminOnly(b.cmdAdmin))
	d.RegisterCommand("unadmin", b.adminOnly(b.cmdUnadmin))
	d.RegisterCommand("dm", b.adminOnly(b.cmdAllowDM))
	d.RegisterCommand("music", b.adminOnly(b.cmdAllowMusic))
	d.RegisterCommand("maxusers", b.adminOnly(b.cmdMaxUsers))
	d.RegisterCommand("wl", b.adminOnly(b.cmdWhitelist))
	d.RegisterCommand("bl", b.adminOnly(b.cmdBlacklist))
	d.RegisterCommand("welcome", b.adminOnly(b.cmdWelcome))
	d.RegisterCommand("autokick", b.adminOnly(b.cmdAutoKick))
	d.RegisterCommand("help", b.adminOnly(b.cmdHelp))

	// ---------- music ----------
	d.RegisterCommand("play", b.musicGated(b.cmdPlay))
	d.RegisterCommand("netmusic", b.musicGated(b.cmdNetMusic))
	d.RegisterCommand("qqmusic", b.musicGated(b.cmdQQMusic))
	d.RegisterCommand("tts", b.musicGated(b.cmdTTS))
	d.RegisterCommand("next", b.musicGated(b.cmdNext))
	d.RegisterCommand("playlist", b.musicGated(b.cmdPlaylist))
	d.RegisterCommand("clear", b.musicGated(b.cmdClear))
	d.RegisterCommand("mode", b.musicGated(b.cmdMode))
	d.RegisterCommand("shuffle", b.musicGated(b.cmdShuffle))
	d.RegisterCommand("rm", b.musicGated(b.cmdRm))

	// ---------- open ----------
	d.RegisterCommand("users", b.cmdUsers)
}

// adminOnly — не-админу молчим: ни ответа, ни ошибки в комнату, только
// локальная запись.
func (b *DRRRBot) adminOnly(fn CommandFunc) CommandFunc {
	return func(c Command) string {
		if !b.room.IsAdmin(c.User.Tripcode) {
			log.Debug().Str("module", "bot.commands").Str("command", c.Name).
				Str("user", c.User.Name).Msg("unauthorized admin command ignored")
			return ""
		}
		return fn(c)
	}
}

func (b *DRRRBot) musicGated(fn CommandFunc) CommandFunc {
	return func(c Command) string {
		if !b.room.Policy().AllowMusic {
			return "music is disabled"
		}
		return fn(c)
	}
}

// ---------- admin commands ----------

func (b *DRRRBot) cmdAI(c Command) string {
	switch strings.ToLower(strings.TrimSpace(c.Args)) {
	case "on":
		b.setAI(true)
		return "ai: on"
	case "off":
		b.setAI(false)
		return "ai: off"
	}
	return "usage: /ai on|off"
}

func (b *DRRRBot) cmdAIManage(c Command) string {
	switch strings.ToLower(strings.TrimSpace(c.Args)) {
	case "on":
		b.setAIManage(true)
		return "ai manage: on"
	case "off":
		b.setAIManage(false)
		return "ai manage: off"
	}
	return "usage: /aimanage on|off"
}

func (b *DRRRBot) cmdHang(c Command) string {
	switch strings.ToLower(strings.TrimSpace(c.Args)) {
	case "on":
		b.setHang(true)
		return "hang: on"
	case "off":
		b.setHang(false)
		return "hang: off"
	}
	return "usage: /hang on|off"
}

func (b *DRRRBot) cmdKick(c Command) string {
	target := strings.TrimSpace(c.Args)
	if target == "" {
		return "usage: /kick <user>"
	}
	u, ok := b.findUser(target)
	if !ok {
		return "user not found: " + target
	}
	if b.client != nil {
		b.client.Kick(u.ID, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot.commands").Err(err).Str("user", u.Name).Msg("kick failed")
			}
		})
	}
	return "kick requested: " + u.Name
}

func (b *DRRRBot) cmdBan(c Command) string {
	target := strings.TrimSpace(c.Args)
	if target == "" {
		return "usage: /ban <user>"
	}
	id, name := target, target
	if u, ok := b.findUser(target); ok {
		id, name = u.ID, u.Name
	}
	reply := b.room.Ban(id)
	if b.client != nil {
		b.client.Ban(id, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot.commands").Err(err).Str("user", name).Msg("ban call failed")
			}
		})
	}
	return reply
}

func (b *DRRRBot) cmdUnban(c Command) string {
	target := strings.TrimSpace(c.Args)
	if target == "" {
		return "usage: /unban <user>"
	}
	id, name := target, target
	if u, ok := b.findUser(target); ok {
		id, name = u.ID, u.Name
	}
	reply := b.room.Unban(id)
	if b.client != nil {
		b.client.Unban(id, name, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot.commands").Err(err).Str("user", name).Msg("unban call failed")
			}
		})
	}
	return reply
}

func (b *DRRRBot) cmdAdmin(c Command) string {
	trip := strings.TrimSpace(c.Args)
	if trip == "" {
		return "usage: /admin <tripcode>"
	}
	return b.room.AddAdmin(trip)
}

func (b *DRRRBot) cmdUnadmin(c Command) string {
	trip := strings.TrimSpace(c.Args)
	if trip == "" {
		return "usage: /unadmin <tripcode>"
	}
	return b.room.RemoveAdmin(trip)
}

func (b *DRRRBot) cmdAllowDM(c Command) string {
	switch strings.ToLower(strings.TrimSpace(c.Args)) {
	case "on":
		b.room.SetAllowDM(true)
		return "dm: on"
	case "off":
		b.room.SetAllowDM(false)
		return "dm: off"
	}
	return "usage: /dm on|off"
}

func (b *DRRRBot) cmdAllowMusic(c Command) string {
	switch strings.ToLower(strings.TrimSpace(c.Args)) {
	case "on":
		b.room.SetAllowMusic(true)
		return "music: on"
	case "off":
		b.room.SetAllowMusic(false)
		return "music: off"
	}
	return "usage: /music on|off"
}

// maxusers — лимит мест; лишние входящие кикаются на следующем снапшоте.
func (b *DRRRBot) cmdMaxUsers(c Command) string {
	n, err := strconv.Atoi(strings.TrimSpace(c.Args))
	if err != nil || n < 0 {
		return "usage: /maxusers <n> (0 = unlimited)"
	}
	b.room.SetMaxUsers(n)
	if n == 0 {
		return "max users: unlimited"
	}
	return fmt.Sprintf("max users: %d", n)
}

// wl/bl — списки по трипкодам; непустой белый список превращает комнату
// в закрытую (не из списка — кик при входе).
func (b *DRRRBot) cmdWhitelist(c Command) string {
	action, trip := splitListArgs(c.Args)
	switch action {
	case "add":
		return b.room.AddWhitelist(trip)
	case "rm":
		return b.room.RemoveWhitelist(trip)
	}
	return "usage: /wl add|rm <tripcode>"
}

func (b *DRRRBot) cmdBlacklist(c Command) string {
	action, trip := splitListArgs(c.Args)
	switch action {
	case "add":
		return b.room.AddBlacklist(trip)
	case "rm":
		return b.room.RemoveBlacklist(trip)
	}
	return "usage: /bl add|rm <tripcode>"
}

func splitListArgs(args string) (action, trip string) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "", ""
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}

func (b *DRRRBot) cmdWelcome(c Command) string {
	parts := strings.SplitN(c.Args, " ", 2)
	if len(parts) < 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
		return "usage: /welcome <pattern> <message>"
	}
	reply, err := b.room.SetWelcome(parts[0], strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Sprintf("bad pattern: %v", err)
	}
	return reply
}

func (b *DRRRBot) cmdAutoKick(c Command) string {
	pattern := strings.TrimSpace(c.Args)
	if pattern == "" {
		return "usage: /autokick <pattern>"
	}
	reply, err := b.room.AddKickPattern(pattern)
	if err != nil {
		return fmt.Sprintf("bad pattern: %v", err)
	}
	return reply
}

func (b *DRRRBot) cmdHelp(Command) string {
	return strings.Join([]string{
		"/ai on|off | /aimanage on|off",
		"/hang on|off",
		"/kick <user> | /ban <user> | /unban <user>",
		"/admin <trip> | /unadmin <trip>",
		"/dm on|off | /music on|off | /maxusers <n>",
		"/wl add|rm <trip> | /bl add|rm <trip>",
		"/welcome <pattern> <msg> | /autokick <pattern>",
		"/play <title> <url> | /netmusic <q> | /qqmusic <q> | /tts <text>",
		"/next | /playlist | /clear | /mode <m> | /shuffle | /rm <n>",
		"/users",
	}, "\n")
}

// ---------- music commands ----------

func (b *DRRRBot) cmdPlay(c Command) string {
	parts := strings.SplitN(c.Args, " ", 2)
	if len(parts) < 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
		return "usage: /play <title> <url>"
	}
	title, link := parts[0], strings.TrimSpace(parts[1])
	reply := b.player.Add(title, link, "")
	if b.client != nil {
		b.client.SendMusic(title, link, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot.commands").Err(err).Str("title", title).Msg("send music failed")
			}
		})
	}
	return reply
}

func (b *DRRRBot) cmdNetMusic(c Command) string { return b.searchAndQueue(c, "netmusic") }
func (b *DRRRBot) cmdQQMusic(c Command) string  { return b.searchAndQueue(c, "qqmusic") }

func (b *DRRRBot) searchAndQueue(c Command, source string) string {
	query := strings.TrimSpace(c.Args)
	if query == "" {
		return "usage: /" + source + " <query>"
	}
	if b.search == nil {
		return "music search is not configured"
	}
	song, err := b.search.Search(query)
	if err != nil {
		return fmt.Sprintf("search failed: %v", err)
	}
	return b.player.Add(song.Title, song.URL, song.Singer)
}

func (b *DRRRBot) cmdTTS(c Command) string {
	text := strings.TrimSpace(c.Args)
	if text == "" {
		return "usage: /tts <text>"
	}
	if b.speech == nil {
		return "tts is not configured"
	}
	link, err := b.speech.Synthesize(text)
	if err != nil {
		return fmt.Sprintf("tts failed: %v", err)
	}
	if b.client != nil {
		b.client.SendMusic("tts", link, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot.commands").Err(err).Msg("tts send failed")
			}
		})
	}
	return "tts: " + text
}

func (b *DRRRBot) cmdNext(Command) string {
	s, ok := b.player.Next()
	if !ok {
		return "playlist: (empty)"
	}
	if b.client != nil {
		b.client.SendMusic(s.Label(), s.URL, func(err error) {
			if err != nil && b.IsRunning() {
				log.Error().Str("module", "bot.commands").Err(err).Str("title", s.Title).Msg("send music failed")
			}
		})
	}
	return "now playing: " + s.Label()
}

func (b *DRRRBot) cmdPlaylist(Command) string { return b.player.List() }
func (b *DRRRBot) cmdClear(Command) string    { return b.player.Clear() }
func (b *DRRRBot) cmdShuffle(Command) string  { return b.player.Shuffle() }

func (b *DRRRBot) cmdMode(c Command) string {
	return b.player.SetMode(PlayMode(strings.ToLower(strings.TrimSpace(c.Args))))
}

// rm — номер из /playlist, с единицы.
func (b *DRRRBot) cmdRm(c Command) string {
	n, err := strconv.Atoi(strings.TrimSpace(c.Args))
	if err != nil {
		return "usage: /rm <index>"
	}
	return b.player.Remove(n - 1)
}

func (b *DRRRBot) cmdUsers(Command) string {
	b.snapMu.Lock()
	users := make([]drrrclient.User, 0, len(b.roster))
	for _, u := range b.roster {
		users = append(users, u)
	}
	b.snapMu.Unlock()
	return b.room.ListUsers(users)
}
