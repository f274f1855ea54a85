package drrrclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ========================= high-level API =========================
//
// Каждая операция существует в двух видах:
//   - callback-форма: уходит в фоновую горутину, cb вызывается ровно один
//     раз (результат либо ошибка);
//   - *Async-форма: синхронная обёртка с таймаутом (как промис).

func (c *DRRR) GetLounge(cb func(*Lounge, error)) {
	go func() {
		l, err := c.getLounge()
		if cb != nil {
			cb(l, err)
		}
	}()
}

func (c *DRRR) GetRoom(roomID string, cb func(*Room, error)) {
	go func() {
		r, err := c.getRoom(roomID)
		if cb != nil {
			cb(r, err)
		}
	}()
}

func (c *DRRR) GetRoomAsync(roomID string) (*Room, error) {
	type res struct {
		room *Room
		err  error
	}
	ch := make(chan res, 1)
	c.GetRoom(roomID, func(r *Room, err error) { ch <- res{r, err} })
	select {
	case r := <-ch:
		return r.room, r.err
	case <-time.After(c.timeout + time.Second):
		return nil, &OpError{Op: "get_room", Err: errTimeout}
	}
}

func (c *DRRR) Join(roomID string, cb func(error)) {
	go func() {
		err := c.join(roomID)
		if cb != nil {
			cb(err)
		}
	}()
}

func (c *DRRR) JoinAsync(roomID string) error {
	ch := make(chan error, 1)
	c.Join(roomID, func(err error) { ch <- err })
	select {
	case err := <-ch:
		return err
	case <-time.After(c.timeout + time.Second):
		return &OpError{Op: "join", Err: errTimeout}
	}
}

// Say — сообщение в комнату; to непустой — личное сообщение, url непустой —
// сообщение со ссылкой.
func (c *DRRR) Say(msg, to, link string, cb func(error)) {
	form := url.Values{"message": {msg}}
	if to != "" {
		form.Set("to", to)
	}
	if link != "" {
		form.Set("url", link)
	}
	c.asyncAjax("say", form, cb)
}

func (c *DRRR) SayAsync(msg, to, link string) error {
	ch := make(chan error, 1)
	c.Say(msg, to, link, func(err error) { ch <- err })
	select {
	case err := <-ch:
		return err
	case <-time.After(c.timeout + time.Second):
		return &OpError{Op: "say", Err: errTimeout}
	}
}

// SendMusic — поставить трек в комнате (name — подпись, link — прямой URL).
func (c *DRRR) SendMusic(name, link string, cb func(error)) {
	c.asyncAjax("music", url.Values{"music": {"music"}, "name": {name}, "url": {link}}, cb)
}

func (c *DRRR) Kick(userID string, cb func(error)) {
	c.asyncAjax("kick", url.Values{"kick": {userID}}, cb)
}

func (c *DRRR) Ban(userID string, cb func(error)) {
	c.asyncAjax("ban", url.Values{"ban": {userID}}, cb)
}

func (c *DRRR) Unban(userID, userName string, cb func(error)) {
	c.asyncAjax("unban", url.Values{"unban": {userID}, "userName": {userName}}, cb)
}

func (c *DRRR) Leave(cb func(error)) {
	c.asyncAjax("leave", url.Values{"leave": {"leave"}}, cb)
}

func (c *DRRR) SetHost(userID string, cb func(error)) {
	c.asyncAjax("new_host", url.Values{"new_host": {userID}}, cb)
}

func (c *DRRR) SetDJMode(on bool, cb func(error)) {
	v := "false"
	if on {
		v = "true"
	}
	c.asyncAjax("dj_mode", url.Values{"dj_mode": {v}}, cb)
}

func (c *DRRR) asyncAjax(op string, form url.Values, cb func(error)) {
	go func() {
		err := c.ajax(op, form)
		if cb != nil {
			cb(err)
		}
	}()
}

// ========================= sync internals =========================

func (c *DRRR) getLounge() (*Lounge, error) {
	status, body, err := c.get("get_lounge", "/lounge?api=json")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &OpError{Op: "get_lounge", Status: status, Err: errors.New("unexpected status")}
	}
	var l Lounge
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, &OpError{Op: "get_lounge", Status: status, Err: err}
	}
	return &l, nil
}

func (c *DRRR) getRoom(roomID string) (*Room, error) {
	path := "/room/?api=json"
	if roomID != "" {
		path = "/room/?id=" + url.QueryEscape(roomID) + "&api=json"
	}
	status, body, err := c.get("get_room", path)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &OpError{Op: "get_room", Status: status, Err: errors.New("unexpected status")}
	}
	var r Room
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &OpError{Op: "get_room", Status: status, Err: err}
	}
	return &r, nil
}

// join — вход в комнату: пробный GET; сервер отвечает 403 с полями
// {id, authorization}, их возвращаем POST-ом, затем проверяем комнату.
func (c *DRRR) join(roomID string) error {
	status, body, err := c.get("join", "/room/?id="+url.QueryEscape(roomID)+"&api=json")
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		// уже внутри
	case http.StatusForbidden:
		var auth joinAuth
		if jerr := json.Unmarshal(body, &auth); jerr != nil || auth.Authorization == "" {
			return &OpError{Op: "join", Status: status, Err: errors.New("no authorization in 403 response")}
		}
		st, _, perr := c.post("join", "/room/", url.Values{
			"id":            {auth.ID},
			"authorization": {auth.Authorization},
		})
		if perr != nil {
			return perr
		}
		if st != http.StatusOK {
			return &OpError{Op: "join", Status: st, Err: errors.New("join post rejected")}
		}
	default:
		return &OpError{Op: "join", Status: status, Err: errors.New("unexpected status")}
	}

	// контрольное чтение: видим комнату — значит, вошли
	if _, err := c.getRoom(roomID); err != nil {
		return &OpError{Op: "join", Err: err}
	}
	return nil
}
