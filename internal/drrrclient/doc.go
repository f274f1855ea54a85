// Package drrrclient реализует HTTP-клиент комнатного API drrr.com.
// Клиент ходит на сервер с cookie-сессией (одна на все вызовы), умеет
// забирать снапшот комнаты (?api=json), входить в комнату (probe GET →
// 403 c authorization → POST), отправлять сообщения/музыку и модераторские
// действия (kick/ban/unban/new_host/dj_mode), а также читать lounge.
//
// Асинхронный контракт (по образцу SendRequest/SendRequestAsync):
//   - callback-форма Op(args, cb) — уходит в горутину, cb вызывается
//     ровно один раз: либо результат, либо ошибка, никогда оба;
//   - OpAsync(args) — синхронная обёртка c таймаутом.
//
// Клиент сам НЕ ретраит: политика повторов — дело вызывающего (bot).
// Все вызовы ограничены таймаутом (по умолчанию 30s); просроченный вызов
// завершается ошибкой, а не висит.
//
// Stream — опциональная push-доставка тех же снапшотов по WebSocket с
// автоматическим реконнектом (ограниченный backoff) и ping keep-alive.
//
// Пример:
//
//	c := drrrclient.New(drrrclient.Config{Cookie: "drrr-session-1=..."})
//	if err := c.JoinAsync("room-id"); err != nil { log.Fatal(err) }
//	_ = c.SayAsync("hello", "", "")
//	c.GetRoom("room-id", func(r *drrrclient.Room, err error) { ... })
package drrrclient
