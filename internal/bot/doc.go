// Package bot — прикладной бот для комнаты drrr.com поверх drrrclient. Бот:
//   - опрашивает комнату тиком (по умолчанию 1s), превращая снапшоты в
//     дискретные события (join/leave/message/dm/music/new_host);
//   - классифицирует текст: "/"-префикс — команда, остальное — событие
//     message; два реестра (подписчики категорий и обработчики команд);
//   - держит модерационное состояние (админы, баны, списки, политика
//     комнаты) и очередь треков с режимами album/single/repeat/loop;
//   - принуждает баны и авто-кик при входе, приветствует по правилам;
//   - сливает исходящую очередь ответов и ре-джойнится при протухшем
//     соединении (режим hang).
//
// Ошибка любого обработчика гасится на границе диспетчера и не мешает
// остальным; тик переживает собственные сбои и живёт до Stop().
//
// Жизненный цикл:
//   - создать через New(cfg), передать клиента SetClient(...),
//     (опционально) SetMusicSearch / SetSpeech;
//   - Start() / Stop(); повторные вызовы — no-op с предупреждением.
//
// Пример:
//
//	cfg, _ := bot.LoadConfig()
//	b := bot.New(*cfg)
//	b.SetClient(drrrclient.New(cfg.Client))
//	if err := b.Start(); err != nil { log.Fatal().Err(err).Send() }
//	defer b.Stop()
package bot
