package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/EgorLis/drrrbot/internal/bot"
	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := bot.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	b := bot.New(*cfg)
	b.SetClient(drrrclient.New(cfg.Client))

	if err := b.Start(); err != nil {
		log.Fatal().Err(err).Msg("start")
	}
	defer b.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StreamURL != "" {
		st := drrrclient.NewStream(cfg.StreamURL, cfg.Client.Cookie, cfg.Client.UserAgent)
		b.SetStream(st)
		if err := st.Connect(ctx); err != nil {
			log.Error().Err(err).Str("url", cfg.StreamURL).Msg("stream connect")
		} else {
			defer st.Close()
		}
	}

	log.Info().Str("room", cfg.RoomID).Msg("running… press Ctrl+C to stop")
	<-ctx.Done()
}
