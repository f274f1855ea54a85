package bot

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/EgorLis/drrrbot/internal/drrrclient"
)

// Config — статическая конфигурация бота. Рантайм-состояние (баны, плейлист)
// живёт только в памяти и умирает вместе с процессом.
type Config struct {
	Client drrrclient.Config `mapstructure:"client"`

	RoomID       string `mapstructure:"room_id"`
	StreamURL    string `mapstructure:"stream_url"` // ws:// шлюз push-снапшотов; пусто — только опрос
	Name         string `mapstructure:"name"`          // имя бота в комнате, свои сообщения пропускаем
	DefaultAdmin string `mapstructure:"default_admin"` // трипкод, всегда в наборе админов

	Tick       time.Duration `mapstructure:"tick"`        // период основного цикла
	StaleAfter time.Duration `mapstructure:"stale_after"` // сколько живём без снапшота до ре-join

	AI       bool `mapstructure:"ai"`
	AIManage bool `mapstructure:"ai_manage"`
	Hang     bool `mapstructure:"hang"` // авто-возврат в комнату
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetDefault("client.base_url", "https://drrr.com")
	v.SetDefault("client.timeout", "30s")
	v.SetDefault("name", "52Hertz")
	v.SetDefault("default_admin", "52Hertz")
	v.SetDefault("tick", "1s")
	v.SetDefault("stale_after", "30s")
	v.SetDefault("ai", false)
	v.SetDefault("ai_manage", true)
	v.SetDefault("hang", true)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "bot.config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "bot.config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.StaleAfter < cfg.Tick {
		cfg.StaleAfter = 30 * cfg.Tick
	}
	return &cfg, nil
}
