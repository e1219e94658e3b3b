package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis             Redis    `yaml:"redis"`
	SQLiteStoragePath string   `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"xo-arena.db"`
	Telegram          Telegram `yaml:"telegram"`
	Game              Game     `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Telegram struct {
	Token       string `yaml:"token" env:"BOT_TOKEN"`
	PollTimeout int    `yaml:"poll-timeout" env-default:"60"`
	Debug       bool   `yaml:"debug" env-default:"false"`
}

type Game struct {
	Rounds        int           `yaml:"rounds" env-default:"3"`
	Stake         float64       `yaml:"stake" env-default:"1"`
	WinBonus      float64       `yaml:"win-bonus" env-default:"0.5"`
	SearchTimeout time.Duration `yaml:"search-timeout" env-default:"30s"`
	TurnTimeout   time.Duration `yaml:"turn-timeout" env-default:"30s"`
	IdleTimeout   time.Duration `yaml:"idle-timeout" env-default:"3m"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
