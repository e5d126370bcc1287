package config

import (
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Chat     ChatConfig     `yaml:"chat"`
}

type HTTPConfig struct {
	Address     string   `yaml:"address" env:"HTTP_ADDR" env-default:":8080"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"DATABASE_URL" env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS" env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"30m"`
}

type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env:"JWT_TTL" env-default:"24h"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type ChatConfig struct {
	HistoryLimit  int `yaml:"history_limit" env:"CHAT_HISTORY_LIMIT" env-default:"100"`
	RoomListLimit int `yaml:"room_list_limit" env:"CHAT_ROOM_LIST_LIMIT" env-default:"50"`
}

// MustLoad читает .env, затем yaml из -config/CONFIG_PATH или окружение
func MustLoad() *Config {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic("cannot read config: " + err.Error())
	}
	return cfg
}

// Load пустой путь - только переменные окружения
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, err
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret is empty")
	}
	if c.Chat.HistoryLimit <= 0 || c.Chat.RoomListLimit <= 0 {
		return errors.New("chat limits must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }
