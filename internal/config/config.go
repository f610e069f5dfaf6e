package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ICEServer mirrors webrtc.ICEServer for the config file.
type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// Prompts overrides the built-in truth and dare pools when both are set.
type Prompts struct {
	Truths []string `mapstructure:"truths"`
	Dares  []string `mapstructure:"dares"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	Secret   string `mapstructure:"secret"`

	DatabasePath string        `mapstructure:"database_path"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	PushQueue    string        `mapstructure:"push_queue"`
	MediaBaseURL string        `mapstructure:"media_base_url"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	RingTimeout      time.Duration `mapstructure:"ring_timeout"`
	CallTombstoneTTL time.Duration `mapstructure:"call_tombstone_ttl"`
	RoomRateLimit    int           `mapstructure:"room_rate_limit"`
	RoomRateInterval time.Duration `mapstructure:"room_rate_interval"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
	Prompts    Prompts     `mapstructure:"prompts"`
}

// Load reads .env, then config/config.<CONFIG_ENV>.yaml, then HEARTLINK_*
// environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("module", "config").Msg("failed to read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("HEARTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Mode == "release" && cfg.Secret == defaultSecret {
		return nil, fmt.Errorf("secret must be set in release mode")
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("db", cfg.DatabasePath).Msg("config ready")
	return &cfg, nil
}

const defaultSecret = "change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", defaultSecret)
	v.SetDefault("database_path", "./data/heartlink.db")
	v.SetDefault("redis_addr", "")
	v.SetDefault("push_queue", "heartlink:push")
	v.SetDefault("media_base_url", "")
	v.SetDefault("token_ttl", "720h")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("ring_timeout", "60s")
	v.SetDefault("call_tombstone_ttl", "10m")
	v.SetDefault("room_rate_limit", 20)
	v.SetDefault("room_rate_interval", "1s")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}
