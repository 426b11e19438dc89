package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Settings struct {
	Mode     string `mapstructure:"mode"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	PostgresURI string `mapstructure:"postgres_uri"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDB     string `mapstructure:"mongo_db"`
	RedisAddr   string `mapstructure:"redis_addr"`

	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience"`

	AllowPastScheduling    bool `mapstructure:"allow_past_scheduling"`
	DefaultDurationMinutes int  `mapstructure:"default_duration_minutes"`

	SendBuffer     int           `mapstructure:"send_buffer"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PresenceStrict bool          `mapstructure:"presence_strict"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`

	ReconcileSchedule string        `mapstructure:"reconcile_schedule"`
	ReconcileGrace    time.Duration `mapstructure:"reconcile_grace"`

	NotifyStream  string `mapstructure:"notify_stream"`
	NotifyGroup   string `mapstructure:"notify_group"`
	NotifyWorkers int    `mapstructure:"notify_workers"`

	ArchiveBucket string        `mapstructure:"archive_bucket"`
	TranscriptTTL time.Duration `mapstructure:"transcript_ttl"`
	RoomCacheTTL  time.Duration `mapstructure:"room_cache_ttl"`
}

// Load reads settings from the environment (upper-cased keys, e.g.
// POSTGRES_URI) and, when CONFIG_FILE is set, from that YAML file first.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range v.AllKeys() {
		_ = v.BindEnv(k)
	}

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(s.AllowedOrigins) == 1 && strings.Contains(s.AllowedOrigins[0], ",") {
		s.AllowedOrigins = strings.Split(s.AllowedOrigins[0], ",")
	}
	return &s, s.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("postgres_uri", "")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_db", "interviewroom")
	v.SetDefault("redis_addr", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "")
	v.SetDefault("jwt_audience", "")
	v.SetDefault("allow_past_scheduling", false)
	v.SetDefault("default_duration_minutes", 60)
	v.SetDefault("send_buffer", 64)
	v.SetDefault("read_limit", 64<<10)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("presence_strict", false)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("reconcile_schedule", "@every 5m")
	v.SetDefault("reconcile_grace", "2m")
	v.SetDefault("notify_stream", "notify:stream")
	v.SetDefault("notify_group", "notify-workers")
	v.SetDefault("notify_workers", 2)
	v.SetDefault("archive_bucket", "")
	v.SetDefault("transcript_ttl", "72h")
	v.SetDefault("room_cache_ttl", "30s")
}

func (s *Settings) Validate() error {
	switch {
	case s.PostgresURI == "":
		return fmt.Errorf("POSTGRES_URI is not set")
	case s.RedisAddr == "":
		return fmt.Errorf("REDIS_ADDR is not set")
	case s.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET is not set")
	case s.DefaultDurationMinutes <= 0:
		return fmt.Errorf("DEFAULT_DURATION_MINUTES must be positive")
	}
	return nil
}
