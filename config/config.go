package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultConfigFile = "config/config.yml"

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Consul   ConsulConfig   `mapstructure:"consul" yaml:"consul"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Chat     ChatConfig     `mapstructure:"chat" yaml:"chat"`
	RocketMQ RocketMQConfig `mapstructure:"rocketmq" yaml:"rocketmq"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Name        string   `mapstructure:"name" yaml:"name"`
	Version     string   `mapstructure:"version" yaml:"version"`
	Environment string   `mapstructure:"environment" yaml:"environment"`
	Port        int      `mapstructure:"port" yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver     string         `mapstructure:"driver" yaml:"driver"`
	SQLitePath string         `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Postgres   PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

type PostgresConfig struct {
	Address  string        `mapstructure:"address" yaml:"address"`
	Port     int           `mapstructure:"port" yaml:"port"`
	User     string        `mapstructure:"user" yaml:"user"`
	Password string        `mapstructure:"password" yaml:"password"`
	DBName   string        `mapstructure:"db_name" yaml:"db_name"`
	SSLMode  string        `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxIdle  int           `mapstructure:"max_idle" yaml:"max_idle"`
	MaxOpen  int           `mapstructure:"max_open" yaml:"max_open"`
	MaxLife  time.Duration `mapstructure:"max_life" yaml:"max_life"`
}

type RedisConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Database        int           `mapstructure:"database" yaml:"database"`
	Prefix          string        `mapstructure:"prefix" yaml:"prefix"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
	PoolSize        int           `mapstructure:"pool_size" yaml:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	LockTTL         time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	LockMaxAttempts int           `mapstructure:"lock_max_attempts" yaml:"lock_max_attempts"`
	LockBackoff     time.Duration `mapstructure:"lock_backoff" yaml:"lock_backoff"`
	RateLimitQPS    int           `mapstructure:"rate_limit_qps" yaml:"rate_limit_qps"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

type ConsulConfig struct {
	Address    string `mapstructure:"address" yaml:"address"`
	Scheme     string `mapstructure:"scheme" yaml:"scheme"`
	Datacenter string `mapstructure:"datacenter" yaml:"datacenter"`
}

type AuthConfig struct {
	JwtSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string `mapstructure:"issuer" yaml:"issuer"`
}

type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Model             string        `mapstructure:"model" yaml:"model"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SystemInstruction string        `mapstructure:"system_instruction" yaml:"system_instruction"`
	FallbackReply     string        `mapstructure:"fallback_reply" yaml:"fallback_reply"`
}

type ChatConfig struct {
	HistoryWindow     int  `mapstructure:"history_window" yaml:"history_window"`
	MaxSessions       int  `mapstructure:"max_sessions" yaml:"max_sessions"`
	MaxMessageRunes   int  `mapstructure:"max_message_runes" yaml:"max_message_runes"`
	SerializeSessions bool `mapstructure:"serialize_sessions" yaml:"serialize_sessions"`
}

type RocketMQConfig struct {
	NameServers   []string `mapstructure:"name_servers" yaml:"name_servers"`
	MaxRetries    int      `mapstructure:"max_retries" yaml:"max_retries"`
	GroupName     string   `mapstructure:"group_name" yaml:"group_name"`
	ConsumerGroup string   `mapstructure:"consumer_group" yaml:"consumer_group"`
	Topic         string   `mapstructure:"topic" yaml:"topic"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "chat-backend")
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "chat.db")
	v.SetDefault("database.postgres.address", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "chat")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.db_name", "chat")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_idle", 10)
	v.SetDefault("database.postgres.max_open", 25)
	v.SetDefault("database.postgres.max_life", 5*time.Minute)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.prefix", "chat:")
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.cache_ttl", 30*time.Minute)
	v.SetDefault("redis.lock_ttl", 2*time.Minute)
	v.SetDefault("redis.lock_max_attempts", 50)
	v.SetDefault("redis.lock_backoff", 100*time.Millisecond)
	v.SetDefault("redis.rate_limit_qps", 10)

	v.SetDefault("consul.address", "")
	v.SetDefault("consul.scheme", "http")
	v.SetDefault("consul.datacenter", "dc1")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.system_instruction", "You are a helpful assistant.")
	v.SetDefault("llm.fallback_reply", "Sorry, I couldn't generate a reply right now. Please try again.")

	v.SetDefault("chat.history_window", 20)
	v.SetDefault("chat.max_sessions", 200)
	v.SetDefault("chat.max_message_runes", 32000)
	v.SetDefault("chat.serialize_sessions", true)

	v.SetDefault("rocketmq.name_servers", []string{})
	v.SetDefault("rocketmq.max_retries", 2)
	v.SetDefault("rocketmq.group_name", "chat-backend-producer")
	v.SetDefault("rocketmq.consumer_group", "chat-backend-events")
	v.SetDefault("rocketmq.topic", "chat_events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads the YAML file at path (DefaultConfigFile when empty) and
// overlays CHAT_* environment variables. A missing file is not an error;
// defaults and the environment still apply.
func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig

	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the options the server cannot start without.
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("config: chat.history_window must be positive")
	}
	if c.Chat.MaxSessions <= 0 {
		return fmt.Errorf("config: chat.max_sessions must be positive")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("config: server.port must be positive")
	}
	return nil
}
