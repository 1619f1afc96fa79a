package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Store     StoreConfig
	Session   SessionConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type DatabaseConfig struct {
	Driver    string // mysql | postgres | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	Path      string // sqlite 文件路径
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// StoreConfig 选择文档存储后端
type StoreConfig struct {
	Type           string        `mapstructure:"type"` // sql | remote | memory
	CacheEnabled   bool          `mapstructure:"cache_enabled"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl_seconds"`
	RemoteEndpoint string        `mapstructure:"remote_endpoint"`
	RemoteProject  string        `mapstructure:"remote_project"`
	RemoteAPIKey   string        `mapstructure:"remote_api_key"`
	RemoteDatabase string        `mapstructure:"remote_database"`
	RemoteTimeout  time.Duration `mapstructure:"remote_timeout_seconds"`
	RemoteRetries  int           `mapstructure:"remote_retries"`
}

type SessionConfig struct {
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout_seconds"`
	Retention       time.Duration `mapstructure:"retention_minutes"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout_minutes"`
	JanitorSchedule string        `mapstructure:"janitor_schedule"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.charset", "utf8mb4")
	viper.SetDefault("database.parsetime", true)
	viper.SetDefault("database.path", "mocktest.db")
	viper.SetDefault("store.type", "sql")
	viper.SetDefault("store.cache_ttl_seconds", 300)
	viper.SetDefault("store.remote_timeout_seconds", 10)
	viper.SetDefault("store.remote_retries", 2)
	viper.SetDefault("session.submit_timeout_seconds", 15)
	viper.SetDefault("session.retention_minutes", 30)
	viper.SetDefault("session.idle_timeout_minutes", 180)
	viper.SetDefault("session.janitor_schedule", "@every 1m")
	viper.SetDefault("rate_limit.max_requests", 600)
	viper.SetDefault("rate_limit.window_minutes", 1)
	viper.SetDefault("log.file", "logs/app.log")
}

func LoadConfig(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MOCKTEST")
	viper.AutomaticEnv()
	setDefaults()

	// Database
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Store
	viper.BindEnv("store.type", "STORE_TYPE")
	viper.BindEnv("store.remote_endpoint", "STORE_REMOTE_ENDPOINT")
	viper.BindEnv("store.remote_project", "STORE_REMOTE_PROJECT")
	viper.BindEnv("store.remote_api_key", "STORE_REMOTE_API_KEY")
	viper.BindEnv("store.remote_database", "STORE_REMOTE_DATABASE")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Store.CacheTTL = cfg.Store.CacheTTL * time.Second
	cfg.Store.RemoteTimeout = cfg.Store.RemoteTimeout * time.Second
	cfg.Session.SubmitTimeout = cfg.Session.SubmitTimeout * time.Second
	cfg.Session.Retention = cfg.Session.Retention * time.Minute
	cfg.Session.IdleTimeout = cfg.Session.IdleTimeout * time.Minute

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Store.Type {
	case "sql", "memory":
	case "remote":
		if c.Store.RemoteEndpoint == "" {
			return fmt.Errorf("store.remote_endpoint is required when store.type is remote")
		}
	default:
		return fmt.Errorf("unsupported store type: %q", c.Store.Type)
	}

	return nil
}
