package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Seal     SealConfig     `mapstructure:"seal"`
	Log      LogConfig      `mapstructure:"log"`
	Table    TableConfig    `mapstructure:"table"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig validates bearer tokens minted by the external auth service.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type SealConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded XChaCha20-Poly1305 key
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// TableConfig is the house rule set applied to new rounds.
type TableConfig struct {
	DeckCount             int   `mapstructure:"deck_count"`
	BlackjackPayoutNum    int64 `mapstructure:"blackjack_payout_num"`
	BlackjackPayoutDen    int64 `mapstructure:"blackjack_payout_den"`
	DealerHitsSoft17      bool  `mapstructure:"dealer_hits_soft17"`
	AllowSplit            bool  `mapstructure:"allow_split"`
	MaxHands              int   `mapstructure:"max_hands"`
	AllowDoubleAfterSplit bool  `mapstructure:"allow_double_after_split"`
	AllowSurrender        bool  `mapstructure:"allow_surrender"`
	MinBet                int64 `mapstructure:"min_bet"`
	MaxBet                int64 `mapstructure:"max_bet"`
}

type EngineConfig struct {
	ServerID           string        `mapstructure:"server_id"`
	AbandonTimeout     time.Duration `mapstructure:"abandon_timeout"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	SweepBatch         int           `mapstructure:"sweep_batch"`
	SweepWorkers       int           `mapstructure:"sweep_workers"`
	RoundLockTTL       time.Duration `mapstructure:"round_lock_ttl"`
	SettlementCacheTTL time.Duration `mapstructure:"settlement_cache_ttl"`
	CommitmentTTL      time.Duration `mapstructure:"commitment_ttl"`
	ActionRateLimit    int           `mapstructure:"action_rate_limit"`
	ActionRateWindow   time.Duration `mapstructure:"action_rate_window"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: BJE_ (Blackjack Engine).
// Nested keys use underscore: BJE_DATABASE_HOST, BJE_ENGINE_ABANDON_TIMEOUT, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "blackjack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("seal.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("table.deck_count", 6)
	v.SetDefault("table.blackjack_payout_num", 3)
	v.SetDefault("table.blackjack_payout_den", 2)
	v.SetDefault("table.dealer_hits_soft17", false)
	v.SetDefault("table.allow_split", true)
	v.SetDefault("table.max_hands", 4)
	v.SetDefault("table.allow_double_after_split", true)
	v.SetDefault("table.allow_surrender", false)
	v.SetDefault("table.min_bet", 10)
	v.SetDefault("table.max_bet", 100000)

	v.SetDefault("engine.server_id", "engine-1")
	v.SetDefault("engine.abandon_timeout", "10m")
	v.SetDefault("engine.sweep_interval", "30s")
	v.SetDefault("engine.sweep_batch", 100)
	v.SetDefault("engine.sweep_workers", 8)
	v.SetDefault("engine.round_lock_ttl", "10s")
	v.SetDefault("engine.settlement_cache_ttl", "24h")
	v.SetDefault("engine.commitment_ttl", "720h")
	v.SetDefault("engine.action_rate_limit", 30)
	v.SetDefault("engine.action_rate_window", "10s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// BJE_ENGINE_SWEEP_INTERVAL -> engine.sweep_interval
	v.SetEnvPrefix("BJE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
