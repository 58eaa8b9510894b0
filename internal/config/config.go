package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Printer  PrinterConfig
	Gate     GateConfig
	Notify   NotifyConfig
	Signing  SigningConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type PrinterConfig struct {
	ServiceAddr string
	DialTimeout time.Duration
}

type GateConfig struct {
	SettleDelay      time.Duration
	MaxRetryAttempts int
}

type NotifyConfig struct {
	Warmup time.Duration
	TTL    time.Duration
	Max    int
}

type SigningConfig struct {
	KeyPath string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	// .env is optional; real env wins either way.
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "comanda")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "comanda")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PRINT_SERVICE_ADDR", "localhost:9100")
	viper.SetDefault("PRINT_DIAL_TIMEOUT", "5s")
	viper.SetDefault("GATE_SETTLE_DELAY", "2s")
	viper.SetDefault("GATE_MAX_RETRY_ATTEMPTS", 3)
	viper.SetDefault("NOTIFY_WARMUP", "5s")
	viper.SetDefault("NOTIFY_TTL", "30s")
	viper.SetDefault("NOTIFY_MAX", 50)
	viper.SetDefault("SIGNING_KEY_PATH", "")
	viper.SetDefault("LOG_LEVEL", "info")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}
	dialTimeout, err := time.ParseDuration(viper.GetString("PRINT_DIAL_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	settleDelay, err := time.ParseDuration(viper.GetString("GATE_SETTLE_DELAY"))
	if err != nil {
		return nil, err
	}
	warmup, err := time.ParseDuration(viper.GetString("NOTIFY_WARMUP"))
	if err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration(viper.GetString("NOTIFY_TTL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Printer: PrinterConfig{
			ServiceAddr: viper.GetString("PRINT_SERVICE_ADDR"),
			DialTimeout: dialTimeout,
		},
		Gate: GateConfig{
			SettleDelay:      settleDelay,
			MaxRetryAttempts: viper.GetInt("GATE_MAX_RETRY_ATTEMPTS"),
		},
		Notify: NotifyConfig{
			Warmup: warmup,
			TTL:    ttl,
			Max:    viper.GetInt("NOTIFY_MAX"),
		},
		Signing: SigningConfig{
			KeyPath: viper.GetString("SIGNING_KEY_PATH"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
