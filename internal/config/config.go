package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zonas horarias embebidas (contenedores sin tzdata)

	"github.com/spf13/viper"
)

type Config struct {
	Port       string `mapstructure:"PORT"`
	Env        string `mapstructure:"ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	DBDSN      string `mapstructure:"DB_DSN"`
	DBMaxConns int    `mapstructure:"DB_MAX_CONNS"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	LockTimeout      time.Duration `mapstructure:"LOCK_TIMEOUT"`
	ClinicTimezone   string        `mapstructure:"CLINIC_TIMEZONE"`
	AcceptLegacyBase bool          `mapstructure:"UID_ACCEPT_LEGACY_BASE"`
	MaxUploadBytes   int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	StorageDir       string        `mapstructure:"STORAGE_DIR"`

	RedisURL    string `mapstructure:"REDIS_URL"`
	OdinBaseURL string `mapstructure:"ODIN_BASE_URL"`
	OdinAPIKey  string `mapstructure:"ODIN_API_KEY"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`

	location *time.Location
}

var keys = []string{
	"PORT", "ENV", "APP_NAME", "DB_DSN", "DB_MAX_CONNS", "LOG_LEVEL", "LOG_FORMAT",
	"LOCK_TIMEOUT", "CLINIC_TIMEZONE", "UID_ACCEPT_LEGACY_BASE", "MAX_UPLOAD_BYTES", "STORAGE_DIR",
	"REDIS_URL", "ODIN_BASE_URL", "ODIN_API_KEY", "JWT_SIGNING_KEY", "JWT_ISSUER",
}

// Load lee variables de entorno y, si existe, un .env en el directorio actual.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "vet-clinic-records")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOCK_TIMEOUT", "3s")
	v.SetDefault("CLINIC_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("UID_ACCEPT_LEGACY_BASE", true)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env es opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive, got %s", c.LockTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.ClinicTimezone))
	if err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// Location es la zona de la clínica: define el "día" de las visitas y el año del contador.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Addr para http.Server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
