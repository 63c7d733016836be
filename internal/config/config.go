package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars and an optional config file.
type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	LogSQL         bool
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	CORSOrigins    []string
	BcryptCost     int
	CookieName     string
	CookieSecure   bool
	Admin          AdminConfig
	KafkaBrokers   []string
	KafkaTopic     string
}

// AdminConfig carries first-run admin credentials. Nothing is provisioned when unset.
type AdminConfig struct {
	Identifier string
	Name       string
	Password   string
}

// Load reads configuration from the environment and performs minimal validation.
// When CONFIG_FILE is set, that file is read first and environment variables override it.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("SQLITE_PATH", "data/ledger.db")
	v.SetDefault("LOG_SQL", false)
	v.SetDefault("JWT_ISSUER", "bank-ledger-backend")
	v.SetDefault("JWT_TTL_MINUTES", 24*60)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("COOKIE_NAME", "authToken")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("ADMIN_NAME", "Admin")
	v.SetDefault("KAFKA_TOPIC", "ledger.transactions")
	v.AutomaticEnv()

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:           fallback(v.GetString("PORT"), "8080"),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		SQLitePath:     strings.TrimSpace(v.GetString("SQLITE_PATH")),
		LogSQL:         v.GetBool("LOG_SQL"),
		JWTSecret:      strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:      fallback(v.GetString("JWT_ISSUER"), "bank-ledger-backend"),
		CORSOrigins:    parseCSV(fallback(v.GetString("CORS_ALLOWED_ORIGINS"), "*")),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		CookieName:     fallback(v.GetString("COOKIE_NAME"), "authToken"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
		Admin: AdminConfig{
			Identifier: strings.TrimSpace(v.GetString("ADMIN_IDENTIFIER")),
			Name:       strings.TrimSpace(v.GetString("ADMIN_NAME")),
			Password:   v.GetString("ADMIN_PASSWORD"),
		},
		KafkaBrokers: parseList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   fallback(v.GetString("KAFKA_TOPIC"), "ledger.transactions"),
	}

	if ttlMinutes := v.GetInt("JWT_TTL_MINUTES"); ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 24 * time.Hour
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return Config{}, errors.New("SQLITE_PATH is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	out := parseList(input)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
