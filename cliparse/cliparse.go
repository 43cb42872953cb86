package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Supported DATABASE_TYPE values
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
	DatabasePgx      = "pgx"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminKeySalt  string
	SecretKey     string
	MediaDir      string
	BcryptCost    int
	SessionAge    time.Duration
	SecureCookies bool
}

// ParseFlags reads flags, then environment (optionally seeded from .env)
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// A missing .env is fine; real env vars always win over it
	_ = godotenv.Load()

	fs := flag.NewFlagSet("rango-polls", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or pgx)")
	fs.StringVar(&cfg.MediaDir, "media", "", "Directory for uploaded files")
	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", 0, "bcrypt cost for password hashing")
	fs.DurationVar(&cfg.SessionAge, "session-age", 0, "Session cookie lifetime")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", false, "Mark cookies Secure (HTTPS only)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.SecretKey, "secret", "", "Secret key for CSRF tokens (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	switch cfg.DatabaseType {
	case DatabaseSQLite, DatabasePostgres, DatabasePgx:
	default:
		return Config{}, errors.New("DATABASE_TYPE must be one of: sqlite, postgres, pgx")
	}

	if cfg.MediaDir == "" {
		cfg.MediaDir = os.Getenv("MEDIA_DIR")
		if cfg.MediaDir == "" {
			cfg.MediaDir = "media"
		}
	}

	if cfg.BcryptCost == 0 {
		if costStr := os.Getenv("BCRYPT_COST"); costStr != "" {
			cost, err := strconv.Atoi(costStr)
			if err != nil {
				return Config{}, errors.New("invalid BCRYPT_COST env variable")
			}
			cfg.BcryptCost = cost
		} else {
			cfg.BcryptCost = bcrypt.DefaultCost
		}
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, errors.New("bcrypt cost out of range")
	}

	if cfg.SessionAge == 0 {
		if ageStr := os.Getenv("SESSION_AGE"); ageStr != "" {
			age, err := time.ParseDuration(ageStr)
			if err != nil {
				return Config{}, errors.New("invalid SESSION_AGE env variable")
			}
			cfg.SessionAge = age
		} else {
			cfg.SessionAge = 14 * 24 * time.Hour
		}
	}

	if !cfg.SecureCookies {
		if v := os.Getenv("SECURE_COOKIES"); v != "" {
			secure, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid SECURE_COOKIES env variable")
			}
			cfg.SecureCookies = secure
		}
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("SECRET_KEY")
	}
	if cfg.SecretKey == "" {
		return Config{}, errors.New("SECRET_KEY required")
	}

	return cfg, nil
}
