// Package config loads service settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MinBcryptCost is the lowest work factor the service will hash with.
const MinBcryptCost = 10

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	DBDriver    string `yaml:"db_driver"`
	Port        string `yaml:"port"`
	CORSOrigin  string `yaml:"cors_origin"`

	Cookie CookieConfig `yaml:"cookie"`

	// SessionSecret switches the session cookie to signed mode when set.
	SessionSecret string `yaml:"session_secret"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
	SignInPath    string `yaml:"sign_in_path"`

	LogLevel        string `yaml:"log_level"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type CookieConfig struct {
	Name     string `yaml:"name"`
	Secure   bool   `yaml:"secure"`
	Domain   string `yaml:"domain"`
	SameSite string `yaml:"same_site"` // none | lax | strict
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Port:       "8080",
		CORSOrigin: "http://localhost:3000",
		Cookie: CookieConfig{
			Name:     "userId",
			SameSite: "lax",
		},
		BcryptCost:      MinBcryptCost,
		SignInPath:      "/sign-in",
		LogLevel:        "info",
		ShutdownTimeout: "10s",
	}
}

// Load builds a Config. path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	loadDotenv()
	cfg.applyEnv()
	cfg.normalize()

	return cfg, nil
}

func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Overload(p)
			log.Println("[env] loaded", p)
			return
		}
	}
}

func (c *Config) applyEnv() {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.Port, "PORT")
	setString(&c.CORSOrigin, "CORS_ORIGIN")
	setString(&c.Cookie.Name, "COOKIE_NAME")
	setString(&c.Cookie.Domain, "COOKIE_DOMAIN")
	setString(&c.Cookie.SameSite, "COOKIE_SAMESITE")
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		c.Cookie.Secure = strings.EqualFold(v, "true")
	}
	setString(&c.SessionSecret, "JWT_SECRET")
	setString(&c.SessionSecret, "SESSION_SECRET")
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BcryptCost = n
		}
	}
	setString(&c.SignInPath, "SIGN_IN_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) normalize() {
	if c.DBDriver == "" {
		c.DBDriver = inferDriver(c.DatabaseURL)
	}
	c.DBDriver = strings.ToLower(c.DBDriver)

	// local only: allow sslmode=disable if using localhost
	if c.DBDriver == DriverPostgres && strings.Contains(c.DatabaseURL, "localhost") &&
		!strings.Contains(c.DatabaseURL, "sslmode=") {
		if strings.Contains(c.DatabaseURL, "?") {
			c.DatabaseURL += "&sslmode=disable"
		} else {
			c.DatabaseURL += "?sslmode=disable"
		}
	}

	if c.BcryptCost < MinBcryptCost {
		c.BcryptCost = MinBcryptCost
	}
}

func inferDriver(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case url == "":
		return ""
	default:
		return DriverSQLite
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	if c.Cookie.Name == "" {
		return errors.New("cookie name is empty")
	}
	return nil
}

// Origins splits CORSOrigin on commas and drops trailing slashes.
func (c *Config) Origins() []string {
	var origins []string
	for _, p := range strings.Split(c.CORSOrigin, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetShutdownTimeout falls back to 10s on an unparsable value.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
