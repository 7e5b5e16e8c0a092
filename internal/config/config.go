// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is everything the server needs at startup.
type Config struct {
	Port   string
	DBPath string

	JWTSecret    string
	JWTExpire    time.Duration
	CookieSecure bool

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyAPIURL       string
	SpotifyAuthURL      string
	SpotifyTokenURL     string
	SpotifyRateLimit    float64

	AIAPIURL string
	AIAPIKey string
	AIModel  string

	FrontendURL    string
	AllowedOrigins []string

	CacheMaxEntries int

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "data/neurotune.db")
	v.SetDefault("JWT_COOKIE_EXPIRE", 30)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SPOTIFY_API_URL", "https://api.spotify.com/v1")
	v.SetDefault("SPOTIFY_AUTH_URL", "https://accounts.spotify.com/authorize")
	v.SetDefault("SPOTIFY_TOKEN_URL", "https://accounts.spotify.com/api/token")
	v.SetDefault("SPOTIFY_RATE_LIMIT", 10)
	v.SetDefault("AI_API_URL", "https://api.deepseek.com/v1/chat/completions")
	v.SetDefault("AI_MODEL", "deepseek-chat")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CACHE_MAX_ENTRIES", 1000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads envFile (if it exists) into the process environment, then
// builds a Config from the environment and defaults. Variables already set
// in the environment win over the file. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:   v.GetString("PORT"),
		DBPath: v.GetString("DB_PATH"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTExpire:    time.Duration(v.GetInt("JWT_COOKIE_EXPIRE")) * 24 * time.Hour,
		CookieSecure: v.GetBool("COOKIE_SECURE"),

		SpotifyClientID:     v.GetString("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: v.GetString("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURI:  v.GetString("SPOTIFY_REDIRECT_URI"),
		SpotifyAPIURL:       v.GetString("SPOTIFY_API_URL"),
		SpotifyAuthURL:      v.GetString("SPOTIFY_AUTH_URL"),
		SpotifyTokenURL:     v.GetString("SPOTIFY_TOKEN_URL"),
		SpotifyRateLimit:    v.GetFloat64("SPOTIFY_RATE_LIMIT"),

		AIAPIURL: v.GetString("AI_API_URL"),
		AIAPIKey: v.GetString("AI_API_KEY"),
		AIModel:  v.GetString("AI_MODEL"),

		FrontendURL:    strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		CacheMaxEntries: v.GetInt("CACHE_MAX_ENTRIES"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}
}

// Validate reports every missing or malformed required value at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	if c.JWTExpire <= 0 {
		errs = append(errs, errors.New("JWT_COOKIE_EXPIRE must be a positive number of days"))
	}
	if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required"))
	}
	if c.SpotifyRedirectURI == "" {
		errs = append(errs, errors.New("SPOTIFY_REDIRECT_URI is required"))
	}
	if c.CacheMaxEntries <= 0 {
		errs = append(errs, errors.New("CACHE_MAX_ENTRIES must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
