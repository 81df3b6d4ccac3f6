package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Browser BrowserConfig
	LLM     LLMConfig
	Redis   RedisConfig
	Storage StorageConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	Domains          []string
	SearchMaxResults int
	ImageLimit       int
	MaxRetries       int
	HTTPTimeout      time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type LLMConfig struct {
	Endpoint   string
	Deployment string
	Model      string
	APIKey     string
	APIVersion string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type StorageConfig struct {
	TemplatePath string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			Domains:          getStringSliceOrDefault("SCRAPER_DOMAINS", defaultDomains()),
			SearchMaxResults: getIntOrDefault("SCRAPER_SEARCH_MAX_RESULTS", 10),
			ImageLimit:       getIntOrDefault("SCRAPER_IMAGE_LIMIT", 1),
			MaxRetries:       getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			HTTPTimeout:      getDurationOrDefault("SCRAPER_HTTP_TIMEOUT", 20*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 15*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "fr-FR,fr;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Paris"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "fr-FR"),
		},
		LLM: LLMConfig{
			Endpoint:   getEnvOrDefault("AZURE_OPENAI_LLM_ENDPOINT", ""),
			Deployment: getEnvOrDefault("AZURE_OPENAI_LLM_DEPLOYMENT", ""),
			Model:      getEnvOrDefault("AZURE_OPENAI_LLM_MODEL", ""),
			APIKey:     getEnvOrDefault("AZURE_OPENAI_LLM_API_KEY", ""),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_LLM_API_VERSION", "2023-05-15"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			CacheTTL: getDurationOrDefault("REDIS_CACHE_TTL", 24*time.Hour),
		},
		Storage: StorageConfig{
			TemplatePath: getEnvOrDefault("TEMPLATE_PATH", "templates/Fiche_Technique.docx"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Scraper.Domains) == 0 {
		return fmt.Errorf("SCRAPER_DOMAINS must name at least one domain")
	}

	if c.Scraper.SearchMaxResults < 1 {
		return fmt.Errorf("SCRAPER_SEARCH_MAX_RESULTS must be at least 1")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultDomains() []string {
	return []string{"pointp.fr", "cedeo.fr", "se.com"}
}
