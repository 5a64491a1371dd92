package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"coinafrique-scraper/models"
)

// DefaultFeedbackURL is the evaluation form shown when FEEDBACK_URL is unset.
const DefaultFeedbackURL = "https://docs.google.com/forms/d/e/1FAIpQLSf4oHly6t4yIe-M_0o1EebpGg0wz869pYmKzJbbYp-XoYxIfQ/viewform?embedded=true"

// DefaultCategoryURLs maps each category to its listing page on the site.
var DefaultCategoryURLs = map[models.Category]string{
	models.Dogs:                  "https://sn.coinafrique.com/categorie/chiens",
	models.Sheep:                 "https://sn.coinafrique.com/categorie/moutons",
	models.PoultryRabbitsPigeons: "https://sn.coinafrique.com/categorie/poules-lapins-et-pigeons",
	models.OtherAnimals:          "https://sn.coinafrique.com/categorie/autres-animaux",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	PageDelay        time.Duration
	FetchTimeout     time.Duration
	FetchMaxAttempts int
	FetchMode        string
	ChromeBin        string
	UserAgent        string
	MaxPages         int
	CategoryURLs     map[models.Category]string

	BulkInputPath  string
	RawCSVPath     string
	ClassifierMode string

	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ListenAddr  string
	FeedbackURL string

	LogFile  string
	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		DBDriver:         getEnv("DB_DRIVER", "sqlite3"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "coinafrique"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./coinafrique_app.db"),

		PageDelay:        time.Duration(getEnvInt("PAGE_DELAY_MS", 500)) * time.Millisecond,
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchMaxAttempts: getEnvInt("FETCH_MAX_ATTEMPTS", 1),
		FetchMode:        getEnv("FETCH_MODE", "http"),
		ChromeBin:        getEnv("CHROME_BIN", ""),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		MaxPages:     getEnvInt("MAX_PAGES", 50),
		CategoryURLs: copyURLs(DefaultCategoryURLs),

		BulkInputPath:  getEnv("BULK_INPUT_PATH", "./data/coinafrique_animaux.csv"),
		RawCSVPath:     getEnv("RAW_CSV_PATH", "./output/animaux_scraped.csv"),
		ClassifierMode: getEnv("CLASSIFIER_MODE", "combined"),

		CacheBackend:  getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:      getEnvDuration("CACHE_TTL", time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		FeedbackURL: getEnv("FEEDBACK_URL", DefaultFeedbackURL),

		LogFile:  getEnv("LOG_FILE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if path := getEnv("CATEGORIES_FILE", ""); path != "" {
		if err := cfg.loadCategoryFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// DSN returns the connection string for the configured SQL driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite3" {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// categoryFile is the YAML layout of CATEGORIES_FILE:
//
//	categories:
//	  chiens: https://sn.coinafrique.com/categorie/chiens
type categoryFile struct {
	Categories map[string]string `yaml:"categories"`
}

func (c *Config) loadCategoryFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read categories file: %w", err)
	}
	return c.applyCategoryYAML(data)
}

func (c *Config) applyCategoryYAML(data []byte) error {
	var f categoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse categories file: %w", err)
	}
	for name, url := range f.Categories {
		cat, err := models.ParseCategory(name)
		if err != nil {
			return fmt.Errorf("config: categories file: %w", err)
		}
		c.CategoryURLs[cat] = url
	}
	return nil
}

func copyURLs(src map[models.Category]string) map[models.Category]string {
	dst := make(map[models.Category]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
