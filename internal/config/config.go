package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every process-scope setting. Required values abort startup;
// a missing setting is never a per-message failure.
type Config struct {
	Region      string
	RedisAddr   string
	KafkaBroker string
	HTTPAddr    string

	QueueStream       string
	QueueGroup        string
	VisibilityTimeout time.Duration

	StoreTable string

	OSEndpoint  string
	OSIndex     string
	OSAccessKey string
	OSSecretKey string

	MailFrom string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	NumResults      int
	DrainSchedule   string
	AllowedCuisines []string
	DiscardDir      string
}

// Load reads .env (if present) then the environment.
// joho/godotenv: Load merges a local .env file into the process environment
// without overriding variables that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Region:        getenv("REGION", "us-east-1"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		KafkaBroker:   getenv("KAFKA_BROKER", "kafka:9092"),
		HTTPAddr:      getenv("CONCIERGE_HTTP_ADDR", ":8080"),
		QueueStream:   getenv("QUEUE_STREAM", "concierge:requests"),
		QueueGroup:    getenv("QUEUE_GROUP", "concierge-workers"),
		StoreTable:    getenv("STORE_TABLE", "yelp-restaurants"),
		OSEndpoint:    strings.TrimRight(os.Getenv("OS_ENDPOINT"), "/"),
		OSIndex:       os.Getenv("OS_INDEX"),
		OSAccessKey:   os.Getenv("OS_ACCESS_KEY"),
		OSSecretKey:   os.Getenv("OS_SECRET_KEY"),
		MailFrom:      os.Getenv("MAIL_FROM"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      os.Getenv("SMTP_PORT"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		DrainSchedule: getenv("DRAIN_SCHEDULE", "@every 1m"),
		DiscardDir:    getenv("DISCARD_DIR", "./data/discards"),
	}

	missing := []string{}
	for _, req := range []struct{ name, val string }{
		{"OS_ENDPOINT", cfg.OSEndpoint},
		{"OS_INDEX", cfg.OSIndex},
		{"OS_ACCESS_KEY", cfg.OSAccessKey},
		{"OS_SECRET_KEY", cfg.OSSecretKey},
		{"MAIL_FROM", cfg.MailFrom},
		{"SMTP_HOST", cfg.SMTPHost},
		{"SMTP_PORT", cfg.SMTPPort},
	} {
		if strings.TrimSpace(req.val) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment: %s", strings.Join(missing, ", "))
	}

	n, err := strconv.Atoi(getenv("NUM_RESULTS", "3"))
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("config: NUM_RESULTS must be a positive integer, got %q", os.Getenv("NUM_RESULTS"))
	}
	cfg.NumResults = n

	vis, err := strconv.Atoi(getenv("VISIBILITY_TIMEOUT_SEC", "30"))
	if err != nil || vis <= 0 {
		return nil, fmt.Errorf("config: VISIBILITY_TIMEOUT_SEC must be a positive integer, got %q", os.Getenv("VISIBILITY_TIMEOUT_SEC"))
	}
	cfg.VisibilityTimeout = time.Duration(vis) * time.Second

	for _, c := range strings.Split(getenv("ALLOWED_CUISINES", "italian,chinese,mexican,indian,japanese"), ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			cfg.AllowedCuisines = append(cfg.AllowedCuisines, c)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
