package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/retry"
	"golang.org/x/oauth2/google"
)

// ErrInvalidConfig marks configuration failures; they abort the process
// before any job is touched.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

type Config struct {
	Port string `validate:"required"`

	GoogleProjectID         string `validate:"required"`
	FirebaseCredentials     string // path to a service account file
	FirebaseCredentialsJSON string // inline service account payload

	StoreDriver          string `validate:"oneof=firestore postgres memory"`
	DatabaseURL          string `validate:"required_if=StoreDriver postgres"`
	JobsCollection       string `validate:"required"`
	HistoryCollection    string `validate:"required"`
	DeadLetterCollection string `validate:"required"`

	PageSize         int `validate:"min=1,max=500"`
	MaxBatches       int `validate:"min=1"`
	MaxAttempts      int `validate:"min=1"`
	DryRun           bool
	RetryPause       time.Duration
	Interval         time.Duration
	AndroidChannelID string `validate:"required"`

	// Retry strategy for store writes made while recording outcomes
	StoreRetry retry.Strategy

	PubSubTriggerTopic string
	JWTSecret          string

	parseErrs []error
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	c := &Config{
		Port:                    getEnv("PORT", "8080"),
		GoogleProjectID:         getEnv("GOOGLE_PROJECT_ID", ""),
		FirebaseCredentials:     getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		StoreDriver:             getEnv("STORE_DRIVER", StoreFirestore),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JobsCollection:          getEnv("JOBS_COLLECTION", "scheduled_notifications"),
		HistoryCollection:       getEnv("HISTORY_COLLECTION", "notification_history"),
		DeadLetterCollection:    getEnv("DEAD_LETTER_COLLECTION", "notification_dead_letters"),
		AndroidChannelID:        getEnv("ANDROID_CHANNEL_ID", "default"),
		PubSubTriggerTopic:      getEnv("PUBSUB_TRIGGER_TOPIC", ""),
		JWTSecret:               getEnv("API_JWT_SECRET", ""),
	}

	c.PageSize = c.getEnvInt("DISPATCH_PAGE_SIZE", 50)
	c.MaxBatches = c.getEnvInt("DISPATCH_MAX_BATCHES", 10)
	c.MaxAttempts = c.getEnvInt("DISPATCH_MAX_ATTEMPTS", 5)
	c.DryRun = c.getEnvBool("DISPATCH_DRY_RUN", false)
	c.RetryPause = c.getEnvDuration("DISPATCH_RETRY_PAUSE", 200*time.Millisecond)
	c.Interval = c.getEnvDuration("DISPATCH_INTERVAL", time.Minute)
	c.StoreRetry = retry.Strategy{
		Attempts: c.getEnvInt("STORE_RETRY_ATTEMPTS", 3),
		Delay:    c.getEnvDuration("STORE_RETRY_DELAY", 100*time.Millisecond),
		Backoff:  2,
	}

	return c
}

// Validate reports every configuration problem at once, wrapped in ErrInvalidConfig
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)

	if err := validator.New().Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.RetryPause < 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_RETRY_PAUSE must not be negative"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_INTERVAL must be positive"))
	}
	if c.StoreRetry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("STORE_RETRY_ATTEMPTS must be at least 1"))
	}
	if err := c.validateCredentials(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c *Config) validateCredentials() error {
	if c.FirebaseCredentialsJSON != "" {
		_, err := google.CredentialsFromJSON(context.Background(), []byte(c.FirebaseCredentialsJSON),
			"https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return fmt.Errorf("FIREBASE_CREDENTIALS_JSON is malformed: %w", err)
		}
		return nil
	}
	if c.FirebaseCredentials != "" {
		if _, err := os.Stat(c.FirebaseCredentials); err != nil {
			return fmt.Errorf("FIREBASE_CREDENTIALS: %w", err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return parsed
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return parsed
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return parsed
}
