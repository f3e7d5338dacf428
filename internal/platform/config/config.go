package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strutil "agencyops/pkg/platform/strings"
)

// Server captures process level configuration. It is resolved once at start
// and handed to constructors; nothing below main reads the environment.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	APIKey         string
	DatabaseURL    string
	DBMaxOpenConns int
	StoreTimeout   time.Duration
	RequestTimeout time.Duration

	Verification VerificationConfig
	Contracts    ContractConfig
	Bridge       BridgeConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Jobs         JobsConfig
}

// VerificationConfig controls one-time code issuance.
type VerificationConfig struct {
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	DefaultPurpose string
}

// ContractConfig controls the contract lifecycle.
type ContractConfig struct {
	// ExpireAfter is how long a sent contract may stay unsigned before the
	// scheduled job expires it. Zero disables the job.
	ExpireAfter time.Duration
}

// BridgeConfig points at the external case-management webhook.
type BridgeConfig struct {
	WebhookURL string
	APIKey     string
	Timeout    time.Duration
}

// RedisConfig is optional; an empty URL disables Redis-backed features.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional; no brokers disables the history event sink.
type KafkaConfig struct {
	Brokers      []string
	HistoryTopic string
	Partitions   int32
	Replication  int16
}

// JobsConfig holds cron expressions for background jobs.
type JobsConfig struct {
	PurgeCodesSchedule     string
	ExpireContractSchedule string
}

// FromEnv builds a Server config from environment variables. A .env file in
// the working directory is loaded first when present.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		d, err := getDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	integer := func(key string, def int) int {
		n, err := getInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := Server{
		Addr:           getEnv("AGENCYOPS_ADDR", ":8080"),
		Environment:    getEnv("APP_ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIKey:         os.Getenv("API_KEY"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: integer("DB_MAX_OPEN_CONNS", 20),
		StoreTimeout:   duration("STORE_TIMEOUT", 5*time.Second),
		RequestTimeout: duration("REQUEST_TIMEOUT", 30*time.Second),
		Verification: VerificationConfig{
			CodeTTL:        duration("VERIFICATION_CODE_TTL", 10*time.Minute),
			ResendCooldown: duration("VERIFICATION_RESEND_COOLDOWN", 0),
			DefaultPurpose: getEnv("VERIFICATION_DEFAULT_PURPOSE", "portal_access"),
		},
		Contracts: ContractConfig{
			ExpireAfter: duration("CONTRACT_EXPIRE_AFTER", 30*24*time.Hour),
		},
		Bridge: BridgeConfig{
			WebhookURL: os.Getenv("BRIDGE_WEBHOOK_URL"),
			APIKey:     os.Getenv("BRIDGE_API_KEY"),
			Timeout:    duration("BRIDGE_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      strutil.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			HistoryTopic: getEnv("KAFKA_HISTORY_TOPIC", "client-history"),
			Partitions:   int32(integer("KAFKA_HISTORY_PARTITIONS", 3)),
			Replication:  int16(integer("KAFKA_HISTORY_REPLICATION", 1)),
		},
		Jobs: JobsConfig{
			PurgeCodesSchedule:     getEnv("JOB_PURGE_CODES_SCHEDULE", "*/15 * * * *"),
			ExpireContractSchedule: getEnv("JOB_EXPIRE_CONTRACTS_SCHEDULE", "0 3 * * *"),
		},
	}

	if cfg.Environment != "dev" && cfg.Environment != "prod" {
		errs = append(errs, fmt.Errorf("invalid APP_ENV %q (must be dev or prod)", cfg.Environment))
	}
	if cfg.IsProd() && cfg.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required in prod"))
	}
	if cfg.IsProd() && cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in prod"))
	}
	if cfg.Verification.CodeTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_TTL must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// IsProd reports whether the process runs with production defaults.
func (s Server) IsProd() bool {
	return s.Environment == "prod"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
