package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. All knobs have development defaults; production deployments
// override them via POLLGUARD_* variables.
type Config struct {
	Addr          string
	JWTSigningKey string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	Registry RegistryConfig
	Terminal TerminalConfig

	Claim ClaimConfig
	Fraud FraudConfig
}

// RegistryConfig controls eligibility lookups. An empty URL means the
// in-memory roll is used, optionally seeded from VoterRollFile.
type RegistryConfig struct {
	URL           string
	VoterRollFile string
}

// TerminalConfig controls terminal sessions and pre-provisioned
// enrollments loaded at startup.
type TerminalConfig struct {
	TokenTTL        time.Duration
	EnrollmentsFile string
}

// RedisConfig controls the shared claim store connection. An empty URL means
// Redis is not configured and the in-memory guard is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig controls the durable ledger connection. An empty DSN means
// the in-memory ledger is used (single-process deployments and tests).
type PostgresConfig struct {
	DSN string
}

// KafkaConfig controls fraud alert publishing. No brokers means alerts are
// logged but not streamed.
type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

// ClaimConfig controls the double-vote guard.
type ClaimConfig struct {
	// Horizon is how long a claim stays live before the voter ID returns to
	// unclaimed. It must exceed the longest possible election day; it exists
	// for re-runs and tests, not to allow re-voting.
	Horizon time.Duration
}

// FraudConfig carries the scoring thresholds.
type FraudConfig struct {
	SpeedThresholdSeconds float64
	RateWindow            time.Duration
	RateThreshold         int
	TravelWindow          time.Duration
	MinTrainingRecords    int
	TrainingWindow        time.Duration
	RetrainInterval       time.Duration
	// BlockThreshold hard-rejects a verification when the verdict confidence
	// meets or exceeds it. Zero disables hard blocking (advisory-only mode,
	// the default policy).
	BlockThreshold float64
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envString("POLLGUARD_ADDR", ":8080"),
		JWTSigningKey: envString("POLLGUARD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("POLLGUARD_REDIS_URL"),
			PoolSize:     envInt("POLLGUARD_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("POLLGUARD_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("POLLGUARD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("POLLGUARD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("POLLGUARD_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POLLGUARD_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("POLLGUARD_KAFKA_BROKERS")),
			AlertTopic: envString("POLLGUARD_KAFKA_ALERT_TOPIC", "pollguard.fraud-alerts"),
		},
		Registry: RegistryConfig{
			URL:           os.Getenv("POLLGUARD_REGISTRY_URL"),
			VoterRollFile: os.Getenv("POLLGUARD_VOTER_ROLL_FILE"),
		},
		Terminal: TerminalConfig{
			TokenTTL:        envDuration("POLLGUARD_TERMINAL_TOKEN_TTL", 8*time.Hour),
			EnrollmentsFile: os.Getenv("POLLGUARD_TERMINAL_ENROLLMENTS_FILE"),
		},
		Claim: ClaimConfig{
			Horizon: envDuration("POLLGUARD_CLAIM_HORIZON", 24*time.Hour),
		},
		Fraud: FraudConfig{
			SpeedThresholdSeconds: envFloat("POLLGUARD_FRAUD_SPEED_THRESHOLD", 2.0),
			RateWindow:            envDuration("POLLGUARD_FRAUD_RATE_WINDOW", 5*time.Minute),
			RateThreshold:         envInt("POLLGUARD_FRAUD_RATE_THRESHOLD", 30),
			TravelWindow:          envDuration("POLLGUARD_FRAUD_TRAVEL_WINDOW", time.Hour),
			MinTrainingRecords:    envInt("POLLGUARD_FRAUD_MIN_TRAINING_RECORDS", 100),
			TrainingWindow:        envDuration("POLLGUARD_FRAUD_TRAINING_WINDOW", 4*time.Hour),
			RetrainInterval:       envDuration("POLLGUARD_FRAUD_RETRAIN_INTERVAL", 30*time.Minute),
			BlockThreshold:        envFloat("POLLGUARD_FRAUD_BLOCK_THRESHOLD", 0),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if part := csv[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
