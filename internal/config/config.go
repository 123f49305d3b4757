package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every externally supplied setting of the gateway.
type Config struct {
	Logging  LoggingConfig
	API      APIConfig
	Queue    QueueConfig
	Store    StoreConfig
	Pipeline PipelineConfig
}

type LoggingConfig struct {
	Level string
}

type APIConfig struct {
	Port string
}

type QueueConfig struct {
	Backend        string
	KafkaBrokers   []string
	KafkaGroupID   string
	RedisURL       string
	ReceiveMaxWait time.Duration
}

type StoreConfig struct {
	// DatabaseURL selects the postgres store when set; empty keeps the
	// in-memory store.
	DatabaseURL string
}

type PipelineConfig struct {
	InputQueue      string
	CompletedQueue  string
	DeadLetterQueue string
	MaxRetries      int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	MaxConcurrent   int
	PollInterval    time.Duration
	ProcessTimeout  time.Duration
}

// Load reads configuration from the environment, with an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}
	return &Config{
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			Port: getEnv("API_PORT", "8080"),
		},
		Queue: QueueConfig{
			Backend:        getEnv("QUEUE_BACKEND", "memory"),
			KafkaBrokers:   parseList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "mt103-gateway"),
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
			ReceiveMaxWait: getEnvDuration("QUEUE_RECEIVE_MAX_WAIT", 2*time.Second),
		},
		Store: StoreConfig{
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Pipeline: PipelineConfig{
			InputQueue:      getEnv("INPUT_QUEUE", "mt103-incoming"),
			CompletedQueue:  getEnv("COMPLETED_QUEUE", "mt103-completed"),
			DeadLetterQueue: getEnv("DEAD_LETTER_QUEUE", "mt103-dead-letter"),
			MaxRetries:      getEnvInt("PIPELINE_MAX_RETRIES", 3),
			BaseBackoff:     getEnvDuration("PIPELINE_BASE_BACKOFF", 100*time.Millisecond),
			MaxBackoff:      getEnvDuration("PIPELINE_MAX_BACKOFF", 5*time.Second),
			MaxConcurrent:   getEnvInt("PIPELINE_MAX_CONCURRENT", 5),
			PollInterval:    getEnvDuration("PIPELINE_POLL_INTERVAL", 500*time.Millisecond),
			ProcessTimeout:  getEnvDuration("PIPELINE_PROCESS_TIMEOUT", 30*time.Second),
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Queue.Backend {
	case "memory", "kafka", "redis":
	default:
		return errors.New("queue backend must be memory, kafka or redis")
	}
	if c.Queue.Backend == "kafka" && len(c.Queue.KafkaBrokers) == 0 {
		return errors.New("kafka brokers cannot be empty")
	}
	if c.Queue.Backend == "redis" && c.Queue.RedisURL == "" {
		return errors.New("redis url cannot be empty")
	}
	if c.Pipeline.InputQueue == "" || c.Pipeline.CompletedQueue == "" || c.Pipeline.DeadLetterQueue == "" {
		return errors.New("queue names cannot be empty")
	}
	if c.Pipeline.MaxRetries < 1 {
		return errors.New("maxRetries must be at least 1")
	}
	if c.Pipeline.MaxConcurrent < 1 {
		return errors.New("maxConcurrent must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
