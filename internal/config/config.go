package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"

	OutboxLog      = "log"
	OutboxKafka    = "kafka"
	OutboxRabbitMQ = "rabbitmq"
	OutboxWebhook  = "webhook"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// AdminIDs — статический список администраторов (ADMIN_IDS=1,2,3).
	AdminIDs []int64
	// FAQEnabled: показывать FAQ в главном меню и в подсказке новой заявки.
	FAQEnabled bool
	// AutoAssignTickets is read for compatibility with existing deployments; no flow uses it.
	AutoAssignTickets bool

	// AdminAPIKey защищает read-only admin API. Пустой ключ отключает проверку.
	AdminAPIKey string

	Storage struct {
		Driver  string
		DataDir string
	}

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Session struct {
		Driver    string
		RedisURL  string
		KeyPrefix string
	}

	Outbox struct {
		Driver string
		// WebhookURL: адрес шлюза для OUTBOX_DRIVER=webhook.
		WebhookURL string
	}

	KafkaBrokers      []string
	KafkaTopicEffects string
	KafkaTopicTicket  string
	KafkaTopicUpdates string
	KafkaGroupID      string

	RabbitURL      string
	RabbitExchange string

	Dispatch struct {
		Workers   int
		QueueSize int
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:          firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		AppEnv:            getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		FAQEnabled:        getEnvBool("FAQ_ENABLED", true),
		AutoAssignTickets: getEnvBool("AUTO_ASSIGN_TICKETS", true),
		AdminAPIKey:       getEnv("ADMIN_API_KEY", ""),
		KafkaTopicEffects: getEnv("KAFKA_TOPIC_EFFECTS", "helpdesk.effects"),
		KafkaTopicTicket:  getEnv("KAFKA_TOPIC_TICKET", ""),
		KafkaTopicUpdates: getEnv("KAFKA_TOPIC_UPDATES", ""),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "helpdesk-bot"),
		RabbitURL:         getEnv("RABBITMQ_URL", ""),
		RabbitExchange:    getEnv("RABBITMQ_EXCHANGE", "helpdesk.effects"),
	}

	ids, err := parseIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("config: ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = ids
	cfg.KafkaBrokers = ParseList(getEnv("KAFKA_BROKERS", ""))

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", StorageFile)
	cfg.Storage.DataDir = getEnv("DATA_DIR", "data")

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "helpdesk_bot")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Session.Driver = getEnv("SESSION_DRIVER", SessionMemory)
	cfg.Session.RedisURL = getEnv("REDIS_URL", "")
	cfg.Session.KeyPrefix = getEnv("SESSION_KEY_PREFIX", "helpdesk:session:")

	cfg.Outbox.Driver = getEnv("OUTBOX_DRIVER", OutboxLog)
	cfg.Outbox.WebhookURL = getEnv("OUTBOX_WEBHOOK_URL", "")

	cfg.Dispatch.Workers = getEnvInt("DISPATCH_WORKERS", 8)
	cfg.Dispatch.QueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", 64)
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.DataDir == "" {
			return errors.New("config: DATA_DIR is required for file storage")
		}
	case StoragePostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Session.Driver {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisURL == "" {
			return errors.New("config: REDIS_URL is required for redis sessions")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_DRIVER %q", c.Session.Driver)
	}

	switch c.Outbox.Driver {
	case OutboxLog:
	case OutboxKafka:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopicEffects == "" {
			return errors.New("config: KAFKA_BROKERS and KAFKA_TOPIC_EFFECTS are required for kafka outbox")
		}
	case OutboxRabbitMQ:
		if c.RabbitURL == "" {
			return errors.New("config: RABBITMQ_URL is required for rabbitmq outbox")
		}
	case OutboxWebhook:
		if c.Outbox.WebhookURL == "" {
			return errors.New("config: OUTBOX_WEBHOOK_URL is required for webhook outbox")
		}
	default:
		return fmt.Errorf("config: unknown OUTBOX_DRIVER %q", c.Outbox.Driver)
	}

	if c.Dispatch.Workers < 1 {
		return errors.New("config: DISPATCH_WORKERS must be at least 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

// ParseList разбивает "a, b,,c" на ["a" "b" "c"].
func ParseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var out []int64
	for _, item := range ParseList(s) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", item)
		}
		out = append(out, id)
	}
	return out, nil
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
