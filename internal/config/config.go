package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/waveline/engage-gateway/pkg/logger"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every configuration value used by the gateway. Only this
// struct must be used to hold configuration; no direct access to env,
// ini or any other config source should be made elsewhere.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"engage_gateway"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	QueueName              string        `env:"QUEUE_NAME" default:"engage:inbound"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP" default:"intake"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`

	// WhatsApp transport providers, weighted for failover.
	ProviderPrimaryUrl   string        `env:"PROVIDER_PRIMARY_URL"`
	ProviderSecondaryUrl string        `env:"PROVIDER_SECONDARY_URL"`
	ProviderBackupUrl    string        `env:"PROVIDER_BACKUP_URL"`
	TransportTimeout     time.Duration `env:"TRANSPORT_TIMEOUT" default:"5s"`

	// Analysis backend: "http" hits ANALYSIS_URL, "openai" uses the
	// OpenAI chat API directly.
	AnalysisBackend string        `env:"ANALYSIS_BACKEND" default:"http"`
	AnalysisURL     string        `env:"ANALYSIS_URL"`
	AnalysisTimeout time.Duration `env:"ANALYSIS_TIMEOUT" default:"10s"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIModel     string        `env:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// Handover decision tunables. The threshold and window size are
	// policy, not business law.
	HandoverConfidenceThreshold float64 `env:"HANDOVER_CONFIDENCE_THRESHOLD" default:"0.7"`
	AnalysisContextWindow       int     `env:"ANALYSIS_CONTEXT_WINDOW" default:"10"`

	TriggerActionTimeout time.Duration `env:"TRIGGER_ACTION_TIMEOUT" default:"5s"`

	// Campaign dispatch pacing: minimum interval between two recipient
	// sends within one run.
	CampaignSendInterval time.Duration `env:"CAMPAIGN_SEND_INTERVAL" default:"1s"`
	CampaignScheduleSpec string        `env:"CAMPAIGN_SCHEDULE_SPEC" default:"@every 1m"`

	ContactLockTTL time.Duration `env:"CONTACT_LOCK_TTL" default:"30s"`

	// Region used to parse phone numbers that arrive without a country
	// code.
	PhoneDefaultRegion string `env:"PHONE_DEFAULT_REGION" default:"US"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
