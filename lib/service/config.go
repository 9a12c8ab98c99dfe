package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseUri                string          `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns           int             `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns       int             `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime    int             `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN                  string          `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate     float64         `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	DatadogAgentUrl            string          `envconfig:"DATADOG_AGENT_URL"`
	LogFilePath                string          `envconfig:"LOG_FILE_PATH"`
	JWTSecret                  []byte          `envconfig:"JWT_SECRET" required:"true"`
	AdminToken                 string          `envconfig:"ADMIN_TOKEN"`
	Host                       string          `envconfig:"HOST" default:"localhost:3000"`
	Port                       int             `envconfig:"PORT" default:"3000"`
	EnableGRPC                 bool            `envconfig:"ENABLE_GRPC" default:"false"`
	GRPCPort                   int             `envconfig:"GRPC_PORT" default:"10009"`
	DefaultRateLimit           int             `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit            int             `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit             int             `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus           bool            `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort             int             `envconfig:"PROMETHEUS_PORT" default:"9092"`
	PayeeAddress               string          `envconfig:"PAYEE_ADDRESS" required:"true"`
	PayeeName                  string          `envconfig:"PAYEE_NAME"`
	MinAmount                  decimal.Decimal `envconfig:"MIN_AMOUNT" default:"1"`
	MaxAmount                  decimal.Decimal `envconfig:"MAX_AMOUNT" default:"100000"`
	RequestTTL                 time.Duration   `envconfig:"REQUEST_TTL" default:"300s"`
	PollInterval               time.Duration   `envconfig:"POLL_INTERVAL" default:"5s"`
	PollTimeout                time.Duration   `envconfig:"POLL_TIMEOUT" default:"50m"`
	StatusCheckMaxElapsed      time.Duration   `envconfig:"STATUS_CHECK_MAX_ELAPSED" default:"30s"`
	SyncFirstCheck             bool            `envconfig:"SYNC_FIRST_CHECK" default:"true"`
	FirstCheckTimeout          time.Duration   `envconfig:"FIRST_CHECK_TIMEOUT" default:"3s"`
	ExpirySweepInterval        time.Duration   `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"60s"`
	WebhookUrl                 string          `envconfig:"WEBHOOK_URL"`
	RabbitMQUri                string          `envconfig:"RABBITMQ_URI"`
	RabbitMQPaymentExchange    string          `envconfig:"RABBITMQ_PAYMENT_EXCHANGE" default:"upiverify_payment"`
	RabbitMQRailExchange       string          `envconfig:"RABBITMQ_RAIL_STATUS_EXCHANGE" default:"rail_status"`
	RabbitMQRailQueueName      string          `envconfig:"RABBITMQ_RAIL_STATUS_QUEUE_NAME" default:"upiverify_rail_status_consumer"`
	RabbitMQRailQueueDurable   bool            `envconfig:"RABBITMQ_RAIL_STATUS_QUEUE_DURABLE" default:"true"`
	RabbitMQRailQueueExclusive bool            `envconfig:"RABBITMQ_RAIL_STATUS_QUEUE_EXCLUSIVE" default:"false"`
	RabbitMQRailDeliveryLimit  int             `envconfig:"RABBITMQ_RAIL_STATUS_DELIVERY_LIMIT" default:"10"`
	KafkaBrokers               []string        `envconfig:"KAFKA_BROKERS"`
	KafkaTopic                 string          `envconfig:"KAFKA_TOPIC" default:"upiverify.payments"`
	RedisUrl                   string          `envconfig:"REDIS_URL"`
	IdempotencyKeyTTL          time.Duration   `envconfig:"IDEMPOTENCY_KEY_TTL" default:"24h"`
	EvidenceBucket             string          `envconfig:"EVIDENCE_BUCKET"`
	EvidencePrefix             string          `envconfig:"EVIDENCE_PREFIX" default:"evidence/"`
	MaxEvidenceSize            int64           `envconfig:"MAX_EVIDENCE_SIZE" default:"5242880"`
	ReconcileOlderThan         time.Duration   `envconfig:"RECONCILE_OLDER_THAN" default:"1h"`
}

// maxStoredAmount is the largest value a numeric(14,2) column holds.
var maxStoredAmount = decimal.RequireFromString("999999999999.99")

// Validate rejects configurations the service cannot run with. It is called
// once after the environment has been processed.
func (c *Config) Validate() error {
	var errs []error
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"REQUEST_TTL", c.RequestTTL},
		{"POLL_INTERVAL", c.PollInterval},
		{"POLL_TIMEOUT", c.PollTimeout},
		{"STATUS_CHECK_MAX_ELAPSED", c.StatusCheckMaxElapsed},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", p.name, p.d))
		}
	}
	if !c.MinAmount.IsPositive() {
		errs = append(errs, fmt.Errorf("MIN_AMOUNT must be positive, got %s", c.MinAmount))
	}
	if c.MinAmount.GreaterThan(c.MaxAmount) {
		errs = append(errs, fmt.Errorf("MIN_AMOUNT %s is greater than MAX_AMOUNT %s", c.MinAmount, c.MaxAmount))
	}
	if c.MaxAmount.GreaterThan(maxStoredAmount) {
		errs = append(errs, fmt.Errorf("MAX_AMOUNT %s exceeds the storable maximum %s", c.MaxAmount, maxStoredAmount))
	}
	if c.MaxEvidenceSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_EVIDENCE_SIZE must be positive, got %d", c.MaxEvidenceSize))
	}
	return errors.Join(errs...)
}
