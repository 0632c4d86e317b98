package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`
	Port string `envconfig:"PORT" default:"8080"`

	// DB
	PostgresURL string `envconfig:"POSTGRES_URL" required:"true"`

	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Gateway
	PaystackSecretKey   string        `envconfig:"PAYSTACK_SECRET_KEY" required:"true"`
	PaystackBaseURL     string        `envconfig:"PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	PaystackCallbackURL string        `envconfig:"PAYSTACK_CALLBACK_URL"`
	GatewayTimeout      time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"15s"`
	DefaultCurrency     string        `envconfig:"DEFAULT_CURRENCY" default:"NGN"`

	// Outbox relay; disabled when RabbitURL is empty
	RabbitURL          string        `envconfig:"RABBIT_URL"`
	PaymentExchange    string        `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`

	// Tracing; disabled when empty
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func (a App) IsDev() bool { return a.Env == "dev" }

// Load reads .env when present, then the process environment.
func Load() (App, error) {
	_ = godotenv.Load()

	var c App
	err := envconfig.Process("", &c)
	return c, err
}
