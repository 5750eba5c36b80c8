package config

import (
	"fmt"
	"strings"
	"time"

	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Stripe     StripeConfig     `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Webhook    WebhookConfig    `validate:"required"`
	Audit      AuditConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"required"`
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type AuthConfig struct {
	Secret string `validate:"required"`
}

type StripeConfig struct {
	SecretKey     string `validate:"required"`
	WebhookSecret string `validate:"required"`
	// SuccessURL and CancelURL are where checkout sessions redirect back to
	SuccessURL string
	CancelURL  string
}

// PlanShapeConfig describes one billed unit kind: its free threshold,
// per-unit price and the provider price ids per billing interval.
type PlanShapeConfig struct {
	FreeThreshold  int64  `validate:"gte=0"`
	UnitPriceCents int64  `validate:"gte=0"`
	PriceIDMonth   string `validate:"required"`
	PriceIDYear    string `validate:"required"`
}

// UnitPrice returns the per-unit price as a decimal in major units
func (p PlanShapeConfig) UnitPrice() decimal.Decimal {
	return decimal.NewFromInt(p.UnitPriceCents).Div(decimal.NewFromInt(100))
}

// PriceID returns the provider price id for the given interval
func (p PlanShapeConfig) PriceID(interval types.BillingInterval) string {
	if interval == types.BillingIntervalYear {
		return p.PriceIDYear
	}
	return p.PriceIDMonth
}

type BillingConfig struct {
	PricingModel types.PricingModel `validate:"required"`
	// GracePeriodDays is the window after cancellation/refund during
	// which reduced access is still honored
	GracePeriodDays int `validate:"gt=0"`
	// MaxSelfServeQuantity bounds quantity adjustments made without
	// contacting support
	MaxSelfServeQuantity int64           `validate:"gt=0"`
	Seats                PlanShapeConfig `validate:"required"`
	Buckets              PlanShapeConfig `validate:"required"`
}

// GracePeriod returns the grace window as a duration
func (b BillingConfig) GracePeriod() time.Duration {
	return time.Duration(b.GracePeriodDays) * 24 * time.Hour
}

// Plan returns the plan shape for the given unit kind
func (b BillingConfig) Plan(kind types.UnitKind) (PlanShapeConfig, error) {
	switch kind {
	case types.UnitKindSeat:
		return b.Seats, nil
	case types.UnitKindBucket:
		return b.Buckets, nil
	default:
		return PlanShapeConfig{}, ierr.NewError("unknown unit kind").
			WithHintf("No plan shape configured for unit kind %s", kind).
			Mark(ierr.ErrValidation)
	}
}

type WebhookConfig struct {
	// RateLimitRPS and RateLimitBurst bound inbound notification volume
	// per source IP ahead of signature verification
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`
}

type AuditConfig struct {
	// Endpoint, when set, enables the HTTP audit sink in addition to the
	// log-backed one
	Endpoint string
	APIKey   string
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/alumnity")

	v.SetEnvPrefix("ALUMNITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "alumnity")
	v.SetDefault("postgres.dbname", "alumnity")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("billing.pricingmodel", string(types.PricingModelPerUnit))
	v.SetDefault("billing.graceperioddays", 30)
	v.SetDefault("billing.maxselfservequantity", 1000)
	v.SetDefault("webhook.ratelimitrps", 5)
	v.SetDefault("webhook.ratelimitburst", 20)
}

func (c Configuration) Validate() error {
	return validator.New().Struct(c)
}
