package configs

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Configs struct {
	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBName        string `mapstructure:"DB_NAME"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"` // Takes precedence over DB_* (Dokku)
	WebServerPort string `mapstructure:"WEB_SERVER_PORT"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisURL      string `mapstructure:"REDIS_URL"` // Takes precedence over REDIS_* (Dokku)

	ShopifyShopDomain  string `mapstructure:"SHOPIFY_SHOP_DOMAIN"`
	ShopifyAccessToken string `mapstructure:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyAPIVersion  string `mapstructure:"SHOPIFY_API_VERSION"`
	EnrichmentQuery    string `mapstructure:"ENRICHMENT_QUERY"` // Shopify search selecting products for AI analysis

	GenerativeProvider string `mapstructure:"GENERATIVE_PROVIDER"` // "openai" or "bedrock"
	OpenAIAPIKey       string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel        string `mapstructure:"OPENAI_MODEL"`
	BedrockModelID     string `mapstructure:"BEDROCK_MODEL_ID"`
	AWSRegion          string `mapstructure:"AWS_REGION"`
	AnalysisWorkers    int    `mapstructure:"ANALYSIS_WORKERS"`
	AnalysisQueueSize  int    `mapstructure:"ANALYSIS_QUEUE_SIZE"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"` // Shopify and OpenAI request timeout

	EmailProvider    string `mapstructure:"EMAIL_PROVIDER"` // "smtp" or "mailjet"
	EmailFrom        string `mapstructure:"EMAIL_FROM"`
	EmailFromName    string `mapstructure:"EMAIL_FROM_NAME"`
	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         int    `mapstructure:"SMTP_PORT"`
	SMTPUser         string `mapstructure:"SMTP_USER"`
	SMTPPass         string `mapstructure:"SMTP_PASS"`
	MailjetAPIKey    string `mapstructure:"MAILJET_API_KEY"`
	MailjetAPISecret string `mapstructure:"MAILJET_API_SECRET"`

	TwilioAccountSID  string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioNumber      string `mapstructure:"TWILIO_NUMBER"`
	TwilioCountryCode string `mapstructure:"TWILIO_COUNTRY_CODE"`
	AlertPhone        string `mapstructure:"ALERT_PHONE"`

	CronExpression      string   `mapstructure:"CRON_EXPRESSION"`      // Cron expression for the nightly job (6 fields with seconds)
	LogPath             string   `mapstructure:"LOG_PATH"`             // Path to log file (e.g., "/var/log/catalog-reconciler.log")
	AlertRecipients     []string `mapstructure:"ALERT_RECIPIENTS"`     // IT errors and scheduler failures
	AttentionRecipients []string `mapstructure:"ATTENTION_RECIPIENTS"` // Missing metaobject definitions
	StatusRecipients    []string `mapstructure:"STATUS_RECIPIENTS"`    // Lifecycle status changes
}

// keys without a default still need binding so AutomaticEnv values reach
// Unmarshal.
var envKeys = []string{
	"DB_DRIVER", "DB_HOST", "DB_NAME", "DB_PORT", "DB_USER", "DB_PASSWORD", "DATABASE_URL",
	"JWT_SECRET", "REDIS_URL",
	"SHOPIFY_SHOP_DOMAIN", "SHOPIFY_ACCESS_TOKEN",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "BEDROCK_MODEL_ID", "AWS_REGION",
	"EMAIL_FROM", "SMTP_HOST", "SMTP_USER", "SMTP_PASS", "MAILJET_API_KEY", "MAILJET_API_SECRET",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_NUMBER", "ALERT_PHONE",
	"ALERT_RECIPIENTS", "ATTENTION_RECIPIENTS", "STATUS_RECIPIENTS",
}

// LoadConfig reads path/.env when present and lets the environment
// override it.
func LoadConfig(path string) (*Configs, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigFile(path + "/.env")
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("WEB_SERVER_PORT", ":8080")

	// Set defaults for Redis
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SHOPIFY_API_VERSION", "2025-01")
	v.SetDefault("ENRICHMENT_QUERY", "tag:ai-enrich")

	v.SetDefault("GENERATIVE_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-4.1-mini")
	v.SetDefault("ANALYSIS_WORKERS", 3)
	v.SetDefault("ANALYSIS_QUEUE_SIZE", 100)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 60)

	v.SetDefault("EMAIL_PROVIDER", "smtp")
	v.SetDefault("EMAIL_FROM_NAME", "catalog-reconciler")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("TWILIO_COUNTRY_CODE", "55")

	// Set default for cron expression (runs at 3:00 AM every day)
	v.SetDefault("CRON_EXPRESSION", "0 0 3 * * *")

	// Set default for log path (empty means stdout only)
	v.SetDefault("LOG_PATH", "")

	if _, err := os.Stat(path + "/.env"); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	var cfg Configs
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &cfg, nil
}
