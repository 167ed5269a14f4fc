package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr             string
	DBPath           string
	DBLogQueries     bool
	DBSlowQuery      time.Duration
	BootstrapAPIKey  string
	BootstrapTenant  string
	BootstrapKeyName string
	WebhookURL       string
	WebhookSecret    string
	WebhookTimeout   time.Duration
	OutboxInterval   time.Duration
	OutboxBatchSize  int
	// RaiseOnFailure makes failed validations surface as errors where a
	// caller asks for it (CLI exit status).
	RaiseOnFailure bool
	// EnumMessages lists the allowed values in enum error messages.
	EnumMessages bool
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		DBPath:           "./entitygen.sqlite",
		DBSlowQuery:      time.Second,
		BootstrapTenant:  "default",
		BootstrapKeyName: "bootstrap",
		WebhookTimeout:   10 * time.Second,
		OutboxInterval:   2 * time.Second,
		OutboxBatchSize:  100,
		RaiseOnFailure:   true,
		EnumMessages:     false,
	}
}

// Config file keys. Environment variables use the ENTITYGEN_ prefix with
// dots replaced by underscores, e.g. ENTITYGEN_SERVER_ADDR.
const (
	keyAddr             = "server.addr"
	keyDBPath           = "database.path"
	keyDBLogQueries     = "database.log_queries"
	keyDBSlowQuery      = "database.slow_query"
	keyBootstrapAPIKey  = "bootstrap.api_key"
	keyBootstrapTenant  = "bootstrap.tenant"
	keyBootstrapKeyName = "bootstrap.key_name"
	keyWebhookURL       = "webhook.url"
	keyWebhookSecret    = "webhook.secret"
	keyWebhookTimeout   = "webhook.timeout"
	keyOutboxInterval   = "outbox.interval"
	keyOutboxBatchSize  = "outbox.batch_size"
	keyRaiseOnFailure   = "validation.raise_on_failure"
	keyEnumMessages     = "validation.enum_messages"
)

var configKeys = []string{
	keyAddr, keyDBPath, keyDBLogQueries, keyDBSlowQuery,
	keyBootstrapAPIKey, keyBootstrapTenant, keyBootstrapKeyName,
	keyWebhookURL, keyWebhookSecret, keyWebhookTimeout,
	keyOutboxInterval, keyOutboxBatchSize,
	keyRaiseOnFailure, keyEnumMessages,
}

// LoadConfig overlays base with values from the config file at path (when
// path is not empty) and from ENTITYGEN_* environment variables.
func LoadConfig(path string, base Config) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENTITYGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return base, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return base, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := base
	if v.IsSet(keyAddr) {
		cfg.Addr = v.GetString(keyAddr)
	}
	if v.IsSet(keyDBPath) {
		cfg.DBPath = v.GetString(keyDBPath)
	}
	if v.IsSet(keyDBLogQueries) {
		cfg.DBLogQueries = v.GetBool(keyDBLogQueries)
	}
	if v.IsSet(keyDBSlowQuery) {
		cfg.DBSlowQuery = v.GetDuration(keyDBSlowQuery)
	}
	if v.IsSet(keyBootstrapAPIKey) {
		cfg.BootstrapAPIKey = v.GetString(keyBootstrapAPIKey)
	}
	if v.IsSet(keyBootstrapTenant) {
		cfg.BootstrapTenant = v.GetString(keyBootstrapTenant)
	}
	if v.IsSet(keyBootstrapKeyName) {
		cfg.BootstrapKeyName = v.GetString(keyBootstrapKeyName)
	}
	if v.IsSet(keyWebhookURL) {
		cfg.WebhookURL = v.GetString(keyWebhookURL)
	}
	if v.IsSet(keyWebhookSecret) {
		cfg.WebhookSecret = v.GetString(keyWebhookSecret)
	}
	if v.IsSet(keyWebhookTimeout) {
		cfg.WebhookTimeout = v.GetDuration(keyWebhookTimeout)
	}
	if v.IsSet(keyOutboxInterval) {
		cfg.OutboxInterval = v.GetDuration(keyOutboxInterval)
	}
	if v.IsSet(keyOutboxBatchSize) {
		cfg.OutboxBatchSize = v.GetInt(keyOutboxBatchSize)
	}
	if v.IsSet(keyRaiseOnFailure) {
		cfg.RaiseOnFailure = v.GetBool(keyRaiseOnFailure)
	}
	if v.IsSet(keyEnumMessages) {
		cfg.EnumMessages = v.GetBool(keyEnumMessages)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("server address must not be empty")
	case c.DBPath == "":
		return fmt.Errorf("database path must not be empty")
	case c.WebhookURL != "" && c.WebhookSecret == "":
		return fmt.Errorf("webhook secret is required when a webhook url is set")
	case c.OutboxBatchSize < 0:
		return fmt.Errorf("outbox batch size must not be negative")
	}
	return nil
}
