package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// Order store platforms supported by the write-back side.
const (
	OrderStoreShopify     = "shopify"
	OrderStoreWooCommerce = "woocommerce"
)

// LikeCard identity and lookup modes. See LikeCardConfig.
const (
	IdentityMerchant = "merchant"
	IdentityCustomer = "customer"

	LookupByReference = "reference"
	LookupByOrder     = "order"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// OrderStore selects which commerce platform receives the write-back.
	OrderStore string `mapstructure:"ORDER_STORE" default:"shopify"`

	// Shopify holds the Shopify Admin API configuration.
	Shopify ShopifyConfig `mapstructure:",squash"`

	// WooCommerce holds the WooCommerce API configuration.
	WooCommerce WooCommerceConfig `mapstructure:",squash"`

	// LikeCard holds the provisioning provider credentials.
	LikeCard LikeCardConfig `mapstructure:",squash"`

	// Polling holds the fulfillment poller budget.
	Polling PollingConfig `mapstructure:",squash"`

	// Workflow holds per-order processing limits.
	Workflow WorkflowConfig `mapstructure:",squash"`

	// Redis holds the optional webhook dedup store.
	Redis RedisConfig `mapstructure:",squash"`

	// Proxy holds the optional outbound proxy used for provider calls.
	Proxy ProxyConfig `mapstructure:",squash"`

	// Ultramsg holds the WhatsApp relay credentials.
	Ultramsg UltramsgConfig `mapstructure:",squash"`
}

// ShopifyConfig holds the credentials for the Shopify store.
type ShopifyConfig struct {
	// StoreURL is the base URL of the shop, e.g. https://example.myshopify.com.
	StoreURL string `mapstructure:"SHOPIFY_STORE_URL"`
	// AccessToken is the Admin API access token.
	AccessToken string `mapstructure:"SHOPIFY_ACCESS_TOKEN"`
	// APIVersion is the Admin API version segment.
	APIVersion string `mapstructure:"SHOPIFY_API_VERSION" default:"2024-10"`
	// CodesMetafield enables writing the digital_product.codes metafield alongside the note.
	CodesMetafield bool `mapstructure:"SHOPIFY_CODES_METAFIELD" default:"false"`
}

// WooCommerceConfig holds the credentials for the WooCommerce Store.
type WooCommerceConfig struct {
	// URL is the base URL of the WooCommerce store.
	URL string `mapstructure:"WC_URL"`
	// ConsumerKey is the public key for API access.
	ConsumerKey string `mapstructure:"WC_CONSUMER_KEY"`
	// ConsumerSecret is the secret key for API access.
	ConsumerSecret string `mapstructure:"WC_CONSUMER_SECRET"`
}

// LikeCardConfig holds the merchant identity used to sign and send provisioning requests.
type LikeCardConfig struct {
	URL          string `mapstructure:"LIKECARD_URL" default:"https://taxes.like4app.com/online"`
	DeviceID     string `mapstructure:"LIKECARD_DEVICE_ID" required:"true"`
	Email        string `mapstructure:"LIKECARD_EMAIL" required:"true"`
	Phone        string `mapstructure:"LIKECARD_PHONE" required:"true"`
	SecurityCode string `mapstructure:"LIKECARD_SECURITY_CODE" required:"true"`
	HashKey      string `mapstructure:"LIKECARD_HASH_KEY" required:"true"`
	LangID       string `mapstructure:"LIKECARD_LANG_ID" default:"1"`
	// TimeoutSeconds bounds every provider call.
	TimeoutSeconds int `mapstructure:"LIKECARD_TIMEOUT_SECONDS" default:"20"`
	// Identity is "merchant" or "customer": whose email authenticates create_order.
	Identity string `mapstructure:"LIKECARD_IDENTITY" default:"merchant"`
	// LookupKey is "reference" or "order": which id orders/details is queried by.
	LookupKey string `mapstructure:"LIKECARD_LOOKUP_KEY" default:"reference"`
}

// Timeout returns the per-call provider timeout.
func (c LikeCardConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollingConfig describes the two-phase poll budget for a single line item.
type PollingConfig struct {
	Attempts            int `mapstructure:"POLL_ATTEMPTS" default:"6"`
	DelaySeconds        int `mapstructure:"POLL_DELAY_SECONDS" default:"10"`
	SlowIntervalSeconds int `mapstructure:"POLL_SLOW_INTERVAL_SECONDS"`
	MaxWaitSeconds      int `mapstructure:"POLL_MAX_WAIT_SECONDS" default:"600"`
}

// WorkflowConfig bounds the processing of one order event.
type WorkflowConfig struct {
	ItemConcurrency int `mapstructure:"ITEM_CONCURRENCY" default:"4"`
	TimeoutSeconds  int `mapstructure:"WORKFLOW_TIMEOUT_SECONDS" default:"900"`
}

// RedisConfig holds the optional dedup store settings. An empty URL disables dedup.
type RedisConfig struct {
	URL             string `mapstructure:"REDIS_URL"`
	DedupTTLSeconds int    `mapstructure:"WEBHOOK_DEDUP_TTL_SECONDS" default:"86400"`
}

// ProxyConfig holds the outbound proxy settings for provider calls.
type ProxyConfig struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED" default:"false"`
	Hostname string `mapstructure:"PROXY_HOSTNAME"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USERNAME"`
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// UltramsgConfig holds the WhatsApp relay settings. An empty instance disables the relay.
type UltramsgConfig struct {
	URL        string `mapstructure:"ULTRAMSG_URL" default:"https://api.ultramsg.com"`
	InstanceID string `mapstructure:"ULTRAMSG_INSTANCE_ID"`
	Token      string `mapstructure:"ULTRAMSG_TOKEN"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.validateModes(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateModes checks the enumerated settings and the store-specific credentials.
func (c *AppConfig) validateModes() error {
	switch c.OrderStore {
	case OrderStoreShopify:
		if c.Shopify.StoreURL == "" {
			return fmt.Errorf("missing required configuration: SHOPIFY_STORE_URL")
		}
		if c.Shopify.AccessToken == "" {
			return fmt.Errorf("missing required configuration: SHOPIFY_ACCESS_TOKEN")
		}
	case OrderStoreWooCommerce:
		if c.WooCommerce.URL == "" {
			return fmt.Errorf("missing required configuration: WC_URL")
		}
	default:
		return fmt.Errorf("invalid ORDER_STORE %q: want %s or %s", c.OrderStore, OrderStoreShopify, OrderStoreWooCommerce)
	}

	if c.LikeCard.Identity != IdentityMerchant && c.LikeCard.Identity != IdentityCustomer {
		return fmt.Errorf("invalid LIKECARD_IDENTITY %q: want %s or %s", c.LikeCard.Identity, IdentityMerchant, IdentityCustomer)
	}
	if c.LikeCard.LookupKey != LookupByReference && c.LikeCard.LookupKey != LookupByOrder {
		return fmt.Errorf("invalid LIKECARD_LOOKUP_KEY %q: want %s or %s", c.LikeCard.LookupKey, LookupByReference, LookupByOrder)
	}
	if c.Polling.Attempts < 1 {
		return fmt.Errorf("POLL_ATTEMPTS must be at least 1")
	}
	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && isZero(val.Field(i)) {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Bool:
		return !v.Bool()
	default:
		return v.IsZero()
	}
}
