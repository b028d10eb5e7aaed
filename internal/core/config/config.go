package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
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

	// Shopify holds the Shopify Admin API configuration.
	Shopify ShopifyConfig `mapstructure:",squash"`

	// Resolver holds the query-resolution tuning knobs.
	Resolver ResolverConfig `mapstructure:",squash"`

	// Proxy holds the optional egress proxy configuration.
	Proxy ProxyConfig `mapstructure:",squash"`
}

// ShopifyConfig holds the credentials and transport settings for the
// Shopify store. All values are read once at startup and treated as
// immutable afterwards.
type ShopifyConfig struct {
	// StoreURL is the base URL of the Shopify store, without a trailing slash.
	StoreURL string `mapstructure:"SHOPIFY_STORE_URL" required:"true"`
	// AccessToken is the Admin API access token.
	AccessToken string `mapstructure:"SHOPIFY_API_TOKEN" required:"true"`
	// APIVersion is the Admin API version segment of request paths.
	APIVersion string `mapstructure:"SHOPIFY_API_VERSION" default:"2024-10"`
	// MaxRetries is how many times a rate-limited request is retried
	// before failing.
	MaxRetries int `mapstructure:"SHOPIFY_MAX_RETRIES" default:"3"`
	// RetryDelayMS is the fixed backoff between rate-limit retries, in
	// milliseconds.
	RetryDelayMS int `mapstructure:"SHOPIFY_RETRY_DELAY_MS" default:"2000"`
	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `mapstructure:"SHOPIFY_TIMEOUT_SECONDS" default:"10"`
}

// ResolverConfig holds the tuning knobs of the tiered resolver and its
// last-resort page scanner.
type ResolverConfig struct {
	// ScanMaxPages bounds how many order pages the scanner walks.
	ScanMaxPages int `mapstructure:"SCAN_MAX_PAGES" default:"15"`
	// ScanPageSize is the number of orders requested per page.
	ScanPageSize int `mapstructure:"SCAN_PAGE_SIZE" default:"250"`
	// ScanPageDelayMS is the pacing delay between page fetches, in
	// milliseconds.
	ScanPageDelayMS int `mapstructure:"SCAN_PAGE_DELAY_MS" default:"500"`
	// ResolveTimeoutSeconds caps one whole resolution, covering every tier.
	ResolveTimeoutSeconds int `mapstructure:"RESOLVE_TIMEOUT_SECONDS" default:"60"`
}

// ProxyConfig holds the optional egress proxy for outbound store requests.
type ProxyConfig struct {
	// Enabled turns the egress proxy on.
	Enabled bool `mapstructure:"PROXY_ENABLED"`
	// Hostname is the proxy host.
	Hostname string `mapstructure:"PROXY_HOSTNAME"`
	// Port is the proxy port.
	Port int `mapstructure:"PROXY_PORT"`
	// Username is the proxy auth user, if any.
	Username string `mapstructure:"PROXY_USERNAME"`
	// Password is the proxy auth password, if any.
	Password string `mapstructure:"PROXY_PASSWORD"`
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

	return &config, nil
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

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
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
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
