// Package config loads runtime settings from .env files, the process
// environment and an optional config.yaml.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ananth-NQI/paypark-backend/internal/models"
)

type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Rates    RatesConfig    `mapstructure:",squash"`
	OTP      OTPConfig      `mapstructure:",squash"`
	Twilio   TwilioConfig   `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	RabbitMQ RabbitMQConfig `mapstructure:",squash"`
	JWT      JWTConfig      `mapstructure:",squash"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowOrigins   string        `mapstructure:"cors_allow_origins"`
	UseMemoryStore bool          `mapstructure:"use_memory_store"`
}

// IsProduction reports whether the service runs with production defaults.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	Host                   string        `mapstructure:"db_host"`
	Port                   int           `mapstructure:"db_port"`
	User                   string        `mapstructure:"db_user"`
	Password               string        `mapstructure:"db_pass"`
	Name                   string        `mapstructure:"db_name"`
	SSLMode                string        `mapstructure:"db_sslmode"`
	InstanceConnectionName string        `mapstructure:"instance_connection_name"`
	MaxOpenConns           int           `mapstructure:"db_max_open_conns"`
	MaxIdleConns           int           `mapstructure:"db_max_idle_conns"`
	ConnMaxLifetime        time.Duration `mapstructure:"db_conn_max_lifetime"`
}

type RatesConfig struct {
	BaseRate           float64 `mapstructure:"base_parking_rate"`
	AdditionalHourRate float64 `mapstructure:"additional_hour_rate"`
	Currency           string  `mapstructure:"currency"`
}

// Rates converts the configured tariff into the model type.
func (r RatesConfig) Rates() models.Rates {
	return models.Rates{BaseRate: r.BaseRate, AdditionalHourRate: r.AdditionalHourRate}
}

type OTPConfig struct {
	Length          int           `mapstructure:"otp_length"`
	TTL             time.Duration `mapstructure:"otp_ttl"`
	ResendCooldown  time.Duration `mapstructure:"otp_resend_cooldown"`
	DeliveryTimeout time.Duration `mapstructure:"otp_delivery_timeout"`
	SingleUse       bool          `mapstructure:"otp_single_use"`
}

type TwilioConfig struct {
	AccountSID         string `mapstructure:"twilio_account_sid"`
	AuthToken          string `mapstructure:"twilio_auth_token"`
	PhoneNumber        string `mapstructure:"twilio_phone_number"`
	MockMode           bool   `mapstructure:"twilio_mock_mode"`
	DefaultCountryCode string `mapstructure:"default_country_code"`
	CallbackBaseURL    string `mapstructure:"twilio_callback_base_url"`
}

type RedisConfig struct {
	Addr           string        `mapstructure:"redis_addr"`
	Password       string        `mapstructure:"redis_password"`
	DB             int           `mapstructure:"redis_db"`
	OTPRateLimit   int           `mapstructure:"otp_rate_limit"`
	OTPRateWindow  time.Duration `mapstructure:"otp_rate_window"`
	RateLimitToken string        `mapstructure:"rate_limit_prefix"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"rabbitmq_url"`
	Queue string `mapstructure:"rabbitmq_queue"`
}

type JWTConfig struct {
	Secret string `mapstructure:"jwt_secret"`
}

var defaults = map[string]any{
	"port":               "8080",
	"environment":        "development",
	"log_level":          "info",
	"request_timeout":    15 * time.Second,
	"cors_allow_origins": "*",
	"use_memory_store":   false,

	"db_host":                  "localhost",
	"db_port":                  5432,
	"db_user":                  "postgres",
	"db_pass":                  "",
	"db_name":                  "paypark",
	"db_sslmode":               "disable",
	"instance_connection_name": "",
	"db_max_open_conns":        25,
	"db_max_idle_conns":        5,
	"db_conn_max_lifetime":     5 * time.Minute,

	"base_parking_rate":    5.0,
	"additional_hour_rate": 3.0,
	"currency":             "USD",

	"otp_length":           4,
	"otp_ttl":              10 * time.Minute,
	"otp_resend_cooldown":  time.Minute,
	"otp_delivery_timeout": 10 * time.Second,
	"otp_single_use":       false,

	"twilio_account_sid":   "",
	"twilio_auth_token":    "",
	"twilio_phone_number":  "",
	"twilio_mock_mode":     false,
	"default_country_code": "+91",

	"twilio_callback_base_url": "",

	"redis_addr":        "",
	"redis_password":    "",
	"redis_db":          0,
	"otp_rate_limit":    10,
	"otp_rate_window":   time.Minute,
	"rate_limit_prefix": "rl:otp",

	"rabbitmq_url":   "",
	"rabbitmq_queue": "paypark.ticket.events",

	"jwt_secret": "",
}

// LoadDotEnv reads .env files for local development. Missing files are not
// an error; the process environment always wins.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// Flags defines the command line overrides understood by LoadWithFlags.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("paypark", pflag.ContinueOnError)
	fs.String("port", "", "HTTP listen port")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("use-memory-store", false, "keep tickets in memory instead of PostgreSQL")
	fs.String("config", "", "path to a config.yaml file")
	return fs
}

var flagKeys = map[string]string{
	"port":             "port",
	"log-level":        "log_level",
	"use-memory-store": "use_memory_store",
}

// Load builds the Config from defaults, an optional config.yaml in the
// working directory or ./config, and the environment. Keys map to upper-case
// environment variables, so otp_ttl is read from OTP_TTL.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with parsed command line flags layered on top. Only
// flags that were set explicitly override other sources.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
		for flagName, key := range flagKeys {
			if f := fs.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.OTP.Length < 4 || c.OTP.Length > 6 {
		return errors.New("OTP_LENGTH must be between 4 and 6")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP_TTL must be positive")
	}
	if c.OTP.ResendCooldown < 0 || c.OTP.ResendCooldown > c.OTP.TTL {
		return errors.New("OTP_RESEND_COOLDOWN must be between 0 and OTP_TTL")
	}
	if c.Rates.BaseRate < 0 || c.Rates.AdditionalHourRate < 0 {
		return errors.New("parking rates must not be negative")
	}
	return nil
}
