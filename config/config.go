// Package config loads account settings from a file and ACCOUNT_* variables.
package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"

	account "github.com/goliatone/go-account"
)

// EnvPrefix is prepended to every environment variable, ACCOUNT_HTTP_ADDR
const EnvPrefix = "ACCOUNT"

type HTTP struct {
	Addr  string `mapstructure:"addr" json:"addr"`
	Debug bool   `mapstructure:"debug" json:"debug"`
}

type Database struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"-"`
	Debug  bool   `mapstructure:"debug" json:"debug"`
}

type Redis struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
}

type Mail struct {
	Queue    string `mapstructure:"queue" json:"queue"`
	Driver   string `mapstructure:"driver" json:"driver"`
	From     string `mapstructure:"from" json:"from"`
	SMTPHost string `mapstructure:"smtp_host" json:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" json:"smtp_port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"-"`
}

type Auth struct {
	SigningKey         string        `mapstructure:"signing_key" json:"-"`
	Issuer             string        `mapstructure:"issuer" json:"issuer"`
	ConfirmTokenMaxAge time.Duration `mapstructure:"confirm_token_max_age" json:"confirm_token_max_age"`
	PasswordHashCost   int           `mapstructure:"password_hash_cost" json:"password_hash_cost"`
	SessionExpiration  time.Duration `mapstructure:"session_expiration" json:"session_expiration"`
}

type I18n struct {
	DefaultLocale string `mapstructure:"default_locale" json:"default_locale"`
}

// Config is the full service configuration
type Config struct {
	HTTP     HTTP     `mapstructure:"http" json:"http"`
	Database Database `mapstructure:"database" json:"database"`
	Redis    Redis    `mapstructure:"redis" json:"redis"`
	Mail     Mail     `mapstructure:"mail" json:"mail"`
	Auth     Auth     `mapstructure:"auth" json:"auth"`
	I18n     I18n     `mapstructure:"i18n" json:"i18n"`
}

var _ account.Config = (*Config)(nil)

// SetDefaults registers every key so env overrides work without a file
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.debug", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:account.db?cache=shared")
	v.SetDefault("database.debug", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.queue", account.MailQueue)
	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.smtp_host", "localhost")
	v.SetDefault("mail.smtp_port", 25)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "go-account")
	v.SetDefault("auth.confirm_token_max_age", account.DefaultConfirmTokenMaxAge)
	v.SetDefault("auth.password_hash_cost", 12)
	v.SetDefault("auth.session_expiration", 24*time.Hour)

	v.SetDefault("i18n.default_locale", account.DefaultLocale)
}

// Load reads the optional file at path and applies environment overrides
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	return cfg, nil
}

// Validate checks the settings needed to run the service
func (c *Config) Validate() error {
	err := validation.Errors{
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required, validation.In("sqlite", "postgres")),
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"mail": validation.ValidateStruct(&c.Mail,
			validation.Field(&c.Mail.Driver, validation.Required, validation.In("log", "smtp")),
			validation.Field(&c.Mail.Queue, validation.Required),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.SigningKey, validation.Required, validation.RuneLength(16, 0)),
			validation.Field(&c.Auth.PasswordHashCost, validation.Min(4), validation.Max(31)),
		),
	}.Filter()

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid settings")
	}
	return nil
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetConfirmTokenMaxAge() time.Duration {
	return c.Auth.ConfirmTokenMaxAge
}

func (c *Config) GetSessionExpiration() time.Duration {
	return c.Auth.SessionExpiration
}

func (c *Config) GetPasswordHashCost() int {
	return c.Auth.PasswordHashCost
}

func (c *Config) GetDefaultLocale() string {
	return c.I18n.DefaultLocale
}
