// Package config loads startup configuration from a JSON provider file, an
// optional .env file and DASHBOARD_* environment variables.
package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix           = "DASHBOARD"
	EmulatorHostEnv     = "FIREBASE_AUTH_EMULATOR_HOST"
	DefaultProviderFile = "firebase_config.json"
)

// Provider holds the identity provider's web app settings.
type Provider struct {
	APIKey     string `mapstructure:"apiKey" validate:"required"`
	AuthDomain string `mapstructure:"authDomain" validate:"required"`
	ProjectID  string `mapstructure:"projectId" validate:"required"`
	AppID      string `mapstructure:"appId" validate:"required"`
}

type Config struct {
	Provider     Provider
	ProviderFile string `mapstructure:"firebase_config"`

	// EmulatorHost, when set, points the identity client at a local emulator.
	EmulatorHost string `mapstructure:"emulator_host"`

	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error off"`
	HTTPAddr       string        `mapstructure:"http_addr" validate:"required"`
	// AllowedOrigins is a comma-separated CORS allow list for the HTTP API.
	AllowedOrigins string        `mapstructure:"allowed_origins"`
	// GradingScheme overrides the predictor model's own scheme when set.
	GradingScheme  string        `mapstructure:"grading_scheme" validate:"omitempty,oneof=standard letter"`
	PredictorModel string        `mapstructure:"predictor_model" validate:"oneof=standard legacy"`
	Aliases        string        `mapstructure:"aliases" validate:"oneof=app legacy merged"`
	MaxMark        float64       `mapstructure:"max_mark" validate:"gte=0"`
	AuthTimeout    time.Duration `mapstructure:"auth_timeout" validate:"gt=0"`
	AuthRetries    int           `mapstructure:"auth_retries" validate:"gte=1,lte=10"`
}

// Origins splits AllowedOrigins, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Error is a fatal configuration problem. Keys names the missing or invalid
// settings when validation failed.
type Error struct {
	Keys []string
	Err  error
}

func (e *Error) Error() string {
	if len(e.Keys) > 0 {
		return "config: missing or invalid keys: " + strings.Join(e.Keys, ", ")
	}
	return "config: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report settings by their file/env key, not the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("firebase_config", DefaultProviderFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("grading_scheme", "")
	v.SetDefault("predictor_model", "standard")
	v.SetDefault("aliases", "app")
	v.SetDefault("max_mark", 0)
	v.SetDefault("auth_timeout", 20*time.Second)
	v.SetDefault("auth_retries", 4)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("emulator_host", EmulatorHostEnv)
	return v
}

// Load reads .env (if present) from the working directory, then the
// environment, then the provider file the environment points at.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, &Error{Err: err}
	}
	v := newViper()
	return build(v, v.GetString("firebase_config"))
}

// LoadFrom is Load with an explicit provider file and no .env lookup.
func LoadFrom(providerFile string) (*Config, error) {
	return build(newViper(), providerFile)
}

// loadDotEnv loads path if it exists. Variables already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "stat %s", path)
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func build(v *viper.Viper, providerFile string) (*Config, error) {
	provider, err := readProvider(providerFile)
	if err != nil {
		return nil, &Error{Err: err}
	}

	cfg := &Config{
		Provider:       provider,
		ProviderFile:   providerFile,
		EmulatorHost:   strings.TrimSpace(v.GetString("emulator_host")),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		HTTPAddr:       v.GetString("http_addr"),
		AllowedOrigins: strings.TrimSpace(v.GetString("allowed_origins")),
		GradingScheme:  strings.ToLower(v.GetString("grading_scheme")),
		PredictorModel: strings.ToLower(v.GetString("predictor_model")),
		Aliases:        strings.ToLower(v.GetString("aliases")),
		MaxMark:        v.GetFloat64("max_mark"),
		AuthTimeout:    v.GetDuration("auth_timeout"),
		AuthRetries:    v.GetInt("auth_retries"),
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &Error{Err: err}
		}
		cerr := &Error{Err: err}
		for _, fe := range verrs {
			cerr.Keys = append(cerr.Keys, fe.Field())
		}
		return nil, cerr
	}
	return cfg, nil
}

func readProvider(path string) (Provider, error) {
	pv := viper.New()
	pv.SetConfigFile(path)
	pv.SetConfigType("json")
	if err := pv.ReadInConfig(); err != nil {
		return Provider{}, errors.Wrapf(err, "read provider config %s", path)
	}
	return Provider{
		APIKey:     strings.TrimSpace(pv.GetString("apiKey")),
		AuthDomain: strings.TrimSpace(pv.GetString("authDomain")),
		ProjectID:  strings.TrimSpace(pv.GetString("projectId")),
		AppID:      strings.TrimSpace(pv.GetString("appId")),
	}, nil
}
