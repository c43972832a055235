package config

import (
	"context"
	"os"
	"strings"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/pkg/service"
	"github.com/spf13/pflag"
)

// Config holds the command line settings shared by every subcommand
type Config struct {
	// Target service
	Base       string
	Controller string
	Service    string

	// Registry files
	ConfigFile string
	EnvFile    string

	// Call shaping
	ContentType string
	Headers     []string
	Params      []string
	Data        string
	Select      string

	// Authentication
	SigV4        bool
	SigV4Service string

	OpenAPI   string
	Verbose   bool
	Debug     bool
	LogFormat string
}

// contextKey is a custom type for context keys
type contextKey string

// configKey is the context key for storing config
const configKey contextKey = "config"

// WithConfig adds config to context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey).(*Config)
	return cfg, ok
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		ConfigFile:   "services.yml",
		SigV4Service: "execute-api",
		LogFormat:    "pretty",
	}
}

// RegisterFlags defines the persistent flags LoadFromFlags reads
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("base", "", "Service base address (env SVCBASE_BASE)")
	flags.String("controller", "", "Controller segment prepended to actions (env SVCBASE_CONTROLLER)")
	flags.String("service", "", "Named service from the services file (env SVCBASE_SERVICE)")
	flags.String("config", "services.yml", "Services file (env SVCBASE_CONFIG)")
	flags.String("env-file", "", "Env file loaded before reading overrides (default ./.env when present)")
	flags.String("content-type", "", "Content type hint: json, form or unknown")
	flags.StringArrayP("header", "H", nil, "Request header 'Name: value' (repeatable)")
	flags.StringArrayP("param", "p", nil, "Query parameter 'name=value' (repeatable)")
	flags.StringP("data", "d", "", "Request body; JSON is sent as an object, anything else as a string")
	flags.String("select", "", "gjson path applied to the response")
	flags.Bool("sig-v4", false, "Sign requests with AWS SigV4")
	flags.String("sig-v4-service", "execute-api", "AWS service name used for SigV4")
	flags.String("openapi", "", "OpenAPI document describing the service (env SVCBASE_OPENAPI)")
	flags.BoolP("verbose", "v", false, "Log requests and responses")
	flags.Bool("debug", false, "Debug logging")
	flags.String("log-format", "pretty", "Log format: pretty or json")
}

// LoadFromFlags creates a Config from command line flags. SVCBASE_*
// environment variables replace flags that were not given.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	config := NewConfig()

	strs := []struct {
		flag string
		dst  *string
		env  string
	}{
		{"base", &config.Base, "SVCBASE_BASE"},
		{"controller", &config.Controller, "SVCBASE_CONTROLLER"},
		{"service", &config.Service, "SVCBASE_SERVICE"},
		{"config", &config.ConfigFile, "SVCBASE_CONFIG"},
		{"env-file", &config.EnvFile, ""},
		{"content-type", &config.ContentType, ""},
		{"data", &config.Data, ""},
		{"select", &config.Select, ""},
		{"sig-v4-service", &config.SigV4Service, ""},
		{"openapi", &config.OpenAPI, "SVCBASE_OPENAPI"},
		{"log-format", &config.LogFormat, ""},
	}
	for _, s := range strs {
		value, err := flags.GetString(s.flag)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "failed to get %s flag", s.flag)
		}
		if !flags.Changed(s.flag) && s.env != "" {
			if env := os.Getenv(s.env); env != "" {
				value = env
			}
		}
		if value != "" || flags.Changed(s.flag) {
			*s.dst = value
		}
	}

	var err error
	if config.Headers, err = flags.GetStringArray("header"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get header flag")
	}
	if config.Params, err = flags.GetStringArray("param"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get param flag")
	}
	if config.SigV4, err = flags.GetBool("sig-v4"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get sig-v4 flag")
	}
	if config.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get verbose flag")
	}
	if config.Debug, err = flags.GetBool("debug"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get debug flag")
	}

	return config, nil
}

// Validate ensures the configuration is usable for a service call
func (c *Config) Validate() error {
	if c.Base == "" && c.Service == "" {
		return errors.New(errors.ErrorTypeValidation, "no target service").
			WithContext("field", "base").
			WithContext("suggestion", "use --base, --service or set SVCBASE_BASE")
	}

	if _, _, err := c.ContentTypeHint(); err != nil {
		return err
	}
	if _, err := c.HeaderSet(); err != nil {
		return err
	}
	if _, err := c.QueryParams(); err != nil {
		return err
	}

	if c.SigV4 && c.SigV4Service == "" {
		return errors.New(errors.ErrorTypeValidation, "SigV4 service name is required").
			WithContext("field", "sig-v4-service")
	}

	return nil
}

// ContentTypeHint parses --content-type. ok is false when the flag is unset.
func (c *Config) ContentTypeHint() (hint service.ContentType, ok bool, err error) {
	if c.ContentType == "" {
		return service.Unknown, false, nil
	}
	hint, err = service.ParseContentType(c.ContentType)
	if err != nil {
		return service.Unknown, false, errors.Wrap(err, errors.ErrorTypeValidation, "invalid content type").
			WithContext("field", "content-type")
	}
	return hint, true, nil
}

// HeaderSet parses "Name: value" header flags.
func (c *Config) HeaderSet() (service.HeaderSet, error) {
	headers := make(service.HeaderSet, len(c.Headers))
	for _, h := range c.Headers {
		name, value, found := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, errors.New(errors.ErrorTypeValidation, "invalid header format").
				WithContext("field", "header").
				WithContext("header", h).
				WithContext("suggestion", "use 'Name: value'")
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// QueryParams parses "name=value" param flags in order.
func (c *Config) QueryParams() ([]service.QueryParam, error) {
	params := make([]service.QueryParam, 0, len(c.Params))
	for _, p := range c.Params {
		name, value, found := strings.Cut(p, "=")
		if !found || name == "" {
			return nil, errors.New(errors.ErrorTypeValidation, "invalid query parameter format").
				WithContext("field", "param").
				WithContext("param", p).
				WithContext("suggestion", "use 'name=value'")
		}
		params = append(params, service.Param(name, value))
	}
	return params, nil
}

// Provider resolves the service the call targets. A named service comes from
// the registry; --base and --controller override its entry.
func (c *Config) Provider() (service.OptionProvider, error) {
	if c.Service == "" {
		return service.StaticOption{
			BaseAddress:        c.Base,
			Controller:         c.Controller,
			DefaultContentType: service.ApplicationJSON,
		}, nil
	}

	registry, err := LoadRegistry(WithConfigFile(c.ConfigFile), WithEnvFile(c.EnvFile))
	if err != nil {
		return nil, err
	}
	provider, err := registry.Provider(c.Service)
	if err != nil {
		return nil, err
	}
	if c.Base == "" && c.Controller == "" {
		return provider, nil
	}

	opt := provider.Option()
	if c.Base != "" {
		opt.BaseAddress = c.Base
	}
	if c.Controller != "" {
		opt.Controller = c.Controller
	}
	return service.StaticOption(opt), nil
}
