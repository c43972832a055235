package config

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/pkg/service"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override read by the registry.
const EnvPrefix = "SVCBASE"

// Registry reads named service entries from a services file:
//
//	services:
//	  orders:
//	    base_address: https://orders.example.com/api/
//	    controller: orders
//	    content_type: json
//
// Any key can be overridden with SVCBASE_SERVICES_<NAME>_<KEY>.
type Registry struct {
	v *viper.Viper
}

type registryOptions struct {
	configFile string
	envFile    string
}

// RegistryOption configures LoadRegistry.
type RegistryOption func(*registryOptions)

// WithConfigFile sets the services file. A file that does not exist is skipped.
func WithConfigFile(path string) RegistryOption {
	return func(o *registryOptions) { o.configFile = path }
}

// WithEnvFile sets a .env file loaded before overrides are read.
func WithEnvFile(path string) RegistryOption {
	return func(o *registryOptions) { o.envFile = path }
}

// LoadRegistry reads the services file and the optional .env file. Without
// an explicit env file, ./.env is loaded when present.
func LoadRegistry(opts ...RegistryOption) (*Registry, error) {
	o := &registryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load env file").
				WithContext("config_type", "env").
				WithContext("path", o.envFile)
		}
	} else if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load env file").
				WithContext("config_type", "env").
				WithContext("path", ".env")
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if o.configFile != "" && fileExists(o.configFile) {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read services file").
				WithContext("config_type", "services").
				WithContext("path", o.configFile)
		}
	}

	return &Registry{v: v}, nil
}

// Names lists the services declared in the services file.
func (r *Registry) Names() []string {
	var names []string
	for name := range r.v.GetStringMap("services") {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option reads the entry for name. Environment overrides are applied on
// every call.
func (r *Registry) Option(name string) (service.ServiceOption, error) {
	key := "services." + strings.ToLower(name)

	opt := service.ServiceOption{
		BaseAddress:        r.v.GetString(key + ".base_address"),
		Controller:         r.v.GetString(key + ".controller"),
		DefaultContentType: service.ApplicationJSON,
	}
	if opt.BaseAddress == "" {
		return service.ServiceOption{}, errors.Newf(errors.ErrorTypeConfig, "service %q has no base_address", name).
			WithContext("config_type", "services").
			WithContext("suggestion", "add services."+name+".base_address or set "+envKey(key+".base_address"))
	}

	if ct := r.v.GetString(key + ".content_type"); ct != "" {
		hint, err := service.ParseContentType(ct)
		if err != nil {
			return service.ServiceOption{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid content_type").
				WithContext("config_type", "services").
				WithContext("service", name)
		}
		opt.DefaultContentType = hint
	}

	return opt, nil
}

// Provider returns an OptionProvider bound to the named entry. The entry
// must resolve now; later reads that fail keep the last good value.
func (r *Registry) Provider(name string) (service.OptionProvider, error) {
	opt, err := r.Option(name)
	if err != nil {
		return nil, err
	}
	return &registryProvider{registry: r, name: name, last: opt}, nil
}

type registryProvider struct {
	registry *Registry
	name     string

	mu   sync.Mutex
	last service.ServiceOption
}

func (p *registryProvider) Option() service.ServiceOption {
	p.mu.Lock()
	defer p.mu.Unlock()
	if opt, err := p.registry.Option(p.name); err == nil {
		p.last = opt
	}
	return p.last
}

func envKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
