package service

import (
	"net/http"

	"github.com/brendan.keane/svcbase/internal/errors"
	svchttp "github.com/brendan.keane/svcbase/pkg/http"
	"github.com/rs/zerolog"
)

// Doer executes HTTP requests. *http.Client and *svchttp.Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the base for one remote service controller. It holds only
// read-only state and is safe for concurrent use.
type Client struct {
	logger  zerolog.Logger
	option  ServiceOption
	doer    Doer
	builder *RequestBuilder
}

type clientConfig struct {
	doer      Doer
	userAgent string
}

// Option configures a Client.
type Option func(*clientConfig)

// WithDoer sets the transport used for every call.
func WithDoer(doer Doer) Option {
	return func(c *clientConfig) { c.doer = doer }
}

// WithUserAgent sets the User-Agent header sent with every call.
func WithUserAgent(userAgent string) Option {
	return func(c *clientConfig) { c.userAgent = userAgent }
}

// New creates a Client from the option supplied by provider.
func New(provider OptionProvider, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "option provider is required").
			WithContext("config_type", "service")
	}
	option := provider.Option()
	if err := option.Validate(); err != nil {
		return nil, err
	}

	cfg := clientConfig{userAgent: "svcbase"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.doer == nil {
		cfg.doer = svchttp.NewClient()
	}

	logger = logger.With().
		Str("component", "service").
		Str("base_address", option.BaseAddress).
		Str("controller", option.Controller).
		Logger()

	return &Client{
		logger:  logger,
		option:  option,
		doer:    cfg.doer,
		builder: NewRequestBuilder(logger, option, cfg.userAgent),
	}, nil
}

// Option returns a copy of the client's configuration.
func (c *Client) Option() ServiceOption {
	return c.option
}

// RelativeURL builds the controller-relative URL for action.
func (c *Client) RelativeURL(action string, params ...QueryParam) string {
	return c.builder.RelativeURL(action, params...)
}

type callConfig struct {
	headers     HeaderSet
	body        any
	contentType ContentType
	hintSet     bool
	params      []QueryParam
}

// CallOption configures a single Post or Get call.
type CallOption func(*callConfig)

func WithHeaders(headers HeaderSet) CallOption {
	return func(c *callConfig) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

func WithHeader(name, value string) CallOption {
	return func(c *callConfig) { c.headers[name] = value }
}

func WithBody(body any) CallOption {
	return func(c *callConfig) { c.body = body }
}

// WithContentType overrides the option's DefaultContentType for one call.
func WithContentType(contentType ContentType) CallOption {
	return func(c *callConfig) {
		c.contentType = contentType
		c.hintSet = true
	}
}

func WithParams(params ...QueryParam) CallOption {
	return func(c *callConfig) { c.params = append(c.params, params...) }
}

func WithParam(name string, value any) CallOption {
	return func(c *callConfig) { c.params = append(c.params, Param(name, value)) }
}

func (c *Client) newCall(opts []CallOption) *callConfig {
	call := &callConfig{headers: HeaderSet{}}
	for _, opt := range opts {
		opt(call)
	}
	if !call.hintSet {
		call.contentType = c.option.DefaultContentType
	}
	return call
}
