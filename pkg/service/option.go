package service

import (
	"net/url"

	"github.com/brendan.keane/svcbase/internal/errors"
)

// ServiceOption is the per-client configuration. The zero DefaultContentType
// is ApplicationJSON.
type ServiceOption struct {
	BaseAddress        string
	Controller         string
	DefaultContentType ContentType
}

// OptionProvider supplies the ServiceOption a client is built from.
type OptionProvider interface {
	Option() ServiceOption
}

// StaticOption is an OptionProvider over a fixed value.
type StaticOption ServiceOption

func (s StaticOption) Option() ServiceOption {
	return ServiceOption(s)
}

// Validate checks that BaseAddress is an absolute URL.
func (o ServiceOption) Validate() error {
	if o.BaseAddress == "" {
		return errors.New(errors.ErrorTypeValidation, "base address is required").
			WithContext("field", "base address")
	}
	u, err := url.Parse(o.BaseAddress)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "base address is not a valid URL").
			WithContext("field", "base address").
			WithContext("base_address", o.BaseAddress)
	}
	if !u.IsAbs() || u.Host == "" {
		return errors.New(errors.ErrorTypeValidation, "base address must be absolute").
			WithContext("field", "base address").
			WithContext("base_address", o.BaseAddress)
	}
	return nil
}
