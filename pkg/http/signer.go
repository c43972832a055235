package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"

	"github.com/brendan.keane/svcbase/internal/errors"
)

// Doer sends HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Signer signs outgoing requests with AWS SigV4 before handing them to the
// wrapped Doer. lambda:// requests are passed through unsigned.
type Signer struct {
	next    Doer
	service string
	logger  zerolog.Logger

	once   sync.Once
	cfg    aws.Config
	cfgErr error
	signer *v4.Signer
	now    func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithAWSConfig uses cfg instead of the default credential chain.
func WithAWSConfig(cfg aws.Config) SignerOption {
	return func(s *Signer) {
		s.once.Do(func() { s.cfg = cfg })
	}
}

// WithSignerLogger sets the logger used for signing diagnostics.
func WithSignerLogger(logger zerolog.Logger) SignerOption {
	return func(s *Signer) {
		s.logger = logger.With().Str("component", "sigv4").Logger()
	}
}

// WithClock overrides the signing time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner wraps next with SigV4 signing for service (for example "execute-api").
func NewSigner(next Doer, service string, opts ...SignerOption) *Signer {
	s := &Signer{
		next:    next,
		service: service,
		logger:  zerolog.Nop(),
		signer:  v4.NewSigner(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do signs req and sends it through the wrapped Doer.
func (s *Signer) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "lambda" {
		s.logger.Debug().Msg("lambda URL detected, skipping SigV4")
		return s.next.Do(req)
	}
	if err := s.sign(req.Context(), req); err != nil {
		return nil, err
	}
	return s.next.Do(req)
}

func (s *Signer) awsConfig(ctx context.Context) (aws.Config, error) {
	s.once.Do(func() {
		s.cfg, s.cfgErr = config.LoadDefaultConfig(ctx)
		if s.cfgErr != nil {
			s.cfgErr = errors.Wrap(s.cfgErr, errors.ErrorTypeConfig, "loading AWS config").
				WithContext("config_type", "aws")
		}
	})
	return s.cfg, s.cfgErr
}

func (s *Signer) sign(ctx context.Context, req *http.Request) error {
	cfg, err := s.awsConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Region == "" {
		return errors.New(errors.ErrorTypeConfig, "SigV4: AWS region not configured").
			WithContext("config_type", "aws")
	}
	if cfg.Credentials == nil {
		return errors.New(errors.ErrorTypeConfig, "SigV4: no AWS credentials provider").
			WithContext("config_type", "aws")
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "SigV4: retrieving AWS credentials").
			WithContext("config_type", "aws")
	}

	payloadHash, err := hashBody(req)
	if err != nil {
		return err
	}

	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, s.service, cfg.Region, s.now()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "SigV4: signing request")
	}

	s.logger.Debug().
		Str("service", s.service).
		Str("region", cfg.Region).
		Msg("SigV4 signature applied")
	return nil
}

// hashBody returns the hex SHA-256 of the request body and restores the body.
func hashBody(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:]), nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeNetwork, "SigV4: reading request body")
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
