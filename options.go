package tgwebhook

import (
	"crypto/tls"
	"errors"
	"time"

	"github.com/dmitrymomot/tgwebhook/pkg/config"
	"github.com/dmitrymomot/tgwebhook/pkg/httpserver"
	"github.com/dmitrymomot/tgwebhook/pkg/validator"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes int64 = 1 << 20

// EnvPrefix is prepended to every variable read by LoadOptions.
const EnvPrefix = "WEBHOOK_"

// Options is the validated configuration of an Application. It is passed by
// value and never modified after New.
type Options struct {
	// Host to bind, empty for all interfaces.
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"8443"`

	UseHTTPS bool `env:"USE_HTTPS" envDefault:"false"`
	// KeyStorePath points to a PKCS#12 file with the certificate chain and key.
	KeyStorePath     string `env:"KEYSTORE_PATH"`
	KeyStorePassword string `env:"KEYSTORE_PASSWORD"`

	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// MaxBodyBytes limits the size of an update body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadOptions reads Options from WEBHOOK_* environment variables (and .env)
// and validates them. Extra loader options are applied after the default
// prefix, so config.WithPrefix overrides it.
func LoadOptions(opts ...config.Option) (Options, error) {
	var o Options
	loadOpts := append([]config.Option{config.WithPrefix(EnvPrefix)}, opts...)
	if err := config.Load(&o, loadOpts...); err != nil {
		return Options{}, errors.Join(ErrConfig, err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate checks the options and, when HTTPS is enabled, that the key store
// can be read and decoded. It has no other side effects.
func (o Options) Validate() error {
	_, err := o.validate()
	return err
}

// validate returns the decoded certificate when HTTPS is enabled.
func (o Options) validate() (*tls.Certificate, error) {
	rules := []validator.Rule{
		validator.RangeNum("port", o.Port, 1, 65535),
		validator.MinNum("max_body_bytes", o.MaxBodyBytes, 0),
		validator.MinNum("read_timeout", o.ReadTimeout, 0),
		validator.MinNum("read_header_timeout", o.ReadHeaderTimeout, 0),
		validator.MinNum("write_timeout", o.WriteTimeout, 0),
		validator.MinNum("idle_timeout", o.IdleTimeout, 0),
		validator.MinNum("shutdown_timeout", o.ShutdownTimeout, 0),
	}
	rules = append(rules, validator.When(o.UseHTTPS,
		validator.Required("keystore_path", o.KeyStorePath),
		validator.Required("keystore_password", o.KeyStorePassword),
	)...)
	if err := validator.Apply(rules...); err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	if !o.UseHTTPS {
		return nil, nil
	}
	cert, err := httpserver.LoadKeyStore(o.KeyStorePath, o.KeyStorePassword)
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	return &cert, nil
}

func (o Options) serverConfig() httpserver.Config {
	return httpserver.Config{
		Host:              o.Host,
		Port:              o.Port,
		ReadTimeout:       o.ReadTimeout,
		ReadHeaderTimeout: o.ReadHeaderTimeout,
		WriteTimeout:      o.WriteTimeout,
		IdleTimeout:       o.IdleTimeout,
		ShutdownTimeout:   o.ShutdownTimeout,
	}
}

func (o Options) maxBodyBytes() int64 {
	if o.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return o.MaxBodyBytes
}
