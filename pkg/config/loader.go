package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option adjusts how Load reads the environment.
type Option func(*loadOptions)

type loadOptions struct {
	prefix   string
	envFiles []string
	required bool
}

// WithPrefix reads every variable as prefix+NAME, e.g. WithPrefix("BOT1_")
// turns `env:"PORT"` into BOT1_PORT.
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// WithEnvFiles loads the given dotenv files before parsing. Variables that are
// already set in the process environment win over file values. Missing files
// are an error; without this option Load tries ".env" and ignores its absence.
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) { o.envFiles = append(o.envFiles, files...) }
}

// WithRequiredIfNoDefault marks every field without envDefault as required.
func WithRequiredIfNoDefault() Option {
	return func(o *loadOptions) { o.required = true }
}

// Load parses environment variables into v according to its `env` struct tags.
//
// Example:
//
//	type ServerConfig struct {
//		Port     int    `env:"PORT" envDefault:"8443"`
//		KeyStore string `env:"KEYSTORE_PATH"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg, config.WithPrefix("WEBHOOK_")); err != nil {
//		// handle
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.envFiles) == 0 {
		// The default file is optional.
		_ = godotenv.Load()
	} else if err := godotenv.Load(o.envFiles...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}

	if err := env.ParseWithOptions(v, env.Options{
		Prefix:          o.prefix,
		RequiredIfNoDef: o.required,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
