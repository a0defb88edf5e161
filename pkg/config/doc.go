// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for dotenv files and
// github.com/caarlos0/env/v11 for struct-tag parsing. Every call parses the
// environment again; there is no process-wide cache, so several differently
// prefixed instances of the same struct can coexist (one per bot, for
// example).
//
// # Usage
//
//	type Options struct {
//		Port     int  `env:"PORT" envDefault:"8443"`
//		UseHTTPS bool `env:"USE_HTTPS"`
//	}
//
//	var opts Options
//	if err := config.Load(&opts, config.WithPrefix("WEBHOOK_")); err != nil {
//		log.Fatal(err)
//	}
//
// # Errors
//
// Parsing failures are joined with ErrParsingConfig, unreadable dotenv files
// with ErrLoadingEnvFile. Use errors.Is to tell them apart.
package config
