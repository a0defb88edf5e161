package httpserver

import (
	"net"
	"strconv"
	"time"
)

type Config struct {
	Host              string        `env:"HOST"`                                 // Host is the interface to bind; empty means all interfaces.
	Port              int           `env:"PORT" envDefault:"8443"`               // Port is the TCP port to listen on.
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`        // ReadTimeout is the maximum duration for reading the entire request.
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"` // ReadHeaderTimeout bounds reading request headers.
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`       // WriteTimeout is the maximum duration before timing out writes of the response.
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`       // IdleTimeout is how long keep-alive connections may stay idle.
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`     // ShutdownTimeout bounds graceful shutdown.
}

// Addr returns the host:port pair the server binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	return 5 * time.Second
}
