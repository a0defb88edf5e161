package tgwebhook

import (
	"errors"
	"slices"
	"sync"

	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
	"github.com/dmitrymomot/tgwebhook/pkg/validator"
)

type binding struct {
	path    string
	handler Handler
	secret  string
}

// registry maps exact request paths to bindings. Lookups happen on every
// request and take the read lock only.
type registry struct {
	mu       sync.RWMutex
	bindings map[string]binding
}

func newRegistry() *registry {
	return &registry{bindings: make(map[string]binding)}
}

// put stores b and reports whether it replaced an existing binding.
func (r *registry) put(b binding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.bindings[b.path]
	r.bindings[b.path] = b
	return replaced
}

func (r *registry) lookup(path string) (binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[path]
	return b, ok
}

func (r *registry) clear() {
	r.mu.Lock()
	clear(r.bindings)
	r.mu.Unlock()
}

func (r *registry) paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bindings))
	for p := range r.bindings {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (b binding) validate() error {
	err := validator.Apply(
		validator.HasPrefix("path", b.path, "/"),
		validator.Custom("handler", "must not be nil", func() bool { return b.handler != nil }),
	)
	if err != nil {
		return errors.Join(ErrInvalidPath, err)
	}
	if b.secret != "" {
		if err := telegram.ValidateSecretToken(b.secret); err != nil {
			return errors.Join(ErrInvalidPath, err)
		}
	}
	return nil
}
