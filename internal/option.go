package internal

import "github.com/starford/perthro/internal/ids"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	alloc  ids.Allocator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithAllocator overrides the id allocator, mainly for tests that need
// reproducible output.
func WithAllocator(alloc ids.Allocator) Option {
	return func(a *application) {
		a.alloc = alloc
	}
}
