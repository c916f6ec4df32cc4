// Package catalog assembles the named command registry from every project.
package catalog

import (
	"sync"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/command/common"
	"github.com/danmuck/sumoctl/internal/arsdk/command/jumpingsumo"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *command.Registry
)

// New builds a fresh registry holding every known project.
func New() (*command.Registry, error) {
	r := command.NewRegistry()
	if err := r.Register(common.Specs()...); err != nil {
		return nil, err
	}
	if err := r.Register(jumpingsumo.Specs()...); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the shared process-wide registry.
func Default() *command.Registry {
	defaultOnce.Do(func() {
		r, err := New()
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
