// Package demos holds the registry the example workloads register
// themselves into. Example packages call Register from init, and the CLI
// pulls them out by name; importing an example package for side effects
// is what makes it runnable.
package demos

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrNotFound is returned by Get for unregistered demo names.
var ErrNotFound = errors.New("demo not found")

// Demo is one runnable example workload.
type Demo struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

var registry = make(map[string]Demo)

// Register adds a demo to the registry. Meant to be called from package
// init; duplicate names are rejected.
func Register(demo Demo) error {
	if _, exists := registry[demo.Name]; exists {
		return fmt.Errorf("demo already registered: %s", demo.Name)
	}
	if demo.Run == nil {
		return fmt.Errorf("demo has no run function: %s", demo.Name)
	}
	registry[demo.Name] = demo
	return nil
}

// Get looks a demo up by name.
func Get(name string) (Demo, error) {
	demo, exists := registry[name]
	if !exists {
		return Demo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return demo, nil
}

// List returns all registered demos sorted by name.
func List() []Demo {
	out := make([]Demo, 0, len(registry))
	for _, demo := range registry {
		out = append(out, demo)
	}
	slices.SortFunc(out, func(left, right Demo) int {
		return cmp.Compare(left.Name, right.Name)
	})
	return out
}

// Names returns the sorted names of all registered demos.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
