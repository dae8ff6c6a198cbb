// Package visualize is the exported module object for host code.
// It registers the spectrograph entry point under its exported name.
package visualize

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotExported is returned by Call for names that are not registered.
var ErrNotExported = errors.New("function not exported")

// Func is the signature of an exported function.
type Func func(args ...any) any

// Exports is the module object: exported name to function.
var Exports = map[string]Func{}

func init() {
	Register("generateSpectrograph", func(args ...any) any {
		return GenerateSpectrograph(args...)
	})
}

// Register exports fn under name, replacing any previous registration.
func Register(name string, fn Func) {
	Exports[name] = fn
}

// Names returns the exported names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Exports))
	for name := range Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the function exported under name.
func Call(name string, args ...any) (any, error) {
	fn, ok := Exports[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotExported)
	}
	return fn(args...), nil
}

// GenerateSpectrograph is the placeholder boundary kept for host code.
// Arguments are ignored; it always returns "hello".
func GenerateSpectrograph(args ...any) string {
	return "hello"
}
