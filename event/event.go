// Package event parses and validates hardware performance counter event
// specifiers of the form EVENT or EVENT.SUBEVENT (e.g. INSTRUCTIONS,
// RESOURCE_STALLS.LB).
package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidName is returned for a syntactically invalid event specifier.
	ErrInvalidName = errors.New("invalid event name")

	// ErrUnsupportedScope is returned for events that cannot be scoped to a
	// single process.
	ErrUnsupportedScope = errors.New("event cannot be scoped to a process")
)

// Spec is a validated event specifier. Immutable after creation.
type Spec struct {
	name    string
	alias   string
	scopeOK bool
}

// Capability answers whether a named event can be counted per-process.
// The counter driver implements it.
type Capability interface {
	ProcessScope(name string) error
}

// Parse validates text as an EVENT or EVENT.SUBEVENT specifier. Segments
// consist of uppercase letters, digits and underscores.
func Parse(text string) (Spec, error) {
	if text == "" {
		return Spec{}, fmt.Errorf("%w: empty specifier", ErrInvalidName)
	}

	segments := strings.Split(text, ".")
	if len(segments) > 2 {
		return Spec{}, fmt.Errorf("%w: %q has more than one sub-event", ErrInvalidName, text)
	}
	for _, seg := range segments {
		if seg == "" {
			return Spec{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidName, text)
		}
		for _, r := range seg {
			if !validRune(r) {
				return Spec{}, fmt.Errorf("%w: %q contains %q", ErrInvalidName, text, r)
			}
		}
	}

	return Spec{name: text}, nil
}

// MustParse is Parse for known-good literals; it panics on error.
func MustParse(text string) Spec {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func validRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	}
	return false
}

// Validate queries the driver for per-process capability of the event and
// returns a copy of spec marked as process-scoped. System-scope-only events
// are rejected here, before any run starts.
func Validate(spec Spec, c Capability) (Spec, error) {
	if err := c.ProcessScope(spec.name); err != nil {
		return Spec{}, fmt.Errorf("%s: %w", spec.name, err)
	}
	spec.scopeOK = true
	return spec, nil
}

// Name returns the raw event specifier.
func (s Spec) Name() string { return s.name }

// Alias returns the display alias, or the empty string when none is set.
func (s Spec) Alias() string { return s.alias }

// ProcessScoped reports whether the spec passed Validate.
func (s Spec) ProcessScoped() bool { return s.scopeOK }

// WithAlias returns a copy of the spec carrying a human friendly name,
// displayed in the report instead of the raw specifier.
func (s Spec) WithAlias(alias string) Spec {
	s.alias = alias
	return s
}

// Display returns the alias when set, otherwise the raw specifier.
func (s Spec) Display() string {
	if s.alias != "" {
		return s.alias
	}
	return s.name
}
