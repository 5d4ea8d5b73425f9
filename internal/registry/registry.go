// Package registry owns the class descriptors for one analysis run and
// resolves ambiguous class references to registry identities.
package registry

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"mromap/internal/descriptor"
)

// RegistrationError reports an invariant violation in a Register call.
// It aborts only the offending registration, never the batch.
type RegistrationError struct {
	Identity string
	Reason   string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %q: %s", e.Identity, e.Reason)
}

// Registry maps class identities to descriptors. Iteration order is
// insertion order; re-registering an identity replaces its descriptor but
// keeps its original position. Not safe for concurrent mutation.
type Registry struct {
	classes map[string]*descriptor.Class
	order   []string

	// subclasses maps a normalized base identity to the identities that
	// declared it as a direct base. Append-only: entries added for an old
	// registration of a class are not retracted when the class is
	// re-registered with different bases.
	subclasses map[string][]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		classes:    make(map[string]*descriptor.Class),
		subclasses: make(map[string][]string),
	}
}

// Register inserts or replaces the descriptor for identity.
//
// An empty mro, or an mro that does not start with identity, is repaired by
// prepending identity. The only rejected inputs are an empty identity and an
// mro in which identity appears again after the first position; everything
// else is accepted as supplied.
func (r *Registry) Register(identity string, methods []descriptor.Method, mro []string, file string, bases []string, line int) error {
	if identity == "" {
		return &RegistrationError{Reason: "empty identity"}
	}

	linear := make([]string, 0, len(mro)+1)
	if len(mro) == 0 || mro[0] != identity {
		linear = append(linear, identity)
	}
	linear = append(linear, mro...)
	for _, ancestor := range linear[1:] {
		if ancestor == identity {
			return &RegistrationError{Identity: identity, Reason: "identity repeats in MRO"}
		}
	}

	cls := &descriptor.Class{
		Identity: identity,
		File:     file,
		Line:     line,
		MRO:      linear,
		RawBases: append([]string(nil), bases...),
		Methods:  append([]descriptor.Method(nil), methods...),
	}

	if _, exists := r.classes[identity]; !exists {
		r.order = append(r.order, identity)
	}
	r.classes[identity] = cls

	for _, base := range bases {
		r.addSubclass(r.Normalize(base, file), identity)
	}
	return nil
}

func (r *Registry) addSubclass(base, sub string) {
	for _, existing := range r.subclasses[base] {
		if existing == sub {
			return
		}
	}
	r.subclasses[base] = append(r.subclasses[base], sub)
}

// Lookup returns the live descriptor for identity.
func (r *Registry) Lookup(identity string) (*descriptor.Class, bool) {
	cls, ok := r.classes[identity]
	return cls, ok
}

// Has reports whether identity has a live descriptor.
func (r *Registry) Has(identity string) bool {
	_, ok := r.classes[identity]
	return ok
}

// Identities returns all registered identities in insertion order.
func (r *Registry) Identities() []string {
	return append([]string(nil), r.order...)
}

// Subclasses returns the identities that registered base as a direct base,
// in registration order. The list may contain stale entries left behind by
// replaced registrations.
func (r *Registry) Subclasses(base string) []string {
	return append([]string(nil), r.subclasses[base]...)
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.order)
}

// Normalize resolves a class reference observed in contextFile to the
// identity used as a registry key. Unresolvable references come back
// unchanged and are treated as external symbols by callers.
//
// Precedence: exact key match; unqualified references are returned as-is;
// short-name match among classes of contextFile; short-name match within
// contextFile's directory; short-name match anywhere, first in registration
// order; otherwise the reference itself.
func (r *Registry) Normalize(ref, contextFile string) string {
	if _, ok := r.classes[ref]; ok {
		return ref
	}
	if !strings.Contains(ref, ".") {
		return ref
	}

	short := LastSegment(ref)

	for _, id := range r.order {
		if r.classes[id].File == contextFile && LastSegment(id) == short {
			return id
		}
	}

	dir := filepath.Dir(contextFile)
	for _, id := range r.order {
		if LastSegment(id) == short && filepath.Dir(r.classes[id].File) == dir {
			return id
		}
	}

	var matches []string
	for _, id := range r.order {
		if LastSegment(id) == short {
			matches = append(matches, id)
		}
	}
	if len(matches) > 0 {
		if len(matches) > 1 {
			slog.Debug("ambiguous class reference",
				slog.String("ref", ref),
				slog.String("context", contextFile),
				slog.String("chosen", matches[0]),
				slog.Int("candidates", len(matches)))
		}
		return matches[0]
	}

	return ref
}

// LastSegment returns the final dot-separated segment of a qualified name.
func LastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
