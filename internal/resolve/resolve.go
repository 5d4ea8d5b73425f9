// Package resolve computes method override relationships over a populated
// registry.
package resolve

import (
	"mromap/internal/descriptor"
	"mromap/internal/registry"
)

// MethodRelationship ties a declared method to the ancestor methods it
// overrides and the descendant methods that override it.
type MethodRelationship struct {
	Method          descriptor.Method
	BaseMethods     []descriptor.Method
	OverrideMethods []descriptor.Method
}

// Resolver reads a registry snapshot. It never mutates the registry and
// never fails for an individual class or method; unresolved links count as
// "no relationship".
type Resolver struct {
	reg *registry.Registry
}

// New returns a resolver over reg.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// BaseMethods returns, in MRO order, the method named name declared by each
// live ancestor of identity. The whole MRO is scanned: the result is the
// full override lineage, not just the nearest declaration.
func (rv *Resolver) BaseMethods(identity, name string) []descriptor.Method {
	cls, ok := rv.reg.Lookup(identity)
	if !ok {
		return nil
	}

	var out []descriptor.Method
	for _, ancestor := range cls.MRO[1:] {
		parent, ok := rv.reg.Lookup(rv.reg.Normalize(ancestor, cls.File))
		if !ok {
			continue
		}
		if m, ok := declaredMethod(parent, name); ok {
			out = append(out, m)
		}
	}
	return out
}

// OverrideMethods returns, in registry order, the method named name declared
// by every other class that has identity in its MRO.
func (rv *Resolver) OverrideMethods(identity, name string) []descriptor.Method {
	var out []descriptor.Method
	for _, otherID := range rv.reg.Identities() {
		if otherID == identity {
			continue
		}
		other, ok := rv.reg.Lookup(otherID)
		if !ok {
			continue
		}
		if !rv.hasAncestor(other, identity) {
			continue
		}
		if m, ok := declaredMethod(other, name); ok {
			out = append(out, m)
		}
	}
	return out
}

// hasAncestor reports whether identity appears in cls's MRO. Each entry is
// tested by exact match, then by normalized match, then by short-name match.
// A short-name match is accepted whether or not the entry resolves to a live
// class: dropping real override links costs more than the occasional false
// positive from colliding class names.
func (rv *Resolver) hasAncestor(cls *descriptor.Class, identity string) bool {
	short := registry.LastSegment(identity)
	for _, entry := range cls.MRO {
		if entry == identity {
			return true
		}
		if rv.reg.Normalize(entry, cls.File) == identity {
			return true
		}
		if registry.LastSegment(entry) == short {
			return true
		}
	}
	return false
}

// Relationships computes base and override methods for every declared method
// of every registered class, keeping only methods with at least one
// relationship, grouped by the owning class's file. It is a pure function of
// the current registry snapshot and is safe to call repeatedly.
func (rv *Resolver) Relationships() map[string][]MethodRelationship {
	out := make(map[string][]MethodRelationship)
	for _, id := range rv.reg.Identities() {
		cls, ok := rv.reg.Lookup(id)
		if !ok {
			continue
		}
		for _, m := range cls.Methods {
			bases := rv.BaseMethods(id, m.Name)
			overrides := rv.OverrideMethods(id, m.Name)
			if len(bases) == 0 && len(overrides) == 0 {
				continue
			}
			out[cls.File] = append(out[cls.File], MethodRelationship{
				Method:          m,
				BaseMethods:     bases,
				OverrideMethods: overrides,
			})
		}
	}
	return out
}

func declaredMethod(cls *descriptor.Class, name string) (descriptor.Method, bool) {
	for _, m := range cls.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return descriptor.Method{}, false
}
