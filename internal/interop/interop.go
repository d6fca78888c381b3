// SPDX-License-Identifier: Apache-2.0

// Package interop widens host objects that the automation layer declares only
// by a generic interface to the capability of their concrete type.
package interop

import "slices"

// Capability is a named set of members exposed by a host type.
type Capability struct {
	Name string
	// Interface is true for abstract capabilities, false for concrete classes.
	Interface  bool
	Properties []string
	Methods    []string
}

// HasProperty reports whether the capability exposes the named property.
func (c Capability) HasProperty(name string) bool {
	return slices.Contains(c.Properties, name)
}

// HasMethod reports whether the capability exposes the named method.
func (c Capability) HasMethod(name string) bool {
	return slices.Contains(c.Methods, name)
}

// Object is the host-side implementation behind a handle. Implementations
// must be comparable (typically pointers) so views can be matched to their
// underlying object.
type Object interface {
	// TypeName returns the fully-qualified name of the object's runtime type.
	TypeName() string
	Get(name string) (any, error)
	Set(name string, value any) error
	Invoke(name string, args ...any) (any, error)
}

// TypeSystem answers capability questions about host type names.
type TypeSystem interface {
	Lookup(name string) (Capability, bool)
}

// Ref is an object reference returned by the host, tagged with the capability
// the host declared for it.
type Ref struct {
	Object   Object
	Declared string
}
