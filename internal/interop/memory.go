// SPDX-License-Identifier: Apache-2.0

package interop

import "fmt"

// MapTypes is an in-memory TypeSystem keyed by capability name.
type MapTypes map[string]Capability

// Lookup implements TypeSystem.
func (m MapTypes) Lookup(name string) (Capability, bool) {
	c, ok := m[name]
	return c, ok
}

// Add registers capabilities by their name.
func (m MapTypes) Add(caps ...Capability) MapTypes {
	for _, c := range caps {
		m[c.Name] = c
	}
	return m
}

// Method is the implementation of a MapObject method.
type Method func(args ...any) (any, error)

// MapObject is a property-bag Object.
type MapObject struct {
	Type    string
	Props   map[string]any
	Methods map[string]Method
}

// NewMapObject creates a MapObject of the given runtime type.
func NewMapObject(typeName string, props map[string]any) *MapObject {
	if props == nil {
		props = make(map[string]any)
	}
	return &MapObject{Type: typeName, Props: props, Methods: make(map[string]Method)}
}

// WithMethod adds a method and returns the object for chaining.
func (o *MapObject) WithMethod(name string, fn Method) *MapObject {
	o.Methods[name] = fn
	return o
}

// TypeName implements Object.
func (o *MapObject) TypeName() string {
	return o.Type
}

// Get implements Object.
func (o *MapObject) Get(name string) (any, error) {
	v, ok := o.Props[name]
	if !ok {
		return nil, fmt.Errorf("%s has no property %q", o.Type, name)
	}
	return v, nil
}

// Set implements Object.
func (o *MapObject) Set(name string, value any) error {
	o.Props[name] = value
	return nil
}

// Invoke implements Object.
func (o *MapObject) Invoke(name string, args ...any) (any, error) {
	fn, ok := o.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%s has no method %q", o.Type, name)
	}
	return fn(args...)
}
