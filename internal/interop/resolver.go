// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"log/slog"

	"github.com/zosgo/zosgo/internal/errors"
)

// Resolver decides which capability view a host object is exposed under.
type Resolver struct {
	types    TypeSystem
	registry *Registry
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver over the host type system and registry.
func NewResolver(types TypeSystem, registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		types:    types,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry backing the resolver.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// CanResolve reports whether name is a host interface present in the registry.
// Names unknown to the host type system never resolve.
func (r *Resolver) CanResolve(name string) bool {
	c, ok := r.types.Lookup(name)
	if !ok || !c.Interface {
		return false
	}
	return r.registry.Contains(name)
}

// Resolve returns a view of the same underlying object exposing the capability
// of its concrete type. Handles whose capability is not resolvable are
// returned unchanged.
func (r *Resolver) Resolve(h *Handle) (*Handle, error) {
	if !r.CanResolve(h.view.Name) {
		return h, nil
	}
	view, err := r.concrete(h.obj, h.view.Name)
	if err != nil {
		return nil, err
	}
	return &Handle{obj: h.obj, view: view, session: h.session}, nil
}

// Widen returns the capability an object should be exposed under when the
// host declares it as declared.
func (r *Resolver) Widen(obj Object, declared string) (Capability, error) {
	if r.CanResolve(declared) {
		return r.concrete(obj, declared)
	}
	if c, ok := r.types.Lookup(declared); ok {
		return c, nil
	}
	// Unknown to the type system: keep the declared name without members.
	return Capability{Name: declared, Interface: true}, nil
}

func (r *Resolver) concrete(obj Object, declared string) (Capability, error) {
	name := obj.TypeName()
	c, ok := r.types.Lookup(name)
	if !ok || c.Interface {
		return Capability{}, errors.NewResolution(declared, name)
	}
	r.logger.Debug("widened capability", "declared", declared, "concrete", name)
	return c, nil
}
