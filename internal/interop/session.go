// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/zosgo/zosgo/internal/errors"
)

// Session is one logical connection to the host application. Handles obtained
// from a session are only usable while it is open.
type Session struct {
	id       uuid.UUID
	resolver *Resolver
	closed   atomic.Bool
}

// NewSession creates an open session whose handles are widened by resolver.
func NewSession(resolver *Resolver) *Session {
	return &Session{
		id:       uuid.New(),
		resolver: resolver,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id.String()
}

// Resolver returns the session's resolver.
func (s *Session) Resolver() *Resolver {
	return s.resolver
}

// Attach wraps a host object declared as the named capability into a handle.
func (s *Session) Attach(obj Object, declared string) (*Handle, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.wrap(obj, declared)
}

// Close ends the session. Every handle obtained from it fails afterwards.
func (s *Session) Close() {
	s.closed.Store(true)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) check() error {
	if s.closed.Load() {
		return errors.NewSessionClosed(s.ID())
	}
	return nil
}

func (s *Session) wrap(obj Object, declared string) (*Handle, error) {
	view, err := s.resolver.Widen(obj, declared)
	if err != nil {
		return nil, err
	}
	return &Handle{obj: obj, view: view, session: s}, nil
}

// adopt converts host references in v into handles.
func (s *Session) adopt(v any) (any, error) {
	switch t := v.(type) {
	case Ref:
		return s.wrap(t.Object, t.Declared)
	case *Ref:
		return s.wrap(t.Object, t.Declared)
	case []Ref:
		out := make([]*Handle, len(t))
		for i, ref := range t {
			h, err := s.wrap(ref.Object, ref.Declared)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = h
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			a, err := s.adopt(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = a
		}
		return out, nil
	default:
		return v, nil
	}
}

// Handle is a capability view over a live host object.
type Handle struct {
	obj     Object
	view    Capability
	session *Session
}

// Capability returns the capability the handle currently exposes.
func (h *Handle) Capability() Capability {
	return h.view
}

// Session returns the session the handle belongs to.
func (h *Handle) Session() *Session {
	return h.session
}

// Same reports whether h and other are views of the same host object.
func (h *Handle) Same(other *Handle) bool {
	return other != nil && h.obj == other.obj
}

// Properties returns the property names exposed by the current view.
func (h *Handle) Properties() []string {
	return append([]string(nil), h.view.Properties...)
}

// Get reads a property. Object references in the result are returned as
// widened handles.
func (h *Handle) Get(name string) (any, error) {
	if err := h.session.check(); err != nil {
		return nil, err
	}
	if !h.view.HasProperty(name) {
		return nil, errors.NewMemberNotFound(h.view.Name, name)
	}
	v, err := h.obj.Get(name)
	if err != nil {
		return nil, fmt.Errorf("get %s.%s: %w", h.view.Name, name, err)
	}
	return h.session.adopt(v)
}

// Set writes a property. Handles passed as values are unwrapped to their object.
func (h *Handle) Set(name string, value any) error {
	if err := h.session.check(); err != nil {
		return err
	}
	if !h.view.HasProperty(name) {
		return errors.NewMemberNotFound(h.view.Name, name)
	}
	if err := h.obj.Set(name, unwrap(value)); err != nil {
		return fmt.Errorf("set %s.%s: %w", h.view.Name, name, err)
	}
	return nil
}

// Call invokes a method. Object references in the result are returned as
// widened handles.
func (h *Handle) Call(method string, args ...any) (any, error) {
	if err := h.session.check(); err != nil {
		return nil, err
	}
	if !h.view.HasMethod(method) {
		return nil, errors.NewMemberNotFound(h.view.Name, method)
	}
	raw := make([]any, len(args))
	for i, a := range args {
		raw[i] = unwrap(a)
	}
	v, err := h.obj.Invoke(method, raw...)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", h.view.Name, method, err)
	}
	return h.session.adopt(v)
}

// CallHandle invokes a method expected to return an object.
func (h *Handle) CallHandle(method string, args ...any) (*Handle, error) {
	v, err := h.Call(method, args...)
	if err != nil {
		return nil, err
	}
	out, ok := v.(*Handle)
	if !ok {
		return nil, fmt.Errorf("call %s.%s: returned %T, not an object", h.view.Name, method, v)
	}
	return out, nil
}

// GetHandle reads a property expected to hold an object.
func (h *Handle) GetHandle(name string) (*Handle, error) {
	v, err := h.Get(name)
	if err != nil {
		return nil, err
	}
	out, ok := v.(*Handle)
	if !ok {
		return nil, fmt.Errorf("get %s.%s: holds %T, not an object", h.view.Name, name, v)
	}
	return out, nil
}

func unwrap(v any) any {
	if h, ok := v.(*Handle); ok {
		return h.obj
	}
	return v
}
