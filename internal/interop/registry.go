// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"sort"
	"sync"
)

// DefaultInterfaces lists the host interfaces known to be returned in their
// generic form even though callers need their concrete members.
var DefaultInterfaces = []string{
	"ZOSAPI.Editors.IEditorRow",
	"ZOSAPI.Analysis.Settings.IAS_",
	"ZOSAPI.Tools.ISystemTool",
	"ZOSAPI.Editors.LDE.ISurfaceTypeSettings",
}

// Registry is an append-only set of capability names eligible for widening.
// Register entries before the corresponding handles are retrieved.
type Registry struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewRegistry creates a registry holding the given names.
func NewRegistry(names ...string) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(names))}
	r.Register(names...)
	return r
}

// DefaultRegistry creates a registry populated with DefaultInterfaces.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultInterfaces...)
}

// Register adds names to the registry. Registering a name twice is a no-op.
func (r *Registry) Register(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if n == "" {
			continue
		}
		r.names[n] = struct{}{}
	}
}

// Contains reports whether name has been registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
