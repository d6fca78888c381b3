// SPDX-License-Identifier: Apache-2.0

package interop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosgo/zosgo/internal/errors"
	"github.com/zosgo/zosgo/internal/interop"
)

const (
	ifaceRow      = "ZOSAPI.Editors.IEditorRow"
	concreteRow   = "ZOSAPI.Editors.LDE.ILDERow"
	ifaceSettings = "ZOSAPI.Analysis.Settings.IAS_"
	fftSettings   = "ZOSAPI.Analysis.Settings.Mtf.IAS_FftMtf"
	ifaceSystem   = "ZOSAPI.IOpticalSystem"
)

func testTypes() interop.MapTypes {
	return interop.MapTypes{}.Add(
		interop.Capability{Name: ifaceRow, Interface: true, Properties: []string{"RowIndex"}},
		interop.Capability{Name: concreteRow, Properties: []string{"RowIndex", "Radius", "Thickness"}},
		interop.Capability{Name: ifaceSettings, Interface: true},
		interop.Capability{Name: fftSettings, Properties: []string{"SampleSize", "MaximumFrequency"}},
		interop.Capability{Name: ifaceSystem, Interface: true, Properties: []string{"LDE"}, Methods: []string{"GetRow"}},
	)
}

func newSession(names ...string) *interop.Session {
	reg := interop.NewRegistry(names...)
	return interop.NewSession(interop.NewResolver(testTypes(), reg))
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry_Closure(t *testing.T) {
	reg := interop.NewRegistry()
	names := []string{ifaceRow, ifaceSettings, "Vendor.Unknown.IThing"}
	for _, n := range names {
		assert.False(t, reg.Contains(n))
	}

	reg.Register(names...)
	reg.Register(ifaceRow) // idempotent

	for _, n := range names {
		assert.True(t, reg.Contains(n), n)
	}
	assert.Len(t, reg.Names(), 3)
	assert.False(t, reg.Contains("ZOSAPI.Never.Registered"))
}

func TestDefaultRegistry(t *testing.T) {
	reg := interop.DefaultRegistry()
	assert.Equal(t, len(interop.DefaultInterfaces), len(reg.Names()))
	assert.True(t, reg.Contains(ifaceSettings))
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

func TestResolver_CanResolve(t *testing.T) {
	r := interop.NewResolver(testTypes(), interop.NewRegistry(ifaceRow, concreteRow, "Vendor.Unknown.IThing"))

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "registered interface", in: ifaceRow, want: true},
		{name: "unregistered interface", in: ifaceSettings, want: false},
		{name: "registered concrete class", in: concreteRow, want: false},
		{name: "registered but unknown to host", in: "Vendor.Unknown.IThing", want: false},
		{name: "empty", in: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.CanResolve(tt.in))
		})
	}
}

func TestResolver_ResolveSharesObject(t *testing.T) {
	reg := interop.NewRegistry()
	r := interop.NewResolver(testTypes(), reg)
	s := interop.NewSession(r)
	obj := interop.NewMapObject(concreteRow, map[string]any{"RowIndex": 3, "Radius": 50.0, "Thickness": 2.0})

	generic, err := s.Attach(obj, ifaceRow)
	require.NoError(t, err)
	assert.Equal(t, ifaceRow, generic.Capability().Name)

	reg.Register(ifaceRow)
	resolved, err := r.Resolve(generic)
	require.NoError(t, err)
	assert.Equal(t, concreteRow, resolved.Capability().Name)
	assert.True(t, resolved.Same(generic))
	assert.Equal(t, ifaceRow, generic.Capability().Name, "resolve must not mutate the original view")

	require.NoError(t, resolved.Set("Radius", 75.0))
	assert.Equal(t, 75.0, obj.Props["Radius"])

	require.NoError(t, generic.Set("RowIndex", 4))
	idx, err := resolved.Get("RowIndex")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)
}

func TestResolver_UnregisteredKeepsGenericView(t *testing.T) {
	s := newSession()
	obj := interop.NewMapObject(concreteRow, map[string]any{"RowIndex": 1, "Radius": 10.0})

	h, err := s.Attach(obj, ifaceRow)
	require.NoError(t, err)
	assert.Equal(t, ifaceRow, h.Capability().Name)

	_, err = h.Get("Radius")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMemberNotFound))

	idx, err := h.Get("RowIndex")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	same, err := s.Resolver().Resolve(h)
	require.NoError(t, err)
	assert.Same(t, h, same)
}

func TestResolver_ResolutionError(t *testing.T) {
	s := newSession(ifaceRow)
	obj := interop.NewMapObject("ZOSAPI.Editors.LDE.IMissingRow", nil)

	_, err := s.Attach(obj, ifaceRow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrResolution))
}

func TestResolver_UnknownDeclaredCapability(t *testing.T) {
	s := newSession("Vendor.Unknown.IThing")
	obj := interop.NewMapObject(concreteRow, nil)

	h, err := s.Attach(obj, "Vendor.Unknown.IThing")
	require.NoError(t, err)
	assert.Equal(t, "Vendor.Unknown.IThing", h.Capability().Name)
	assert.Empty(t, h.Properties())
}

// ---------------------------------------------------------------------------
// Session and handles
// ---------------------------------------------------------------------------

func TestHandle_TransparentWidening(t *testing.T) {
	s := newSession(ifaceSettings, ifaceRow)
	settings := interop.NewMapObject(fftSettings, map[string]any{"SampleSize": "S_64x64", "MaximumFrequency": 0.0})
	rows := []any{
		interop.Ref{Object: interop.NewMapObject(concreteRow, map[string]any{"RowIndex": 0}), Declared: ifaceRow},
		interop.Ref{Object: interop.NewMapObject(concreteRow, map[string]any{"RowIndex": 1}), Declared: ifaceRow},
	}
	system := interop.NewMapObject("ZOSAPI.OpticalSystem", map[string]any{
		"LDE": rows,
	}).WithMethod("GetRow", func(args ...any) (any, error) {
		return interop.Ref{Object: settings, Declared: ifaceSettings}, nil
	})

	// The system interface is not registered, so its generic view is used as is.
	root, err := s.Attach(system, ifaceSystem)
	require.NoError(t, err)
	assert.Equal(t, ifaceSystem, root.Capability().Name)

	sh, err := root.CallHandle("GetRow", 0)
	require.NoError(t, err)
	assert.Equal(t, fftSettings, sh.Capability().Name)
	v, err := sh.Get("SampleSize")
	require.NoError(t, err)
	assert.Equal(t, "S_64x64", v)

	lde, err := root.Get("LDE")
	require.NoError(t, err)
	list, ok := lde.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	for _, e := range list {
		h, ok := e.(*interop.Handle)
		require.True(t, ok)
		assert.Equal(t, concreteRow, h.Capability().Name)
	}
}

func TestSession_ClosedHandlesFailLoudly(t *testing.T) {
	s := newSession(ifaceRow)
	obj := interop.NewMapObject(concreteRow, map[string]any{"RowIndex": 2, "Radius": 1.0})
	h, err := s.Attach(obj, ifaceRow)
	require.NoError(t, err)

	s.Close()
	assert.True(t, s.Closed())

	_, err = h.Get("Radius")
	assert.True(t, errors.Is(err, errors.ErrSessionClosed))
	err = h.Set("Radius", 2.0)
	assert.True(t, errors.Is(err, errors.ErrSessionClosed))
	_, err = h.Call("Anything")
	assert.True(t, errors.Is(err, errors.ErrSessionClosed))
	_, err = s.Attach(obj, ifaceRow)
	assert.True(t, errors.Is(err, errors.ErrSessionClosed))
	assert.Equal(t, 1.0, obj.Props["Radius"])
}

func TestHandle_CallUnknownMethod(t *testing.T) {
	s := newSession(ifaceRow)
	h, err := s.Attach(interop.NewMapObject(concreteRow, nil), ifaceRow)
	require.NoError(t, err)

	_, err = h.Call("Delete")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMemberNotFound))
}

func TestHandle_SetUnwrapsHandles(t *testing.T) {
	types := testTypes().Add(interop.Capability{Name: "ZOSAPI.Holder", Properties: []string{"Row"}})
	s := interop.NewSession(interop.NewResolver(types, interop.NewRegistry(ifaceRow)))
	row := interop.NewMapObject(concreteRow, nil)
	holder := interop.NewMapObject("ZOSAPI.Holder", map[string]any{"Row": nil})

	rh, err := s.Attach(row, ifaceRow)
	require.NoError(t, err)
	hh, err := s.Attach(holder, "ZOSAPI.Holder")
	require.NoError(t, err)

	require.NoError(t, hh.Set("Row", rh))
	assert.Same(t, row, holder.Props["Row"])
}
