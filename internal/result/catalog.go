// SPDX-License-Identifier: Apache-2.0

package result

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

const preludeFile = "schemas/prelude.cue"

// KindSpec declares an analysis kind: its data shape, the names of its data
// and settings schemas, and the CUE source defining #Data and #Settings.
type KindSpec struct {
	Name           string
	Version        int
	Shape          Shape
	DataSchema     string
	SettingsSchema string
	Module         string
	// Schema is CUE source defining #Data and #Settings. Definitions from
	// the shared prelude (#Number, #Quantity, #Table, #All) are in scope.
	Schema string
}

// Metadata returns the metadata block a record of this kind carries.
func (k KindSpec) Metadata() Metadata {
	return Metadata{
		Analysis: k.Name,
		Version:  k.Version,
		Data:     DataMetadata{Shape: k.Shape, Schema: k.DataSchema, Module: k.Module},
		Settings: SettingsMetadata{Schema: k.SettingsSchema, Module: k.Module},
	}
}

type kind struct {
	spec     KindSpec
	data     cue.Value
	settings cue.Value
}

// Catalog holds the known analysis kinds and validates records against them.
// A Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.Mutex
	ctx     *cue.Context
	prelude string
	kinds   map[string]*kind
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	prelude, err := schemaFS.ReadFile(preludeFile)
	if err != nil {
		panic(fmt.Sprintf("result: embedded prelude: %v", err))
	}
	return &Catalog{
		ctx:     cuecontext.New(),
		prelude: string(prelude),
		kinds:   make(map[string]*kind),
	}
}

var builtinKinds = []KindSpec{
	{
		Name:           "fft_mtf",
		Version:        1,
		Shape:          ShapeTabular,
		DataSchema:     "FftMtfTable",
		SettingsSchema: "FftMtfSettings",
		Module:         "zosgo.analyses.mtf.fft_mtf",
	},
	{
		Name:           "field_curvature_and_distortion",
		Version:        1,
		Shape:          ShapeTabular,
		DataSchema:     "FieldCurvatureAndDistortionTable",
		SettingsSchema: "FieldCurvatureAndDistortionSettings",
		Module:         "zosgo.analyses.raysandspots.field_curvature_and_distortion",
	},
	{
		Name:           "zernike_standard_coefficients",
		Version:        1,
		Shape:          ShapeStructured,
		DataSchema:     "ZernikeStandardCoefficients",
		SettingsSchema: "ZernikeStandardCoefficientsSettings",
		Module:         "zosgo.analyses.wavefront.zernike_standard_coefficients",
	},
	{
		Name:           "wavefront_map",
		Version:        1,
		Shape:          ShapeStructured,
		DataSchema:     "WavefrontMap",
		SettingsSchema: "WavefrontMapSettings",
		Module:         "zosgo.analyses.wavefront.wavefront_map",
	},
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the shared catalog of built-in analysis kinds.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := BuiltinCatalog()
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// BuiltinCatalog creates a new catalog holding the built-in analysis kinds.
func BuiltinCatalog() (*Catalog, error) {
	c := NewCatalog()
	for _, spec := range builtinKinds {
		src, err := schemaFS.ReadFile(path.Join("schemas", spec.Name+".cue"))
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", spec.Name, err)
		}
		spec.Schema = string(src)
		if err := c.Register(spec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register compiles the kind's schema and adds it to the catalog,
// replacing any kind of the same name.
func (c *Catalog) Register(spec KindSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("register kind: empty name")
	}
	if spec.Shape != ShapeTabular && spec.Shape != ShapeStructured {
		return fmt.Errorf("register kind %s: unknown shape %q", spec.Name, spec.Shape)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.ctx.CompileString(c.prelude+"\n"+spec.Schema, cue.Filename(spec.Name+".cue"))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile schema for %s: %w", spec.Name, err)
	}
	data := v.LookupPath(cue.ParsePath("#Data"))
	if !data.Exists() {
		return fmt.Errorf("schema for %s: missing #Data", spec.Name)
	}
	settings := v.LookupPath(cue.ParsePath("#Settings"))
	if !settings.Exists() {
		return fmt.Errorf("schema for %s: missing #Settings", spec.Name)
	}

	c.kinds[spec.Name] = &kind{spec: spec, data: data, settings: settings}
	return nil
}

// Lookup returns the spec of a registered kind.
func (c *Catalog) Lookup(name string) (KindSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.kinds[name]
	if !ok {
		return KindSpec{}, false
	}
	return k.spec, true
}

// Kinds returns the registered kinds sorted by name.
func (c *Catalog) Kinds() []KindSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]KindSpec, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, k.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) kind(name string) (*kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.kinds[name]
	return k, ok
}
