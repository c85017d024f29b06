package tools

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry is the single, process-wide source of truth for tool contracts.
// It is built once via Init and is immutable afterward: concurrent readers
// never observe a partially-registered state and callers never need to lock
// around Lookup/All.
type Registry struct {
	specs      map[Ident]*ToolSpec
	validators map[Ident]*jsonschema.Schema
	order      []Ident
}

var (
	globalMu  sync.RWMutex
	globalReg *Registry
)

// Init compiles and freezes a Registry from the given specs. Each spec's
// ArgsSchema is compiled once here; Dispatch reuses the compiled validator
// for every call so schema parsing never happens on the hot path. Init
// returns an error if any two specs share a Name, or any schema fails to
// compile.
func Init(specs []*ToolSpec) (*Registry, error) {
	reg := &Registry{
		specs:      make(map[Ident]*ToolSpec, len(specs)),
		validators: make(map[Ident]*jsonschema.Schema, len(specs)),
	}
	for _, spec := range specs {
		if spec == nil || spec.Name == "" {
			return nil, fmt.Errorf("tools: spec with empty name")
		}
		if _, dup := reg.specs[spec.Name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool name %q", spec.Name)
		}
		if !spec.SideEffects.IsValid() {
			return nil, fmt.Errorf("tools: tool %q has invalid side_effects %q", spec.Name, spec.SideEffects)
		}
		schema, err := compileSchema(spec.Name, spec.ArgsSchema)
		if err != nil {
			return nil, err
		}
		reg.specs[spec.Name] = spec
		reg.validators[spec.Name] = schema
		reg.order = append(reg.order, spec.Name)
	}
	sort.Slice(reg.order, func(i, j int) bool { return reg.order[i] < reg.order[j] })
	return reg, nil
}

// SetGlobal installs reg as the process-wide registry. Call once at startup
// before serving any turns.
func SetGlobal(reg *Registry) {
	globalMu.Lock()
	globalReg = reg
	globalMu.Unlock()
}

// Global returns the process-wide registry snapshot. Safe for concurrent use.
func Global() *Registry {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalReg
}

// Lookup resolves a tool spec by name.
func (r *Registry) Lookup(name Ident) (*ToolSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Validator returns the compiled JSON Schema validator for a tool.
func (r *Registry) Validator(name Ident) (*jsonschema.Schema, bool) {
	v, ok := r.validators[name]
	return v, ok
}

// All returns every registered tool name in stable sorted order.
func (r *Registry) All() []Ident {
	out := make([]Ident, len(r.order))
	copy(out, r.order)
	return out
}

// InGroup returns the names of tools advertised for the given prompt group,
// in stable sorted order.
func (r *Registry) InGroup(group Group) []Ident {
	var out []Ident
	for _, name := range r.order {
		spec := r.specs[name]
		if !spec.VisibleInPrompt {
			continue
		}
		for _, g := range spec.Groups {
			if g == group {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// InGroups returns the union of InGroup across groups, deduplicated and in
// stable sorted order, so a caller can advertise e.g. "readonly plus write"
// without assembling the set by hand.
func (r *Registry) InGroups(groups ...Group) []Ident {
	want := make(map[Group]struct{}, len(groups))
	for _, g := range groups {
		want[g] = struct{}{}
	}
	var out []Ident
	for _, name := range r.order {
		spec := r.specs[name]
		if !spec.VisibleInPrompt {
			continue
		}
		for _, g := range spec.Groups {
			if _, ok := want[g]; ok {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// DescribeTools renders one "- name: summary" line per ident, in the order
// given, for injection into the Context prompt layer.
func (r *Registry) DescribeTools(idents []Ident) string {
	var b strings.Builder
	for _, id := range idents {
		spec, ok := r.specs[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", spec.Name, spec.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func compileSchema(name Ident, raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		raw = []byte(`{"type":"object"}`)
	}
	uri := "mem://tools/" + string(name) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(uri, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tools: compile schema for %q: %w", name, err)
	}
	schema, err := compiler.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("tools: compile schema for %q: %w", name, err)
	}
	return schema, nil
}
