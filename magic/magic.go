// Package magic implements Conker's magic channel surface (spec component
// F): the small set of pseudo-channel names the evaluator resolves
// specially. It is a registry of named endpoints rather than a hardwired
// switch, mirroring the teacher's builtins.Registry pattern of registering
// named functions into one map (spec §4.F: "additional magic endpoints...
// but does not require them").
package magic

import (
	"conker/channel"
	"conker/task"
	"conker/types"
)

// Resolver produces the Result a magic name evaluates to for one task
// instance. $index needs the caller's task; $out does not.
type Resolver func(t *task.Task) types.Result

// Registry holds the named magic endpoints known to the evaluator, keyed
// without the leading '$'.
type Registry struct {
	endpoints map[string]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[string]Resolver)}
}

// Register adds or replaces the endpoint named name.
func (r *Registry) Register(name string, resolve Resolver) {
	r.endpoints[name] = resolve
}

// Resolve evaluates the endpoint named name for task t. An unrecognized name
// is a NameError, the same error an unbound local identifier raises (spec
// §4.F, §9 Open Questions).
func (r *Registry) Resolve(name string, t *task.Task) types.Result {
	resolve, ok := r.endpoints[name]
	if !ok {
		return types.Err(types.ErrName)
	}
	return resolve(t)
}

// Default builds the registry the runtime ships with: $out and $index (spec
// §3 "Identifier kinds", §4.C "Magic channels").
func Default() *Registry {
	r := NewRegistry()
	r.Register("out", func(t *task.Task) types.Result {
		return types.Ok(types.NewChanRef(channel.OutChannelID))
	})
	r.Register("index", func(t *task.Task) types.Result {
		if !t.Multi {
			return types.Err(types.ErrName)
		}
		return types.Ok(types.NewInt(int64(t.Index)))
	})
	return r
}
