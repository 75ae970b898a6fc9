package task

import "conker/types"

// Environment is a task's local binding environment: a flat name → value
// map (spec §3 "Task instance": "a local binding environment"). Conker has
// no nested lexical scopes — loop/while/if bodies share their task's single
// environment, unlike the teacher's verb-call-stack-scoped Environment.
type Environment struct {
	vars map[string]types.Value
}

// NewEnvironment creates an empty environment. $index is not stored here:
// it is a magic endpoint (spec §3 "Identifier kinds"), resolved by the
// evaluator from the task instance, not looked up in local bindings.
func NewEnvironment() *Environment {
	return &Environment{vars: make(map[string]types.Value)}
}

// Get looks up a task-local binding.
func (e *Environment) Get(name string) (types.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set binds or rebinds a task-local name (spec §4.E: "On assignment, bind or
// rebind").
func (e *Environment) Set(name string, v types.Value) {
	e.vars[name] = v
}
