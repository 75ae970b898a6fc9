// Package eval implements Conker's tree-walking interpreter (spec component
// E): expression evaluation plus the statement dispatch that suspends a task
// at send/receive by delegating to the channel registry.
package eval

import (
	"context"
	"errors"

	"conker/ast"
	"conker/channel"
	"conker/lexer"
	"conker/magic"
	"conker/task"
	"conker/types"
)

// Evaluator walks one task's AST. The only mutable state it shares with
// other tasks is the channel registry, which is the only rendezvous point,
// and the program-wide cancellation context
// (spec §4.D: "each task instance executes independently, synchronizing
// only through channel operations").
type Evaluator struct {
	Task     *task.Task
	Registry *channel.Registry
	Magic    *magic.Registry

	// Tasks maps every declared task name to its multiplicity (1 for a
	// single-instance task, n for one declared with `[n]`). Resolved once
	// at scheduler startup from the static program, shared read-only by
	// every task's evaluator.
	Tasks map[string]int

	// Allowed is the eligibility set a binding receive (`?name`) matches
	// against: every channel identity connecting this task to a peer
	// (spec §4.C). Computed once per task instance at scheduler startup.
	Allowed map[types.ChanID]bool

	// Ctx is cancelled the instant the program terminates: by `exit`, by
	// a runtime error in any task, or by deadlock (spec §5, §7 — every
	// error class "terminate[s] the whole program").
	Ctx context.Context
	// Cancel requests program-wide termination; called by `exit`.
	Cancel context.CancelCauseFunc
}

// ErrExit is the cancellation cause recorded when a task executes `exit`
// (spec §4.B: "raises the program-global termination signal").
var ErrExit = errors.New("exit")

// New creates an evaluator for t, sharing reg, tasks and mag with every other
// task instance's evaluator in the same program run; allowed is t's own
// eligibility set. mag may be nil, in which case magic.Default() is used.
func New(t *task.Task, reg *channel.Registry, tasks map[string]int, allowed map[types.ChanID]bool, mag *magic.Registry, ctx context.Context, cancel context.CancelCauseFunc) *Evaluator {
	if mag == nil {
		mag = magic.Default()
	}
	return &Evaluator{Task: t, Registry: reg, Tasks: tasks, Allowed: allowed, Magic: mag, Ctx: ctx, Cancel: cancel}
}

// Eval evaluates an expression node and returns its Result.
func (e *Evaluator) Eval(expr ast.Expr) types.Result {
	switch n := expr.(type) {
	case *ast.LiteralExpr:
		return types.Ok(n.Value)
	case *ast.IdentifierExpr:
		return e.evalIdentifier(n)
	case *ast.MagicExpr:
		return e.evalMagic(n)
	case *ast.IndexExpr:
		return e.evalIndexExpr(n)
	case *ast.UnaryExpr:
		return e.evalUnary(n)
	case *ast.BinaryExpr:
		return e.evalBinaryExpr(n)
	case *ast.ParenExpr:
		return e.Eval(n.Expr)
	default:
		return types.Err(types.ErrType)
	}
}

// evalIdentifier resolves a bare name in lookup order: task-local binding,
// then task reference, per spec §4.E ("Name lookup"). A bare reference to
// a multi-task is a ChannelError (spec §9 Open Questions); an unbound name
// that names no task is a NameError.
func (e *Evaluator) evalIdentifier(n *ast.IdentifierExpr) types.Result {
	if v, ok := e.Task.Env.Get(n.Name); ok {
		return types.Ok(v)
	}

	arity, isTask := e.Tasks[n.Name]
	if !isTask {
		return types.Err(types.ErrName)
	}
	if arity > 1 {
		return types.Err(types.ErrChannel)
	}

	target := channel.Instance{Task: n.Name, Index: 0}
	id := e.Registry.IdentityFor(e.Task.Instance, target)
	return types.Ok(types.NewChanRef(id))
}

// evalMagic resolves a magic reference through the magic endpoint registry
// (spec §4.C Magic channels, §3 Identifier kinds).
func (e *Evaluator) evalMagic(n *ast.MagicExpr) types.Result {
	return e.Magic.Resolve(n.Name, e.Task)
}

// evalIndexExpr resolves `Name[i]` to the channel identity shared with one
// instance of a multi-task (spec §3: "Name[expr]... denotes a single
// instance"). An index outside [0, n) is a ChannelError.
func (e *Evaluator) evalIndexExpr(n *ast.IndexExpr) types.Result {
	arity, ok := e.Tasks[n.Task]
	if !ok {
		return types.Err(types.ErrName)
	}

	idx := e.Eval(n.Index)
	if !idx.IsNormal() {
		return idx
	}
	iv, ok := idx.Val.(types.IntValue)
	if !ok {
		return types.Err(types.ErrType)
	}
	if iv.Val < 0 || iv.Val >= int64(arity) {
		return types.Err(types.ErrChannel)
	}

	target := channel.Instance{Task: n.Task, Index: int(iv.Val)}
	id := e.Registry.IdentityFor(e.Task.Instance, target)
	return types.Ok(types.NewChanRef(id))
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr) types.Result {
	operand := e.Eval(n.Operand)
	if !operand.IsNormal() {
		return operand
	}
	switch n.Operator {
	case lexer.TOKEN_MINUS:
		return evalUnaryMinus(operand.Val)
	default:
		return types.Err(types.ErrType)
	}
}

func (e *Evaluator) evalBinaryExpr(n *ast.BinaryExpr) types.Result {
	left := e.Eval(n.Left)
	if !left.IsNormal() {
		return left
	}
	right := e.Eval(n.Right)
	if !right.IsNormal() {
		return right
	}
	return evalBinaryOp(n.Operator, left.Val, right.Val)
}
