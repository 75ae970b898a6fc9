package eval

import (
	"conker/ast"
	"conker/channel"
	"conker/task"
	"conker/types"
)

// EvalBlock runs a block's statements in order, stopping at the first one
// that doesn't complete normally (spec §4.B: a block is a plain sequence,
// there is no implicit value).
func (e *Evaluator) EvalBlock(block *ast.Block) types.Result {
	for _, stmt := range block.Stmts {
		result := e.EvalStmt(stmt)
		if !result.IsNormal() {
			return result
		}
	}
	return types.Ok(types.Null)
}

// EvalStmt evaluates one statement. Cancellation is checked first, matching
// the rule that a task stops at the next statement boundary once the
// program has begun terminating (spec §5: cancellation reaches every
// suspended and every running task).
func (e *Evaluator) EvalStmt(stmt ast.Stmt) types.Result {
	select {
	case <-e.Ctx.Done():
		return types.Exit()
	default:
	}

	switch s := stmt.(type) {
	case *ast.Assignment:
		return e.evalAssignment(s)
	case *ast.Loop:
		return e.evalLoop(s)
	case *ast.While:
		return e.evalWhile(s)
	case *ast.If:
		return e.evalIf(s)
	case *ast.Exit:
		return e.evalExit(s)
	case *ast.Send:
		return e.evalSend(s)
	case *ast.Receive:
		return e.evalReceive(s)
	default:
		return types.Err(types.ErrType)
	}
}

func (e *Evaluator) evalAssignment(s *ast.Assignment) types.Result {
	v := e.Eval(s.Value)
	if !v.IsNormal() {
		return v
	}
	e.Task.Env.Set(s.Target, v.Val)
	return types.Ok(types.Null)
}

func (e *Evaluator) evalLoop(s *ast.Loop) types.Result {
	for {
		result := e.EvalBlock(s.Body)
		if !result.IsNormal() {
			return result
		}
	}
}

func (e *Evaluator) evalWhile(s *ast.While) types.Result {
	for {
		cond := e.Eval(s.Condition)
		if !cond.IsNormal() {
			return cond
		}
		if !cond.Val.Truthy() {
			return types.Ok(types.Null)
		}
		result := e.EvalBlock(s.Body)
		if !result.IsNormal() {
			return result
		}
	}
}

func (e *Evaluator) evalIf(s *ast.If) types.Result {
	cond := e.Eval(s.Condition)
	if !cond.IsNormal() {
		return cond
	}
	if cond.Val.Truthy() {
		return e.EvalBlock(s.Then)
	}
	if s.Else != nil {
		return e.EvalBlock(s.Else)
	}
	return types.Ok(types.Null)
}

func (e *Evaluator) evalExit(s *ast.Exit) types.Result {
	e.Cancel(ErrExit)
	return types.Exit()
}

// evalSend evaluates the value and the channel-expression, then delegates
// to the registry, the only place a task actually suspends (spec §4.E).
func (e *Evaluator) evalSend(s *ast.Send) types.Result {
	value := e.Eval(s.Value)
	if !value.IsNormal() {
		return value
	}

	target := e.Eval(s.Channel)
	if !target.IsNormal() {
		return target
	}
	chRef, ok := target.Val.(types.ChanValue)
	if !ok {
		return types.Err(types.ErrChannel)
	}

	e.Task.SetState(task.StateSuspended)
	err := e.Registry.Send(e.Ctx, e.Task.Instance, chRef.ID, value.Val)
	e.Task.SetState(task.StateRunning)
	if err != nil {
		return resultForSuspendError(err)
	}
	return types.Ok(types.Null)
}

// evalReceive dispatches to an explicit receive or a binding receive
// depending on the channel-spec (spec §4.C).
func (e *Evaluator) evalReceive(s *ast.Receive) types.Result {
	if s.Channel.IsBinding {
		return e.evalBindingReceive(s)
	}
	return e.evalExplicitReceive(s)
}

func (e *Evaluator) evalExplicitReceive(s *ast.Receive) types.Result {
	target := e.Eval(s.Channel.Explicit)
	if !target.IsNormal() {
		return target
	}
	chRef, ok := target.Val.(types.ChanValue)
	if !ok {
		return types.Err(types.ErrChannel)
	}

	e.Task.SetState(task.StateSuspended)
	value, err := e.Registry.Receive(e.Ctx, e.Task.Instance, chRef.ID)
	e.Task.SetState(task.StateRunning)
	if err != nil {
		return resultForSuspendError(err)
	}
	e.bindReceived(s.Target, value)
	return types.Ok(types.Null)
}

// evalBindingReceive matches against any pending send on a channel this
// task is a legitimate counterparty on, binding both the received value
// and the channel identity it arrived on (spec §4.C: `x <- ?c`).
func (e *Evaluator) evalBindingReceive(s *ast.Receive) types.Result {
	e.Task.SetState(task.StateSuspended)
	value, chID, err := e.Registry.ReceiveBinding(e.Ctx, e.Task.Instance, e.Allowed)
	e.Task.SetState(task.StateRunning)
	if err != nil {
		return resultForSuspendError(err)
	}
	e.bindReceived(s.Target, value)
	e.Task.Env.Set(s.Channel.BindName, types.NewChanRef(chID))
	return types.Ok(types.Null)
}

func (e *Evaluator) bindReceived(target string, value types.Value) {
	if target == "_" {
		return
	}
	e.Task.Env.Set(target, value)
}

// resultForSuspendError translates a registry-level suspension outcome
// into the evaluator's Result vocabulary. Deadlock is a runtime error like
// any other (spec §7); program-wide cancellation (exit, or another task's
// error) ends this task normally, not as an exception.
func resultForSuspendError(err error) types.Result {
	if err == channel.ErrDeadlock {
		return types.Err(types.ErrDeadlock)
	}
	return types.Exit()
}
