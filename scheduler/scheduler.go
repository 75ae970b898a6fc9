// Package scheduler runs a whole Conker program (spec component D): it
// expands each task declaration into its task instances, computes the
// static peer set each binding receive is eligible against, and spawns one
// goroutine per instance, joining them with an errgroup.Group the same way
// the teacher's own goroutine-fleet supervisors join their workers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"conker/ast"
	"conker/channel"
	"conker/eval"
	"conker/magic"
	"conker/task"
	"conker/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNonConstantMultiplicity is returned when a `T[n]` declaration's count
// is not a positive literal integer. Conker resolves task multiplicity once
// at program start (spec §3 "Task instance"), so the scheduler requires it
// to already be a constant by the time a program reaches it.
var ErrNonConstantMultiplicity = errors.New("scheduler: task multiplicity must be a positive literal integer")

// Options configures a program run.
type Options struct {
	Log   zerolog.Logger
	Seed  *int64          // CONKER_SEED, nil selects FIFO tie-break (spec §6, §9)
	Out   channel.OutFunc // sink for $out; cmd/conker wires this to stdout
	Magic *magic.Registry // nil selects magic.Default()
}

// Scheduler owns the channel registry and every task instance for one
// program run.
type Scheduler struct {
	log zerolog.Logger

	reg   *channel.Registry
	magic *magic.Registry
	tasks map[string]int

	instances []*task.Task
	runID     uuid.UUID
}

// New resolves every task's multiplicity, expands multi-tasks into their
// individual instances, and builds the shared channel registry sized for
// the total instance count.
func New(prog *ast.Program, opts Options) (*Scheduler, error) {
	tasks, err := taskArities(prog)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range tasks {
		total += n
	}

	mag := opts.Magic
	if mag == nil {
		mag = magic.Default()
	}

	s := &Scheduler{
		log:   opts.Log,
		reg:   channel.NewRegistry(opts.Log, total, opts.Seed, opts.Out),
		magic: mag,
		tasks: tasks,
		runID: uuid.New(),
	}

	for _, def := range prog.Tasks {
		arity := tasks[def.Name]
		multi := def.Count != nil
		for i := 0; i < arity; i++ {
			s.instances = append(s.instances, task.New(def.Name, i, multi, def.Body))
		}
	}

	s.log.Debug().
		Str("run_id", s.runID.String()).
		Int("task_instances", len(s.instances)).
		Msg("scheduler initialized")

	return s, nil
}

// taskArities resolves every declared task's multiplicity: 1 for a
// single-instance task, or the literal integer `n` for one declared `T[n]`.
func taskArities(prog *ast.Program) (map[string]int, error) {
	tasks := make(map[string]int, len(prog.Tasks))
	for _, def := range prog.Tasks {
		if def.Count == nil {
			tasks[def.Name] = 1
			continue
		}
		lit, ok := def.Count.(*ast.LiteralExpr)
		if !ok {
			return nil, fmt.Errorf("%w: task %q", ErrNonConstantMultiplicity, def.Name)
		}
		iv, ok := lit.Value.(types.IntValue)
		if !ok || iv.Val <= 0 {
			return nil, fmt.Errorf("%w: task %q", ErrNonConstantMultiplicity, def.Name)
		}
		tasks[def.Name] = int(iv.Val)
	}
	return tasks, nil
}

// peersOf returns every task instance in the program other than self: the
// full candidate set a binding receive may match against (spec §4.C; the
// spec places no restriction narrower than "every other task instance" on
// who may be bound).
func (s *Scheduler) peersOf(self channel.Instance) []channel.Instance {
	peers := make([]channel.Instance, 0, len(s.instances))
	for _, t := range s.instances {
		if t.Instance == self {
			continue
		}
		peers = append(peers, t.Instance)
	}
	return peers
}

// Outcome is the result of a whole program run (spec §7 "Error handling",
// §5 "Program termination").
type Outcome struct {
	ExitCode int
	Error    types.ErrorCode // types.ErrNone on a clean run
}

// outcome captures the first runtime error observed across every task
// goroutine, under a mutex since multiple tasks can fail concurrently.
type outcome struct {
	mu    sync.Mutex
	has   bool
	code  types.ErrorCode
	task  string
	index int
}

func (o *outcome) record(code types.ErrorCode, taskName string, index int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.has {
		o.has = true
		o.code = code
		o.task = taskName
		o.index = index
	}
}

// Run spawns one goroutine per task instance and blocks until every one has
// finished: by running off the end of its body, by `exit`, by a runtime
// error, or by program-wide cancellation reaching its next statement
// boundary (spec §4.D, §5, §7).
func (s *Scheduler) Run(ctx context.Context) Outcome {
	gctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var g errgroup.Group
	var oc outcome

	for _, t := range s.instances {
		t := t
		allowed := s.reg.AllowedChannels(t.Instance, s.peersOf(t.Instance))
		ev := eval.New(t, s.reg, s.tasks, allowed, s.magic, gctx, cancel)

		g.Go(func() error {
			defer s.reg.Finish()

			result := ev.EvalBlock(t.Body)
			switch {
			case result.IsError():
				t.Fail(errors.New(result.Error.Message()))
				s.log.Error().
					Str("task", t.Name()).Int("index", t.Index).
					Str("error", result.Error.String()).
					AnErr("cause", t.Err()).
					Msg("task terminated with a runtime error")
				oc.record(result.Error, t.Name(), t.Index)
				cancel(fmt.Errorf("task %s[%d]: %s", t.Name(), t.Index, result.Error))
			case result.IsExit():
				t.SetState(task.StateKilled)
			default:
				t.SetState(task.StateCompleted)
			}
			s.log.Debug().
				Str("task", t.Name()).Int("index", t.Index).
				Str("state", t.GetState().String()).Bool("done", t.Done()).
				Msg("task goroutine exiting")
			return nil
		})
	}

	_ = g.Wait()

	if oc.has {
		s.log.Warn().
			Str("failing_task", oc.task).Int("index", oc.index).
			Str("error", oc.code.String()).
			Msg("program terminated with an error")
		return Outcome{ExitCode: exitCodeFor(oc.code), Error: oc.code}
	}
	return Outcome{ExitCode: 0, Error: types.ErrNone}
}

// exitCodeFor maps a runtime error class to a process exit code (spec §7:
// every error class "terminates the whole program"; the exact code is an
// engineering detail the spec leaves to the host program).
func exitCodeFor(code types.ErrorCode) int {
	switch code {
	case types.ErrNone:
		return 0
	case types.ErrType:
		return 2
	case types.ErrArithmetic:
		return 3
	case types.ErrName:
		return 4
	case types.ErrChannel:
		return 5
	case types.ErrDeadlock:
		return 6
	default:
		return 1
	}
}
