package types

// ErrorCode identifies a runtime error class raised while evaluating a task.
// Conker errors are not catchable by Conker code (spec §7): any ErrorCode
// other than ErrNone terminates the whole program, the same way exit() does,
// but with a nonzero status and a diagnostic naming the offending task.
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	// ErrType: operation attempted on incompatible value variants.
	ErrType
	// ErrArithmetic: division by zero (or, if ever checked, overflow).
	ErrArithmetic
	// ErrName: reference to an unbound local binding.
	ErrName
	// ErrChannel: send/receive against a non-channel target, or a bare
	// reference to a multi-task used as a channel endpoint.
	ErrChannel
	// ErrDeadlock: every task is suspended and no rendezvous is possible.
	ErrDeadlock
)

// String names the error code the way diagnostics report it.
func (e ErrorCode) String() string {
	switch e {
	case ErrNone:
		return "NoError"
	case ErrType:
		return "TypeError"
	case ErrArithmetic:
		return "ArithmeticError"
	case ErrName:
		return "NameError"
	case ErrChannel:
		return "ChannelError"
	case ErrDeadlock:
		return "Deadlock"
	default:
		return "UnknownError"
	}
}

// Message is a human-readable description of the error code.
func (e ErrorCode) Message() string {
	switch e {
	case ErrNone:
		return "no error"
	case ErrType:
		return "incompatible value types"
	case ErrArithmetic:
		return "division by zero"
	case ErrName:
		return "unbound name"
	case ErrChannel:
		return "invalid channel target"
	case ErrDeadlock:
		return "every task is suspended and no rendezvous is possible"
	default:
		return "unknown error"
	}
}

// Value is the interface every Conker runtime value implements. Values are
// immutable and value-semantic: copying a Value never aliases mutable state.
type Value interface {
	Type() TypeCode
	String() string   // textual rendering, used verbatim by $out
	Equal(Value) bool // structural for Integer/Boolean/Null, identity for ChannelRef
	Truthy() bool     // Null is false, Boolean is itself, Integer is nonzero, ChannelRef is true
}
