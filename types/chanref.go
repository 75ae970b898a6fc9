package types

import "fmt"

// ChanID is a compact integer handle into the channel registry (spec §9:
// "ChannelRef is a small opaque handle... e.g. a compact integer ID").
type ChanID int64

// ChanValue is the Value wrapper around a ChanID. It carries no behavior of
// its own — the registry owning the ID is the only place rendezvous state
// lives, per the invariant that channels hold no state when idle.
type ChanValue struct {
	ID ChanID
}

// NewChanRef wraps a channel identity as a Value.
func NewChanRef(id ChanID) ChanValue {
	return ChanValue{ID: id}
}

func (c ChanValue) Type() TypeCode { return TYPE_CHANREF }

// String renders an opaque tag; Conker programs never need to parse it back.
func (c ChanValue) String() string {
	return fmt.Sprintf("chan#%d", c.ID)
}

// Equal is identity-based: two ChannelRefs are equal only if they name the
// same channel identity (spec §3: "identity-based for ChannelRef").
func (c ChanValue) Equal(other Value) bool {
	if other == nil {
		return false
	}
	o, ok := other.(ChanValue)
	if !ok {
		return false
	}
	return c.ID == o.ID
}

// Truthy: a ChannelRef is always truthy (spec §4.A).
func (c ChanValue) Truthy() bool { return true }
