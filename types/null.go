package types

// NullValue represents Conker's single Null value.
type NullValue struct{}

// Null is the sole NullValue instance; Null is falsy and equal only to itself.
var Null = NullValue{}

func (n NullValue) Type() TypeCode { return TYPE_NULL }

func (n NullValue) String() string { return "null" }

// Equal: Null equals Null and nothing else, per spec §4.A.
func (n NullValue) Equal(other Value) bool {
	if other == nil {
		return false
	}
	_, ok := other.(NullValue)
	return ok
}

// Truthy: Null is always falsy (spec §9 Open Questions).
func (n NullValue) Truthy() bool { return false }
