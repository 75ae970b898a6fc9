package task

import (
	"testing"

	"conker/types"
)

func TestEnvironmentGetSet(t *testing.T) {
	env := NewEnvironment()

	if _, ok := env.Get("x"); ok {
		t.Fatal("expected unbound name to be absent")
	}

	env.Set("x", types.NewInt(5))
	v, ok := env.Get("x")
	if !ok {
		t.Fatal("expected x to be bound")
	}
	if !v.Equal(types.NewInt(5)) {
		t.Fatalf("got %v, want 5", v)
	}

	env.Set("x", types.NewInt(6))
	v, _ = env.Get("x")
	if !v.Equal(types.NewInt(6)) {
		t.Fatalf("rebind: got %v, want 6", v)
	}
}
