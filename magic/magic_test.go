package magic

import (
	"testing"

	"conker/channel"
	"conker/task"
	"conker/types"
)

func TestDefaultOutResolvesToOutChannel(t *testing.T) {
	r := Default()
	tk := task.New("Main", 0, false, nil)

	result := r.Resolve("out", tk)
	if !result.IsNormal() {
		t.Fatalf("expected normal result, got %v", result)
	}
	cv, ok := result.Val.(types.ChanValue)
	if !ok {
		t.Fatalf("expected ChanValue, got %T", result.Val)
	}
	if cv.ID != channel.OutChannelID {
		t.Fatalf("got chan id %d, want %d", cv.ID, channel.OutChannelID)
	}
}

func TestDefaultIndexOutsideMultiTaskIsNameError(t *testing.T) {
	r := Default()
	tk := task.New("Main", 0, false, nil)

	result := r.Resolve("index", tk)
	if !result.IsError() || result.Error != types.ErrName {
		t.Fatalf("got %v, want NameError", result)
	}
}

func TestDefaultIndexInsideMultiTask(t *testing.T) {
	r := Default()
	tk := task.New("Printer", 3, true, nil)

	result := r.Resolve("index", tk)
	if !result.IsNormal() {
		t.Fatalf("expected normal result, got %v", result)
	}
	iv, ok := result.Val.(types.IntValue)
	if !ok || iv.Val != 3 {
		t.Fatalf("got %v, want Integer(3)", result.Val)
	}
}

func TestUnknownNameIsNameError(t *testing.T) {
	r := NewRegistry()
	tk := task.New("Main", 0, false, nil)

	result := r.Resolve("bogus", tk)
	if !result.IsError() || result.Error != types.ErrName {
		t.Fatalf("got %v, want NameError", result)
	}
}

func TestRegisterAddsEndpoint(t *testing.T) {
	r := NewRegistry()
	r.Register("answer", func(t *task.Task) types.Result {
		return types.Ok(types.NewInt(42))
	})

	result := r.Resolve("answer", task.New("Main", 0, false, nil))
	if !result.IsNormal() {
		t.Fatalf("expected normal result, got %v", result)
	}
	iv, ok := result.Val.(types.IntValue)
	if !ok || iv.Val != 42 {
		t.Fatalf("got %v, want Integer(42)", result.Val)
	}
}
