package eval

import (
	"context"
	"testing"

	"conker/channel"
	"conker/parser"
	"conker/task"
	"conker/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvaluator(name string, index int, multi bool, tasks map[string]int) *Evaluator {
	reg := channel.NewRegistry(zerolog.Nop(), len(tasks), nil, func(types.Value) {})
	tk := task.New(name, index, multi, nil)
	ctx, cancel := context.WithCancelCause(context.Background())
	return New(tk, reg, tasks, map[types.ChanID]bool{}, nil, ctx, cancel)
}

func evalExpr(t *testing.T, ev *Evaluator, input string) types.Result {
	t.Helper()
	p := parser.NewParser(input)
	expr, err := p.ParseExpression(parser.PREC_LOWEST)
	require.NoError(t, err)
	return ev.Eval(expr)
}

func TestEvalLiterals(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	tests := []struct {
		input    string
		expected types.Value
	}{
		{"42", types.NewInt(42)},
		{"true", types.NewBool(true)},
		{"false", types.NewBool(false)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := evalExpr(t, ev, tt.input)
			require.True(t, result.IsNormal())
			assert.True(t, result.Val.Equal(tt.expected))
		})
	}
}

func TestEvalArithmetic(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	tests := []struct {
		input    string
		expected int64
	}{
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"20 / 4", 5},
		{"-7 / 2", -3}, // truncation toward zero
		{"-5", -5},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := evalExpr(t, ev, tt.input)
			require.True(t, result.IsNormal())
			iv, ok := result.Val.(types.IntValue)
			require.True(t, ok)
			assert.Equal(t, tt.expected, iv.Val)
		})
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	result := evalExpr(t, ev, "1 / 0")
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrArithmetic, result.Error)
}

func TestEvalComparisons(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	tests := []struct {
		input    string
		expected bool
	}{
		{"1 < 2", true},
		{"2 < 1", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"true == true", true},
		{"1 == true", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := evalExpr(t, ev, tt.input)
			require.True(t, result.IsNormal())
			bv, ok := result.Val.(types.BoolValue)
			require.True(t, ok)
			assert.Equal(t, tt.expected, bv.Val)
		})
	}
}

func TestEvalTypeErrorOnMixedArithmetic(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	result := evalExpr(t, ev, "1 + true")
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrType, result.Error)
}

func TestEvalUnboundIdentifierIsNameError(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	result := evalExpr(t, ev, "missing")
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrName, result.Error)
}

func TestEvalTaskReferenceProducesChannelRef(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1, "Worker": 1})
	result := evalExpr(t, ev, "Worker")
	require.True(t, result.IsNormal())
	_, ok := result.Val.(types.ChanValue)
	assert.True(t, ok)
}

func TestEvalBareMultiTaskReferenceIsChannelError(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1, "Worker": 3})
	result := evalExpr(t, ev, "Worker")
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrChannel, result.Error)
}

func TestEvalIndexedTaskReference(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1, "Worker": 3})
	result := evalExpr(t, ev, "Worker[1]")
	require.True(t, result.IsNormal())
	_, ok := result.Val.(types.ChanValue)
	assert.True(t, ok)
}

func TestEvalIndexOutOfRangeIsChannelError(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1, "Worker": 3})
	result := evalExpr(t, ev, "Worker[5]")
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrChannel, result.Error)
}

func TestEvalMagicOut(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	result := evalExpr(t, ev, "$out")
	require.True(t, result.IsNormal())
	cv, ok := result.Val.(types.ChanValue)
	require.True(t, ok)
	assert.Equal(t, channel.OutChannelID, cv.ID)
}

func TestEvalMagicIndexOutsideMultiTaskIsNameError(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1})
	result := evalExpr(t, ev, "$index")
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrName, result.Error)
}

func TestEvalMagicIndexInsideMultiTask(t *testing.T) {
	ev := testEvaluator("Printer", 2, true, map[string]int{"Printer": 5})
	result := evalExpr(t, ev, "$index")
	require.True(t, result.IsNormal())
	iv, ok := result.Val.(types.IntValue)
	require.True(t, ok)
	assert.Equal(t, int64(2), iv.Val)
}

func TestEvalLocalBindingShadowsTaskName(t *testing.T) {
	ev := testEvaluator("Main", 0, false, map[string]int{"Main": 1, "Worker": 1})
	ev.Task.Env.Set("Worker", types.NewInt(9))
	result := evalExpr(t, ev, "Worker")
	require.True(t, result.IsNormal())
	assert.True(t, result.Val.Equal(types.NewInt(9)))
}
