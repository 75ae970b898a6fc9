package eval

import (
	"conker/lexer"
	"conker/types"
)

// evalUnaryMinus negates an Integer. Any other operand is a TypeError (spec
// §4.A: "Arithmetic (+, -, *, /) is defined on Integer").
func evalUnaryMinus(operand types.Value) types.Result {
	i, ok := operand.(types.IntValue)
	if !ok {
		return types.Err(types.ErrType)
	}
	return types.Ok(types.NewInt(-i.Val))
}

// evalBinaryOp dispatches a binary operator over two already-evaluated
// operands. Equality is defined across every value variant; arithmetic and
// ordering comparisons require both operands to be Integer (spec §4.A).
func evalBinaryOp(op lexer.TokenType, left, right types.Value) types.Result {
	switch op {
	case lexer.TOKEN_EQ:
		return types.Ok(types.NewBool(left.Equal(right)))
	case lexer.TOKEN_NE:
		return types.Ok(types.NewBool(!left.Equal(right)))
	case lexer.TOKEN_PLUS, lexer.TOKEN_MINUS, lexer.TOKEN_STAR, lexer.TOKEN_SLASH:
		return evalArith(op, left, right)
	case lexer.TOKEN_LT, lexer.TOKEN_GT, lexer.TOKEN_LE, lexer.TOKEN_GE:
		return evalCompare(op, left, right)
	default:
		return types.Err(types.ErrType)
	}
}

func evalArith(op lexer.TokenType, left, right types.Value) types.Result {
	l, ok := left.(types.IntValue)
	if !ok {
		return types.Err(types.ErrType)
	}
	r, ok := right.(types.IntValue)
	if !ok {
		return types.Err(types.ErrType)
	}

	switch op {
	case lexer.TOKEN_PLUS:
		return types.Ok(types.NewInt(l.Val + r.Val))
	case lexer.TOKEN_MINUS:
		return types.Ok(types.NewInt(l.Val - r.Val))
	case lexer.TOKEN_STAR:
		return types.Ok(types.NewInt(l.Val * r.Val))
	case lexer.TOKEN_SLASH:
		if r.Val == 0 {
			return types.Err(types.ErrArithmetic)
		}
		// Go's integer division already truncates toward zero.
		return types.Ok(types.NewInt(l.Val / r.Val))
	default:
		return types.Err(types.ErrType)
	}
}

func evalCompare(op lexer.TokenType, left, right types.Value) types.Result {
	l, ok := left.(types.IntValue)
	if !ok {
		return types.Err(types.ErrType)
	}
	r, ok := right.(types.IntValue)
	if !ok {
		return types.Err(types.ErrType)
	}

	switch op {
	case lexer.TOKEN_LT:
		return types.Ok(types.NewBool(l.Val < r.Val))
	case lexer.TOKEN_GT:
		return types.Ok(types.NewBool(l.Val > r.Val))
	case lexer.TOKEN_LE:
		return types.Ok(types.NewBool(l.Val <= r.Val))
	case lexer.TOKEN_GE:
		return types.Ok(types.NewBool(l.Val >= r.Val))
	default:
		return types.Err(types.ErrType)
	}
}
