// Package parser implements a recursive-descent parser that turns Conker
// source text into the ast tree defined in package ast.
package parser

import (
	"fmt"
	"strconv"

	"conker/ast"
	"conker/lexer"
	"conker/types"
)

// operator precedence levels, lowest first.
const (
	PREC_LOWEST = iota
	PREC_COMPARISON
	PREC_SUM
	PREC_PRODUCT
	PREC_UNARY
)

var precedences = map[lexer.TokenType]int{
	lexer.TOKEN_EQ: PREC_COMPARISON,
	lexer.TOKEN_NE: PREC_COMPARISON,
	lexer.TOKEN_LT: PREC_COMPARISON,
	lexer.TOKEN_GT: PREC_COMPARISON,
	lexer.TOKEN_LE: PREC_COMPARISON,
	lexer.TOKEN_GE: PREC_COMPARISON,

	lexer.TOKEN_PLUS:  PREC_SUM,
	lexer.TOKEN_MINUS: PREC_SUM,

	lexer.TOKEN_STAR:  PREC_PRODUCT,
	lexer.TOKEN_SLASH: PREC_PRODUCT,
}

// Parser holds parsing state: a two-token lookahead over the lexer's stream.
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Token
	peek    lexer.Token
}

// NewParser creates a Parser over the given Conker source text.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: lexer.NewLexer(input),
	}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if p.current.Type != t {
		return lexer.Token{}, fmt.Errorf("line %d: expected %s, got %s %q",
			p.current.Position.Line, t, p.current.Type, p.current.Value)
	}
	tok := p.current
	p.nextToken()
	return tok, nil
}

func peekPrecedence(t lexer.TokenType) int {
	if prec, ok := precedences[t]; ok {
		return prec
	}
	return PREC_LOWEST
}

// ParseExpression parses an expression using operator-precedence climbing.
func (p *Parser) ParseExpression(precedence int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for precedence < peekPrecedence(p.current.Type) {
		op := p.current.Type
		pos := p.current.Position
		opPrec := peekPrecedence(op)
		p.nextToken()

		right, err := p.ParseExpression(opPrec)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Pos: pos, Left: left, Operator: op, Right: right}
	}

	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.current.Type == lexer.TOKEN_MINUS {
		pos := p.current.Position
		p.nextToken()
		operand, err := p.ParseExpression(PREC_UNARY)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: pos, Operator: lexer.TOKEN_MINUS, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.current.Position

	switch p.current.Type {
	case lexer.TOKEN_INT:
		val, err := strconv.ParseInt(p.current.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid integer literal %q: %w", pos.Line, p.current.Value, err)
		}
		p.nextToken()
		return &ast.LiteralExpr{Pos: pos, Value: types.NewInt(val)}, nil

	case lexer.TOKEN_TRUE:
		p.nextToken()
		return &ast.LiteralExpr{Pos: pos, Value: types.NewBool(true)}, nil

	case lexer.TOKEN_FALSE:
		p.nextToken()
		return &ast.LiteralExpr{Pos: pos, Value: types.NewBool(false)}, nil

	case lexer.TOKEN_MAGIC:
		name := p.current.Value[1:]
		p.nextToken()
		return &ast.MagicExpr{Pos: pos, Name: name}, nil

	case lexer.TOKEN_IDENTIFIER:
		name := p.current.Value
		p.nextToken()
		if p.current.Type == lexer.TOKEN_LBRACKET {
			p.nextToken() // consume '['
			idx, err := p.ParseExpression(PREC_LOWEST)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TOKEN_RBRACKET); err != nil {
				return nil, err
			}
			return &ast.IndexExpr{Pos: pos, Task: name, Index: idx}, nil
		}
		return &ast.IdentifierExpr{Pos: pos, Name: name}, nil

	case lexer.TOKEN_LPAREN:
		p.nextToken() // consume '('
		inner, err := p.ParseExpression(PREC_LOWEST)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{Pos: pos, Expr: inner}, nil

	default:
		return nil, fmt.Errorf("line %d: unexpected token %s %q in expression",
			pos.Line, p.current.Type, p.current.Value)
	}
}
