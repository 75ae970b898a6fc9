package parser

import (
	"fmt"

	"conker/ast"
	"conker/lexer"
)

// ParseProgram parses a complete Conker program: a sequence of task definitions.
func ParseProgram(input string) (*ast.Program, error) {
	p := NewParser(input)
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	var tasks []*ast.TaskDef

	for p.current.Type != lexer.TOKEN_EOF {
		task, err := p.parseTaskDef()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return &ast.Program{Tasks: tasks}, nil
}

// parseTaskDef parses `task Name`, `task Name[n]`, followed by a block body.
func (p *Parser) parseTaskDef() (*ast.TaskDef, error) {
	pos := p.current.Position
	if _, err := p.expect(lexer.TOKEN_TASK); err != nil {
		return nil, err
	}

	nameTok, err := p.expect(lexer.TOKEN_IDENTIFIER)
	if err != nil {
		return nil, err
	}

	var count ast.Expr
	if p.current.Type == lexer.TOKEN_LBRACKET {
		p.nextToken() // consume '['
		count, err = p.ParseExpression(PREC_LOWEST)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TOKEN_RBRACKET); err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.TaskDef{Pos: pos, Name: nameTok.Value, Count: count, Body: body}, nil
}

// parseBlock parses a brace-delimited sequence of statements.
func (p *Parser) parseBlock() (*ast.Block, error) {
	pos := p.current.Position
	if _, err := p.expect(lexer.TOKEN_LBRACE); err != nil {
		return nil, err
	}

	var stmts []ast.Stmt
	for p.current.Type != lexer.TOKEN_RBRACE {
		if p.current.Type == lexer.TOKEN_EOF {
			return nil, fmt.Errorf("line %d: unterminated block, expected '}'", pos.Line)
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.nextToken() // consume '}'

	return &ast.Block{Pos: pos, Stmts: stmts}, nil
}

// parseStatement dispatches on the current token, using one token of
// lookahead to distinguish assignment, receive, and send statements, all of
// which begin with an identifier or an arbitrary expression.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.current.Type {
	case lexer.TOKEN_LOOP:
		return p.parseLoop()
	case lexer.TOKEN_WHILE:
		return p.parseWhile()
	case lexer.TOKEN_IF:
		return p.parseIf()
	case lexer.TOKEN_EXIT:
		return p.parseExit()
	case lexer.TOKEN_IDENTIFIER:
		if p.peek.Type == lexer.TOKEN_ASSIGN {
			return p.parseAssignment()
		}
		if p.peek.Type == lexer.TOKEN_RECV {
			return p.parseReceive()
		}
		return p.parseSend()
	default:
		return p.parseSend()
	}
}

func (p *Parser) parseAssignment() (ast.Stmt, error) {
	pos := p.current.Position
	target := p.current.Value
	p.nextToken() // consume identifier
	p.nextToken() // consume '='

	value, err := p.ParseExpression(PREC_LOWEST)
	if err != nil {
		return nil, err
	}

	return &ast.Assignment{Pos: pos, Target: target, Value: value}, nil
}

func (p *Parser) parseLoop() (ast.Stmt, error) {
	pos := p.current.Position
	p.nextToken() // consume 'loop'

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.Loop{Pos: pos, Body: body}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.current.Position
	p.nextToken() // consume 'while'

	if _, err := p.expect(lexer.TOKEN_LPAREN); err != nil {
		return nil, err
	}
	condition, err := p.ParseExpression(PREC_LOWEST)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TOKEN_RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.While{Pos: pos, Condition: condition, Body: body}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.current.Position
	p.nextToken() // consume 'if'

	if _, err := p.expect(lexer.TOKEN_LPAREN); err != nil {
		return nil, err
	}
	condition, err := p.ParseExpression(PREC_LOWEST)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TOKEN_RPAREN); err != nil {
		return nil, err
	}

	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseBlock *ast.Block
	if p.current.Type == lexer.TOKEN_ELSE {
		p.nextToken() // consume 'else'
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return &ast.If{Pos: pos, Condition: condition, Then: thenBlock, Else: elseBlock}, nil
}

func (p *Parser) parseExit() (ast.Stmt, error) {
	pos := p.current.Position
	p.nextToken() // consume 'exit'
	return &ast.Exit{Pos: pos}, nil
}

// parseReceive parses `target <- channelSpec`, where target is an identifier
// or "_" to discard the received value.
func (p *Parser) parseReceive() (ast.Stmt, error) {
	pos := p.current.Position
	target := p.current.Value
	p.nextToken() // consume target identifier
	p.nextToken() // consume '<-'

	spec, err := p.parseChannelSpec()
	if err != nil {
		return nil, err
	}

	return &ast.Receive{Pos: pos, Target: target, Channel: spec}, nil
}

// parseSend parses `expr -> channelSpec-expression`.
func (p *Parser) parseSend() (ast.Stmt, error) {
	pos := p.current.Position

	value, err := p.ParseExpression(PREC_LOWEST)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.TOKEN_ARROW); err != nil {
		return nil, err
	}

	channel, err := p.ParseExpression(PREC_LOWEST)
	if err != nil {
		return nil, err
	}

	return &ast.Send{Pos: pos, Value: value, Channel: channel}, nil
}

// parseChannelSpec parses either a binding receive (`?name`) or an explicit
// channel expression following a receive's `<-`.
func (p *Parser) parseChannelSpec() (*ast.ChannelSpec, error) {
	pos := p.current.Position

	if p.current.Type == lexer.TOKEN_QUESTION {
		p.nextToken() // consume '?'
		nameTok, err := p.expect(lexer.TOKEN_IDENTIFIER)
		if err != nil {
			return nil, err
		}
		return &ast.ChannelSpec{Pos: pos, IsBinding: true, BindName: nameTok.Value}, nil
	}

	expr, err := p.ParseExpression(PREC_LOWEST)
	if err != nil {
		return nil, err
	}
	return &ast.ChannelSpec{Pos: pos, Explicit: expr}, nil
}
