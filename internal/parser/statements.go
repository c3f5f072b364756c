package parser

import (
	"quill/internal/ast"
	"quill/internal/token"
	"strconv"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.ECHO:
		return p.parseEchoStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.FOREACH:
		return p.parseForeachStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.BREAK:
		return p.parseJump()
	case token.CONTINUE:
		return p.parseJump()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.TRY:
		return p.parseTryCatchStatement()
	case token.GLOBAL:
		return p.parseGlobalStatement()
	case token.STATIC:
		if p.peekTokenIs(token.VARIABLE) {
			return p.parseStaticStatement()
		}
	case token.UNSET:
		return p.parseUnsetStatement()
	case token.FUNCTION:
		if p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.AMP) {
			return p.parseFunctionDeclaration()
		}
	case token.CLASS, token.INTERFACE, token.TRAIT, token.ABSTRACT, token.FINAL:
		return p.parseClassDeclaration()
	}
	return p.parseExpressionStatement()
}

// endStatement consumes the terminating semicolon. A closing tag or the end of input also ends a statement.
func (p *Parser) endStatement() {
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return
	}
	if p.peekTokenIs(token.EOF) {
		return
	}
	p.peekError(token.SEMICOLON)
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExprStmt{Position: p.pos()}
	stmt.X = p.parseExpression(LOWEST)
	if stmt.X == nil {
		return nil
	}
	p.endStatement()
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.Block {
	block := &ast.Block{Position: p.pos()}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		p.nextToken()
	}
	if !p.curTokenIs(token.RBRACE) {
		p.addError("unterminated block, expected '}'")
	}
	return block
}

// parseBody reads the statement controlled by a loop or branch header.
func (p *Parser) parseBody() ast.Statement {
	p.nextToken()
	stmt := p.parseStatement()
	if stmt == nil {
		return &ast.Block{Position: p.pos()}
	}
	return stmt
}

func (p *Parser) parseCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return cond
}

func (p *Parser) parseEchoStatement() ast.Statement {
	stmt := &ast.Echo{Position: p.pos()}
	for {
		p.nextToken()
		stmt.Args = append(stmt.Args, p.parseExpression(LOWEST))
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	p.endStatement()
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.If{Position: p.pos()}
	stmt.Cond = p.parseCondition()
	stmt.Then = p.parseBody()

	switch {
	case p.peekTokenIs(token.ELSEIF):
		p.nextToken()
		stmt.Else = p.parseIfStatement()
	case p.peekTokenIs(token.ELSE):
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			stmt.Else = p.parseIfStatement()
		} else {
			stmt.Else = p.parseBody()
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.While{Position: p.pos()}
	stmt.Cond = p.parseCondition()
	stmt.Body = p.parseBody()
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhile{Position: p.pos()}
	stmt.Body = p.parseBody()
	if !p.expectPeek(token.WHILE) {
		return nil
	}
	stmt.Cond = p.parseCondition()
	p.endStatement()
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.For{Position: p.pos()}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	stmt.Init = p.parseForClause(token.SEMICOLON)
	stmt.Cond = p.parseForClause(token.SEMICOLON)
	stmt.Step = p.parseForClause(token.RPAREN)
	stmt.Body = p.parseBody()
	return stmt
}

// parseForClause reads a possibly empty comma list ending at end and consumes end.
func (p *Parser) parseForClause(end token.TokenType) []ast.Expression {
	var list []ast.Expression
	for !p.peekTokenIs(end) {
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseForeachStatement() ast.Statement {
	stmt := &ast.Foreach{Position: p.pos()}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Source = p.parseExpression(LOWEST)
	if !p.expectPeek(token.AS) {
		return nil
	}
	p.nextToken()
	stmt.Value, stmt.ByRef = p.parseForeachTarget()
	if p.peekTokenIs(token.ROCKET) {
		if stmt.ByRef {
			p.addError("foreach key cannot be a reference")
		}
		p.nextToken()
		p.nextToken()
		stmt.Key = stmt.Value
		stmt.Value, stmt.ByRef = p.parseForeachTarget()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	stmt.Body = p.parseBody()
	return stmt
}

func (p *Parser) parseForeachTarget() (ast.Expression, bool) {
	byRef := false
	if p.curTokenIs(token.AMP) {
		byRef = true
		p.nextToken()
	}
	target := p.parseExpression(LOWEST)
	if !assignable(target) {
		p.addError("cannot assign to %s", describe(target))
	}
	return target, byRef
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	stmt := &ast.Switch{Position: p.pos()}
	stmt.Subject = p.parseCondition()
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	seenDefault := false
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		c := &ast.Case{Position: p.pos()}
		switch {
		case p.curTokenIs(token.CASE):
			p.nextToken()
			c.Match = p.parseExpression(LOWEST)
		case p.curTokenIs(token.DEFAULT):
			if seenDefault {
				p.addError("switch statements may only contain one default clause")
			}
			seenDefault = true
		default:
			p.addError("expected 'case' or 'default', got %s", p.curToken.Type)
			return nil
		}
		if !p.peekTokenIs(token.COLON) && !p.peekTokenIs(token.SEMICOLON) {
			p.peekError(token.COLON)
			return nil
		}
		p.nextToken()
		p.nextToken()
		for !p.curTokenIs(token.CASE) && !p.curTokenIs(token.DEFAULT) &&
			!p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
			if s := p.parseStatement(); s != nil {
				c.Body = append(c.Body, s)
			}
			p.nextToken()
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	return stmt
}

func (p *Parser) parseJump() ast.Statement {
	pos := p.pos()
	isBreak := p.curTokenIs(token.BREAK)
	word := p.curToken.Literal
	depth := 1
	if p.peekTokenIs(token.INT) {
		p.nextToken()
		n, err := strconv.Atoi(p.curToken.Literal)
		if err != nil || n < 1 {
			p.addError("'%s' operator accepts only positive integers", word)
			return nil
		}
		depth = n
	}
	p.endStatement()
	if isBreak {
		return &ast.Break{Position: pos, Depth: depth}
	}
	return &ast.Continue{Position: pos, Depth: depth}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.Return{Position: p.pos()}
	if p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.EOF) {
		p.endStatement()
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	p.endStatement()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.Throw{Position: p.pos()}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	p.endStatement()
	return stmt
}

func (p *Parser) parseTryCatchStatement() ast.Statement {
	stmt := &ast.Try{Position: p.pos()}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	for p.peekTokenIs(token.CATCH) {
		p.nextToken()
		c := &ast.Catch{Position: p.pos()}
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		for {
			if !p.expectPeek(token.IDENT) {
				return nil
			}
			c.Types = append(c.Types, p.curToken.Literal)
			if !(p.peekTokenIs(token.ILLEGAL) && p.peekToken.Literal == "|") {
				break
			}
			p.nextToken()
		}
		if p.peekTokenIs(token.VARIABLE) {
			p.nextToken()
			c.Var = p.curToken.Literal
		}
		if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LBRACE) {
			return nil
		}
		c.Body = p.parseBlockStatement()
		stmt.Catches = append(stmt.Catches, c)
	}

	if len(stmt.Catches) == 0 {
		if p.peekTokenIs(token.IDENT) && p.peekToken.Literal == "finally" {
			p.nextToken()
			p.addError("finally blocks are not supported")
			return nil
		}
		p.addError("try without catch")
		return nil
	}
	return stmt
}

func (p *Parser) parseGlobalStatement() ast.Statement {
	stmt := &ast.Global{Position: p.pos()}
	for {
		if !p.expectPeek(token.VARIABLE) {
			return nil
		}
		stmt.Names = append(stmt.Names, p.curToken.Literal)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	p.endStatement()
	return stmt
}

func (p *Parser) parseStaticStatement() ast.Statement {
	stmt := &ast.Static{Position: p.pos()}
	for {
		if !p.expectPeek(token.VARIABLE) {
			return nil
		}
		v := &ast.StaticVar{Name: p.curToken.Literal, Index: p.staticCount}
		p.staticCount++
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			v.Init = p.parseExpression(LOWEST)
		}
		stmt.Vars = append(stmt.Vars, v)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	p.endStatement()
	return stmt
}

func (p *Parser) parseUnsetStatement() ast.Statement {
	stmt := &ast.Unset{Position: p.pos()}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	stmt.Targets = p.parseArguments()
	for _, t := range stmt.Targets {
		if !assignable(t) {
			p.addError("cannot unset %s", describe(t))
		}
	}
	p.endStatement()
	return stmt
}
