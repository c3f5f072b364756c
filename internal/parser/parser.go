package parser

import (
	"errors"
	"fmt"
	"quill/internal/ast"
	"quill/internal/lexer"
	"quill/internal/token"
	"quill/internal/util"
	"sort"
	"strconv"
	"strings"
)

const (
	_ int = iota
	LOWEST
	ASSIGN      // = += .= ...
	TERNARY     // ?:
	COALESCE    // ??
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	EQUALS      // == === != !==
	COMPARISON  // > or <
	CONCAT      // .
	SUM         // +
	PRODUCT     // *
	INSTANCEOF  // instanceof
	PREFIX      // -X, (int)X
	POSTFIX     // X++
	CALL        // f(X), $a[X], $o->x, C::x
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:          ASSIGN,
	token.PLUS_ASSIGN:     ASSIGN,
	token.MINUS_ASSIGN:    ASSIGN,
	token.ASTERISK_ASSIGN: ASSIGN,
	token.SLASH_ASSIGN:    ASSIGN,
	token.PERCENT_ASSIGN:  ASSIGN,
	token.CONCAT_ASSIGN:   ASSIGN,
	token.COALESCE_ASSIGN: ASSIGN,
	token.QUESTION:        TERNARY,
	token.COALESCE:        COALESCE,
	token.LOGICAL_OR:      LOGICAL_OR,
	token.LOGICAL_AND:     LOGICAL_AND,
	token.EQ:              EQUALS,
	token.NOT_EQ:          EQUALS,
	token.IDENT_EQ:        EQUALS,
	token.NOT_IDEN:        EQUALS,
	token.LT:              COMPARISON,
	token.LT_EQ:           COMPARISON,
	token.GT:              COMPARISON,
	token.GT_EQ:           COMPARISON,
	token.PERIOD:          CONCAT,
	token.PLUS:            SUM,
	token.MINUS:           SUM,
	token.SLASH:           PRODUCT,
	token.ASTERISK:        PRODUCT,
	token.PERCENT:         PRODUCT,
	token.INSTANCEOF:      INSTANCEOF,
	token.INCREMENT:       POSTFIX,
	token.DECREMENT:       POSTFIX,
	token.LPAREN:          CALL,
	token.LBRACKET:        CALL,
	token.ARROW:           CALL,
}

var compoundOps = map[token.TokenType]string{
	token.PLUS_ASSIGN:     "+",
	token.MINUS_ASSIGN:    "-",
	token.ASTERISK_ASSIGN: "*",
	token.SLASH_ASSIGN:    "/",
	token.PERCENT_ASSIGN:  "%",
	token.CONCAT_ASSIGN:   ".",
	token.COALESCE_ASSIGN: "??",
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l          *lexer.Lexer
	file       string
	src        string // source code here
	lineStarts []int
	errors     []string
	firstErr   int

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	// declarations collected while parsing
	functions []*ast.Function
	classes   []*ast.Class

	// per function state
	staticCount int
}

func New(l *lexer.Lexer, file, source string) *Parser {
	p := &Parser{
		l:        l,
		file:     file,
		src:      source,
		errors:   []string{},
		firstErr: -1,
	}
	p.lineStarts = append(p.lineStarts, 0)
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.VARIABLE, p.parseVariable)
	p.registerPrefix(token.DOLLAR, p.parseVariableVariable)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.STATIC, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TEMPLATE, p.parseTemplate)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.NULL, p.parseNull)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.INCREMENT, p.parsePrefixIncDec)
	p.registerPrefix(token.DECREMENT, p.parsePrefixIncDec)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.ARRAY, p.parseArrayLiteral)
	p.registerPrefix(token.NEW, p.parseNew)
	p.registerPrefix(token.ISSET, p.parseIsset)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.SLASH, token.ASTERISK, token.PERCENT, token.PERIOD,
		token.EQ, token.NOT_EQ, token.IDENT_EQ, token.NOT_IDEN,
		token.LT, token.LT_EQ, token.GT, token.GT_EQ,
		token.LOGICAL_AND, token.LOGICAL_OR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.COALESCE, p.parseCoalesce)
	p.registerInfix(token.QUESTION, p.parseTernary)
	p.registerInfix(token.ASSIGN, p.parseAssignmentExpression)
	for t := range compoundOps {
		p.registerInfix(t, p.parseAssignmentExpression)
	}
	p.registerInfix(token.INCREMENT, p.parsePostfixIncDec)
	p.registerInfix(token.DECREMENT, p.parsePostfixIncDec)
	p.registerInfix(token.INSTANCEOF, p.parseInstanceOf)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.ARROW, p.parsePropertyExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse is the one call front end: lex and parse a whole script.
func Parse(file, source string) (*ast.Program, error) {
	p := New(lexer.New(source), file, source)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		line, col := util.GetLineAndColumn(source, p.firstErr)
		return nil, &Error{File: file, Source: source, Line: line, Column: col, Msgs: errs}
	}
	return program, nil
}

// Error carries every message of a failed parse and the location of the first one.
type Error struct {
	File   string
	Source string
	Line   int
	Column int
	Msgs   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: parse failed:\n\t%s", e.File, strings.Join(e.Msgs, "\n\t"))
}

// Context renders the source lines leading up to the first error.
func (e *Error) Context() string {
	return util.GetContextLines(e.Source, e.Line, e.Column)
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) addError(message string, args ...interface{}) {
	if p.firstErr < 0 {
		p.firstErr = p.curToken.Position
	}
	line, col := util.GetLineAndColumn(p.src, p.curToken.Position)
	m := fmt.Sprintf(message, args...)
	msg := fmt.Sprintf("[%3d:%2d] %s", line, col, m)
	p.errors = append(p.errors, msg)
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError("expected next token to be %s, got %s instead", t, p.peekToken.Type)
}

func (p *Parser) noPrefixParseFnError(t token.TokenType) {
	p.addError("no prefix parse function for %s found", t)
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	} else {
		p.peekError(t)
		return false
	}
}

func (p *Parser) Errors() []string {
	return p.errors
}

// pos maps the current token onto a source line.
func (p *Parser) pos() ast.Position {
	return p.posAt(p.curToken.Position)
}

func (p *Parser) posAt(offset int) ast.Position {
	line := sort.Search(len(p.lineStarts), func(i int) bool { return p.lineStarts[i] > offset })
	return ast.Position{File: p.file, Line: line}
}

func (p *Parser) ParseProgram() *ast.Program {
	main := &ast.Function{Position: p.pos(), Name: "{main}", IsMain: true}
	main.Body = &ast.Block{Position: main.Position}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			switch s := stmt.(type) {
			case *ast.FunctionDecl:
				s.Fn.IsGlobal = true
			case *ast.ClassDecl:
				s.Class.IsGlobal = true
			}
			main.Body.Stmts = append(main.Body.Stmts, stmt)
		}
		p.nextToken()
	}

	return &ast.Program{
		File:      p.file,
		Main:      main,
		Functions: p.functions,
		Classes:   p.classes,
	}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}

	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}

	return LOWEST
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) parseVariable() ast.Expression {
	if p.curToken.Literal == "this" {
		return &ast.This{Position: p.pos()}
	}
	return &ast.Var{Position: p.pos(), Name: p.curToken.Literal}
}

// parseVariableVariable handles `$$name` and `${expr}`.
func (p *Parser) parseVariableVariable() ast.Expression {
	vv := &ast.VarVar{Position: p.pos()}
	switch {
	case p.peekTokenIs(token.VARIABLE) || p.peekTokenIs(token.DOLLAR):
		p.nextToken()
		vv.Name = p.prefixParseFns[p.curToken.Type]()
	case p.peekTokenIs(token.LBRACE):
		p.nextToken()
		p.nextToken()
		vv.Name = p.parseExpression(LOWEST)
		if !p.expectPeek(token.RBRACE) {
			return nil
		}
	default:
		p.addError("expected variable name after '$'")
		return nil
	}
	return vv
}

// parseIdentifier covers calls by name, class member access and bare constants.
func (p *Parser) parseIdentifier() ast.Expression {
	pos := p.pos()
	name := p.curToken.Literal

	switch {
	case p.peekTokenIs(token.LPAREN) && !p.curTokenIs(token.STATIC):
		p.nextToken()
		return &ast.Call{Position: pos, Name: name, Args: p.parseArguments()}
	case p.peekTokenIs(token.DOUBLE_COLON):
		p.nextToken()
		return p.parseStaticMember(pos, name)
	}
	if p.curTokenIs(token.STATIC) {
		p.addError("unexpected 'static'")
		return nil
	}
	return &ast.ConstRef{Position: pos, Name: name}
}

func (p *Parser) parseStaticMember(pos ast.Position, class string) ast.Expression {
	p.nextToken()
	if p.curTokenIs(token.VARIABLE) {
		return &ast.StaticProp{Position: pos, Class: class, Name: p.curToken.Literal}
	}
	name, ok := p.curName()
	if !ok {
		p.addError("expected member name after '::', got %s", p.curToken.Type)
		return nil
	}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		return &ast.StaticCall{Position: pos, Class: class, Name: name, Args: p.parseArguments()}
	}
	return &ast.ClassConst{Position: pos, Class: class, Name: name}
}

// curName accepts identifiers and keywords where a member name is expected.
func (p *Parser) curName() (string, bool) {
	lit := p.curToken.Literal
	if p.curTokenIs(token.IDENT) {
		return lit, true
	}
	if lit != "" && token.LookupIdent(lit) != token.IDENT {
		return lit, true
	}
	return "", false
}

// parseClassName reads a class reference: an identifier, or static.
func (p *Parser) parseClassName() (string, bool) {
	if p.curTokenIs(token.IDENT) || p.curTokenIs(token.STATIC) {
		return p.curToken.Literal, true
	}
	p.addError("expected class name, got %s", p.curToken.Type)
	return "", false
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if errors.Is(err, strconv.ErrRange) {
		f, _ := strconv.ParseFloat(p.curToken.Literal, 64)
		return &ast.FloatLit{Position: p.pos(), Value: f}
	}
	if err != nil {
		p.addError("could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	return &ast.IntLit{Position: p.pos(), Value: value}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError("could not parse %q as float", p.curToken.Literal)
		return nil
	}
	return &ast.FloatLit{Position: p.pos(), Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLit{Position: p.pos(), Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BoolLit{Position: p.pos(), Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLit{Position: p.pos()}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.Unary{Position: p.pos(), Op: p.curToken.Literal}
	precedence := PREFIX
	if p.curTokenIs(token.BANG) {
		// !$a instanceof B negates the instanceof
		precedence = PRODUCT
	}
	p.nextToken()
	expression.X = p.parseExpression(precedence)
	return expression
}

func (p *Parser) parsePrefixIncDec() ast.Expression {
	e := &ast.IncDec{Position: p.pos(), Inc: p.curTokenIs(token.INCREMENT), Prefix: true}
	p.nextToken()
	e.Target = p.parseExpression(PREFIX)
	if !assignable(e.Target) {
		p.addError("cannot increment or decrement %s", describe(e.Target))
	}
	return e
}

func (p *Parser) parsePostfixIncDec(left ast.Expression) ast.Expression {
	if !assignable(left) {
		p.addError("cannot increment or decrement %s", describe(left))
	}
	return &ast.IncDec{Position: p.pos(), Target: left, Inc: p.curTokenIs(token.INCREMENT)}
}

var castTypes = map[string]string{
	"int":     "int",
	"integer": "int",
	"float":   "float",
	"double":  "float",
	"string":  "string",
	"bool":    "bool",
	"boolean": "bool",
	"array":   "array",
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	pos := p.pos()
	if p.peekTokenIs(token.IDENT) || p.peekTokenIs(token.ARRAY) {
		if typ, ok := castTypes[strings.ToLower(p.peekToken.Literal)]; ok {
			// look two ahead for the closing paren of a cast
			saved := *p.l
			cur, peek := p.curToken, p.peekToken
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				p.nextToken()
				p.nextToken()
				return &ast.Cast{Position: pos, Type: typ, X: p.parseExpression(PREFIX)}
			}
			*p.l = saved
			p.curToken, p.peekToken = cur, peek
		}
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.Binary{
		Position: p.pos(),
		Op:       p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)

	return expression
}

// parseCoalesce is right associative.
func (p *Parser) parseCoalesce(left ast.Expression) ast.Expression {
	expression := &ast.Binary{Position: p.pos(), Op: "??", Left: left}
	p.nextToken()
	expression.Right = p.parseExpression(COALESCE - 1)
	return expression
}

func (p *Parser) parseTernary(cond ast.Expression) ast.Expression {
	t := &ast.Ternary{Position: p.pos(), Cond: cond}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
	} else {
		p.nextToken()
		t.Then = p.parseExpression(LOWEST)
		if !p.expectPeek(token.COLON) {
			return nil
		}
	}
	p.nextToken()
	t.Else = p.parseExpression(TERNARY)
	return t
}

func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	pos := p.pos()
	if !assignable(left) {
		p.addError("cannot assign to %s", describe(left))
		return nil
	}
	if op, ok := compoundOps[p.curToken.Type]; ok {
		p.nextToken()
		return &ast.CompoundAssign{Position: pos, Op: op, Target: left, Value: p.parseExpression(ASSIGN - 1)}
	}
	if p.peekTokenIs(token.AMP) {
		p.nextToken()
		p.nextToken()
		src := p.parseExpression(ASSIGN - 1)
		if !referenceable(src) {
			p.addError("cannot take a reference to %s", describe(src))
			return nil
		}
		return &ast.AssignRef{Position: pos, Target: left, Source: src}
	}
	p.nextToken()
	return &ast.Assign{Position: pos, Target: left, Value: p.parseExpression(ASSIGN - 1)}
}

func (p *Parser) parseInstanceOf(left ast.Expression) ast.Expression {
	e := &ast.InstanceOf{Position: p.pos(), X: left}
	p.nextToken()
	name, ok := p.parseClassName()
	if !ok {
		return nil
	}
	e.Class = name
	return e
}

// parseCallExpression handles calls through a computed callee such as $fn(...).
func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	return &ast.Call{Position: p.pos(), Callee: callee, Args: p.parseArguments()}
}

// parseArguments reads `( a, b, ... )`; the current token is the opening paren.
func (p *Parser) parseArguments() []ast.Expression {
	return p.parseExpressionList(token.RPAREN)
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(end) {
			break // trailing comma
		}
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.Index{Position: p.pos(), Base: left}
	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return exp
	}
	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

func (p *Parser) parsePropertyExpression(left ast.Expression) ast.Expression {
	pos := p.pos()
	p.nextToken()
	name, ok := p.curName()
	if !ok {
		p.addError("expected property name after '->', got %s", p.curToken.Type)
		return nil
	}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		return &ast.MethodCall{Position: pos, Object: left, Name: name, Args: p.parseArguments()}
	}
	return &ast.Prop{Position: pos, Object: left, Name: name}
}

// parseArrayLiteral reads both `[...]` and `array(...)`.
func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLit{Position: p.pos()}
	end := token.TokenType(token.RBRACKET)
	if p.curTokenIs(token.ARRAY) {
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		end = token.RPAREN
	}

	for !p.peekTokenIs(end) {
		p.nextToken()
		item := &ast.ArrayItem{}
		if p.curTokenIs(token.AMP) {
			p.nextToken()
			item.ByRef = true
			item.Value = p.parseExpression(LOWEST)
		} else {
			item.Value = p.parseExpression(LOWEST)
			if p.peekTokenIs(token.ROCKET) {
				p.nextToken()
				p.nextToken()
				item.Key = item.Value
				if p.curTokenIs(token.AMP) {
					p.nextToken()
					item.ByRef = true
				}
				item.Value = p.parseExpression(LOWEST)
			}
		}
		if item.ByRef && !referenceable(item.Value) {
			p.addError("cannot take a reference to %s", describe(item.Value))
		}
		arr.Items = append(arr.Items, item)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return arr
}

func (p *Parser) parseNew() ast.Expression {
	n := &ast.New{Position: p.pos()}
	p.nextToken()
	switch {
	case p.curTokenIs(token.VARIABLE):
		n.ClassExpr = p.parseVariable()
	case p.curTokenIs(token.IDENT) || p.curTokenIs(token.STATIC):
		n.Class = p.curToken.Literal
	default:
		p.addError("expected class name after 'new', got %s", p.curToken.Type)
		return nil
	}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		n.Args = p.parseArguments()
	}
	return n
}

func (p *Parser) parseIsset() ast.Expression {
	e := &ast.Isset{Position: p.pos()}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	e.Targets = p.parseArguments()
	if len(e.Targets) == 0 {
		p.addError("isset expects at least one argument")
	}
	return e
}

func assignable(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Var, *ast.VarVar, *ast.Index, *ast.Prop, *ast.StaticProp:
		return true
	}
	return false
}

// referenceable expressions may appear on the right of =& and as by-ref array items.
func referenceable(e ast.Expression) bool {
	if assignable(e) {
		return true
	}
	switch e.(type) {
	case *ast.Call, *ast.MethodCall, *ast.StaticCall, *ast.New:
		return true
	}
	return false
}

func describe(e ast.Expression) string {
	if e == nil {
		return "an invalid expression"
	}
	return fmt.Sprintf("'%s'", e.String())
}
