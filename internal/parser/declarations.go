package parser

import (
	"quill/internal/ast"
	"quill/internal/token"
	"strings"
)

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	pos := p.pos()
	fn := &ast.Function{Position: pos}
	if p.peekTokenIs(token.AMP) {
		p.nextToken()
		fn.ReturnsRef = true
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	fn.Name = p.curToken.Literal
	if !p.parseFunctionRest(fn, true) {
		return nil
	}
	return &ast.FunctionDecl{Position: pos, Fn: fn}
}

// parseFunctionRest reads the parameter list, an optional return type and the body.
// The current token is the function name.
func (p *Parser) parseFunctionRest(fn *ast.Function, needsBody bool) bool {
	if !p.expectPeek(token.LPAREN) {
		return false
	}
	fn.Args = p.parseFunctionParameters()
	if fn.Args == nil {
		return false
	}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		p.skipType()
	}

	if !needsBody {
		if !p.expectPeek(token.SEMICOLON) {
			return false
		}
		p.functions = append(p.functions, fn)
		return true
	}
	if !p.expectPeek(token.LBRACE) {
		return false
	}

	saved := p.staticCount
	p.staticCount = 0
	fn.Body = p.parseBlockStatement()
	p.staticCount = saved

	p.functions = append(p.functions, fn)
	return true
}

// skipType drops a type declaration: `?T`, `T`, `array`, `static`. The current token is its first token.
func (p *Parser) skipType() {
	if p.curTokenIs(token.QUESTION) {
		p.nextToken()
	}
	switch p.curToken.Type {
	case token.IDENT, token.ARRAY, token.STATIC, token.NULL, token.FALSE:
	default:
		p.addError("expected type, got %s", p.curToken.Type)
	}
}

func (p *Parser) parseFunctionParameters() []*ast.Arg {
	args := []*ast.Arg{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}

	for {
		p.nextToken()
		arg := &ast.Arg{}
		if !p.curTokenIs(token.AMP) && !p.curTokenIs(token.ELLIPSIS) && !p.curTokenIs(token.VARIABLE) {
			p.skipType()
			p.nextToken()
		}
		if p.curTokenIs(token.AMP) {
			arg.IsReference = true
			p.nextToken()
		}
		if p.curTokenIs(token.ELLIPSIS) {
			arg.IsVariadic = true
			p.nextToken()
		}
		if !p.curTokenIs(token.VARIABLE) {
			p.addError("expected parameter name, got %s", p.curToken.Type)
			return nil
		}
		arg.Name = p.curToken.Literal
		if arg.Name == "this" {
			p.addError("cannot use $this as parameter")
		}
		for _, other := range args {
			if other.Name == arg.Name {
				p.addError("redefinition of parameter $%s", arg.Name)
			}
		}
		if p.peekTokenIs(token.ASSIGN) {
			if arg.IsVariadic {
				p.addError("variadic parameter cannot have a default value")
			}
			p.nextToken()
			p.nextToken()
			arg.Default = p.parseExpression(LOWEST)
		}
		if len(args) > 0 && args[len(args)-1].IsVariadic {
			p.addError("only the last parameter can be variadic")
		}
		args = append(args, arg)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(token.RPAREN) {
			break
		}
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return args
}

func (p *Parser) parseClassDeclaration() ast.Statement {
	pos := p.pos()
	class := &ast.Class{Position: pos}

	for p.curTokenIs(token.ABSTRACT) || p.curTokenIs(token.FINAL) {
		if p.curTokenIs(token.ABSTRACT) {
			class.IsAbstract = true
		} else {
			class.IsFinal = true
		}
		p.nextToken()
	}
	switch p.curToken.Type {
	case token.CLASS:
		class.Kind = ast.KindClass
	case token.INTERFACE:
		class.Kind = ast.KindInterface
	case token.TRAIT:
		class.Kind = ast.KindTrait
	default:
		p.addError("expected 'class', got %s", p.curToken.Type)
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	class.Name = p.curToken.Literal

	if p.peekTokenIs(token.EXTENDS) {
		p.nextToken()
		names := p.parseNameList()
		if class.Kind == ast.KindInterface {
			class.Interfaces = append(class.Interfaces, names...)
		} else if len(names) != 1 {
			p.addError("class %s can only extend one class", class.Name)
		} else {
			class.Parent = names[0]
		}
	}
	if p.peekTokenIs(token.IMPLEMENTS) {
		p.nextToken()
		class.Interfaces = append(class.Interfaces, p.parseNameList()...)
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if !p.parseClassMember(class) {
			return nil
		}
		p.nextToken()
	}
	if !p.curTokenIs(token.RBRACE) {
		p.addError("unterminated class %s", class.Name)
		return nil
	}

	p.classes = append(p.classes, class)
	return &ast.ClassDecl{Position: pos, Class: class}
}

// parseNameList reads `A, B, C`; the current token precedes the first name.
func (p *Parser) parseNameList() []string {
	var names []string
	for {
		if !p.expectPeek(token.IDENT) {
			return names
		}
		names = append(names, p.curToken.Literal)
		if !p.peekTokenIs(token.COMMA) {
			return names
		}
		p.nextToken()
	}
}

type modifiers struct {
	visibility ast.Visibility
	isStatic   bool
	isAbstract bool
	isFinal    bool
}

func (p *Parser) parseClassMember(class *ast.Class) bool {
	if p.curTokenIs(token.USE) {
		return p.parseTraitUse(class)
	}

	var mods modifiers
scan:
	for {
		switch p.curToken.Type {
		case token.PUBLIC:
			mods.visibility = ast.Public
		case token.PROTECTED:
			mods.visibility = ast.Protected
		case token.PRIVATE:
			mods.visibility = ast.Private
		case token.STATIC:
			mods.isStatic = true
		case token.ABSTRACT:
			mods.isAbstract = true
		case token.FINAL:
			mods.isFinal = true
		case token.VAR:
		default:
			break scan
		}
		p.nextToken()
	}

	switch p.curToken.Type {
	case token.CONST:
		return p.parseClassConsts(class)
	case token.FUNCTION:
		return p.parseMethod(class, mods)
	case token.VARIABLE:
		return p.parseProperties(class, mods)
	case token.QUESTION, token.IDENT, token.ARRAY:
		// typed property
		p.skipType()
		p.nextToken()
		return p.parseProperties(class, mods)
	}
	p.addError("unexpected %s in class body", p.curToken.Type)
	return false
}

func (p *Parser) parseClassConsts(class *ast.Class) bool {
	for {
		p.nextToken()
		name, ok := p.curName()
		if !ok {
			p.addError("expected constant name, got %s", p.curToken.Type)
			return false
		}
		c := &ast.ConstDecl{Position: p.pos(), Name: name}
		if !p.expectPeek(token.ASSIGN) {
			return false
		}
		p.nextToken()
		c.Value = p.parseExpression(LOWEST)
		class.Consts = append(class.Consts, c)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return p.expectPeek(token.SEMICOLON)
}

func (p *Parser) parseProperties(class *ast.Class, mods modifiers) bool {
	for {
		if !p.curTokenIs(token.VARIABLE) {
			p.addError("expected property name, got %s", p.curToken.Type)
			return false
		}
		prop := &ast.PropDecl{
			Position:   p.pos(),
			Name:       p.curToken.Literal,
			Visibility: mods.visibility,
			IsStatic:   mods.isStatic,
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			prop.Default = p.parseExpression(LOWEST)
		}
		class.Props = append(class.Props, prop)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	return p.expectPeek(token.SEMICOLON)
}

func (p *Parser) parseMethod(class *ast.Class, mods modifiers) bool {
	fn := &ast.Function{
		Position:   p.pos(),
		ClassName:  class.Name,
		Visibility: mods.visibility,
		IsStatic:   mods.isStatic,
		IsAbstract: mods.isAbstract,
		IsFinal:    mods.isFinal,
	}
	if p.peekTokenIs(token.AMP) {
		p.nextToken()
		fn.ReturnsRef = true
	}
	p.nextToken()
	name, ok := p.curName()
	if !ok {
		p.addError("expected method name, got %s", p.curToken.Type)
		return false
	}
	fn.Name = name
	bodiless := class.Kind == ast.KindInterface || fn.IsAbstract
	if class.Kind == ast.KindInterface {
		fn.IsAbstract = true
	}
	if !p.parseFunctionRest(fn, !bodiless) {
		return false
	}
	for _, m := range class.Methods {
		if strings.EqualFold(m.Name, fn.Name) {
			p.addError("cannot redeclare %s::%s()", class.Name, fn.Name)
		}
	}
	class.Methods = append(class.Methods, fn)
	return true
}

// parseTraitUse reads `use A, B;` or `use A, B { rules }`.
func (p *Parser) parseTraitUse(class *ast.Class) bool {
	use := &ast.TraitUse{Position: p.pos()}
	use.Traits = p.parseNameList()
	class.Uses = append(class.Uses, use)

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return true
	}
	if !p.expectPeek(token.LBRACE) {
		return false
	}
	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		rule := &ast.TraitRule{}
		first, ok := p.curName()
		if !ok {
			p.addError("expected trait method, got %s", p.curToken.Type)
			return false
		}
		if p.peekTokenIs(token.DOUBLE_COLON) {
			p.nextToken()
			p.nextToken()
			rule.Trait = first
			if rule.Method, ok = p.curName(); !ok {
				p.addError("expected trait method, got %s", p.curToken.Type)
				return false
			}
		} else {
			rule.Method = first
		}

		switch {
		case p.peekTokenIs(token.INSTEADOF):
			if rule.Trait == "" {
				p.addError("insteadof requires a Trait::method reference")
				return false
			}
			p.nextToken()
			rule.InsteadOf = p.parseNameList()
		case p.peekTokenIs(token.AS):
			p.nextToken()
			switch {
			case p.peekTokenIs(token.PUBLIC):
				rule.AliasVis, rule.HasVisibility = ast.Public, true
				p.nextToken()
			case p.peekTokenIs(token.PROTECTED):
				rule.AliasVis, rule.HasVisibility = ast.Protected, true
				p.nextToken()
			case p.peekTokenIs(token.PRIVATE):
				rule.AliasVis, rule.HasVisibility = ast.Private, true
				p.nextToken()
			}
			if !p.peekTokenIs(token.SEMICOLON) {
				p.nextToken()
				if rule.Alias, ok = p.curName(); !ok {
					p.addError("expected alias name, got %s", p.curToken.Type)
					return false
				}
			}
		default:
			p.peekError(token.AS)
			return false
		}
		if !p.expectPeek(token.SEMICOLON) {
			return false
		}
		use.Rules = append(use.Rules, rule)
	}
	p.nextToken()
	return true
}
