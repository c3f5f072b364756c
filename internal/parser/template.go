package parser

import (
	"quill/internal/ast"
	"quill/internal/lexer"
	"strconv"
	"strings"
)

// parseTemplate splits an interpolating double quoted string into literal text and variable parts.
// Supported forms are $name, $name[key], $name->prop and {$expr}.
func (p *Parser) parseTemplate() ast.Expression {
	pos := p.pos()
	raw := p.curToken.Literal
	tpl := &ast.Interpolated{Position: pos}

	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			tpl.Parts = append(tpl.Parts, &ast.StringLit{Position: pos, Value: lexer.Unescape(text.String())})
			text.Reset()
		}
	}

	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			text.WriteString(raw[i : i+2])
			i += 2
		case c == '$' && i+1 < len(raw) && isNameStart(raw[i+1]):
			flush()
			var part ast.Expression
			part, i = p.simpleInterpolation(pos, raw, i+1)
			tpl.Parts = append(tpl.Parts, part)
		case c == '{' && i+1 < len(raw) && raw[i+1] == '$':
			end := matchingBrace(raw, i)
			if end < 0 {
				p.addError("unterminated '{$' in string")
				return nil
			}
			flush()
			if part := p.parseEmbedded(raw[i+1 : end]); part != nil {
				tpl.Parts = append(tpl.Parts, part)
			}
			i = end + 1
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return tpl
}

// simpleInterpolation reads a variable starting at raw[i] (just after '$') and an optional
// single index or property access. It returns the expression and the index after it.
func (p *Parser) simpleInterpolation(pos ast.Position, raw string, i int) (ast.Expression, int) {
	start := i
	for i < len(raw) && isNamePart(raw[i]) {
		i++
	}
	name := raw[start:i]
	var expr ast.Expression = &ast.Var{Position: pos, Name: name}
	if name == "this" {
		expr = &ast.This{Position: pos}
	}

	switch {
	case i < len(raw) && raw[i] == '[':
		end := strings.IndexByte(raw[i:], ']')
		if end < 0 {
			return expr, i
		}
		key := raw[i+1 : i+end]
		var idx ast.Expression
		switch {
		case strings.HasPrefix(key, "$") && len(key) > 1:
			idx = &ast.Var{Position: pos, Name: key[1:]}
		default:
			if n, err := strconv.ParseInt(key, 10, 64); err == nil {
				idx = &ast.IntLit{Position: pos, Value: n}
			} else {
				idx = &ast.StringLit{Position: pos, Value: strings.Trim(key, "'")}
			}
		}
		return &ast.Index{Position: pos, Base: expr, Index: idx}, i + end + 1
	case strings.HasPrefix(raw[i:], "->") && i+2 < len(raw) && isNameStart(raw[i+2]):
		j := i + 2
		for j < len(raw) && isNamePart(raw[j]) {
			j++
		}
		return &ast.Prop{Position: pos, Object: expr, Name: raw[i+2 : j]}, j
	}
	return expr, i
}

// parseEmbedded parses the body of a {$...} part with a nested parser.
func (p *Parser) parseEmbedded(src string) ast.Expression {
	sub := New(lexer.New(src), p.file, src)
	expr := sub.parseExpression(LOWEST)
	if len(sub.errors) > 0 {
		for _, e := range sub.errors {
			p.addError("in string interpolation: %s", strings.TrimSpace(e))
		}
		return nil
	}
	at := p.pos()
	ast.Inspect(expr, func(n ast.Node) bool {
		if r, ok := n.(interface{ Relocate(ast.Position) }); ok {
			r.Relocate(at)
		}
		return true
	})
	return expr
}

func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
