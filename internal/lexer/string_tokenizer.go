package lexer

import (
	"quill/internal/token"
	"strings"
)

// SingleQuotedTokenizer reads a '...' literal. Only \' and \\ are escapes.
type SingleQuotedTokenizer struct {
	lexer *Lexer
}

func NewSingleQuotedTokenizer(lexer *Lexer) *SingleQuotedTokenizer {
	return &SingleQuotedTokenizer{lexer: lexer}
}

func (s *SingleQuotedTokenizer) NextToken() token.Token {
	var result strings.Builder
	startPosition := s.lexer.position
	s.lexer.readChar() // consume the opening '

	for {
		if s.lexer.ch == 0 {
			return newToken(token.ILLEGAL, s.lexer.ch, startPosition)
		}
		if s.lexer.ch == '\'' {
			s.lexer.readChar()
			break
		}
		if s.lexer.ch == '\\' && (s.lexer.peekChar() == '\'' || s.lexer.peekChar() == '\\') {
			s.lexer.readChar()
		}
		result.WriteRune(s.lexer.ch)
		s.lexer.readChar()
	}

	return token.Token{
		Type:     token.STRING,
		Literal:  result.String(),
		Position: startPosition,
	}
}

// DoubleQuotedTokenizer reads a "..." literal. Escapes are resolved here unless the
// body interpolates variables, in which case the raw body is returned as a TEMPLATE token
// and the parser splits it.
type DoubleQuotedTokenizer struct {
	lexer *Lexer
}

func NewDoubleQuotedTokenizer(lexer *Lexer) *DoubleQuotedTokenizer {
	return &DoubleQuotedTokenizer{lexer: lexer}
}

func (d *DoubleQuotedTokenizer) NextToken() token.Token {
	var raw strings.Builder
	startPosition := d.lexer.position
	d.lexer.readChar() // consume the opening "
	interpolates := false

	for {
		if d.lexer.ch == 0 {
			return newToken(token.ILLEGAL, d.lexer.ch, startPosition)
		}
		if d.lexer.ch == '"' {
			d.lexer.readChar()
			break
		}
		if d.lexer.ch == '\\' {
			raw.WriteRune(d.lexer.ch)
			d.lexer.readChar()
			if d.lexer.ch == 0 {
				return newToken(token.ILLEGAL, d.lexer.ch, startPosition)
			}
		} else if d.lexer.ch == '$' && isLetter(d.lexer.peekChar()) {
			interpolates = true
		} else if d.lexer.ch == '{' && d.lexer.peekChar() == '$' {
			interpolates = true
		}
		raw.WriteRune(d.lexer.ch)
		d.lexer.readChar()
	}

	if interpolates {
		return token.Token{Type: token.TEMPLATE, Literal: raw.String(), Position: startPosition}
	}
	return token.Token{Type: token.STRING, Literal: Unescape(raw.String()), Position: startPosition}
}

// Unescape resolves the escape sequences of a double quoted literal.
func Unescape(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case '$':
			sb.WriteByte('$')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}
