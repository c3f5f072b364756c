package lexer

import (
	"quill/internal/token"
)

type GeneralTokenizer struct {
	lexer *Lexer
}

func NewGeneralTokenizer(lexer *Lexer) *GeneralTokenizer {
	return &GeneralTokenizer{lexer: lexer}
}

func (g *GeneralTokenizer) NextToken() token.Token {
	var tok token.Token
	l := g.lexer

	l.skipWhitespace()

	startPosition := l.position // Record the current position as the start of the token

	switch l.ch {
	case '=':
		if l.peekChar() == '=' && l.peekTwoChars() == '=' {
			tok = l.handleTripleToken(token.IDENT_EQ, "===")
		} else {
			tok = l.handleCompoundToken2(token.ASSIGN, '=', token.EQ, '>', token.ROCKET)
		}
	case '+':
		tok = l.handleCompoundToken2(token.PLUS, '+', token.INCREMENT, '=', token.PLUS_ASSIGN)
	case '-':
		if l.peekChar() == '>' {
			tok = l.handleCompoundToken(token.MINUS, '>', token.ARROW)
		} else {
			tok = l.handleCompoundToken2(token.MINUS, '-', token.DECREMENT, '=', token.MINUS_ASSIGN)
		}
	case '!':
		if l.peekChar() == '=' && l.peekTwoChars() == '=' {
			tok = l.handleTripleToken(token.NOT_IDEN, "!==")
		} else {
			tok = l.handleCompoundToken(token.BANG, '=', token.NOT_EQ)
		}
	case '/':
		tok = l.handleCompoundToken(token.SLASH, '=', token.SLASH_ASSIGN)
	case '*':
		tok = l.handleCompoundToken(token.ASTERISK, '=', token.ASTERISK_ASSIGN)
	case '%':
		tok = l.handleCompoundToken(token.PERCENT, '=', token.PERCENT_ASSIGN)
	case '&':
		tok = l.handleCompoundToken(token.AMP, '&', token.LOGICAL_AND)
	case '|':
		if l.peekChar() == '|' {
			tok = l.handleCompoundToken(token.ILLEGAL, '|', token.LOGICAL_OR)
		} else {
			tok = newToken(token.ILLEGAL, l.ch, startPosition)
		}
	case '<':
		tok = l.handleCompoundToken(token.LT, '=', token.LT_EQ)
	case '>':
		tok = l.handleCompoundToken(token.GT, '=', token.GT_EQ)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, startPosition)
	case ':':
		tok = l.handleCompoundToken(token.COLON, ':', token.DOUBLE_COLON)
	case ',':
		tok = newToken(token.COMMA, l.ch, startPosition)
	case '.':
		if l.peekChar() == '.' && l.peekTwoChars() == '.' {
			tok = l.handleTripleToken(token.ELLIPSIS, "...")
		} else {
			tok = l.handleCompoundToken(token.PERIOD, '=', token.CONCAT_ASSIGN)
		}
	case '?':
		switch {
		case l.peekChar() == '?' && l.peekTwoChars() == '=':
			tok = l.handleTripleToken(token.COALESCE_ASSIGN, "??=")
		case l.peekChar() == '>':
			// a closing tag ends the script
			l.readChar()
			l.readChar()
			return token.Token{Type: token.EOF, Literal: "", Position: startPosition}
		default:
			tok = l.handleCompoundToken(token.QUESTION, '?', token.COALESCE)
		}
	case '$':
		if isLetter(l.peekChar()) {
			l.readChar() // consume $
			tok.Literal = l.readIdentifier()
			tok.Type = token.VARIABLE
			tok.Position = startPosition
			return tok
		}
		tok = newToken(token.DOLLAR, l.ch, startPosition)
	case '{':
		tok = newToken(token.LBRACE, l.ch, startPosition)
	case '}':
		tok = newToken(token.RBRACE, l.ch, startPosition)
	case '(':
		tok = newToken(token.LPAREN, l.ch, startPosition)
	case ')':
		tok = newToken(token.RPAREN, l.ch, startPosition)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, startPosition)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, startPosition)
	case '\'':
		return NewSingleQuotedTokenizer(l).NextToken()
	case '"':
		return NewDoubleQuotedTokenizer(l).NextToken()
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Position = startPosition
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Position = startPosition
			return tok
		} else if isDigit(l.ch) {
			literal, isFloat, err := l.readNumber()
			tok.Position = startPosition
			if err != nil {
				tok.Type = token.ILLEGAL
				tok.Literal = err.Error()
				return tok
			}
			tok.Type = token.INT
			if isFloat {
				tok.Type = token.FLOAT
			}
			tok.Literal = literal
			return tok
		} else {
			tok = newToken(token.ILLEGAL, l.ch, startPosition)
		}
	}

	l.readChar()
	return tok
}
