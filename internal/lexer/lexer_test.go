package lexer

import (
	"quill/internal/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `<?php
$five = 5;
$ten = 10.5; // comment
function add(&$x, $y = 2) { return $x + $y; }
# alt comment
/* block
   comment */
$a === $b; $a !== $b; $a == $b; $a != $b;
$o->name; Foo::bar(); $i++; $i--; $s .= 'x';
$a ?? $b; $a ??= 1; [1 => 2]; ...$rest;
$$name;
?>`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.VARIABLE, "five"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "ten"},
		{token.ASSIGN, "="},
		{token.FLOAT, "10.5"},
		{token.SEMICOLON, ";"},
		{token.FUNCTION, "function"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.AMP, "&"},
		{token.VARIABLE, "x"},
		{token.COMMA, ","},
		{token.VARIABLE, "y"},
		{token.ASSIGN, "="},
		{token.INT, "2"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.VARIABLE, "x"},
		{token.PLUS, "+"},
		{token.VARIABLE, "y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.VARIABLE, "a"},
		{token.IDENT_EQ, "==="},
		{token.VARIABLE, "b"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "a"},
		{token.NOT_IDEN, "!=="},
		{token.VARIABLE, "b"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "a"},
		{token.EQ, "=="},
		{token.VARIABLE, "b"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "a"},
		{token.NOT_EQ, "!="},
		{token.VARIABLE, "b"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "o"},
		{token.ARROW, "->"},
		{token.IDENT, "name"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "Foo"},
		{token.DOUBLE_COLON, "::"},
		{token.IDENT, "bar"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "i"},
		{token.INCREMENT, "++"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "i"},
		{token.DECREMENT, "--"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "s"},
		{token.CONCAT_ASSIGN, ".="},
		{token.STRING, "x"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "a"},
		{token.COALESCE, "??"},
		{token.VARIABLE, "b"},
		{token.SEMICOLON, ";"},
		{token.VARIABLE, "a"},
		{token.COALESCE_ASSIGN, "??="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.LBRACKET, "["},
		{token.INT, "1"},
		{token.ROCKET, "=>"},
		{token.INT, "2"},
		{token.RBRACKET, "]"},
		{token.SEMICOLON, ";"},
		{token.ELLIPSIS, "..."},
		{token.VARIABLE, "rest"},
		{token.SEMICOLON, ";"},
		{token.DOLLAR, "$"},
		{token.VARIABLE, "name"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	l := New("FUNCTION Echo wHiLe")
	for _, want := range []token.TokenType{token.FUNCTION, token.ECHO, token.WHILE} {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("expected %q, got %q", want, tok.Type)
		}
	}
}

func TestNextStringToken(t *testing.T) {
	input := `'it\'s' "a\tb\n" "hello $name!" "cost: \$5" 'no $interp'`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.STRING, "it's"},
		{token.STRING, "a\tb\n"},
		{token.TEMPLATE, "hello $name!"},
		{token.STRING, "cost: $5"},
		{token.STRING, "no $interp"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q: %q",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"never closed`)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %q: %q", tok.Type, tok.Literal)
	}
}
