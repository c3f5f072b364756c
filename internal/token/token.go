package token

import "strings"

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT    = "IDENT"    // foo, Foo, self
	VARIABLE = "VARIABLE" // $foo
	INT      = "INT"      // 1343456
	FLOAT    = "FLOAT"    // 1.5
	STRING   = "STRING"   // 'foobar'
	TEMPLATE = "TEMPLATE" // "hello $name"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	BANG     = "!"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	PERIOD   = "."
	AMP      = "&"
	DOLLAR   = "$"

	PLUS_ASSIGN     = "+="
	MINUS_ASSIGN    = "-="
	ASTERISK_ASSIGN = "*="
	SLASH_ASSIGN    = "/="
	PERCENT_ASSIGN  = "%="
	CONCAT_ASSIGN   = ".="
	COALESCE_ASSIGN = "??="

	INCREMENT = "++"
	DECREMENT = "--"

	LT       = "<"
	LT_EQ    = "<="
	GT       = ">"
	GT_EQ    = ">="
	EQ       = "=="
	NOT_EQ   = "!="
	IDENT_EQ = "==="
	NOT_IDEN = "!=="

	LOGICAL_AND = "&&"
	LOGICAL_OR  = "||"
	COALESCE    = "??"
	QUESTION    = "?"

	ARROW        = "->"
	DOUBLE_COLON = "::"
	ROCKET       = "=>"
	ELLIPSIS     = "..."

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	// Keywords
	FUNCTION   = "FUNCTION"
	RETURN     = "RETURN"
	IF         = "IF"
	ELSE       = "ELSE"
	ELSEIF     = "ELSEIF"
	WHILE      = "WHILE"
	DO         = "DO"
	FOR        = "FOR"
	FOREACH    = "FOREACH"
	AS         = "AS"
	SWITCH     = "SWITCH"
	CASE       = "CASE"
	DEFAULT    = "DEFAULT"
	BREAK      = "BREAK"
	CONTINUE   = "CONTINUE"
	TRY        = "TRY"
	CATCH      = "CATCH"
	THROW      = "THROW"
	GLOBAL     = "GLOBAL"
	STATIC     = "STATIC"
	ECHO       = "ECHO"
	CLASS      = "CLASS"
	INTERFACE  = "INTERFACE"
	TRAIT      = "TRAIT"
	EXTENDS    = "EXTENDS"
	IMPLEMENTS = "IMPLEMENTS"
	USE        = "USE"
	INSTEADOF  = "INSTEADOF"
	NEW        = "NEW"
	PUBLIC     = "PUBLIC"
	PROTECTED  = "PROTECTED"
	PRIVATE    = "PRIVATE"
	ABSTRACT   = "ABSTRACT"
	FINAL      = "FINAL"
	CONST      = "CONST"
	VAR        = "VAR"
	INSTANCEOF = "INSTANCEOF"
	ISSET      = "ISSET"
	UNSET      = "UNSET"
	ARRAY      = "ARRAY"
	TRUE       = "TRUE"
	FALSE      = "FALSE"
	NULL       = "NULL"
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int // the src index of the token
}

// keywords are matched case-insensitively, like the guest language does.
var keywords = map[string]TokenType{
	// constants
	"null":  NULL,
	"true":  TRUE,
	"false": FALSE,

	// declarations
	"function":   FUNCTION,
	"class":      CLASS,
	"interface":  INTERFACE,
	"trait":      TRAIT,
	"extends":    EXTENDS,
	"implements": IMPLEMENTS,
	"use":        USE,
	"insteadof":  INSTEADOF,
	"public":     PUBLIC,
	"protected":  PROTECTED,
	"private":    PRIVATE,
	"abstract":   ABSTRACT,
	"final":      FINAL,
	"const":      CONST,
	"var":        VAR,
	"global":     GLOBAL,
	"static":     STATIC,

	// flow control
	"if":       IF,
	"else":     ELSE,
	"elseif":   ELSEIF,
	"while":    WHILE,
	"do":       DO,
	"for":      FOR,
	"foreach":  FOREACH,
	"as":       AS,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,

	// error handling
	"try":   TRY,
	"catch": CATCH,
	"throw": THROW,

	// expressions
	"echo":       ECHO,
	"new":        NEW,
	"instanceof": INSTANCEOF,
	"isset":      ISSET,
	"unset":      UNSET,
	"array":      ARRAY,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}
