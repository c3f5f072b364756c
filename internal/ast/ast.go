package ast

import (
	"fmt"
	"strings"
)

// Position is the opaque source location carried by every node and every raised error.
type Position struct {
	File string
	Line int
}

func (p Position) Pos() Position { return p }

// Relocate moves a node, for nodes parsed out of an enclosing string literal.
func (p *Position) Relocate(to Position) { *p = to }

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// The base Node interface
type Node interface {
	Pos() Position
	String() string
}

// Statement is the closed set of executable units. Only types of this package implement it.
type Statement interface {
	Node
	statementNode()
}

// Expression is the closed set of value producing nodes.
type Expression interface {
	Node
	expressionNode()
}

// Program is a parsed script: its top level code plus the declarations hoisted out of it.
type Program struct {
	File      string
	Main      *Function // top level statements wrapped as a function with a symbol table
	Functions []*Function
	Classes   []*Class
}

func (p *Program) Pos() Position { return p.Main.Position }

func (p *Program) String() string {
	var out strings.Builder
	for _, s := range p.Main.Body.Stmts {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Visibility of a class member.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}
