package ast

import (
	"strconv"
	"strings"
)

// Format renders a node back as source text. Statements are rendered one per line, indented by
// nesting.
func Format(n Node) string {
	var p printer
	switch n := n.(type) {
	case Statement:
		p.stmt(n)
		return strings.TrimRight(p.out.String(), "\n")
	case Expression:
		p.expr(n)
		return p.out.String()
	}
	return ""
}

type printer struct {
	out    strings.Builder
	indent int
}

func (p *printer) line(parts ...string) {
	p.out.WriteString(strings.Repeat("    ", p.indent))
	for _, s := range parts {
		p.out.WriteString(s)
	}
	p.out.WriteByte('\n')
}

func (p *printer) str(e Expression) string {
	var q printer
	q.expr(e)
	return q.out.String()
}

func (p *printer) list(es []Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = p.str(e)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) body(s Statement) {
	p.indent++
	if b, ok := s.(*Block); ok {
		for _, st := range b.Stmts {
			p.stmt(st)
		}
	} else if s != nil {
		p.stmt(s)
	}
	p.indent--
}

func (p *printer) stmt(s Statement) {
	switch s := s.(type) {
	case *Block:
		p.line("{")
		p.body(s)
		p.line("}")
	case *ExprStmt:
		p.line(p.str(s.X), ";")
	case *Echo:
		p.line("echo ", p.list(s.Args), ";")
	case *If:
		p.line("if (", p.str(s.Cond), ") {")
		p.body(s.Then)
		if s.Else != nil {
			p.line("} else {")
			p.body(s.Else)
		}
		p.line("}")
	case *While:
		p.line("while (", p.str(s.Cond), ") {")
		p.body(s.Body)
		p.line("}")
	case *DoWhile:
		p.line("do {")
		p.body(s.Body)
		p.line("} while (", p.str(s.Cond), ");")
	case *For:
		p.line("for (", p.list(s.Init), "; ", p.list(s.Cond), "; ", p.list(s.Step), ") {")
		p.body(s.Body)
		p.line("}")
	case *Foreach:
		v := p.str(s.Value)
		if s.ByRef {
			v = "&" + v
		}
		if s.Key != nil {
			v = p.str(s.Key) + " => " + v
		}
		p.line("foreach (", p.str(s.Source), " as ", v, ") {")
		p.body(s.Body)
		p.line("}")
	case *Switch:
		p.line("switch (", p.str(s.Subject), ") {")
		p.indent++
		for _, c := range s.Cases {
			if c.Match == nil {
				p.line("default:")
			} else {
				p.line("case ", p.str(c.Match), ":")
			}
			p.body(&Block{Stmts: c.Body})
		}
		p.indent--
		p.line("}")
	case *Break:
		p.line(jump("break", s.Depth))
	case *Continue:
		p.line(jump("continue", s.Depth))
	case *Return:
		if s.Value == nil {
			p.line("return;")
		} else {
			p.line("return ", p.str(s.Value), ";")
		}
	case *Throw:
		p.line("throw ", p.str(s.Value), ";")
	case *Try:
		p.line("try {")
		p.body(s.Body)
		for _, c := range s.Catches {
			v := ""
			if c.Var != "" {
				v = " $" + c.Var
			}
			p.line("} catch (", strings.Join(c.Types, " | "), v, ") {")
			p.body(c.Body)
		}
		p.line("}")
	case *Global:
		names := make([]string, len(s.Names))
		for i, n := range s.Names {
			names[i] = "$" + n
		}
		p.line("global ", strings.Join(names, ", "), ";")
	case *Static:
		parts := make([]string, len(s.Vars))
		for i, v := range s.Vars {
			parts[i] = "$" + v.Name
			if v.Init != nil {
				parts[i] += " = " + p.str(v.Init)
			}
		}
		p.line("static ", strings.Join(parts, ", "), ";")
	case *Unset:
		p.line("unset(", p.list(s.Targets), ");")
	case *FunctionDecl:
		p.line(signature(s.Fn), " { ... }")
	case *ClassDecl:
		p.line(s.Class.Kind.String(), " ", s.Class.Name, " { ... }")
	}
}

func jump(word string, depth int) string {
	if depth > 1 {
		return word + " " + strconv.Itoa(depth) + ";"
	}
	return word + ";"
}

func signature(f *Function) string {
	var args []string
	for _, a := range f.Args {
		s := "$" + a.Name
		if a.IsVariadic {
			s = "..." + s
		}
		if a.IsReference {
			s = "&" + s
		}
		if a.Default != nil {
			s += " = " + Format(a.Default)
		}
		args = append(args, s)
	}
	ref := ""
	if f.ReturnsRef {
		ref = "&"
	}
	return "function " + ref + f.Name + "(" + strings.Join(args, ", ") + ")"
}

func (p *printer) expr(e Expression) {
	w := &p.out
	switch e := e.(type) {
	case *IntLit:
		w.WriteString(strconv.FormatInt(e.Value, 10))
	case *FloatLit:
		w.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *StringLit:
		w.WriteString(strconv.Quote(e.Value))
	case *BoolLit:
		w.WriteString(strconv.FormatBool(e.Value))
	case *NullLit:
		w.WriteString("null")
	case *Interpolated:
		w.WriteString("\"")
		for _, part := range e.Parts {
			if s, ok := part.(*StringLit); ok {
				q := strconv.Quote(s.Value)
				w.WriteString(q[1 : len(q)-1])
			} else {
				w.WriteString("{" + p.str(part) + "}")
			}
		}
		w.WriteString("\"")
	case *ArrayLit:
		parts := make([]string, len(e.Items))
		for i, it := range e.Items {
			v := p.str(it.Value)
			if it.ByRef {
				v = "&" + v
			}
			if it.Key != nil {
				v = p.str(it.Key) + " => " + v
			}
			parts[i] = v
		}
		w.WriteString("[" + strings.Join(parts, ", ") + "]")
	case *Var:
		w.WriteString("$" + e.Name)
	case *VarVar:
		w.WriteString("${" + p.str(e.Name) + "}")
	case *This:
		w.WriteString("$this")
	case *Index:
		idx := ""
		if e.Index != nil {
			idx = p.str(e.Index)
		}
		w.WriteString(p.str(e.Base) + "[" + idx + "]")
	case *Prop:
		w.WriteString(p.str(e.Object) + "->" + e.Name)
	case *StaticProp:
		w.WriteString(e.Class + "::$" + e.Name)
	case *ClassConst:
		w.WriteString(e.Class + "::" + e.Name)
	case *ConstRef:
		w.WriteString(e.Name)
	case *Assign:
		w.WriteString(p.str(e.Target) + " = " + p.str(e.Value))
	case *AssignRef:
		w.WriteString(p.str(e.Target) + " = &" + p.str(e.Source))
	case *CompoundAssign:
		w.WriteString(p.str(e.Target) + " " + e.Op + "= " + p.str(e.Value))
	case *IncDec:
		op := "--"
		if e.Inc {
			op = "++"
		}
		if e.Prefix {
			w.WriteString(op + p.str(e.Target))
		} else {
			w.WriteString(p.str(e.Target) + op)
		}
	case *Binary:
		w.WriteString("(" + p.str(e.Left) + " " + e.Op + " " + p.str(e.Right) + ")")
	case *Unary:
		w.WriteString("(" + e.Op + p.str(e.X) + ")")
	case *Cast:
		w.WriteString("(" + e.Type + ")" + p.str(e.X))
	case *Ternary:
		if e.Then == nil {
			w.WriteString("(" + p.str(e.Cond) + " ?: " + p.str(e.Else) + ")")
		} else {
			w.WriteString("(" + p.str(e.Cond) + " ? " + p.str(e.Then) + " : " + p.str(e.Else) + ")")
		}
	case *Call:
		name := e.Name
		if e.Callee != nil {
			name = p.str(e.Callee)
		}
		w.WriteString(name + "(" + p.list(e.Args) + ")")
	case *MethodCall:
		w.WriteString(p.str(e.Object) + "->" + e.Name + "(" + p.list(e.Args) + ")")
	case *StaticCall:
		w.WriteString(e.Class + "::" + e.Name + "(" + p.list(e.Args) + ")")
	case *New:
		name := e.Class
		if e.ClassExpr != nil {
			name = p.str(e.ClassExpr)
		}
		w.WriteString("new " + name + "(" + p.list(e.Args) + ")")
	case *InstanceOf:
		w.WriteString("(" + p.str(e.X) + " instanceof " + e.Class + ")")
	case *Isset:
		w.WriteString("isset(" + p.list(e.Targets) + ")")
	}
}
