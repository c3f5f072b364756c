package ast

// Inspect traverses the statements and expressions under n in source order, calling f for each
// node. Children are skipped when f returns false. Nested function and class declarations are
// visited as nodes but their bodies belong to their own functions and are not entered.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *ExprStmt:
		Inspect(n.X, f)
	case *Echo:
		inspectList(n.Args, f)
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *While:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *DoWhile:
		Inspect(n.Body, f)
		Inspect(n.Cond, f)
	case *For:
		inspectList(n.Init, f)
		inspectList(n.Cond, f)
		inspectList(n.Step, f)
		Inspect(n.Body, f)
	case *Foreach:
		Inspect(n.Source, f)
		if n.Key != nil {
			Inspect(n.Key, f)
		}
		Inspect(n.Value, f)
		Inspect(n.Body, f)
	case *Switch:
		Inspect(n.Subject, f)
		for _, c := range n.Cases {
			if c.Match != nil {
				Inspect(c.Match, f)
			}
			for _, s := range c.Body {
				Inspect(s, f)
			}
		}
	case *Return:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *Throw:
		Inspect(n.Value, f)
	case *Try:
		Inspect(n.Body, f)
		for _, c := range n.Catches {
			Inspect(c.Body, f)
		}
	case *Static:
		for _, v := range n.Vars {
			if v.Init != nil {
				Inspect(v.Init, f)
			}
		}
	case *Unset:
		inspectList(n.Targets, f)

	case *Interpolated:
		inspectList(n.Parts, f)
	case *ArrayLit:
		for _, it := range n.Items {
			if it.Key != nil {
				Inspect(it.Key, f)
			}
			Inspect(it.Value, f)
		}
	case *VarVar:
		Inspect(n.Name, f)
	case *Index:
		Inspect(n.Base, f)
		if n.Index != nil {
			Inspect(n.Index, f)
		}
	case *Prop:
		Inspect(n.Object, f)
	case *Assign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *AssignRef:
		Inspect(n.Target, f)
		Inspect(n.Source, f)
	case *CompoundAssign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *IncDec:
		Inspect(n.Target, f)
	case *Binary:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *Unary:
		Inspect(n.X, f)
	case *Cast:
		Inspect(n.X, f)
	case *Ternary:
		Inspect(n.Cond, f)
		if n.Then != nil {
			Inspect(n.Then, f)
		}
		Inspect(n.Else, f)
	case *Call:
		if n.Callee != nil {
			Inspect(n.Callee, f)
		}
		inspectList(n.Args, f)
	case *MethodCall:
		Inspect(n.Object, f)
		inspectList(n.Args, f)
	case *StaticCall:
		inspectList(n.Args, f)
	case *New:
		if n.ClassExpr != nil {
			Inspect(n.ClassExpr, f)
		}
		inspectList(n.Args, f)
	case *InstanceOf:
		Inspect(n.X, f)
	case *Isset:
		inspectList(n.Targets, f)
	}
}

func inspectList(list []Expression, f func(Node) bool) {
	for _, e := range list {
		Inspect(e, f)
	}
}
