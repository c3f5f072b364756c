package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"quill/internal/ast"
	"reflect"
)

// WalkAST recursively traverses an AST and serializes it into a map structure for JSON output.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	m := map[string]interface{}{
		"type": reflect.TypeOf(node).Elem().Name(),
		"line": node.Pos().Line,
	}

	switch n := node.(type) {
	case *ast.Program:
		m["file"] = n.File
		m["main"] = WalkAST(n.Main.Body)
		fns := []interface{}{}
		for _, f := range n.Functions {
			fns = append(fns, walkFunction(f))
		}
		m["functions"] = fns
		classes := []interface{}{}
		for _, c := range n.Classes {
			classes = append(classes, walkClass(c))
		}
		m["classes"] = classes

	case *ast.Block:
		m["statements"] = walkStatements(n.Stmts)
	case *ast.ExprStmt:
		m["expression"] = WalkAST(n.X)
	case *ast.Echo:
		m["arguments"] = walkExpressions(n.Args)
	case *ast.If:
		m["condition"] = WalkAST(n.Cond)
		m["then"] = WalkAST(n.Then)
		m["else"] = WalkAST(n.Else)
	case *ast.While:
		m["condition"] = WalkAST(n.Cond)
		m["body"] = WalkAST(n.Body)
	case *ast.DoWhile:
		m["body"] = WalkAST(n.Body)
		m["condition"] = WalkAST(n.Cond)
	case *ast.For:
		m["init"] = walkExpressions(n.Init)
		m["condition"] = walkExpressions(n.Cond)
		m["step"] = walkExpressions(n.Step)
		m["body"] = WalkAST(n.Body)
	case *ast.Foreach:
		m["source"] = WalkAST(n.Source)
		m["key"] = WalkAST(n.Key)
		m["value"] = WalkAST(n.Value)
		m["byRef"] = n.ByRef
		m["body"] = WalkAST(n.Body)
	case *ast.Switch:
		m["subject"] = WalkAST(n.Subject)
		cases := []interface{}{}
		for _, c := range n.Cases {
			cases = append(cases, map[string]interface{}{
				"match": WalkAST(c.Match),
				"body":  walkStatements(c.Body),
			})
		}
		m["cases"] = cases
	case *ast.Break:
		m["depth"] = n.Depth
	case *ast.Continue:
		m["depth"] = n.Depth
	case *ast.Return:
		m["value"] = WalkAST(n.Value)
	case *ast.Throw:
		m["value"] = WalkAST(n.Value)
	case *ast.Try:
		m["body"] = WalkAST(n.Body)
		catches := []interface{}{}
		for _, c := range n.Catches {
			catches = append(catches, map[string]interface{}{
				"types": c.Types,
				"var":   c.Var,
				"body":  WalkAST(c.Body),
			})
		}
		m["catches"] = catches
	case *ast.Global:
		m["names"] = n.Names
	case *ast.Static:
		vars := []interface{}{}
		for _, v := range n.Vars {
			vars = append(vars, map[string]interface{}{"name": v.Name, "index": v.Index, "init": WalkAST(v.Init)})
		}
		m["vars"] = vars
	case *ast.Unset:
		m["targets"] = walkExpressions(n.Targets)
	case *ast.FunctionDecl:
		m["function"] = n.Fn.Name
	case *ast.ClassDecl:
		m["class"] = n.Class.Name

	case *ast.IntLit:
		m["value"] = n.Value
	case *ast.FloatLit:
		m["value"] = n.Value
	case *ast.StringLit:
		m["value"] = n.Value
	case *ast.BoolLit:
		m["value"] = n.Value
	case *ast.Interpolated:
		m["parts"] = walkExpressions(n.Parts)
	case *ast.ArrayLit:
		items := []interface{}{}
		for _, it := range n.Items {
			items = append(items, map[string]interface{}{"key": WalkAST(it.Key), "value": WalkAST(it.Value), "byRef": it.ByRef})
		}
		m["items"] = items
	case *ast.Var:
		m["name"] = n.Name
		if n.State != ast.StateNone {
			m["state"] = n.State.String()
		}
	case *ast.VarVar:
		m["name"] = WalkAST(n.Name)
	case *ast.Index:
		m["base"] = WalkAST(n.Base)
		m["index"] = WalkAST(n.Index)
	case *ast.Prop:
		m["object"] = WalkAST(n.Object)
		m["name"] = n.Name
	case *ast.StaticProp:
		m["class"] = n.Class
		m["name"] = n.Name
	case *ast.ClassConst:
		m["class"] = n.Class
		m["name"] = n.Name
	case *ast.ConstRef:
		m["name"] = n.Name
	case *ast.Assign:
		m["target"] = WalkAST(n.Target)
		m["value"] = WalkAST(n.Value)
	case *ast.AssignRef:
		m["target"] = WalkAST(n.Target)
		m["source"] = WalkAST(n.Source)
	case *ast.CompoundAssign:
		m["operator"] = n.Op
		m["target"] = WalkAST(n.Target)
		m["value"] = WalkAST(n.Value)
	case *ast.IncDec:
		m["target"] = WalkAST(n.Target)
		m["increment"] = n.Inc
		m["prefix"] = n.Prefix
	case *ast.Binary:
		m["operator"] = n.Op
		m["left"] = WalkAST(n.Left)
		m["right"] = WalkAST(n.Right)
	case *ast.Unary:
		m["operator"] = n.Op
		m["operand"] = WalkAST(n.X)
	case *ast.Cast:
		m["to"] = n.Type
		m["operand"] = WalkAST(n.X)
	case *ast.Ternary:
		m["condition"] = WalkAST(n.Cond)
		m["then"] = WalkAST(n.Then)
		m["else"] = WalkAST(n.Else)
	case *ast.Call:
		m["name"] = n.Name
		m["callee"] = WalkAST(n.Callee)
		m["arguments"] = walkExpressions(n.Args)
	case *ast.MethodCall:
		m["object"] = WalkAST(n.Object)
		m["name"] = n.Name
		m["arguments"] = walkExpressions(n.Args)
	case *ast.StaticCall:
		m["class"] = n.Class
		m["name"] = n.Name
		m["arguments"] = walkExpressions(n.Args)
	case *ast.New:
		m["class"] = n.Class
		m["classExpr"] = WalkAST(n.ClassExpr)
		m["arguments"] = walkExpressions(n.Args)
	case *ast.InstanceOf:
		m["operand"] = WalkAST(n.X)
		m["class"] = n.Class
	case *ast.Isset:
		m["targets"] = walkExpressions(n.Targets)
	}
	return m
}

func walkStatements(stmts []ast.Statement) []interface{} {
	out := make([]interface{}, len(stmts))
	for i, s := range stmts {
		out[i] = WalkAST(s)
	}
	return out
}

func walkExpressions(exprs []ast.Expression) []interface{} {
	out := make([]interface{}, len(exprs))
	for i, e := range exprs {
		out[i] = WalkAST(e)
	}
	return out
}

func walkFunction(f *ast.Function) interface{} {
	args := []interface{}{}
	for _, a := range f.Args {
		args = append(args, map[string]interface{}{
			"name":     a.Name,
			"default":  WalkAST(a.Default),
			"byRef":    a.IsReference,
			"variadic": a.IsVariadic,
		})
	}
	m := map[string]interface{}{
		"type":       "Function",
		"line":       f.Line,
		"name":       f.QualifiedName(),
		"arguments":  args,
		"returnsRef": f.ReturnsRef,
		"static":     f.IsStatic,
		"global":     f.IsGlobal,
		"visibility": f.Visibility.String(),
	}
	if f.Body != nil {
		m["body"] = WalkAST(f.Body)
	}
	return m
}

func walkClass(c *ast.Class) interface{} {
	props := []interface{}{}
	for _, p := range c.Props {
		props = append(props, map[string]interface{}{
			"name":       p.Name,
			"visibility": p.Visibility.String(),
			"static":     p.IsStatic,
			"default":    WalkAST(p.Default),
		})
	}
	consts := map[string]interface{}{}
	for _, k := range c.Consts {
		consts[k.Name] = WalkAST(k.Value)
	}
	methods := []interface{}{}
	for _, f := range c.Methods {
		methods = append(methods, f.Name)
	}
	var traits []string
	for _, u := range c.Uses {
		traits = append(traits, u.Traits...)
	}
	return map[string]interface{}{
		"type":       c.Kind.String(),
		"line":       c.Line,
		"name":       c.Name,
		"parent":     c.Parent,
		"interfaces": c.Interfaces,
		"traits":     traits,
		"abstract":   c.IsAbstract,
		"final":      c.IsFinal,
		"constants":  consts,
		"properties": props,
		"methods":    methods,
	}
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %v", err)
	}
	return buf.String(), nil
}
