package runtime

import (
	"fmt"
	"strings"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// Builtin is a function implemented by the host.
type Builtin struct {
	decl *ast.Function
	Fn   func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error)
}

func (b *Builtin) Decl() *ast.Function { return b.decl }

func (b *Builtin) CallN(env *Env, recv Receiver, args []*object.Cell) (*object.Cell, error) {
	v, err := b.Fn(env, env.Frame().Pos, args)
	if err != nil {
		return nil, err
	}
	return object.NewCell(v), nil
}

// newBuiltin declares a builtin; params are names with an optional leading & (by reference),
// leading ... (variadic) or trailing ? (optional).
func newBuiltin(name string, params []string, fn func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error)) *Builtin {
	decl := &ast.Function{Name: name}
	for _, p := range params {
		arg := &ast.Arg{}
		if strings.HasPrefix(p, "&") {
			arg.IsReference = true
			p = p[1:]
		}
		if strings.HasPrefix(p, "...") {
			arg.IsVariadic = true
			p = p[3:]
		}
		if strings.HasSuffix(p, "?") {
			arg.Default = &ast.NullLit{}
			p = strings.TrimSuffix(p, "?")
		}
		arg.Name = p
		decl.Args = append(decl.Args, arg)
	}
	return &Builtin{decl: decl, Fn: fn}
}

var builtins = map[string]*Builtin{
	// strings
	"strlen":     fnBuiltinStrlen(),
	"str_repeat": fnBuiltinStrRepeat(),
	"strtoupper": fnBuiltinStrCase("strtoupper", strings.ToUpper),
	"strtolower": fnBuiltinStrCase("strtolower", strings.ToLower),
	"implode":    fnBuiltinImplode(),
	"strval":     fnBuiltinStrval(),
	"intval":     fnBuiltinIntval(),

	// arrays
	"count":        fnBuiltinCount(),
	"array_keys":   fnBuiltinArrayKeys(),
	"array_values": fnBuiltinArrayValues(),
	"in_array":     fnBuiltinInArray(),
	"array_push":   fnBuiltinArrayPush(),

	// types
	"is_array":  fnBuiltinIsType("is_array", object.ARRAY_OBJ),
	"is_int":    fnBuiltinIsType("is_int", object.INT_OBJ),
	"is_float":  fnBuiltinIsType("is_float", object.FLOAT_OBJ),
	"is_string": fnBuiltinIsType("is_string", object.STRING_OBJ),
	"is_bool":   fnBuiltinIsType("is_bool", object.BOOL_OBJ),
	"is_null":   fnBuiltinIsType("is_null", object.NULL_OBJ),
	"get_class": fnBuiltinGetClass(),

	// symbol table and call frame
	"func_get_args": fnBuiltinFuncGetArgs(),
	"func_num_args": fnBuiltinFuncNumArgs(),
	"compact":       fnBuiltinCompact(),
	"extract":       fnBuiltinExtract(),

	"print_r": fnBuiltinPrintR(),
}

// SymbolTableBuiltins read or write the caller's variables by name.
var SymbolTableBuiltins = map[string]bool{"compact": true, "extract": true}

// FrameBuiltins read the caller's actual arguments.
var FrameBuiltins = map[string]bool{"func_get_args": true, "func_num_args": true}

func fnBuiltinStrlen() *Builtin {
	return newBuiltin("strlen", []string{"string"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		s, err := env.ToStr(pos, args[0].Value)
		if err != nil {
			return nil, err
		}
		return &object.Int{Value: int64(len(s))}, nil
	})
}

func fnBuiltinStrRepeat() *Builtin {
	return newBuiltin("str_repeat", []string{"string", "times"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		s, err := env.ToStr(pos, args[0].Value)
		if err != nil {
			return nil, err
		}
		n := object.ToInt(args[1].Value)
		if n < 0 {
			return nil, env.NewThrowable(pos, "ValueError", "str_repeat(): Argument #2 ($times) must be greater than or equal to 0")
		}
		return &object.String{Value: strings.Repeat(s, int(n))}, nil
	})
}

func fnBuiltinStrCase(name string, conv func(string) string) *Builtin {
	return newBuiltin(name, []string{"string"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		s, err := env.ToStr(pos, args[0].Value)
		if err != nil {
			return nil, err
		}
		return &object.String{Value: conv(s)}, nil
	})
}

func fnBuiltinImplode() *Builtin {
	return newBuiltin("implode", []string{"separator", "array?"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		sep, list := args[0].Value, object.Value(object.NULL)
		if len(args) > 1 {
			list = args[1].Value
		}
		if arr, ok := sep.(*object.Array); ok {
			sep, list = &object.String{}, arr
		}
		arr, ok := list.(*object.Array)
		if !ok {
			return nil, env.NewThrowable(pos, "TypeError", "implode(): Argument #2 ($array) must be of type ?array, "+object.TypeName(list)+" given")
		}
		sepStr, err := env.ToStr(pos, sep)
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, arr.Len())
		for _, v := range arr.Values() {
			s, err := env.ToStr(pos, v)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		return &object.String{Value: strings.Join(parts, sepStr)}, nil
	})
}

func fnBuiltinStrval() *Builtin {
	return newBuiltin("strval", []string{"value"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		s, err := env.ToStr(pos, args[0].Value)
		if err != nil {
			return nil, err
		}
		return &object.String{Value: s}, nil
	})
}

func fnBuiltinIntval() *Builtin {
	return newBuiltin("intval", []string{"value"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		return &object.Int{Value: object.ToInt(args[0].Value)}, nil
	})
}

func fnBuiltinCount() *Builtin {
	return newBuiltin("count", []string{"value"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		arr, ok := args[0].Value.(*object.Array)
		if !ok {
			return nil, env.NewThrowable(pos, "TypeError", "count(): Argument #1 ($value) must be of type Countable|array, "+object.TypeName(args[0].Value)+" given")
		}
		return &object.Int{Value: int64(arr.Len())}, nil
	})
}

func arrayArg(env *Env, pos ast.Position, fn string, v object.Value) (*object.Array, error) {
	arr, ok := v.(*object.Array)
	if !ok {
		return nil, env.NewThrowable(pos, "TypeError", fn+"(): Argument #1 ($array) must be of type array, "+object.TypeName(v)+" given")
	}
	return arr, nil
}

func fnBuiltinArrayKeys() *Builtin {
	return newBuiltin("array_keys", []string{"array"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		arr, err := arrayArg(env, pos, "array_keys", args[0].Value)
		if err != nil {
			return nil, err
		}
		out := object.NewArray()
		for _, k := range arr.Keys() {
			out.Append(k.Value())
		}
		return out, nil
	})
}

func fnBuiltinArrayValues() *Builtin {
	return newBuiltin("array_values", []string{"array"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		arr, err := arrayArg(env, pos, "array_values", args[0].Value)
		if err != nil {
			return nil, err
		}
		out := object.NewArray()
		for _, v := range arr.Values() {
			out.Append(v.Copy())
		}
		return out, nil
	})
}

func fnBuiltinInArray() *Builtin {
	return newBuiltin("in_array", []string{"needle", "haystack", "strict?"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		arr, ok := args[1].Value.(*object.Array)
		if !ok {
			return nil, env.NewThrowable(pos, "TypeError", "in_array(): Argument #2 ($haystack) must be of type array, "+object.TypeName(args[1].Value)+" given")
		}
		strict := len(args) > 2 && object.ToBool(args[2].Value)
		for _, v := range arr.Values() {
			if strict && object.StrictEquals(v, args[0].Value) || !strict && object.LooseEquals(v, args[0].Value) {
				return object.TRUE, nil
			}
		}
		return object.FALSE, nil
	})
}

func fnBuiltinArrayPush() *Builtin {
	return newBuiltin("array_push", []string{"&array", "...values"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		arr, err := arrayArg(env, pos, "array_push", args[0].Value)
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			arr.Append(a.Value.Copy())
		}
		return &object.Int{Value: int64(arr.Len())}, nil
	})
}

func fnBuiltinIsType(name string, typ object.ObjectType) *Builtin {
	return newBuiltin(name, []string{"value"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		return object.NativeBool(args[0].Value.Type() == typ), nil
	})
}

func fnBuiltinGetClass() *Builtin {
	return newBuiltin("get_class", []string{"object?"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		if len(args) == 0 {
			caller := env.CallerFrame()
			if caller == nil || caller.Recv.Self == nil {
				return nil, env.NewThrowable(pos, "Error", "get_class() without arguments must be called from within a class")
			}
			return &object.String{Value: caller.Recv.Self.Name()}, nil
		}
		o, ok := args[0].Value.(*object.Object)
		if !ok {
			return nil, env.NewThrowable(pos, "TypeError", "get_class(): Argument #1 ($object) must be of type object, "+object.TypeName(args[0].Value)+" given")
		}
		return &object.String{Value: o.Class.Name()}, nil
	})
}

func callerOf(env *Env, pos ast.Position, fn string) (*Frame, error) {
	caller := env.CallerFrame()
	if caller == nil || caller.Fn.IsMain {
		return nil, env.NewThrowable(pos, "Error", fn+"() cannot be called from the global scope")
	}
	return caller, nil
}

func fnBuiltinFuncGetArgs() *Builtin {
	return newBuiltin("func_get_args", nil, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		caller, err := callerOf(env, pos, "func_get_args")
		if err != nil {
			return nil, err
		}
		out := object.NewArray()
		for _, a := range caller.Args {
			out.Append(a.Value.Copy())
		}
		return out, nil
	})
}

func fnBuiltinFuncNumArgs() *Builtin {
	return newBuiltin("func_num_args", nil, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		caller, err := callerOf(env, pos, "func_num_args")
		if err != nil {
			return nil, err
		}
		return &object.Int{Value: int64(len(caller.Args))}, nil
	})
}

func fnBuiltinCompact() *Builtin {
	return newBuiltin("compact", []string{"...names"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		scope := env.Scope()
		out := object.NewArray()
		if scope == nil {
			env.Warn(pos, "compact(): no symbol table is active")
			return out, nil
		}
		var add func(v object.Value)
		add = func(v object.Value) {
			if arr, ok := v.(*object.Array); ok {
				for _, item := range arr.Values() {
					add(item)
				}
				return
			}
			name := object.ToString(v)
			if c, ok := scope.Get(name); ok {
				out.Set(object.StrKey(name), c.Value.Copy())
				return
			}
			env.Warn(pos, "compact(): Undefined variable $%s", name)
		}
		for _, a := range args {
			add(a.Value)
		}
		return out, nil
	})
}

func fnBuiltinExtract() *Builtin {
	return newBuiltin("extract", []string{"array"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		arr, err := arrayArg(env, pos, "extract", args[0].Value)
		if err != nil {
			return nil, err
		}
		scope := env.Scope()
		if scope == nil {
			env.Warn(pos, "extract(): no symbol table is active")
			return &object.Int{}, nil
		}
		n := 0
		arr.Each(func(k object.Key, c *object.Cell) bool {
			if !k.IsStr || k.S == "" || k.S == "this" {
				return true
			}
			scope.Cell(k.S).Set(c.Value.Copy())
			n++
			return true
		})
		return &object.Int{Value: int64(n)}, nil
	})
}

func fnBuiltinPrintR() *Builtin {
	return newBuiltin("print_r", []string{"value", "return?"}, func(env *Env, pos ast.Position, args []*object.Cell) (object.Value, error) {
		var sb strings.Builder
		if err := printR(env, pos, &sb, args[0].Value, 0); err != nil {
			return nil, err
		}
		if len(args) > 1 && object.ToBool(args[1].Value) {
			return &object.String{Value: sb.String()}, nil
		}
		if err := env.Echo(sb.String()); err != nil {
			return nil, err
		}
		return object.TRUE, nil
	})
}

func printR(env *Env, pos ast.Position, sb *strings.Builder, v object.Value, indent int) error {
	var table *object.Table
	switch x := v.(type) {
	case *object.Array:
		sb.WriteString("Array\n")
		table = x.Table
	case *object.Object:
		sb.WriteString(x.Class.Name() + " Object\n")
		table = x.Fields
	default:
		s, err := env.ToStr(pos, v)
		if err != nil {
			return err
		}
		sb.WriteString(s)
		return nil
	}

	pad := strings.Repeat(" ", indent)
	sb.WriteString(pad + "(\n")
	var err error
	table.Each(func(k object.Key, c *object.Cell) bool {
		sb.WriteString(pad + "    [" + printRKey(k, v) + "] => ")
		if err = printR(env, pos, sb, c.Value, indent+8); err != nil {
			return false
		}
		sb.WriteString("\n")
		return true
	})
	if err != nil {
		return err
	}
	sb.WriteString(pad + ")\n")
	return nil
}

func printRKey(k object.Key, container object.Value) string {
	if _, ok := container.(*object.Object); !ok || !k.IsStr {
		return k.String()
	}
	name, vis, owner := program.DecodeField(k.S)
	switch vis {
	case ast.Private:
		return fmt.Sprintf("%s:%s:private", name, owner)
	case ast.Protected:
		return name + ":protected"
	}
	return name
}
