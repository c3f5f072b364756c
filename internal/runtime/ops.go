package runtime

import (
	"errors"
	"math"
	"strings"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// Binary applies a non short-circuit binary operator.
func (e *Env) Binary(pos ast.Position, op string, l, r object.Value) (object.Value, error) {
	switch op {
	case ".":
		ls, err := e.ToStr(pos, l)
		if err != nil {
			return nil, err
		}
		rs, err := e.ToStr(pos, r)
		if err != nil {
			return nil, err
		}
		return &object.String{Value: ls + rs}, nil
	case "==":
		return object.NativeBool(object.LooseEquals(l, r)), nil
	case "!=":
		return object.NativeBool(!object.LooseEquals(l, r)), nil
	case "===":
		return object.NativeBool(object.StrictEquals(l, r)), nil
	case "!==":
		return object.NativeBool(!object.StrictEquals(l, r)), nil
	case "<":
		return object.NativeBool(object.Compare(l, r) < 0), nil
	case "<=":
		return object.NativeBool(object.Compare(l, r) <= 0), nil
	case ">":
		return object.NativeBool(object.Compare(l, r) > 0), nil
	case ">=":
		return object.NativeBool(object.Compare(l, r) >= 0), nil
	}

	e.warnNonNumeric(pos, l)
	e.warnNonNumeric(pos, r)
	var v object.Value
	var err error
	switch op {
	case "+":
		v, err = object.Add(l, r)
	case "-":
		v, err = object.Sub(l, r)
	case "*":
		v, err = object.Mul(l, r)
	case "/":
		v, err = object.Div(l, r)
	case "%":
		v, err = object.Mod(l, r)
	default:
		return nil, Fatalf(pos, "unknown operator %s", op)
	}
	switch {
	case errors.Is(err, object.ErrDivisionByZero):
		return nil, e.NewThrowable(pos, "DivisionByZeroError", "Division by zero")
	case errors.Is(err, object.ErrModuloByZero):
		return nil, e.NewThrowable(pos, "DivisionByZeroError", "Modulo by zero")
	case err != nil:
		return nil, e.NewThrowable(pos, "TypeError",
			"Unsupported operand types: "+object.TypeName(l)+" "+op+" "+object.TypeName(r))
	}
	return v, nil
}

func (e *Env) warnNonNumeric(pos ast.Position, v object.Value) {
	if s, ok := v.(*object.String); ok && !object.IsNumeric(s) {
		e.Warn(pos, "A non-numeric value encountered")
	}
}

// Unary applies - + or !.
func (e *Env) Unary(pos ast.Position, op string, v object.Value) (object.Value, error) {
	switch op {
	case "!":
		return object.NativeBool(!object.ToBool(v)), nil
	case "+":
		e.warnNonNumeric(pos, v)
		return object.ToNumber(v), nil
	case "-":
		e.warnNonNumeric(pos, v)
		return object.Negate(v)
	}
	return nil, Fatalf(pos, "unknown operator %s", op)
}

// Cast converts v to one of int, float, string, bool or array.
func (e *Env) Cast(pos ast.Position, typ string, v object.Value) (object.Value, error) {
	switch typ {
	case "int":
		return &object.Int{Value: object.ToInt(v)}, nil
	case "float":
		return &object.Float{Value: object.ToFloat(v)}, nil
	case "bool":
		return object.NativeBool(object.ToBool(v)), nil
	case "string":
		s, err := e.ToStr(pos, v)
		if err != nil {
			return nil, err
		}
		return &object.String{Value: s}, nil
	case "array":
		switch v := v.(type) {
		case *object.Array:
			return v.Copy(), nil
		case *object.Null:
			return object.NewArray(), nil
		case *object.Object:
			out := object.NewArray()
			v.Fields.Each(func(k object.Key, c *object.Cell) bool {
				out.Set(k, c.Value.Copy())
				return true
			})
			return out, nil
		}
		return object.NewList(v), nil
	}
	return nil, Fatalf(pos, "unknown cast %s", typ)
}

// ToStr converts a value to a string, calling __toString on objects.
func (e *Env) ToStr(pos ast.Position, v object.Value) (string, error) {
	switch v := v.(type) {
	case *object.Object:
		class := v.Class.(*Class)
		m := class.magic[program.SlotToString]
		if m == nil {
			return "", e.NewThrowable(pos, "Error", "Object of class "+class.Name()+" could not be converted to string")
		}
		res, err := e.Invoke(pos, m.Callable, m.receiverFor(v), nil)
		if err != nil {
			return "", err
		}
		s, ok := res.Value.(*object.String)
		if !ok {
			return "", e.NewThrowable(pos, "Error", class.Name()+"::__toString(): Return value must be of type string")
		}
		return s.Value, nil
	case *object.Array:
		e.Warn(pos, "Array to string conversion")
	}
	return object.ToString(v), nil
}

// IncDec is ++ and -- on a value.
func IncDec(v object.Value, inc bool) object.Value {
	switch x := v.(type) {
	case *object.Null:
		if inc {
			return &object.Int{Value: 1}
		}
		return object.NULL
	case *object.Int:
		if inc {
			if x.Value == math.MaxInt64 {
				return &object.Float{Value: float64(x.Value) + 1}
			}
			return &object.Int{Value: x.Value + 1}
		}
		if x.Value == math.MinInt64 {
			return &object.Float{Value: float64(x.Value) - 1}
		}
		return &object.Int{Value: x.Value - 1}
	case *object.Float:
		if inc {
			return &object.Float{Value: x.Value + 1}
		}
		return &object.Float{Value: x.Value - 1}
	case *object.String:
		if object.IsNumeric(x) {
			return IncDec(object.ToNumber(x), inc)
		}
		if inc {
			return &object.String{Value: incrementString(x.Value)}
		}
		return x
	}
	return v
}

// incrementString is the alphanumeric increment: "a" -> "b", "Az" -> "Ba", "zz" -> "aaa".
func incrementString(s string) string {
	if s == "" {
		return "1"
	}
	b := []byte(s)
	for i := len(b) - 1; i >= 0; i-- {
		switch c := b[i]; {
		case c == 'z':
			b[i] = 'a'
		case c == 'Z':
			b[i] = 'A'
		case c == '9':
			b[i] = '0'
		case c >= 'a' && c < 'z', c >= 'A' && c < 'Z', c >= '0' && c < '9':
			b[i]++
			return string(b)
		default:
			return string(b)
		}
	}
	var first byte
	switch c := s[0]; {
	case c >= 'a' && c <= 'z':
		first = 'a'
	case c >= 'A' && c <= 'Z':
		first = 'A'
	default:
		first = '1'
	}
	return string(first) + string(b)
}

// IndexGet reads base[key].
func (e *Env) IndexGet(pos ast.Position, base, key object.Value) (object.Value, error) {
	switch b := base.(type) {
	case *object.Array:
		k, err := object.KeyOf(key)
		if err != nil {
			return nil, e.NewThrowable(pos, "TypeError", "Illegal offset type")
		}
		if v, ok := b.Get(k); ok {
			return v, nil
		}
		if k.IsStr {
			e.Warn(pos, "Undefined array key \"%s\"", k.S)
		} else {
			e.Warn(pos, "Undefined array key %d", k.I)
		}
		return object.NULL, nil
	case *object.String:
		i := object.ToInt(key)
		if i < 0 {
			i += int64(len(b.Value))
		}
		if i < 0 || i >= int64(len(b.Value)) {
			e.Warn(pos, "Uninitialized string offset %d", object.ToInt(key))
			return &object.String{}, nil
		}
		return &object.String{Value: b.Value[i : i+1]}, nil
	case *object.Object:
		return nil, e.NewThrowable(pos, "Error", "Cannot use object of type "+b.Class.Name()+" as array")
	case *object.Null:
		e.Warn(pos, "Trying to access array offset on value of type null")
		return object.NULL, nil
	}
	e.Warn(pos, "Trying to access array offset on value of type %s", object.TypeName(base))
	return object.NULL, nil
}

// IndexCell returns the element cell of container for writing, creating the array and the
// element as needed. A nil key appends. ref marks the element as referenced so that it stays
// shared across array copies.
func (e *Env) IndexCell(pos ast.Position, container *object.Cell, key object.Value, ref bool) (*object.Cell, error) {
	arr, err := e.arrayIn(pos, container)
	if err != nil {
		return nil, err
	}
	if key == nil {
		k := arr.Append(object.NULL)
		if ref {
			return arr.RefCell(k), nil
		}
		c, _ := arr.GetCell(k)
		return c, nil
	}
	k, err := object.KeyOf(key)
	if err != nil {
		return nil, e.NewThrowable(pos, "TypeError", "Illegal offset type")
	}
	if ref {
		return arr.RefCell(k), nil
	}
	return arr.CellFor(k), nil
}

// BindIndex makes container[key] an alias of c. A nil key appends.
func (e *Env) BindIndex(pos ast.Position, container *object.Cell, key object.Value, c *object.Cell) error {
	arr, err := e.arrayIn(pos, container)
	if err != nil {
		return err
	}
	if key == nil {
		arr.AppendRef(c)
		return nil
	}
	k, err := object.KeyOf(key)
	if err != nil {
		return e.NewThrowable(pos, "TypeError", "Illegal offset type")
	}
	arr.SetRef(k, c)
	return nil
}

// arrayIn returns the array held by container, autovivifying null.
func (e *Env) arrayIn(pos ast.Position, container *object.Cell) (*object.Array, error) {
	switch v := container.Value.(type) {
	case *object.Array:
		return v, nil
	case *object.Null:
		arr := object.NewArray()
		container.Set(arr)
		return arr, nil
	case *object.Object:
		return nil, e.NewThrowable(pos, "Error", "Cannot use object of type "+v.Class.Name()+" as array")
	}
	return nil, e.NewThrowable(pos, "Error", "Cannot use a scalar value as an array")
}

// IssetIndex is isset(base[key]).
func IssetIndex(base, key object.Value) bool {
	switch b := base.(type) {
	case *object.Array:
		k, err := object.KeyOf(key)
		if err != nil {
			return false
		}
		v, ok := b.Get(k)
		return ok && v.IsSet()
	case *object.String:
		i := object.ToInt(key)
		return i >= 0 && i < int64(len(b.Value))
	}
	return false
}

// UnsetIndex removes key from the array held by container.
func UnsetIndex(container *object.Cell, key object.Value) {
	arr, ok := container.Value.(*object.Array)
	if !ok {
		return
	}
	if k, err := object.KeyOf(key); err == nil {
		arr.Delete(k)
	}
}

var constants = map[string]object.Value{
	"PHP_EOL":      &object.String{Value: "\n"},
	"PHP_INT_MAX":  &object.Int{Value: math.MaxInt64},
	"PHP_INT_MIN":  &object.Int{Value: math.MinInt64},
	"PHP_INT_SIZE": &object.Int{Value: 8},
	"PHP_VERSION":  &object.String{Value: "8.2.0-quill"},
	"M_PI":         &object.Float{Value: math.Pi},
	"NAN":          &object.Float{Value: math.NaN()},
	"INF":          &object.Float{Value: math.Inf(1)},
}

// Constant reads a global constant.
func (e *Env) Constant(pos ast.Position, name string) (object.Value, error) {
	if v, ok := constants[name]; ok {
		return v, nil
	}
	return nil, e.NewThrowable(pos, "Error", "Undefined constant \""+name+"\"")
}

// visibleProp resolves a property of o for the running class scope.
func (e *Env) visibleProp(o *object.Object, name string) (canonical string, accessible bool) {
	class := o.Class.(*Class)
	canonical, _, accessible = class.resolveField(e.Self(), name)
	return canonical, accessible
}

type magicKey struct {
	id   int64
	name string
	slot program.Magic
}

// magicGuard keeps __get and friends from recursing on the property they serve.
func (e *Env) enterMagic(o *object.Object, name string, slot program.Magic) bool {
	if e.magicActive == nil {
		e.magicActive = make(map[magicKey]bool)
	}
	k := magicKey{o.ID, name, slot}
	if e.magicActive[k] {
		return false
	}
	e.magicActive[k] = true
	return true
}

func (e *Env) leaveMagic(o *object.Object, name string, slot program.Magic) {
	delete(e.magicActive, magicKey{o.ID, name, slot})
}

func (e *Env) callMagic(pos ast.Position, o *object.Object, slot program.Magic, name string, extra ...object.Value) (object.Value, bool, error) {
	m := o.Class.(*Class).magic[slot]
	if m == nil || !e.enterMagic(o, name, slot) {
		return nil, false, nil
	}
	defer e.leaveMagic(o, name, slot)
	args := []*object.Cell{object.NewCell(&object.String{Value: name})}
	for _, v := range extra {
		args = append(args, object.NewCell(v))
	}
	res, err := e.Invoke(pos, m.Callable, m.receiverFor(o), args)
	if err != nil {
		return nil, true, err
	}
	return res.Value, true, nil
}

// PropGet reads $v->name.
func (e *Env) PropGet(pos ast.Position, v object.Value, name string) (object.Value, error) {
	o, ok := v.(*object.Object)
	if !ok {
		e.Warn(pos, "Attempt to read property \"%s\" on %s", name, object.TypeName(v))
		return object.NULL, nil
	}
	canonical, accessible := e.visibleProp(o, name)
	if accessible {
		if c, ok := o.Field(canonical); ok {
			return c.Value, nil
		}
	}
	if res, called, err := e.callMagic(pos, o, program.SlotGet, name); called {
		return res, err
	}
	if !accessible {
		return nil, e.inaccessible(pos, o, canonical, name)
	}
	e.Warn(pos, "Undefined property: %s::$%s", o.Class.Name(), name)
	return object.NULL, nil
}

func (e *Env) inaccessible(pos ast.Position, o *object.Object, canonical, name string) error {
	vis := "protected"
	if program.IsPrivate(canonical) {
		vis = "private"
	}
	return e.NewThrowable(pos, "Error", "Cannot access "+vis+" property "+o.Class.Name()+"::$"+name)
}

// PropCell returns the cell of $v->name for in-place writes and references, creating a public
// property when the object has none.
func (e *Env) PropCell(pos ast.Position, v object.Value, name string) (*object.Cell, error) {
	o, ok := v.(*object.Object)
	if !ok {
		return nil, e.NewThrowable(pos, "Error", "Attempt to modify property \""+name+"\" on "+object.TypeName(v))
	}
	canonical, accessible := e.visibleProp(o, name)
	if !accessible {
		return nil, e.inaccessible(pos, o, canonical, name)
	}
	if c, ok := o.Field(canonical); ok {
		return c, nil
	}
	if res, called, err := e.callMagic(pos, o, program.SlotGet, name); called {
		if err != nil {
			return nil, err
		}
		e.Warn(pos, "Indirect modification of overloaded property %s::$%s has no effect", o.Class.Name(), name)
		return object.NewCell(res.Copy()), nil
	}
	return o.Fields.CellFor(object.StrKey(canonical)), nil
}

// PropSet is $v->name = value.
func (e *Env) PropSet(pos ast.Position, v object.Value, name string, value object.Value) error {
	o, ok := v.(*object.Object)
	if !ok {
		return e.NewThrowable(pos, "Error", "Attempt to assign property \""+name+"\" on "+object.TypeName(v))
	}
	canonical, accessible := e.visibleProp(o, name)
	if accessible {
		if c, ok := o.Field(canonical); ok {
			c.Set(value)
			return nil
		}
	}
	if _, called, err := e.callMagic(pos, o, program.SlotSet, name, value); called {
		return err
	}
	if !accessible {
		return e.inaccessible(pos, o, canonical, name)
	}
	o.SetField(canonical, value)
	return nil
}

// BindProp makes $v->name an alias of c.
func (e *Env) BindProp(pos ast.Position, v object.Value, name string, c *object.Cell) error {
	o, ok := v.(*object.Object)
	if !ok {
		return e.NewThrowable(pos, "Error", "Attempt to modify property \""+name+"\" on "+object.TypeName(v))
	}
	canonical, accessible := e.visibleProp(o, name)
	if !accessible {
		return e.inaccessible(pos, o, canonical, name)
	}
	o.Fields.SetRef(object.StrKey(canonical), c)
	return nil
}

// PropIsset is isset($v->name).
func (e *Env) PropIsset(pos ast.Position, v object.Value, name string) (bool, error) {
	o, ok := v.(*object.Object)
	if !ok {
		return false, nil
	}
	canonical, accessible := e.visibleProp(o, name)
	if accessible {
		if c, ok := o.Field(canonical); ok {
			return c.Value.IsSet(), nil
		}
	}
	res, called, err := e.callMagic(pos, o, program.SlotIsset, name)
	if err != nil || !called {
		return false, err
	}
	return object.ToBool(res), nil
}

// PropUnset is unset($v->name).
func (e *Env) PropUnset(pos ast.Position, v object.Value, name string) error {
	o, ok := v.(*object.Object)
	if !ok {
		return nil
	}
	canonical, accessible := e.visibleProp(o, name)
	if accessible {
		if _, ok := o.Field(canonical); ok {
			o.Fields.Delete(object.StrKey(canonical))
			return nil
		}
	}
	if _, called, err := e.callMagic(pos, o, program.SlotUnset, name); called {
		return err
	}
	if !accessible {
		return e.inaccessible(pos, o, canonical, name)
	}
	return nil
}

// StaticProp returns the cell of Class::$name in this Env.
func (e *Env) StaticProp(pos ast.Position, className, name string) (*object.Cell, error) {
	class, err := e.ResolveClass(pos, className)
	if err != nil {
		return nil, err
	}
	f, ok := class.staticField(name)
	if !ok {
		return nil, e.NewThrowable(pos, "Error", "Access to undeclared static property "+class.Name()+"::$"+name)
	}
	if !canAccess(e.Self(), class.ancestor(f.Owner), f.Visibility) {
		return nil, e.NewThrowable(pos, "Error", "Cannot access "+f.Visibility.String()+" property "+class.Name()+"::$"+name)
	}
	props, err := e.staticProps(class)
	if err != nil {
		return nil, err
	}
	return props[name], nil
}

// ClassConst reads Class::NAME; Class::class yields the resolved name.
func (e *Env) ClassConst(pos ast.Position, className, name string) (object.Value, error) {
	class, err := e.ResolveClass(pos, className)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(name, "class") {
		return &object.String{Value: class.Name()}, nil
	}
	return class.Const(e, pos, name)
}
