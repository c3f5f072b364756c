package runtime

import (
	"strings"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// Invoke runs a callable with bound arguments. It is the one calling convention shared by both
// backends: timeout check, arity check, static guard, frame bookkeeping and fixed arity dispatch.
func (e *Env) Invoke(pos ast.Position, c Callable, recv Receiver, args []*object.Cell) (*object.Cell, error) {
	decl := c.Decl()
	if err := e.CheckTimeout(pos); err != nil {
		return nil, err
	}
	if req := decl.RequiredArgs(); len(args) < req {
		berr := &BindingError{Function: decl.QualifiedName(), Required: req, Given: len(args), Pos: pos}
		e.report(Diagnostic{Level: LevelWarning, Msg: berr.Error(), Pos: pos, Err: berr})
		return object.NewCell(object.NULL), nil
	}
	if decl.Info != nil && decl.Info.HasStatics {
		if err := e.Runtime.Statics.Enter(e); err != nil {
			return nil, e.CheckTimeout(pos)
		}
		defer e.Runtime.Statics.Leave(e)
	}
	if err := e.pushFrame(&Frame{Fn: decl, Recv: recv, Args: args, Pos: pos}); err != nil {
		return nil, err
	}
	defer e.popFrame()

	if fc, ok := c.(FixedCaller); ok && fc.Fixed() && len(args) <= MaxFixedArgs {
		switch len(args) {
		case 0:
			return fc.Call0(e, recv)
		case 1:
			return fc.Call1(e, recv, args[0])
		case 2:
			return fc.Call2(e, recv, args[0], args[1])
		case 3:
			return fc.Call3(e, recv, args[0], args[1], args[2])
		case 4:
			return fc.Call4(e, recv, args[0], args[1], args[2], args[3])
		case 5:
			return fc.Call5(e, recv, args[0], args[1], args[2], args[3], args[4])
		}
	}
	return c.CallN(e, recv, args)
}

// EnterFrame runs f inside a pseudo frame with the given receiver, for evaluating class
// constants and defaults outside any routine.
func (e *Env) EnterFrame(fn *ast.Function, recv Receiver, f func() (object.Value, error)) (object.Value, error) {
	if err := e.pushFrame(&Frame{Fn: fn, Recv: recv, Pos: fn.Position}); err != nil {
		return nil, err
	}
	defer e.popFrame()
	return f()
}

// RefArg reports whether the i-th argument of c binds by reference.
func RefArg(c Callable, i int) bool {
	args := c.Decl().Args
	if i < len(args) {
		return args[i].IsReference
	}
	if n := len(args); n > 0 && args[n-1].IsVariadic {
		return args[n-1].IsReference
	}
	return false
}

// FunctionTarget resolves a call by name.
func (e *Env) FunctionTarget(pos ast.Position, name string) (Callable, error) {
	if fn, ok := e.FindFunction(name); ok {
		return fn, nil
	}
	return nil, Fatalf(pos, "Call to undefined function %s()", name)
}

// MethodTarget resolves $obj->name(...), falling back to __call.
func (e *Env) MethodTarget(pos ast.Position, v object.Value, name string) (Callable, Receiver, error) {
	o, ok := v.(*object.Object)
	if !ok {
		return nil, Receiver{}, Fatalf(pos, "Call to a member function %s() on %s", name, object.TypeName(v))
	}
	class := o.Class.(*Class)
	m, accessible, found := class.findMethod(e.Self(), name)
	if found && accessible {
		if m.IsStatic {
			return m.Callable, Receiver{Self: m.Class, Static: class}, nil
		}
		return m.Callable, m.receiverFor(o), nil
	}
	if call := class.magic[program.SlotCall]; call != nil {
		return &magicCall{method: call, name: name}, call.receiverFor(o), nil
	}
	if found {
		return nil, Receiver{}, Fatalf(pos, "Call to %s method %s::%s() from %s", m.Visibility, class.Name(), m.Name, e.scopeName())
	}
	return nil, Receiver{}, Fatalf(pos, "Call to undefined method %s::%s()", class.Name(), name)
}

// StaticTarget resolves Class::name(...). An instance method called this way keeps the current
// $this when it is an instance of the class, which covers parent:: and self:: forwarding.
func (e *Env) StaticTarget(pos ast.Position, className, name string) (Callable, Receiver, error) {
	class, err := e.ResolveClass(pos, className)
	if err != nil {
		return nil, Receiver{}, err
	}
	cur := e.receiver()
	lateStatic := class
	switch strings.ToLower(className) {
	case "parent", "self", "static":
		if cur.Static != nil {
			lateStatic = cur.Static
		}
	}

	m, accessible, found := class.findMethod(cur.Self, name)
	if found && accessible {
		if m.IsAbstract {
			return nil, Receiver{}, Fatalf(pos, "Cannot call abstract method %s::%s()", m.Class.Name(), m.Name)
		}
		if m.IsStatic {
			return m.Callable, Receiver{Self: m.Class, Static: lateStatic}, nil
		}
		if cur.This != nil && cur.This.Class.IsA(m.Class.Name()) {
			return m.Callable, Receiver{This: cur.This, Self: m.Class, Static: cur.This.Class.(*Class)}, nil
		}
		return nil, Receiver{}, Fatalf(pos, "Non-static method %s::%s() cannot be called statically", m.Class.Name(), m.Name)
	}
	if cur.This != nil && cur.This.Class.IsA(class.Name()) {
		if call := class.magic[program.SlotCall]; call != nil {
			return &magicCall{method: call, name: name}, call.receiverFor(cur.This), nil
		}
	}
	if cs := class.magic[program.SlotCallStatic]; cs != nil {
		return &magicCall{method: cs, name: name}, Receiver{Self: cs.Class, Static: lateStatic}, nil
	}
	if found {
		return nil, Receiver{}, Fatalf(pos, "Call to %s method %s::%s() from %s", m.Visibility, class.Name(), m.Name, e.scopeName())
	}
	return nil, Receiver{}, Fatalf(pos, "Call to undefined method %s::%s()", class.Name(), name)
}

// ValueTarget resolves a computed callee: a function name, "Class::method", an invokable
// object or an [object, method] pair.
func (e *Env) ValueTarget(pos ast.Position, v object.Value) (Callable, Receiver, error) {
	switch v := v.(type) {
	case *object.String:
		if cls, meth, ok := strings.Cut(v.Value, "::"); ok {
			return e.StaticTarget(pos, cls, meth)
		}
		fn, err := e.FunctionTarget(pos, v.Value)
		return fn, Receiver{}, err
	case *object.Object:
		class := v.Class.(*Class)
		if inv := class.magic[program.SlotInvoke]; inv != nil {
			return inv.Callable, inv.receiverFor(v), nil
		}
		return nil, Receiver{}, Fatalf(pos, "Object of type %s is not callable", class.Name())
	case *object.Array:
		if v.Len() == 2 {
			target, _ := v.Get(object.IntKey(0))
			method, _ := v.Get(object.IntKey(1))
			if ms, ok := method.(*object.String); ok {
				if o, ok := target.(*object.Object); ok {
					return e.MethodTarget(pos, o, ms.Value)
				}
				if cs, ok := target.(*object.String); ok {
					return e.StaticTarget(pos, cs.Value, ms.Value)
				}
			}
		}
	}
	return nil, Receiver{}, Fatalf(pos, "Value not callable")
}

func (e *Env) scopeName() string {
	if self := e.Self(); self != nil {
		return "scope " + self.Name()
	}
	return "global scope"
}

// magicCall adapts __call and __callStatic: the arguments arrive by value and are packed into an
// array next to the requested method name.
type magicCall struct {
	method *Method
	name   string
}

var magicCallDecl = &ast.Function{
	Name: "__call",
	Args: []*ast.Arg{{Name: "arguments", IsVariadic: true}},
}

func (m *magicCall) Decl() *ast.Function { return magicCallDecl }

func (m *magicCall) CallN(env *Env, recv Receiver, args []*object.Cell) (*object.Cell, error) {
	list := object.NewArray()
	for _, a := range args {
		list.Append(a.Value.Copy())
	}
	name := object.NewCell(&object.String{Value: m.name})
	return env.Invoke(env.Frame().Pos, m.method.Callable, recv, []*object.Cell{name, object.NewCell(list)})
}

// Instantiate creates an object with its declared defaults. The constructor is run separately
// through ConstructorTarget so that the caller can bind its arguments.
func (e *Env) Instantiate(pos ast.Position, class *Class) (*object.Object, error) {
	switch {
	case class.IsInterface():
		return nil, Fatalf(pos, "Cannot instantiate interface %s", class.Name())
	case class.IsTrait():
		return nil, Fatalf(pos, "Cannot instantiate trait %s", class.Name())
	case class.Def.IsAbstract:
		return nil, Fatalf(pos, "Cannot instantiate abstract class %s", class.Name())
	}
	o := object.NewObject(class)
	for _, f := range class.fields {
		v, err := class.ancestor(f.Owner).evalDefault(e, f.Default)
		if err != nil {
			return nil, err
		}
		o.SetField(f.Canonical, v)
	}
	if class.IsA(throwableInterface) {
		o.SetField(lineField, &object.Int{Value: int64(pos.Line)})
	}
	if class.magic[program.SlotDestruct] != nil {
		e.trackDestructible(o)
	}
	return o, nil
}

// ConstructorTarget returns the constructor of o, if its class has one.
func (e *Env) ConstructorTarget(pos ast.Position, o *object.Object) (Callable, Receiver, bool, error) {
	class := o.Class.(*Class)
	ctor := class.magic[program.SlotConstruct]
	if ctor == nil {
		return nil, Receiver{}, false, nil
	}
	if !canAccess(e.Self(), ctor.Class, ctor.Visibility) {
		return nil, Receiver{}, false, Fatalf(pos, "Call to %s %s::__construct() from %s", ctor.Visibility, class.Name(), e.scopeName())
	}
	return ctor.Callable, ctor.receiverFor(o), true, nil
}

// NewThrowable instantiates one of the built-in exception classes, for errors raised by the
// runtime itself.
func (e *Env) NewThrowable(pos ast.Position, className, msg string) error {
	class, err := e.FindClass(pos, className)
	if err != nil {
		return err
	}
	o, err := e.Instantiate(pos, class)
	if err != nil {
		return err
	}
	o.SetField(messageField, &object.String{Value: msg})
	return &ThrowError{Value: o, Pos: pos}
}

// Throw raises a guest value as an exception.
func (e *Env) Throw(pos ast.Position, v object.Value) error {
	o, ok := v.(*object.Object)
	if !ok || !o.Class.IsA(throwableInterface) {
		return Fatalf(pos, "Can only throw objects that implement Throwable")
	}
	return &ThrowError{Value: o, Pos: pos}
}

// CatchMatches reports whether a catch clause listing types takes the exception. Exception
// and Throwable take every thrown object.
func CatchMatches(te *ThrowError, types []string) bool {
	for _, t := range types {
		if strings.EqualFold(t, "Exception") || strings.EqualFold(t, throwableInterface) {
			return true
		}
		if te.Value.Class.IsA(t) {
			return true
		}
	}
	return false
}

// InstanceOf tests a value against a class name. Unknown classes never match.
func (e *Env) InstanceOf(pos ast.Position, v object.Value, className string) (bool, error) {
	o, ok := v.(*object.Object)
	if !ok {
		return false, nil
	}
	switch strings.ToLower(className) {
	case "self", "static", "parent":
		class, err := e.ResolveClass(pos, className)
		if err != nil {
			return false, err
		}
		className = class.Name()
	}
	return o.Class.IsA(className), nil
}
