package runtime

import (
	"log/slog"
	"strings"
	"sync"

	"quill/internal/ast"
	"quill/internal/object"
	"quill/internal/program"
)

// Method is a function bound into a linked class.
type Method struct {
	Name       string
	Fn         *ast.Function
	Callable   Callable
	Class      *Class // the class scope the body runs in (self)
	Visibility ast.Visibility
	IsStatic   bool
	IsAbstract bool

	trait string // the trait the method was taken from, if any
}

func (m *Method) receiverFor(o *object.Object) Receiver {
	return Receiver{This: o, Self: m.Class, Static: o.Class.(*Class)}
}

// Class is a class, interface or trait at run time. Linking happens at most once, on first
// reference; afterwards the class is read-only apart from its value caches.
type Class struct {
	Def    *program.ClassDef
	Parent *Class

	backend Backend
	once    sync.Once
	linkErr error

	methods      *program.NameMap[*Method]
	fields       []*program.FieldDef // instance fields, inherited first
	fieldIndex   map[string]*program.FieldDef
	staticFields []*program.FieldDef
	consts       *program.NameMap[*program.ConstDef]
	magic        [program.SlotCount]*Method
	interfaces   []*Class
	ancestors    map[string]bool

	mu     sync.Mutex
	values map[ast.Expression]object.Value
}

func NewClass(def *program.ClassDef, backend Backend) *Class {
	return &Class{Def: def, backend: backend}
}

func (c *Class) Name() string { return c.Def.Name }

// IsA reports whether the class is name, extends it or implements it.
func (c *Class) IsA(name string) bool {
	return c.ancestors[strings.ToLower(name)]
}

func (c *Class) IsInterface() bool { return c.Def.Kind == ast.KindInterface }
func (c *Class) IsTrait() bool     { return c.Def.Kind == ast.KindTrait }

// Link resolves parent, interfaces and traits and builds the member tables.
func (c *Class) Link(env *Env) error {
	c.once.Do(func() {
		if err := c.checkCycle(env, map[string]bool{}); err != nil {
			c.linkErr = err
			return
		}
		c.linkErr = c.link(env)
		if c.linkErr == nil {
			slog.Debug("class linked",
				slog.String("class", c.Name()),
				slog.Int("methods", c.methods.Len()),
				slog.Int("fields", len(c.fields)))
		}
	})
	return c.linkErr
}

// checkCycle walks the unlinked declarations so that a circular hierarchy fails instead of
// waiting on its own link.
func (c *Class) checkCycle(env *Env, visiting map[string]bool) error {
	key := strings.ToLower(c.Name())
	if visiting[key] {
		return Fatalf(c.Def.Position, "Class %s cannot extend or use itself", c.Name())
	}
	visiting[key] = true
	defer delete(visiting, key)

	deps := append([]string{}, c.Def.Interfaces...)
	deps = append(deps, c.Def.Traits...)
	if c.Def.Parent != "" {
		deps = append(deps, c.Def.Parent)
	}
	for _, name := range deps {
		dep, ok := env.LookupClass(name)
		if !ok {
			continue // reported by link
		}
		if err := dep.checkCycle(env, visiting); err != nil {
			return err
		}
	}
	return nil
}

func (c *Class) link(env *Env) error {
	def := c.Def
	pos := def.Position
	c.methods = program.NewNameMap[*Method]()
	c.fieldIndex = make(map[string]*program.FieldDef)
	c.consts = program.NewNameMap[*program.ConstDef]()
	c.values = make(map[ast.Expression]object.Value)
	c.ancestors = map[string]bool{strings.ToLower(def.Name): true}

	if def.Parent != "" {
		parent, err := env.FindClass(pos, def.Parent)
		if err != nil {
			return err
		}
		switch {
		case def.Kind == ast.KindInterface:
			if !parent.IsInterface() {
				return Fatalf(pos, "%s cannot extend class %s", def.Name, parent.Name())
			}
		case parent.IsInterface() || parent.IsTrait():
			return Fatalf(pos, "Class %s cannot extend %s %s", def.Name, parent.Def.Kind, parent.Name())
		case parent.Def.IsFinal:
			return Fatalf(pos, "Class %s cannot extend final class %s", def.Name, parent.Name())
		}
		c.Parent = parent
		c.inherit(parent)
	}

	for _, name := range def.Interfaces {
		iface, err := env.FindClass(pos, name)
		if err != nil {
			return err
		}
		if !iface.IsInterface() {
			return Fatalf(pos, "%s cannot implement %s - it is not an interface", def.Name, iface.Name())
		}
		c.interfaces = append(c.interfaces, iface)
		for a := range iface.ancestors {
			c.ancestors[a] = true
		}
		for _, n := range iface.consts.Names() {
			k, _ := iface.consts.Get(n)
			c.consts.Put(n, k)
		}
	}

	if err := c.useTraits(env); err != nil {
		return err
	}

	for _, name := range def.Consts.Names() {
		k, _ := def.Consts.Get(name)
		c.consts.Replace(name, k)
	}
	for _, f := range def.Fields.All() {
		c.addField(f)
	}
	for _, f := range def.StaticFields.All() {
		c.addStaticField(f)
	}
	for _, name := range def.Functions.Names() {
		fn, _ := def.Functions.Get(name)
		if prev, ok := c.methods.Get(name); ok && prev.Fn.IsFinal && prev.Class != c {
			return Fatalf(fn.Position, "Cannot override final method %s::%s()", prev.Class.Name(), prev.Name)
		}
		c.methods.Replace(name, &Method{
			Name:       fn.Name,
			Fn:         fn,
			Callable:   c.backend.Routine(fn),
			Class:      c,
			Visibility: fn.Visibility,
			IsStatic:   fn.IsStatic,
			IsAbstract: fn.IsAbstract,
		})
	}

	for slot := program.Magic(0); slot < program.SlotCount; slot++ {
		if m, ok := c.methods.Get(slot.String()); ok && !m.IsAbstract {
			c.magic[slot] = m
		}
	}

	if def.Kind == ast.KindClass && !def.IsAbstract {
		for _, name := range c.methods.Names() {
			if m, _ := c.methods.Get(name); m.IsAbstract {
				return Fatalf(pos, "Class %s contains abstract method %s::%s()", def.Name, m.Class.Name(), m.Name)
			}
		}
		for _, iface := range c.allInterfaces() {
			for _, name := range iface.methods.Names() {
				if m, ok := c.methods.Get(name); !ok || m.IsAbstract {
					return Fatalf(pos, "Class %s must implement interface method %s::%s()", def.Name, iface.Name(), name)
				}
			}
		}
	}
	return nil
}

func (c *Class) inherit(parent *Class) {
	for a := range parent.ancestors {
		c.ancestors[a] = true
	}
	for _, name := range parent.methods.Names() {
		m, _ := parent.methods.Get(name)
		c.methods.Put(name, m)
	}
	for _, f := range parent.fields {
		c.addField(f)
	}
	c.staticFields = append(c.staticFields, parent.staticFields...)
	for _, name := range parent.consts.Names() {
		k, _ := parent.consts.Get(name)
		c.consts.Put(name, k)
	}
	c.interfaces = append(c.interfaces, parent.interfaces...)
}

// useTraits copies trait methods and properties into the class, resolving collisions between
// traits with insteadof rules and adding aliases.
func (c *Class) useTraits(env *Env) error {
	if len(c.Def.Traits) == 0 {
		return nil
	}
	rules := c.Def.TraitMap()
	taken := program.NewNameMap[*Method]()

	for _, name := range c.Def.Traits {
		trait, err := env.FindClass(c.Def.Position, name)
		if err != nil {
			return err
		}
		if !trait.IsTrait() {
			return Fatalf(c.Def.Position, "%s cannot use %s - it is not a trait", c.Name(), trait.Name())
		}

		for _, mname := range trait.methods.Names() {
			tm, _ := trait.methods.Get(mname)
			m := c.adopt(tm, trait.Name(), tm.Name, tm.Visibility)

			for _, al := range rules.Aliases(mname, trait.Name()) {
				if al.Name == "" {
					if al.HasVisibility {
						m.Visibility = al.Visibility
					}
					continue
				}
				vis := tm.Visibility
				if al.HasVisibility {
					vis = al.Visibility
				}
				taken.Replace(al.Name, c.adopt(tm, trait.Name(), al.Name, vis))
			}

			existing, ok := taken.Get(mname)
			switch {
			case !ok:
				if !rules.Excluded(mname, trait.Name()) {
					taken.Put(mname, m)
				}
			default:
				switch rules.InsteadOf(mname, trait.Name(), existing.trait) {
				case program.UseNew:
					taken.Replace(mname, m)
				case program.UseExisting:
				default:
					return Fatalf(c.Def.Position,
						"Trait method %s::%s has not been applied as %s::%s, because of collision with %s::%s",
						trait.Name(), mname, c.Name(), mname, existing.trait, mname)
				}
			}
		}

		for _, f := range trait.Def.Fields.All() {
			c.addField(c.ownField(f))
		}
		for _, f := range trait.Def.StaticFields.All() {
			c.addStaticField(c.ownField(f))
		}
	}

	for _, name := range taken.Names() {
		m, _ := taken.Get(name)
		c.methods.Replace(name, m)
	}
	return nil
}

func (c *Class) adopt(tm *Method, trait, name string, vis ast.Visibility) *Method {
	return &Method{
		Name:       name,
		Fn:         tm.Fn,
		Callable:   tm.Callable,
		Class:      c,
		Visibility: vis,
		IsStatic:   tm.IsStatic,
		IsAbstract: tm.IsAbstract,
		trait:      trait,
	}
}

func (c *Class) ownField(f *program.FieldDef) *program.FieldDef {
	out := *f
	out.Owner = c.Name()
	out.Canonical = program.EncodeField(f.Name, f.Visibility, c.Name())
	return &out
}

func (c *Class) addField(f *program.FieldDef) {
	if _, ok := c.fieldIndex[f.Canonical]; ok {
		for i, old := range c.fields {
			if old.Canonical == f.Canonical {
				c.fields[i] = f
			}
		}
	} else {
		c.fields = append(c.fields, f)
	}
	c.fieldIndex[f.Canonical] = f
}

func (c *Class) addStaticField(f *program.FieldDef) {
	for i, old := range c.staticFields {
		if old.Name == f.Name {
			c.staticFields[i] = f
			return
		}
	}
	c.staticFields = append(c.staticFields, f)
}

func (c *Class) allInterfaces() []*Class {
	var out []*Class
	seen := map[*Class]bool{}
	var walk func(*Class)
	walk = func(i *Class) {
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		if i.Parent != nil {
			walk(i.Parent)
		}
		for _, p := range i.interfaces {
			walk(p)
		}
	}
	for _, i := range c.interfaces {
		walk(i)
	}
	return out
}

// ancestor finds the class called name on the parent chain.
func (c *Class) ancestor(name string) *Class {
	for k := c; k != nil; k = k.Parent {
		if strings.EqualFold(k.Name(), name) {
			return k
		}
	}
	return c
}

// Method looks a method up by name, ignoring visibility.
func (c *Class) Method(name string) (*Method, bool) {
	return c.methods.Get(name)
}

// Methods lists the method names in linking order.
func (c *Class) Methods() []string {
	return c.methods.Names()
}

// Fields lists the declared instance fields, inherited first.
func (c *Class) Fields() []*program.FieldDef {
	return c.fields
}

// findMethod resolves name as seen from the class scope ctx. A private method of ctx wins
// over an override in a subclass.
func (c *Class) findMethod(ctx *Class, name string) (m *Method, accessible, found bool) {
	if ctx != nil && ctx != c && c.IsA(ctx.Name()) {
		if pm, ok := ctx.methods.Get(name); ok && pm.Visibility == ast.Private && pm.Class == ctx {
			return pm, true, true
		}
	}
	m, found = c.methods.Get(name)
	if !found {
		return nil, false, false
	}
	return m, canAccess(ctx, m.Class, m.Visibility), true
}

// resolveField maps a property name to its canonical field name as seen from ctx.
func (c *Class) resolveField(ctx *Class, name string) (canonical string, def *program.FieldDef, accessible bool) {
	if ctx != nil && c.IsA(ctx.Name()) {
		priv := program.EncodeField(name, ast.Private, ctx.Name())
		if f, ok := c.fieldIndex[priv]; ok {
			return priv, f, true
		}
	}
	var private *program.FieldDef
	for i := len(c.fields) - 1; i >= 0; i-- {
		f := c.fields[i]
		if f.Name != name {
			continue
		}
		if f.Visibility == ast.Private {
			private = f
			continue
		}
		return f.Canonical, f, canAccess(ctx, c.ancestor(f.Owner), f.Visibility)
	}
	if private != nil {
		return private.Canonical, private, false
	}
	return name, nil, true
}

func (c *Class) staticField(name string) (*program.FieldDef, bool) {
	for _, f := range c.staticFields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func canAccess(ctx, owner *Class, vis ast.Visibility) bool {
	switch vis {
	case ast.Public:
		return true
	case ast.Private:
		return ctx == owner
	default:
		return ctx != nil && (ctx.IsA(owner.Name()) || owner.IsA(ctx.Name()))
	}
}

// Const evaluates a class constant, caching its value.
func (c *Class) Const(env *Env, pos ast.Position, name string) (object.Value, error) {
	k, ok := c.consts.Get(name)
	if !ok {
		return nil, Fatalf(pos, "Undefined constant %s::%s", c.Name(), name)
	}
	owner, ok := env.LookupClass(k.Owner)
	if !ok {
		owner = c
	}
	return owner.evalCached(env, k.Value)
}

func (c *Class) evalDefault(env *Env, e ast.Expression) (object.Value, error) {
	if e == nil {
		return object.NULL, nil
	}
	return c.evalCached(env, e)
}

// evalCached evaluates a constant expression once per program. Evaluation runs outside the lock,
// so a constant referring to another constant of the same class does not deadlock.
func (c *Class) evalCached(env *Env, e ast.Expression) (object.Value, error) {
	c.mu.Lock()
	v, ok := c.values[e]
	c.mu.Unlock()
	if ok {
		return v.Copy(), nil
	}

	recv := Receiver{Self: c, Static: c}
	v, err := c.backend.Eval(env, recv, e)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.values[e] = v
	c.mu.Unlock()
	return v.Copy(), nil
}
