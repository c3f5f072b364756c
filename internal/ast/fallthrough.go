package ast

// Fallthrough classifies whether control reaches the statement after a node.
type Fallthrough int

const (
	FallsThrough Fallthrough = iota
	Breaks                   // leaves through break or continue
	Returns                  // leaves the function through return or throw, or never terminates
)

func (f Fallthrough) String() string {
	switch f {
	case Breaks:
		return "breaks"
	case Returns:
		return "returns"
	default:
		return "falls-through"
	}
}

// combine merges alternative paths: any path falling through falls through.
func combine(a, b Fallthrough) Fallthrough {
	switch {
	case a == FallsThrough || b == FallsThrough:
		return FallsThrough
	case a == Returns && b == Returns:
		return Returns
	default:
		return Breaks
	}
}

// FallThrough computes the class of s from the shape of the tree alone.
func FallThrough(s Statement) Fallthrough {
	switch s := s.(type) {
	case nil:
		return FallsThrough
	case *Block:
		return sequence(s.Stmts)
	case *Return, *Throw:
		return Returns
	case *Break, *Continue:
		return Breaks
	case *If:
		if s.Else == nil {
			return FallsThrough
		}
		return combine(FallThrough(s.Then), FallThrough(s.Else))
	case *While:
		return loop(s.Body, isTrue(s.Cond))
	case *For:
		return loop(s.Body, len(s.Cond) == 0 || isTrue(s.Cond[len(s.Cond)-1]))
	case *DoWhile:
		j := scanJumps(s.Body, levelLoop)
		if j.breaks {
			return FallsThrough
		}
		body := FallThrough(s.Body)
		if body == FallsThrough || j.continues {
			if !isTrue(s.Cond) {
				return FallsThrough
			}
			if j.escapes {
				return Breaks
			}
			return Returns
		}
		return body
	case *Foreach:
		return FallsThrough
	case *Switch:
		return switchClass(s)
	case *Try:
		c := FallThrough(s.Body)
		for _, cc := range s.Catches {
			c = combine(c, FallThrough(cc.Body))
		}
		return c
	default:
		return FallsThrough
	}
}

func sequence(stmts []Statement) Fallthrough {
	for _, st := range stmts {
		if c := FallThrough(st); c != FallsThrough {
			return c
		}
	}
	return FallsThrough
}

// loop handles while and for: a loop whose condition can be false falls through.
func loop(body Statement, infinite bool) Fallthrough {
	if !infinite {
		return FallsThrough
	}
	j := scanJumps(body, levelLoop)
	switch {
	case j.breaks:
		return FallsThrough
	case j.escapes:
		return Breaks
	default:
		return Returns
	}
}

func switchClass(s *Switch) Fallthrough {
	hasDefault := false
	for _, c := range s.Cases {
		if c.Match == nil {
			hasDefault = true
		}
	}
	if !hasDefault || len(s.Cases) == 0 {
		return FallsThrough
	}
	var body []Statement
	for _, c := range s.Cases {
		body = append(body, c.Body...)
	}
	if scanJumps(&Block{Stmts: body}, levelSwitch).breaks {
		return FallsThrough
	}
	// execution may enter at any case and runs on to the end
	var out Fallthrough
	for i := range s.Cases {
		var rest []Statement
		for _, c := range s.Cases[i:] {
			rest = append(rest, c.Body...)
		}
		c := sequence(rest)
		if i == 0 {
			out = c
		} else {
			out = combine(out, c)
		}
	}
	return out
}

func isTrue(e Expression) bool {
	switch e := e.(type) {
	case *BoolLit:
		return e.Value
	case *IntLit:
		return e.Value != 0
	}
	return false
}

type levelKind int

const (
	levelLoop levelKind = iota
	levelSwitch
)

type jumps struct {
	breaks    bool // a break leaves the outermost level
	continues bool // a continue resumes the outermost level
	escapes   bool // a jump targets a level outside the scanned one
}

// scanJumps finds break and continue statements inside the body of a loop or switch of the given kind.
func scanJumps(body Statement, kind levelKind) jumps {
	var j jumps
	walkJumps(body, []levelKind{kind}, &j)
	return j
}

func walkJumps(s Statement, levels []levelKind, j *jumps) {
	switch s := s.(type) {
	case *Block:
		for _, st := range s.Stmts {
			walkJumps(st, levels, j)
		}
	case *If:
		walkJumps(s.Then, levels, j)
		walkJumps(s.Else, levels, j)
	case *While:
		walkJumps(s.Body, append(levels[:len(levels):len(levels)], levelLoop), j)
	case *DoWhile:
		walkJumps(s.Body, append(levels[:len(levels):len(levels)], levelLoop), j)
	case *For:
		walkJumps(s.Body, append(levels[:len(levels):len(levels)], levelLoop), j)
	case *Foreach:
		walkJumps(s.Body, append(levels[:len(levels):len(levels)], levelLoop), j)
	case *Switch:
		inner := append(levels[:len(levels):len(levels)], levelSwitch)
		for _, c := range s.Cases {
			for _, st := range c.Body {
				walkJumps(st, inner, j)
			}
		}
	case *Try:
		walkJumps(s.Body, levels, j)
		for _, c := range s.Catches {
			walkJumps(c.Body, levels, j)
		}
	case *Break:
		target := len(levels) - s.Depth
		switch {
		case target == 0:
			j.breaks = true
		case target < 0:
			j.escapes = true
		}
	case *Continue:
		target := len(levels) - s.Depth
		for target >= 0 && levels[target] == levelSwitch {
			target--
		}
		switch {
		case target == 0:
			j.continues = true
		case target < 0:
			j.escapes = true
		}
	}
}
