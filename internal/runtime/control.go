package runtime

import "quill/internal/object"

// Signal is how a statement left: normally, or through break, continue or return.
type Signal int

const (
	SignalNone Signal = iota
	SignalBreak
	SignalContinue
	SignalReturn
)

func (s Signal) String() string {
	switch s {
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalReturn:
		return "return"
	default:
		return "none"
	}
}

// Completion is the result of executing a statement. Both backends thread it through their
// statement execution so that break and continue unwind identically.
type Completion struct {
	Signal Signal
	Depth  int          // enclosing loops and switches still to unwind
	Value  *object.Cell // returned cell
}

var Normal = Completion{}

func Break(depth int) Completion    { return Completion{Signal: SignalBreak, Depth: max(depth, 1)} }
func Continue(depth int) Completion { return Completion{Signal: SignalContinue, Depth: max(depth, 1)} }
func Return(c *object.Cell) Completion {
	return Completion{Signal: SignalReturn, Value: c}
}

// Loop applies the completion of one loop body run: stop reports whether the loop ends, out is
// what the loop itself completes with.
func (c Completion) Loop() (out Completion, stop bool) {
	switch c.Signal {
	case SignalBreak:
		if c.Depth > 1 {
			return Break(c.Depth - 1), true
		}
		return Normal, true
	case SignalContinue:
		if c.Depth > 1 {
			return Continue(c.Depth - 1), true
		}
		return Normal, false
	case SignalReturn:
		return c, true
	}
	return Normal, false
}

// Switch is what a switch completes with after its body completed with c. A switch counts as
// one level for break and continue, but a continue aimed at it resumes the enclosing loop.
func (c Completion) Switch() Completion {
	switch c.Signal {
	case SignalBreak:
		if c.Depth > 1 {
			return Break(c.Depth - 1)
		}
		return Normal
	case SignalContinue:
		if c.Depth > 1 {
			return Continue(c.Depth - 1)
		}
		return c
	}
	return c
}
