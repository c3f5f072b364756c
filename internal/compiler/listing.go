package compiler

import (
	"fmt"
	"strings"

	"quill/internal/ast"
)

// listing renders what the compiler made of the function: signature class, variable storage,
// the kept body and what was resolved or dropped at compile time.
func (r *Routine) buildListing() string {
	u := r.unit
	var sb strings.Builder
	head := strings.TrimSuffix(ast.Format(&ast.FunctionDecl{Position: r.fn.Position, Fn: r.fn}), " { ... }")
	if r.fn.ClassName != "" {
		head = strings.Replace(head, "function ", "function "+r.fn.ClassName+"::", 1)
	}
	fmt.Fprintf(&sb, "%s [%s]\n", head, r.Signature())

	if info := r.fn.Info; info != nil {
		for _, name := range info.Order {
			v, ok := u.vars[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "  $%s: %s%s\n", name, v.storage(), flags(info.Vars[name], r, name))
		}
	}
	if u.symbols {
		sb.WriteString("  symbol table\n")
	}

	if r.fn.Body != nil {
		for _, s := range r.fn.Body.Stmts {
			if r.dropped(s) {
				continue
			}
			for _, line := range strings.Split(ast.Format(s), "\n") {
				sb.WriteString("  " + line + "\n")
			}
		}
	}
	for _, n := range u.notes {
		sb.WriteString("  // " + n + "\n")
	}
	if n := len(u.pruned); n > 0 {
		fmt.Fprintf(&sb, "  // %d unreachable statements dropped\n", n)
	}
	return sb.String()
}

func (r *Routine) dropped(s ast.Statement) bool {
	for _, p := range r.unit.pruned {
		if p == s {
			return true
		}
	}
	return false
}

func flags(vi *ast.VarInfo, r *Routine, name string) string {
	if vi == nil {
		return ""
	}
	var fs []string
	if vi.IsArgument {
		fs = append(fs, fmt.Sprintf("arg %d", vi.ArgIndex))
	}
	if vi.IsRef {
		fs = append(fs, "ref")
	}
	if vi.IsGlobal {
		fs = append(fs, "global")
	}
	if vi.IsStatic {
		fs = append(fs, "static")
	}
	if vi.IsReadOnly() {
		fs = append(fs, "read-only")
	}
	for _, i := range r.shared {
		if r.fn.Args[i].Name == name {
			fs = append(fs, "uncopied")
		}
	}
	if len(fs) == 0 {
		return ""
	}
	return " (" + strings.Join(fs, ", ") + ")"
}
