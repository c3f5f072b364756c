// Package repl is the interactive shell: every line is loaded as a script of its own and run
// against one long lived Env, so globals, functions and classes carry over between lines.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"quill/internal/engine"
	"quill/internal/runtime"
)

const (
	PROMPT      = "quill> "
	CONT        = "...... "
	historyFile = ".quill_history"
)

type Session struct {
	ctx   context.Context
	opts  engine.Options
	out   io.Writer
	env   *runtime.Env
	last  *engine.Script
	seen  int
	lines int
}

func NewSession(ctx context.Context, opts engine.Options, out io.Writer) (*Session, error) {
	base, err := engine.Load(ctx, "repl", []byte("<?php"), opts)
	if err != nil {
		return nil, err
	}
	return &Session{
		ctx:  ctx,
		opts: opts,
		out:  out,
		env:  base.NewEnv(ctx, out),
	}, nil
}

// Eval runs one chunk of code. The <?php tag and a trailing semicolon may be left out.
func (s *Session) Eval(code string) error {
	src := strings.TrimSpace(code)
	if src == "" {
		return nil
	}
	src = strings.TrimPrefix(src, "<?php")
	if !strings.HasSuffix(src, ";") && !strings.HasSuffix(src, "}") {
		src += ";"
	}
	s.lines++
	file := fmt.Sprintf("repl:%d", s.lines)
	script, err := engine.Load(s.ctx, file, []byte("<?php "+src), s.opts)
	if err != nil {
		return err
	}
	if err := s.env.Import(script.Runtime); err != nil {
		return err
	}
	s.last = script

	ctx, cancel := s.ctx, context.CancelFunc(func() {})
	if s.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.opts.Timeout)
	}
	defer cancel()
	s.env.SetContext(ctx)
	defer s.env.SetContext(s.ctx)

	err = script.RunIn(s.env)
	diags := s.env.Diagnostics()
	for _, d := range diags[s.seen:] {
		fmt.Fprintf(s.out, "\n%s\n", d)
	}
	s.seen = len(diags)
	return err
}

// Command handles a :command line, reporting whether the session should end.
func (s *Session) Command(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q":
		return true, nil
	case ":backend":
		if len(fields) == 1 {
			name := s.opts.Backend
			if name == "" {
				name = engine.BackendInterp
			}
			fmt.Fprintln(s.out, name)
			return false, nil
		}
		if _, err := engine.NewBackend(fields[1]); err != nil {
			return false, err
		}
		s.opts.Backend = fields[1]
		slog.Debug("repl backend switched", slog.String("backend", fields[1]))
		return false, nil
	case ":listing":
		if s.last == nil {
			return false, errors.New("nothing evaluated yet")
		}
		fmt.Fprint(s.out, s.last.Listing())
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s, expected :quit, :backend [interp|compile] or :listing", fields[0])
}

// Close runs the destructors still pending in the session.
func (s *Session) Close() error {
	return s.env.RunDestructors()
}

// Start reads lines from the terminal until :quit or EOF.
func Start(ctx context.Context, opts engine.Options, out io.Writer) error {
	session, err := NewSession(ctx, opts, out)
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		code, ok := read(ln)
		if !ok {
			fmt.Fprintln(out)
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if strings.HasPrefix(trimmed, ":") {
			quit, err := session.Command(trimmed)
			if err != nil {
				fmt.Fprintln(out, err)
			}
			if quit {
				break
			}
			continue
		}
		if err := session.Eval(code); err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		fmt.Fprintln(out)
	}
	return session.Close()
}

// read collects lines until the braces and parentheses balance.
func read(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := PROMPT
		if b.Len() > 0 {
			prompt = CONT
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if balanced(b.String()) {
			return b.String(), true
		}
	}
}

func balanced(src string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, r := range src {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{' || r == '(' || r == '[':
			depth++
		case r == '}' || r == ')' || r == ']':
			depth--
		}
	}
	return depth <= 0 && quote == 0
}
