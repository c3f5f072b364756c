// Package log configures the process wide slog logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	LevelTrace = slog.LevelDebug - 4
	// LevelNone is above every level anything logs at.
	LevelNone = slog.LevelError + 100
)

// ParseLevel maps trace, debug, info, warn, error and none onto slog levels. Anything else is none.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return LevelNone
	}
}

// fileWriter appends to a log file and reopens it on SIGHUP, so the file can be rotated under a
// running process:
//
//	mv quill.log quill.bak && kill -HUP <pid>
type fileWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
	sigs chan os.Signal
}

func openFileWriter(path string) (*fileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := &fileWriter{path: path, f: f, sigs: make(chan os.Signal, 1)}
	signal.Notify(w.sigs, syscall.SIGHUP)
	go func() {
		for range w.sigs {
			w.reopen()
		}
	}()
	return w, nil
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Write(p)
}

func (w *fileWriter) reopen() {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not reopen log file '%s': %v\n", w.path, err)
		return
	}
	w.f.Close()
	w.f = f
}

func (w *fileWriter) Close() error {
	signal.Stop(w.sigs)
	close(w.sigs)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs a JSON logger as the slog default, writing to logFile or, when that is empty or
// cannot be opened, to stderr. The returned Closer releases the file.
func Setup(level, logFile string) io.Closer {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		w, err := openFileWriter(logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		} else {
			out, closer = w, w
		}
	}
	slog.SetDefault(New(out, level))
	return closer
}

// New returns a JSON logger at the named level.
func New(out io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}))
}
