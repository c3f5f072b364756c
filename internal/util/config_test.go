package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quill.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
backend = "compile"
timeout_ms = 250
store = "sqlite3://artifacts.db"

[log]
level = "debug"
file = "quill.log"
`)
	c := DefaultConfiguration()
	if err := c.LoadFile(path, true); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Backend != "compile" || c.Timeout != 250*time.Millisecond || c.Store != "sqlite3://artifacts.db" {
		t.Errorf("unexpected configuration %+v", c)
	}
	if c.LogLevel != "debug" || c.LogFile != "quill.log" {
		t.Errorf("log settings = %q, %q", c.LogLevel, c.LogFile)
	}
}

func TestLoadFileKeepsUnsetValues(t *testing.T) {
	path := writeConfig(t, `store = "sqlite3://x.db"`)
	c := DefaultConfiguration()
	c.Timeout = time.Second
	if err := c.LoadFile(path, true); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Backend != "interp" || c.Timeout != time.Second || c.LogLevel != "none" {
		t.Errorf("defaults overwritten: %+v", c)
	}
}

func TestLoadFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	c := DefaultConfiguration()
	if err := c.LoadFile(missing, false); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if err := c.LoadFile(missing, true); err == nil {
		t.Errorf("required missing file did not fail")
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := writeConfig(t, `backend = `)
	c := DefaultConfiguration()
	err := c.LoadFile(path, true)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("QUILL_BACKEND", "compile")
	t.Setenv("QUILL_TIMEOUT_MS", "75")
	t.Setenv("QUILL_STORE", "sqlite3://env.db")
	t.Setenv("QUILL_LOG_LEVEL", "warn")
	c := DefaultConfiguration()
	c.LoadEnv()
	if c.Backend != "compile" || c.Timeout != 75*time.Millisecond || c.Store != "sqlite3://env.db" || c.LogLevel != "warn" {
		t.Errorf("unexpected configuration %+v", c)
	}
}

func TestGetContextLines(t *testing.T) {
	src := "<?php\n$a = 1;\n$b = ;\n"
	got := GetContextLines(src, 3, 6)
	want := "       1 | <?php\n" +
		"       2 | $a = 1;\n" +
		"  >    3 | $b = ;\n" +
		"                ^ unexpected here"
	if got != want {
		t.Errorf("GetContextLines =\n%s\nwant\n%s", got, want)
	}
	if GetContextLines(src, 9, 1) != "" {
		t.Errorf("line past the end rendered context")
	}
}

func TestGetLineAndColumn(t *testing.T) {
	line, col := GetLineAndColumn("ab\ncd", 4)
	if line != 2 || col != 2 {
		t.Errorf("got %d:%d, want 2:2", line, col)
	}
}
