package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quill/internal/engine"
	"quill/internal/util"
)

func TestConfigurePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.toml")
	body := "backend = \"compile\"\ntimeout_ms = 100\nstore = \"sqlite3://file.db\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	configFile = path
	defer func() { configFile = "" }()

	t.Setenv("QUILL_TIMEOUT_MS", "200")
	if err := flag.Set("store", "sqlite3://flag.db"); err != nil {
		t.Fatal(err)
	}

	config, err := configure()
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if config.Backend != "compile" {
		t.Errorf("backend from file = %q", config.Backend)
	}
	if config.Timeout != 200*time.Millisecond {
		t.Errorf("timeout from env = %v", config.Timeout)
	}
	if config.Store != "sqlite3://flag.db" {
		t.Errorf("store from flag = %q", config.Store)
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.php")
	if err := os.WriteFile(path, []byte(`<?php function hi($n) { return "hi $n"; } echo hi("there");`), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, b := range []string{engine.BackendInterp, engine.BackendCompile} {
		var out bytes.Buffer
		config := util.DefaultConfiguration()
		if code := runFile(context.Background(), config, engine.Options{Backend: b}, path, &out); code != 0 {
			t.Fatalf("[%s] exit code %d", b, code)
		}
		if out.String() != "hi there" {
			t.Errorf("[%s] output = %q", b, out.String())
		}
	}

	var out bytes.Buffer
	config := util.DefaultConfiguration()
	config.Listing = true
	if code := runFile(context.Background(), config, engine.Options{Backend: engine.BackendCompile}, path, &out); code != 0 {
		t.Fatalf("listing exit code %d", code)
	}
	if !bytes.Contains(out.Bytes(), []byte("function hi($n) [fixed/1]")) {
		t.Errorf("listing = %s", out.String())
	}
}

func TestRunFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.php")
	if err := os.WriteFile(bad, []byte("<?php $a = ;"), 0o644); err != nil {
		t.Fatal(err)
	}
	config := util.DefaultConfiguration()
	var out bytes.Buffer
	if code := runFile(context.Background(), config, engine.Options{}, bad, &out); code != 1 {
		t.Errorf("parse error exit code %d, want 1", code)
	}
	if code := runFile(context.Background(), config, engine.Options{}, filepath.Join(dir, "missing.php"), &out); code != 1 {
		t.Errorf("missing file exit code %d, want 1", code)
	}
}
