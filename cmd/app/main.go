package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quill/internal/engine"
	"quill/internal/log"
	"quill/internal/parser"
	"quill/internal/repl"
	"quill/internal/store"
	"quill/internal/util"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	configFile string
	backend    string
	timeout    time.Duration
	storeDSN   string
	listing    bool
	debugAST   bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configFile, "config", "", "Configuration file (default ./"+util.DefaultConfigFile+" when present)")
	// engine config
	flag.StringVar(&backend, "backend", engine.BackendInterp, "Execution backend: interp or compile")
	flag.DurationVar(&timeout, "timeout", 0, "Abort the script after this long, e.g. 500ms; 0 means no limit")
	flag.StringVar(&storeDSN, "store", "", "Artifact store DSN: sqlite3://path, mysql://... or postgres://...")
	flag.BoolVar(&listing, "listing", false, "Print the compiled listing of the script instead of running it")
	// parser config
	flag.BoolVar(&debugAST, "debug-ast", false, "Render the AST as a JSON file next to the script")
	// log config
	flag.StringVar(&logLevel, "log-level", "none", "Log level: trace, debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if version {
		printVersion()
		return 0
	}
	if help {
		printHelp()
		return 0
	}

	config, err := configure()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	closer := log.Setup(config.LogLevel, config.LogFile)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{Backend: config.Backend, Timeout: config.Timeout}
	if _, err := engine.NewBackend(opts.Backend); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if config.Store != "" {
		st, err := store.Open(ctx, config.Store)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer st.Close()
		opts.Store = st
	}

	if flag.NArg() == 0 {
		if err := repl.Start(ctx, opts, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	return runFile(ctx, config, opts, flag.Arg(0), os.Stdout)
}

// configure layers defaults, the config file, the environment and explicitly set flags.
func configure() (util.Configuration, error) {
	config := util.DefaultConfiguration()
	config.Version, config.BuildDate, config.Commit = Version, BuildDate, Commit

	path, required := util.DefaultConfigFile, false
	if configFile != "" {
		path, required = configFile, true
	}
	if err := config.LoadFile(path, required); err != nil {
		return config, err
	}
	config.LoadEnv()

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			config.Backend = backend
		case "timeout":
			config.Timeout = timeout
		case "store":
			config.Store = storeDSN
		case "log-level":
			config.LogLevel = logLevel
		case "log-file":
			config.LogFile = logFile
		}
	})
	config.Listing = listing
	config.DebugJsonAST = debugAST
	return config, nil
}

func runFile(ctx context.Context, config util.Configuration, opts engine.Options, file string, out io.Writer) int {
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read '%s': %v\n", file, err)
		return 1
	}
	if config.DebugJsonAST {
		if err := writeAST(file, src); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	script, err := engine.Load(ctx, file, src, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		var pe *parser.Error
		if errors.As(err, &pe) {
			fmt.Fprintln(os.Stderr, pe.Context())
		}
		return 1
	}
	if config.Listing {
		fmt.Fprint(out, script.Listing())
		return 0
	}
	res, err := script.Run(ctx, out)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		return 1
	}
	return 0
}

func writeAST(file string, src []byte) error {
	prog, err := parser.Parse(file, string(src))
	if err != nil {
		return err
	}
	json, err := parser.RenderASTAsJSON(prog)
	if err != nil {
		return fmt.Errorf("failed to render AST: %w", err)
	}
	return os.WriteFile(file+".ast.json", []byte(json), 0o644)
}

func printVersion() {
	fmt.Printf("quill version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: quill [options] [file.php]

Options:
  -backend <name>    Execution backend: interp or compile. Default is 'interp'.
  -timeout <dur>     Abort the script after this long, e.g. 500ms. Default is no limit.
  -config <path>     Configuration file. Default is ./quill.toml when present.
  -store <dsn>       Store compiled artifacts: sqlite3://path, mysql://..., postgres://...
  -listing           Print the compiled listing of the script instead of running it.
  -debug-ast         Render the AST as a JSON file next to the script.
  -log-level <level> Set the log level: trace, debug, info, warn, error, none. Default is 'none'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.
  -help              Display this help information and exit.
  -version           Display version information and exit.

Environment:
  QUILL_BACKEND, QUILL_TIMEOUT_MS, QUILL_STORE, QUILL_LOG_LEVEL override the configuration
  file; flags override both.

Examples:
  quill                          Start the interactive shell
  quill script.php               Run a script on the interpreter
  quill -backend compile -listing script.php
                                 Show what the compiler makes of a script

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}
