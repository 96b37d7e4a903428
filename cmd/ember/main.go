package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"github.com/ember-lang/ember"
	"github.com/ember-lang/ember/internal/config"
	"github.com/ember-lang/ember/internal/vm"
)

const (
	chunkExt = ".emc"

	// sysexits.h conventions: EX_DATAERR for compile errors,
	// EX_SOFTWARE for runtime errors.
	exitCompileError = 65
	exitRuntimeError = 70
)

var helpText = `
REPL commands:
  :quit          Exit the REPL
  :help          Show this help
  :trace on|off  Toggle VM instruction tracing
`

func main() {
	trace := flag.Bool("trace", false, "Trace VM instructions (debug log level)")
	dis := flag.Bool("dis", false, "Disassemble instead of running")
	out := flag.String("o", "", "Compile to a chunk file instead of running")
	verbose := flag.Bool("v", false, "Enable debug logging")
	configDir := flag.String("config", ".", "Directory containing "+config.FileName)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ember [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs an Ember script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ember                       # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  ember script.em             # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  ember -o script.emc script.em  # Compile to a chunk file\n")
		fmt.Fprintf(os.Stderr, "  ember script.emc            # Run a prebuilt chunk\n")
		fmt.Fprintf(os.Stderr, "  ember -dis script.em        # Disassemble\n")
	}
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg, *verbose, *trace)

	eng := ember.New(ember.WithTrace(*trace || cfg.Run.Trace))

	args := flag.Args()
	if len(args) == 0 {
		repl(eng, cfg)
		return
	}
	runFile(eng, args[0], *out, *dis || cfg.Run.Disassemble)
}

func setupLogging(cfg *config.Config, verbose, trace bool) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	if verbose || trace {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

func runFile(eng *ember.Engine, path, out string, dis bool) {
	chunk, err := loadChunk(eng, path)
	if err != nil {
		var rtErr *vm.RuntimeError
		switch {
		case errors.As(err, &rtErr):
			os.Exit(exitRuntimeError)
		case errors.Is(err, errCompile):
			// diagnostics already streamed to stderr
			os.Exit(exitCompileError)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if out != "" {
		data, err := eng.MarshalChunk(chunk)
		if err == nil {
			err = os.WriteFile(out, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logrus.Debugf("wrote %s", out)
		return
	}

	if dis {
		dump, err := eng.Disassemble(filepath.Base(path), chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(dump)
		return
	}

	if err := eng.RunChunk(chunk); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(exitRuntimeError)
	}
}

var errCompile = errors.New("compilation failed")

func loadChunk(eng *ember.Engine, path string) (*ember.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == chunkExt {
		return eng.UnmarshalChunk(data)
	}
	chunk, err := eng.Compile(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCompile, err)
	}
	return chunk, nil
}

func repl(eng *ember.Engine, cfg *config.Config) {
	fmt.Println("Ember REPL. Ctrl+C cancels input, Ctrl+D exits. Type :quit to exit.")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.REPL.History); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(cfg.REPL.History); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	var buffer string
	for {
		prompt := cfg.REPL.Prompt
		if buffer != "" {
			prompt = cfg.REPL.Continuation
		}

		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				buffer = ""
				continue
			}
			// Ctrl+D or closed input
			fmt.Println()
			return
		}

		if buffer == "" {
			trimmed := strings.TrimSpace(input)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				if replCommand(eng, trimmed) {
					return
				}
				line.AppendHistory(input)
				continue
			}
		}

		buffer += input + "\n"
		if openDelims(buffer) > 0 {
			continue
		}

		line.AppendHistory(strings.TrimSuffix(strings.ReplaceAll(buffer, "\n", " "), " "))
		if err := eng.Run(buffer); err != nil {
			var rtErr *vm.RuntimeError
			if errors.As(err, &rtErr) {
				fmt.Fprintf(os.Stderr, "%v\n", rtErr)
			}
			// compile diagnostics were already streamed to stderr
		}
		buffer = ""
	}
}

// replCommand handles :commands; returns true when the REPL should exit.
func replCommand(eng *ember.Engine, cmd string) bool {
	switch {
	case cmd == ":quit":
		return true
	case cmd == ":help":
		fmt.Print(helpText)
	case cmd == ":trace on":
		eng.SetTrace(true)
		logrus.SetLevel(logrus.DebugLevel)
	case cmd == ":trace off":
		eng.SetTrace(false)
	default:
		fmt.Printf("Unknown command %q. Type :help for help.\n", cmd)
	}
	return false
}

// openDelims counts unclosed braces and parens outside strings and line
// comments, so multi-line statements keep prompting for input.
func openDelims(src string) int {
	depth := 0
	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inString {
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			}
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		}
	}
	return depth
}
