// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Argument parsing and the small command handlers for hyperionx.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/hyperionx/hyperionx/internal/config"
)

// Version information (overridden at build time).
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	// CmdTUI starts the full-screen interface (the default).
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Plain    bool // --plain: force the line-based REPL instead of the TUI
	Quiet    bool
	Verbose  bool
	JSON     bool
	NoSearch bool // --no-search: answer without web grounding
	Model    string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `hyperionx - grounded conversational assistant for the terminal

Hyperionx answers questions with live web grounding: time-sensitive
queries are routed through a web search, sources are shown alongside
the answer, and citations link back to them.

Usage:
  hyperionx                   Start the TUI (default)
  hyperionx chat              Line-based chat REPL
  hyperionx ask "question"    Ask a single question and exit
  hyperionx status, s         Show credentials, config, and session info
  hyperionx config [show|init|path]
                              Configuration management
  hyperionx version, -v       Show version
  hyperionx help, -h          Show this help

Flags:
  --plain        Use plain line output (no alternate screen)
  -m, --model NAME
                 Override the configured model for this run
  --no-search    Answer without web grounding
  -q, --quiet    Suppress progress labels and source cards
  --json         Machine-readable output (ask, status)

Interactive commands (during chat):
  /help, /h      Show available commands
  /clear, /c     Clear the conversation
  /status, /s    Show session statistics
  /sources       Re-print the sources of the last answer
  /quit, /q      Exit
  Ctrl+C         Cancel the running answer
  Ctrl+D         Exit

Credentials (environment or .env file):
  GROQ_API_KEY_1 .. GROQ_API_KEY_10       Model API keys (rotated)
  TAVILY_API_KEY_1 .. TAVILY_API_KEY_10   Search API keys (rotated)

Examples:
  hyperionx ask "Wer ist aktuell Bundeskanzler?"
  hyperionx chat --plain
  hyperionx ask --json "current ECB interest rate" | jq .answer
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument slice. Split out for tests.
func ParseArgs(argv []string) (Command, Args) {
	args := Args{}
	var positional []string

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--plain":
			args.Plain = true
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--no-search":
			args.NoSearch = true
		case arg == "--model" || arg == "-m":
			if i+1 < len(argv) {
				args.Model = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--model="):
			args.Model = strings.TrimPrefix(arg, "--model=")
		case arg == "--help" || arg == "-h":
			return CmdHelp, args
		case arg == "--version" || arg == "-v":
			return CmdVersion, args
		default:
			positional = append(positional, arg)
		}
		i++
	}
	args.Raw = positional

	if len(positional) == 0 {
		if args.Plain {
			return CmdChat, args
		}
		return CmdTUI, args
	}

	cmd := strings.ToLower(positional[0])
	rest := positional[1:]

	switch cmd {
	case "chat":
		return CmdChat, args
	case "ask":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args
	case "status", "s":
		return CmdStatus, args
	case "config":
		if len(rest) > 0 {
			args.Subcommand = strings.ToLower(rest[0])
		}
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		// Bare words are treated as a question, like "hyperionx wie hoch
		// ist die Inflation" without quoting.
		args.Query = strings.Join(positional, " ")
		return CmdAsk, args
	}
}

// HandleHelp prints usage.
func HandleHelp() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf("{\"version\":%q,\"commit\":%q,\"built\":%q,\"go\":%q}\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return
	}
	fmt.Printf("hyperionx %s\n", Version)
	if args.Verbose {
		fmt.Printf("  commit: %s\n  built:  %s\n  go:     %s %s/%s\n",
			GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
}

// HandleConfig handles "config show|init|path".
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		cfg := config.Global()
		fmt.Println(welcomeStyle.Render("Configuration"))
		fmt.Printf("%s %s\n", labelStyle.Render("Model"), cfg.Model.Name)
		fmt.Printf("%s %.2f\n", labelStyle.Render("Temperature"), cfg.Model.Temperature)
		fmt.Printf("%s %d\n", labelStyle.Render("Max tokens"), cfg.Model.MaxTokens)
		fmt.Printf("%s %d\n", labelStyle.Render("Search results"), cfg.Search.MaxResults)
		fmt.Printf("%s %ds\n", labelStyle.Render("Cache TTL"), cfg.Search.CacheTTLSecs)
		fmt.Printf("%s %ds\n", labelStyle.Render("Key cooldown"), cfg.Pool.CooldownSecs)
		fmt.Printf("%s %s\n", labelStyle.Render("Theme"), cfg.UI.Theme)
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", commandStyle.Render("Wrote"), path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (want show, init, or path)", args.Subcommand)
	}
}
