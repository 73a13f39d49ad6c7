package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CLIArgs holds the serve configuration. Environment variables supply the
// defaults and flags override them.
type CLIArgs struct {
	LogLevel    string        `env:"MCP_DEMO_LOG_LEVEL" envDefault:"info"`
	DBPath      string        `env:"MCP_DEMO_DB"`
	ConfigPath  string        `env:"MCP_DEMO_CONFIG"`
	CallTimeout time.Duration `env:"MCP_DEMO_CALL_TIMEOUT" envDefault:"30s"`
	TraceLimit  int           `env:"MCP_DEMO_TRACE_LIMIT" envDefault:"200"`
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	return environMap(os.Environ())
}

// ListOptions controls the output of the capabilities and history
// subcommands.
type ListOptions struct {
	JSON     bool
	Limit    int
	Category string
	Tag      string
	Search   string
}

// ParseArgsWithArgs parses args on top of the given environment.
func ParseArgsWithArgs(args []string, environ map[string]string) (CLIArgs, error) {
	cliArgs, _, err := parse(args, environ, false)
	return cliArgs, err
}

// ParseListArgsWithArgs parses the flags of a listing subcommand, which
// accepts output and filter flags besides the common flags.
func ParseListArgsWithArgs(args []string, environ map[string]string) (CLIArgs, ListOptions, error) {
	return parse(args, environ, true)
}

func parse(args []string, environ map[string]string, listing bool) (CLIArgs, ListOptions, error) {
	cliArgs := CLIArgs{}
	opts := ListOptions{Limit: 20}
	if err := env.ParseWithOptions(&cliArgs, env.Options{Environment: environ}); err != nil {
		return cliArgs, opts, fmt.Errorf("failed to parse environment: %w", err)
	}

	fs := flag.NewFlagSet("mcp-go-demo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cliArgs.LogLevel, "log-level", cliArgs.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cliArgs.DBPath, "db", cliArgs.DBPath, "SQLite audit database path (default: in-memory)")
	fs.StringVar(&cliArgs.ConfigPath, "config", cliArgs.ConfigPath, "Capability manifest YAML file")
	fs.DurationVar(&cliArgs.CallTimeout, "call-timeout", cliArgs.CallTimeout, "Default per-call timeout (0 disables)")
	fs.IntVar(&cliArgs.TraceLimit, "trace-limit", cliArgs.TraceLimit, "Dispatch trace events kept in memory")
	if listing {
		fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of text")
		fs.IntVar(&opts.Limit, "n", opts.Limit, "Number of entries to print")
		fs.StringVar(&opts.Category, "category", "", "Only list capabilities in this category")
		fs.StringVar(&opts.Tag, "tag", "", "Only list capabilities carrying this tag")
		fs.StringVar(&opts.Search, "search", "", "Only list capabilities whose name or description contains this text")
	}

	if err := fs.Parse(args); err != nil {
		return cliArgs, opts, err
	}
	if fs.NArg() > 0 {
		return cliArgs, opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if cliArgs.CallTimeout < 0 {
		return cliArgs, opts, fmt.Errorf("call timeout must not be negative: %s", cliArgs.CallTimeout)
	}
	return cliArgs, opts, nil
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
