package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/user/mcp-go-demo/capability"
	"github.com/user/mcp-go-demo/cmd"
	"github.com/user/mcp-go-demo/demo"
	"github.com/user/mcp-go-demo/logging"
	"github.com/user/mcp-go-demo/server"
)

const version = "1.0.0"

func main() {
	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		handleServeCommand(args)
	case "capabilities":
		handleCapabilitiesCommand(args)
	case "history":
		handleHistoryCommand(args)
	case "version":
		fmt.Printf("mcp-go-demo v%s\n", version)
	case "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printHelp()
		os.Exit(2)
	}
}

func handleServeCommand(rawArgs []string) {
	args, err := cmd.ParseArgsWithArgs(rawArgs, cmd.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		os.Exit(2)
	}
	logger := logging.NewLogger(args.LogLevel)

	srv, err := newServer(args, logger)
	if err != nil {
		fatal(err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		srv.Close()
		fatal(err)
	}
}

// newServer opens the database, builds the registry from the demo and SQL
// capabilities and the optional manifest, then wraps it in a stdio server.
func newServer(args cmd.CLIArgs, logger *logging.Logger) (*server.StdioServer, error) {
	manifest, err := capability.LoadManifest(args.ConfigPath)
	if err != nil {
		return nil, err
	}

	db, err := server.OpenDB(args.DBPath)
	if err != nil {
		return nil, err
	}

	descriptors := append(demo.Descriptors(), demo.SQLDescriptors(db)...)
	for _, name := range manifest.Unknown(descriptors) {
		logger.Warn("manifest configures unknown capability %s", name)
	}

	registry := capability.NewRegistry()
	skipped, err := registry.RegisterAll(manifest, descriptors...)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, name := range skipped {
		logger.Info("capability %s disabled by manifest", name)
	}

	return server.NewStdioServer(server.Config{
		Name:         server.DefaultName,
		Version:      version,
		LogLevel:     args.LogLevel,
		DBPath:       args.DBPath,
		DB:           db,
		ManifestPath: args.ConfigPath,
		CallTimeout:  args.CallTimeout,
		TraceLimit:   args.TraceLimit,
	}, registry)
}

func handleCapabilitiesCommand(rawArgs []string) {
	args, opts, err := cmd.ParseListArgsWithArgs(rawArgs, cmd.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		os.Exit(2)
	}
	// The listing never touches the audit log.
	args.DBPath = ""

	srv, err := newServer(args, logging.NewLogger(args.LogLevel))
	if err != nil {
		fatal(err)
	}
	defer srv.Close()

	report := srv.Status(context.Background(), server.CapabilityFilter{
		Category: opts.Category,
		Tag:      opts.Tag,
		Search:   opts.Search,
	})
	summaries := report.Capabilities
	if opts.JSON {
		printJSON(summaries)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tCATEGORY\tPARAMS\tDESCRIPTION")
	for _, c := range summaries {
		name := c.Name
		if c.URITemplate != "" {
			name = c.URITemplate
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, c.Kind, c.Category, strings.Join(c.Params, ","), c.Description)
	}
	w.Flush()
}

func handleHistoryCommand(rawArgs []string) {
	args, opts, err := cmd.ParseListArgsWithArgs(rawArgs, cmd.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		os.Exit(2)
	}
	if args.DBPath == "" {
		fmt.Fprintln(os.Stderr, "history needs a persistent database: pass -db or set MCP_DEMO_DB")
		os.Exit(2)
	}

	db, err := server.OpenDB(args.DBPath)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	audit, err := server.NewAuditLog(db)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	invocations, err := audit.Recent(ctx, opts.Limit)
	if err != nil {
		fatal(err)
	}
	if opts.JSON {
		printJSON(invocations)
		return
	}
	if len(invocations) == 0 {
		fmt.Println("No invocations recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCAPABILITY\tOUTCOME\tDURATION\tDETAIL")
	for _, inv := range invocations {
		detail := inv.Params
		if inv.URI != "" {
			detail = inv.URI
		}
		if inv.Error != "" {
			detail = inv.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inv.CreatedAt.Format(time.RFC3339), inv.Capability, inv.Outcome, inv.Duration, detail)
	}
	w.Flush()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

// fatal prints a diagnostic to stderr and exits non-zero.
func fatal(err error) {
	var dup *capability.DuplicateCapabilityError
	var conn *server.TransportConnectError
	switch {
	case errors.As(err, &dup):
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
	case errors.As(err, &conn):
		fmt.Fprintf(os.Stderr, "transport error: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func printHelp() {
	fmt.Print(`
MCP Go Demo v` + version + `

USAGE:
  mcp-go-demo [COMMAND] [FLAGS]

COMMANDS:
  serve         Serve the demo capabilities over MCP on stdin/stdout (default)
  capabilities  List registered capabilities (-json, -category, -tag, -search)
  history       Print recent invocations from the audit database (-n, -json)
  version       Print version
  help          Print this help message

FLAGS:
  -log-level STRING         Log level: debug, info, warn, error (default: info)
  -db STRING                SQLite audit database path (default: in-memory)
  -config STRING            Capability manifest YAML file
  -call-timeout DURATION    Default per-call timeout, 0 disables (default: 30s)
  -trace-limit INT          Dispatch trace events kept in memory (default: 200)

ENVIRONMENT:
  MCP_DEMO_LOG_LEVEL, MCP_DEMO_DB, MCP_DEMO_CONFIG,
  MCP_DEMO_CALL_TIMEOUT, MCP_DEMO_TRACE_LIMIT

EXAMPLES:
  # Serve over stdio with a persistent audit log
  mcp-go-demo serve -db demo.db

  # Show what a manifest enables
  mcp-go-demo capabilities -config capabilities.yaml

  # Last five calls as JSON
  mcp-go-demo history -db demo.db -n 5 -json
`)
}
