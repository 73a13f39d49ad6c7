package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/user/mcp-go-demo/capability"
	"github.com/user/mcp-go-demo/logging"
)

// TransportConnectError reports that the MCP session could not be set up.
type TransportConnectError struct {
	Err error
}

func (e *TransportConnectError) Error() string {
	return fmt.Sprintf("failed to connect transport: %v", e.Err)
}

func (e *TransportConnectError) Unwrap() error {
	return e.Err
}

// StdioServer serves the capabilities of a registry over MCP. Requests arrive
// on stdin and responses leave on stdout; framing and the JSON-RPC session
// belong to the go-sdk.
type StdioServer struct {
	config     Config
	db         *sql.DB
	registry   *capability.Registry
	dispatcher *Dispatcher
	audit      *AuditLog
	stats      *StatsTracker
	cache      *ResultCache
	trace      *logging.TraceRecorder
	logger     *logging.Logger
	mcpServer  *mcp.Server
}

// NewStdioServer opens the audit database (unless config.DB is set), registers the built-in
// server_status tool and installs every capability of registry on a new MCP
// server.
func NewStdioServer(config Config, registry *capability.Registry) (*StdioServer, error) {
	config = config.withDefaults()

	logger := logging.NewLogger(config.LogLevel)
	if config.LogOutput != nil {
		logger = logging.NewLoggerTo(config.LogOutput, config.LogLevel)
	}

	db := config.DB
	if db == nil {
		var err error
		db, err = OpenDB(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	audit, err := NewAuditLog(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &StdioServer{
		config:   config,
		db:       db,
		registry: registry,
		audit:    audit,
		stats:    NewStatsTracker(),
		cache:    NewResultCache(),
		trace:    logging.NewTraceRecorder(config.TraceLimit),
		logger:   logger,
	}

	if err := registry.Register(statusDescriptor(s)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register %s: %w", StatusToolName, err)
	}

	s.dispatcher = NewDispatcher(DispatcherConfig{
		Registry:    registry,
		Logger:      logger,
		Stats:       s.stats,
		Audit:       audit,
		Trace:       s.trace,
		Cache:       s.cache,
		CallTimeout: config.CallTimeout,
	})

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    config.Name,
		Version: config.Version,
	}, nil)
	s.mcpServer.AddReceivingMiddleware(s.logMethods)

	for _, d := range registry.List() {
		s.install(d)
	}

	return s, nil
}

// install exposes one descriptor on the MCP server.
func (s *StdioServer) install(d *capability.Descriptor) {
	switch d.Kind {
	case capability.KindResource:
		s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
			Name:        d.Name,
			URITemplate: d.URITemplate,
			Description: d.Description,
			MIMEType:    d.MIMEType,
		}, s.readResource)
		s.logger.Debug("installed resource template %s (%s)", d.Name, d.URITemplate)
	default:
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Shape.Schema(),
		}, s.callTool(d.Name))
		s.logger.Debug("installed tool %s", d.Name)
	}
}

func (s *StdioServer) callTool(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := map[string]any{}
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				shapeErr := &capability.ShapeValidationError{Capability: name, Err: err}
				return toolResult(capability.ErrorResponse(shapeErr)), nil
			}
		}
		resp := s.dispatcher.Serve(ctx, capability.Request{Capability: name, Params: params})
		return toolResult(resp), nil
	}
}

func (s *StdioServer) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if req == nil || req.Params == nil || req.Params.URI == "" {
		return nil, fmt.Errorf("resource URI is required")
	}
	uri := req.Params.URI

	resp, err := s.dispatcher.Dispatch(ctx, capability.Request{URI: uri})
	if err != nil {
		var unknown *capability.UnknownCapabilityError
		if errors.As(err, &unknown) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return resourceResult(uri, resp), nil
}

func toolResult(resp *capability.Response) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(resp.Content))
	for _, c := range resp.Content {
		content = append(content, &mcp.TextContent{Text: c.Text})
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: resp.IsError,
	}
}

func resourceResult(uri string, resp *capability.Response) *mcp.ReadResourceResult {
	contents := make([]*mcp.ResourceContents, 0, len(resp.Content))
	for _, c := range resp.Content {
		entryURI := c.URI
		if entryURI == "" {
			entryURI = uri
		}
		contents = append(contents, &mcp.ResourceContents{
			URI:      entryURI,
			MIMEType: c.MIMEType,
			Text:     c.Text,
		})
	}
	return &mcp.ReadResourceResult{Contents: contents}
}

// logMethods logs every MCP method the session receives.
func (s *StdioServer) logMethods(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		start := time.Now()
		result, err := next(ctx, method, req)
		if err != nil {
			s.logger.Warn("%s failed after %s: %v", method, time.Since(start), err)
		} else {
			s.logger.Debug("%s handled in %s", method, time.Since(start))
		}
		return result, err
	}
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx is
// cancelled.
func (s *StdioServer) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP over t. A clean disconnect or cancellation returns
// nil; a failed connection returns *TransportConnectError.
func (s *StdioServer) RunTransport(ctx context.Context, t mcp.Transport) error {
	session, err := s.mcpServer.Connect(ctx, t, nil)
	if err != nil {
		return &TransportConnectError{Err: err}
	}
	s.logger.Info("stdio server started (%d capabilities)", s.registry.Count())
	defer func() {
		s.logger.Info("stdio server stopped: %s", s.stats.Summary())
	}()

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return nil
	case err := <-done:
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp session: %w", err)
	}
}

// Dispatcher returns the dispatcher behind the MCP bindings.
func (s *StdioServer) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// MCPServer returns the underlying go-sdk server.
func (s *StdioServer) MCPServer() *mcp.Server {
	return s.mcpServer
}

// AuditLog returns the invocation audit log.
func (s *StdioServer) AuditLog() *AuditLog {
	return s.audit
}

// Close closes the server resources including the database.
func (s *StdioServer) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
