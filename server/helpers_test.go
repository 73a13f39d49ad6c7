package server

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/mcp-go-demo/capability"
	"github.com/user/mcp-go-demo/logging"
)

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "audit.db")
}

func newTestAuditLog(t *testing.T) *AuditLog {
	t.Helper()
	db, err := OpenDB(testDBPath(t))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	audit, err := NewAuditLog(db)
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}
	return audit
}

func numberArg(params map[string]any, name string) float64 {
	v, _ := params[name].(float64)
	return v
}

// testCapabilities returns a small set of capabilities exercising every
// dispatch path. calls counts invocations of the cacheable "slow_square".
func testCapabilities(calls *int32) []capability.Descriptor {
	return []capability.Descriptor{
		{
			Name:  "sum",
			Kind:  capability.KindTool,
			Shape: capability.Shape{{Name: "a", Type: capability.Number}, {Name: "b", Type: capability.Number}},
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				return capability.TextResponse(formatFloat(numberArg(req.Params, "a") + numberArg(req.Params, "b"))), nil
			}),
		},
		{
			Name:        "hello",
			Kind:        capability.KindResource,
			URITemplate: "hello://{name}",
			MIMEType:    "text/plain",
			Shape:       capability.Shape{{Name: "name", Type: capability.String}},
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				return capability.ResourceResponse(req.URI, "Hello, "+req.Params["name"].(string)+"!"), nil
			}),
		},
		{
			Name: "fail",
			Kind: capability.KindTool,
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				return nil, errTestHandler
			}),
		},
		{
			Name: "explode",
			Kind: capability.KindTool,
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				panic("boom")
			}),
		},
		{
			Name:    "hang",
			Kind:    capability.KindTool,
			Timeout: 50 * time.Millisecond,
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		},
		{
			Name:      "slow_square",
			Kind:      capability.KindTool,
			Cacheable: true,
			Shape:     capability.Shape{{Name: "x", Type: capability.Number}},
			Handler: capability.HandlerFunc(func(ctx context.Context, req capability.Request) (*capability.Response, error) {
				atomic.AddInt32(calls, 1)
				x := numberArg(req.Params, "x")
				return capability.TextResponse(formatFloat(x * x)), nil
			}),
		},
	}
}

func newTestRegistry(t *testing.T, calls *int32) *capability.Registry {
	t.Helper()
	registry := capability.NewRegistry()
	if _, err := registry.RegisterAll(nil, testCapabilities(calls)...); err != nil {
		t.Fatalf("register: %v", err)
	}
	return registry
}

type testDispatcher struct {
	*Dispatcher
	audit *AuditLog
	trace *logging.TraceRecorder
	logs  *bytes.Buffer
	calls *int32
}

func newTestDispatcher(t *testing.T) *testDispatcher {
	t.Helper()
	calls := new(int32)
	logs := &bytes.Buffer{}
	audit := newTestAuditLog(t)
	trace := logging.NewTraceRecorder(50)

	d := NewDispatcher(DispatcherConfig{
		Registry:    newTestRegistry(t, calls),
		Logger:      logging.NewLoggerTo(logs, "debug"),
		Audit:       audit,
		Trace:       trace,
		Cache:       NewResultCache(),
		CallTimeout: time.Second,
	})
	return &testDispatcher{Dispatcher: d, audit: audit, trace: trace, logs: logs, calls: calls}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTestHandler = testError("handler refused")

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
