package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/mcp-go-demo/capability"
	"github.com/user/mcp-go-demo/logging"
)

// DispatcherConfig wires a Dispatcher. Only Registry is required.
type DispatcherConfig struct {
	Registry    *capability.Registry
	Logger      *logging.Logger
	Stats       *StatsTracker
	Audit       *AuditLog
	Trace       *logging.TraceRecorder
	Cache       *ResultCache
	CallTimeout time.Duration
}

// Dispatcher resolves a request against the registry, validates its params,
// runs the handler and turns every per-request failure into an error that
// never escapes the request.
type Dispatcher struct {
	registry    *capability.Registry
	logger      *logging.Logger
	stats       *StatsTracker
	audit       *AuditLog
	trace       *logging.TraceRecorder
	cache       *ResultCache
	callTimeout time.Duration
}

// NewDispatcher creates a dispatcher over cfg.Registry.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewLogger("info")
	}
	if cfg.Stats == nil {
		cfg.Stats = NewStatsTracker()
	}
	return &Dispatcher{
		registry:    cfg.Registry,
		logger:      cfg.Logger,
		stats:       cfg.Stats,
		audit:       cfg.Audit,
		trace:       cfg.Trace,
		cache:       cfg.Cache,
		callTimeout: cfg.CallTimeout,
	}
}

// Registry returns the registry the dispatcher serves.
func (d *Dispatcher) Registry() *capability.Registry {
	return d.registry
}

// Stats returns the dispatcher's stats tracker.
func (d *Dispatcher) Stats() *StatsTracker {
	return d.stats
}

// Serve dispatches req and always returns a response: failures become error
// responses.
func (d *Dispatcher) Serve(ctx context.Context, req capability.Request) *capability.Response {
	resp, err := d.Dispatch(ctx, req)
	if err != nil {
		return capability.ErrorResponse(err)
	}
	return resp
}

// Dispatch runs one request. A request with a URI is routed through the
// resource templates; otherwise req.Capability names the capability.
// Returned errors are *capability.UnknownCapabilityError,
// *capability.ShapeValidationError or *capability.HandlerError.
func (d *Dispatcher) Dispatch(ctx context.Context, req capability.Request) (resp *capability.Response, err error) {
	start := time.Now()
	cached := false
	var desc *capability.Descriptor

	defer func() {
		d.finish(ctx, req, desc, resp, err, cached, time.Since(start))
	}()

	desc, req, err = d.resolve(req)
	if err != nil {
		d.trace.Add(logging.TraceEvent{Stage: logging.StageLookup, Capability: req.Capability, Detail: err.Error(), Failed: true})
		return nil, err
	}

	if err := d.validate(desc, &req); err != nil {
		d.trace.Add(logging.TraceEvent{Stage: logging.StageValidate, Capability: desc.Name, Kind: desc.Kind.String(), Detail: err.Error(), Failed: true})
		return nil, err
	}

	if hit, ok := d.cache.Get(desc, req.Params); ok {
		cached = true
		d.trace.Add(logging.TraceEvent{Stage: logging.StageCache, Capability: desc.Name, Kind: desc.Kind.String(), Detail: "hit"})
		return hit, nil
	}

	invokeStart := time.Now()
	resp, err = d.invoke(ctx, desc, req)
	d.trace.Add(logging.TraceEvent{
		Stage:      logging.StageInvoke,
		Capability: desc.Name,
		Kind:       desc.Kind.String(),
		Duration:   time.Since(invokeStart),
		Failed:     err != nil,
	})
	if err != nil {
		return nil, err
	}

	d.cache.Put(desc, req.Params, resp)
	return resp, nil
}

func (d *Dispatcher) resolve(req capability.Request) (*capability.Descriptor, capability.Request, error) {
	if req.URI != "" {
		desc, vars, err := d.registry.MatchURI(req.URI)
		if err != nil {
			return nil, req, err
		}
		params := make(map[string]any, len(req.Params)+len(vars))
		for k, v := range req.Params {
			params[k] = v
		}
		for k, v := range vars {
			params[k] = v
		}
		req.Capability = desc.Name
		req.Params = params
		return desc, req, nil
	}

	desc, err := d.registry.Lookup(req.Capability)
	if err != nil {
		return nil, req, err
	}
	return desc, req, nil
}

func (d *Dispatcher) validate(desc *capability.Descriptor, req *capability.Request) error {
	params, err := capability.Normalize(req.Params)
	if err != nil {
		return &capability.ShapeValidationError{Capability: desc.Name, Err: err}
	}
	req.Params = params

	validator, err := d.registry.Validator(desc.Name)
	if err != nil {
		return err
	}
	return validator.Validate(params)
}

type invokeResult struct {
	resp *capability.Response
	err  error
}

// invoke runs the handler as its own task and waits for it or for the call
// deadline, whichever comes first.
func (d *Dispatcher) invoke(ctx context.Context, desc *capability.Descriptor, req capability.Request) (*capability.Response, error) {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = d.callTimeout
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		resp, err := desc.Handler.Invoke(callCtx, req)
		done <- invokeResult{resp: resp, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			return nil, &capability.HandlerError{Capability: desc.Name, Err: result.err}
		}
		if result.resp == nil {
			return nil, &capability.HandlerError{Capability: desc.Name, Err: errors.New("handler returned no response")}
		}
		return result.resp, nil
	case <-callCtx.Done():
		return nil, &capability.HandlerError{Capability: desc.Name, Err: callCtx.Err()}
	}
}

func (d *Dispatcher) finish(ctx context.Context, req capability.Request, desc *capability.Descriptor, resp *capability.Response, err error, cached bool, elapsed time.Duration) {
	name := req.Capability
	kind := capability.KindTool.String()
	if desc != nil {
		name = desc.Name
		kind = desc.Kind.String()
	} else if req.URI != "" {
		kind = capability.KindResource.String()
	}
	if name == "" {
		name = req.URI
	}

	inv := Invocation{
		Capability: name,
		Kind:       kind,
		URI:        req.URI,
		Params:     encodeParams(req.Params),
		Outcome:    OutcomeOK,
		Duration:   elapsed,
	}

	if err != nil {
		reason := failureReason(err)
		inv.Outcome = OutcomeError
		inv.Reason = reason
		inv.Error = err.Error()
		d.stats.RecordFailure(name, reason)
		d.logger.Warn("%s %s failed (%s): %v", kind, name, reason, err)
	} else {
		d.stats.RecordSuccess(name, cached)
		d.logger.Debug("%s %s served in %s (cached=%v)", kind, name, elapsed, cached)
	}

	d.trace.Add(logging.TraceEvent{
		Stage:      logging.StageResponse,
		Capability: name,
		Kind:       kind,
		Duration:   elapsed,
		Failed:     err != nil,
	})

	if d.audit != nil {
		// The request context may already be cancelled; the audit row is still wanted.
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if _, auditErr := d.audit.Record(auditCtx, inv); auditErr != nil {
			d.logger.Error("audit: %v", auditErr)
		}
	}
}

func failureReason(err error) string {
	var unknown *capability.UnknownCapabilityError
	var shape *capability.ShapeValidationError
	switch {
	case errors.As(err, &unknown):
		return ReasonUnknown
	case errors.As(err, &shape):
		return ReasonValidation
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonHandler
	}
}

func encodeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	data, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(data)
}
