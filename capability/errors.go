package capability

import "fmt"

// DuplicateCapabilityError is returned when a name is registered twice.
type DuplicateCapabilityError struct {
	Name string
}

func (e *DuplicateCapabilityError) Error() string {
	return fmt.Sprintf("capability already registered: %s", e.Name)
}

// UnknownCapabilityError is returned when a request names a capability, or a
// resource URI, that nothing in the registry serves.
type UnknownCapabilityError struct {
	Name string
	URI  string
}

func (e *UnknownCapabilityError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("no capability serves resource: %s", e.URI)
	}
	return fmt.Sprintf("unknown capability: %s", e.Name)
}

// ShapeValidationError is returned when request params do not satisfy the
// declared input shape.
type ShapeValidationError struct {
	Capability string
	Err        error
}

func (e *ShapeValidationError) Error() string {
	return fmt.Sprintf("invalid params for %s: %v", e.Capability, e.Err)
}

func (e *ShapeValidationError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a failure raised while running a handler: a returned
// error, a recovered panic, or an expired deadline.
type HandlerError struct {
	Capability string
	Err        error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Capability, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
