// Package capability holds the handler registry: descriptors binding a
// capability name to its input shape and handler, and the request/response
// values passed through them.
package capability

import (
	"context"
	"strings"
	"time"
)

// Kind distinguishes tools from resource templates.
type Kind int

const (
	KindTool Kind = iota
	KindResource
)

func (k Kind) String() string {
	if k == KindResource {
		return "resource"
	}
	return "tool"
}

// DefaultCacheTTL applies to cacheable descriptors without an explicit TTL.
const DefaultCacheTTL = 300 * time.Second

// Request is a single invocation of a capability.
type Request struct {
	Capability string
	URI        string
	Params     map[string]any
}

// Content is one entry of a response.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	URI      string `json:"uri,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// Response is the ordered content produced by a handler.
type Response struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResponse builds a response holding a single text entry.
func TextResponse(text string) *Response {
	return &Response{Content: []Content{{Type: "text", Text: text}}}
}

// ResourceResponse builds a response holding a single text resource body
// addressed by uri.
func ResourceResponse(uri, text string) *Response {
	return &Response{Content: []Content{{Type: "text", Text: text, URI: uri}}}
}

// ErrorResponse turns a per-request failure into a response the client can read.
func ErrorResponse(err error) *Response {
	resp := TextResponse(err.Error())
	resp.IsError = true
	return resp
}

// Text joins the text of every content entry.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Handler produces the response for a validated request.
type Handler interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

func (f HandlerFunc) Invoke(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Descriptor binds a capability name to its shape and handler. It must not be
// modified once registered.
type Descriptor struct {
	Name        string
	Kind        Kind
	Description string
	Category    string
	Version     string
	Tags        []string
	URITemplate string
	MIMEType    string
	Shape       Shape
	Handler     Handler

	// Timeout bounds one invocation. Zero falls back to the server default.
	Timeout   time.Duration
	Cacheable bool
	CacheTTL  time.Duration

	template *Template
}

// EffectiveCacheTTL reports how long a cached result stays valid.
func (d *Descriptor) EffectiveCacheTTL() time.Duration {
	if !d.Cacheable {
		return 0
	}
	if d.CacheTTL <= 0 {
		return DefaultCacheTTL
	}
	return d.CacheTTL
}

// HasTag reports whether tag is attached to the descriptor.
func (d *Descriptor) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
