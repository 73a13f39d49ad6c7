package demo

import (
	"context"
	"fmt"

	"github.com/user/mcp-go-demo/capability"
)

// GreetingTemplate is the resource address served by the greeting capability.
const GreetingTemplate = "greeting://{name}"

// GreetingDescriptor describes the greeting resource template.
func GreetingDescriptor() capability.Descriptor {
	return capability.Descriptor{
		Name:        "greeting",
		Kind:        capability.KindResource,
		Description: "Dynamic greeting for a name",
		Category:    "greeting",
		URITemplate: GreetingTemplate,
		MIMEType:    "text/plain",
		Shape: capability.Shape{
			{Name: "name", Type: capability.String, Description: "who to greet", MinLength: 1},
		},
		Handler: capability.HandlerFunc(handleGreeting),
	}
}

func handleGreeting(ctx context.Context, req capability.Request) (*capability.Response, error) {
	name, ok := req.Params["name"].(string)
	if !ok {
		return nil, fmt.Errorf("parameter name must be a string, got %T", req.Params["name"])
	}
	return capability.ResourceResponse(req.URI, Greet(name)), nil
}

// Greet renders the greeting text for name.
func Greet(name string) string {
	return "Hello, " + name + "!"
}
