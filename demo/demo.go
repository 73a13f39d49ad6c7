// Package demo defines the capabilities served by the demo server: the add
// tool, the greeting resource template and the weather forecast tool.
package demo

import "github.com/user/mcp-go-demo/capability"

// Descriptors returns every demo capability, ready to register.
func Descriptors() []capability.Descriptor {
	return []capability.Descriptor{
		AddDescriptor(),
		GreetingDescriptor(),
		WeatherDescriptor(),
	}
}
