package demo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/user/mcp-go-demo/capability"
)

// AddDescriptor describes the add tool: {a: number, b: number} -> a+b.
func AddDescriptor() capability.Descriptor {
	return capability.Descriptor{
		Name:        "add",
		Kind:        capability.KindTool,
		Description: "Add two numbers",
		Category:    "math",
		Tags:        []string{"math", "arithmetic"},
		Shape: capability.Shape{
			{Name: "a", Type: capability.Number, Description: "first addend"},
			{Name: "b", Type: capability.Number, Description: "second addend"},
		},
		Handler: capability.HandlerFunc(handleAdd),
	}
}

func handleAdd(ctx context.Context, req capability.Request) (*capability.Response, error) {
	a, err := numberParam(req.Params, "a")
	if err != nil {
		return nil, err
	}
	b, err := numberParam(req.Params, "b")
	if err != nil {
		return nil, err
	}
	return capability.TextResponse(FormatNumber(a + b)), nil
}

func numberParam(params map[string]any, name string) (float64, error) {
	switch v := params[name].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number, got %T", name, params[name])
	}
}

// FormatNumber renders f the way JavaScript's Number#toString does: the
// shortest digits that round-trip, in plain notation for magnitudes in
// [1e-6, 1e21) and exponent notation otherwise.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// Go pads the exponent to two digits (1e-07); JavaScript does not (1e-7).
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}
