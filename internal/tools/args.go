package tools

import (
	"fmt"
	"strings"
)

// stringArg reads an optional string argument; missing or non-string values read as ""
func stringArg(args map[string]any, name string) string {
	v, ok := args[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// stringSliceArg reads a list of strings. JSON decoding yields []any, direct
// callers may pass []string. A comma separated string is accepted too.
func stringSliceArg(args map[string]any, name string) ([]string, error) {
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %s[%d] must be a string", name, i)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %s must be a list of strings", name)
	}
}
