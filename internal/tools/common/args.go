package common

import (
	"fmt"
	"math"
	"strings"
)

// StringArg returns a trimmed string argument or "".
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// RequiredStringArg returns a non-empty string argument.
func RequiredStringArg(args map[string]any, name string) (string, error) {
	s := StringArg(args, name)
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// IntArg returns an integer argument. JSON numbers arrive as float64;
// fractional values are rejected. ok is false when the argument is absent.
func IntArg(args map[string]any, name string) (n int, ok bool, err error) {
	v, present := args[name]
	if !present || v == nil {
		return 0, false, nil
	}
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, true, fmt.Errorf("%s must be an integer", name)
		}
		return int(x), true, nil
	case int:
		return x, true, nil
	default:
		return 0, true, fmt.Errorf("%s must be a number", name)
	}
}

// BoolArg returns a boolean argument and whether it was present.
func BoolArg(args map[string]any, name string) (value, ok bool) {
	value, ok = args[name].(bool)
	return value, ok
}

// StringListArg accepts either a comma-separated string or an array of
// strings. Blank entries are dropped. ok is false when the argument is absent.
func StringListArg(args map[string]any, name string) (list []string, ok bool, err error) {
	v, present := args[name]
	if !present || v == nil {
		return nil, false, nil
	}
	switch x := v.(type) {
	case string:
		for _, part := range strings.Split(x, ",") {
			if p := strings.TrimSpace(part); p != "" {
				list = append(list, p)
			}
		}
	case []any:
		for i, item := range x {
			s, isString := item.(string)
			if !isString {
				return nil, true, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
	default:
		return nil, true, fmt.Errorf("%s must be a string or array of strings", name)
	}
	return list, true, nil
}
