package rpc

import (
	"encoding/json"
)

// ParamType constrains the JSON type accepted for one parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeBool   ParamType = "bool"
	TypeNumber ParamType = "number"
)

// Param describes one positional parameter of a method. Named params
// map onto descriptors by Name, positional params by order.
type Param struct {
	Name        string
	Type        ParamType
	Optional    bool
	Description string
}

// bindParams validates the raw params member against the descriptors
// and returns the coerced argument list, padded with nil for omitted
// optional parameters.
func bindParams(descriptors []Param, raw json.RawMessage) ([]any, *Fault) {
	args := make([]any, len(descriptors))

	switch {
	case raw == nil:
		// No params at all; only optional descriptors may remain.
	case jsonKind(raw) == '[':
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return nil, InvalidParams("malformed params array: %v", err)
		}
		if len(positional) > len(descriptors) {
			return nil, InvalidParams("expected at most %d parameters, got %d", len(descriptors), len(positional))
		}
		for i, value := range positional {
			coerced, fault := coerce(descriptors[i], value)
			if fault != nil {
				return nil, fault
			}
			args[i] = coerced
		}
	default:
		var named map[string]json.RawMessage
		if err := json.Unmarshal(raw, &named); err != nil {
			return nil, InvalidParams("malformed params object: %v", err)
		}
		for name := range named {
			if paramIndex(descriptors, name) < 0 {
				return nil, InvalidParams("unknown parameter %q", name)
			}
		}
		for i, d := range descriptors {
			value, ok := named[d.Name]
			if !ok {
				continue
			}
			coerced, fault := coerce(d, value)
			if fault != nil {
				return nil, fault
			}
			args[i] = coerced
		}
	}

	for i, d := range descriptors {
		if args[i] == nil && !d.Optional {
			return nil, InvalidParams("missing required parameter %q", d.Name)
		}
	}
	return args, nil
}

func coerce(d Param, raw json.RawMessage) (any, *Fault) {
	switch d.Type {
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, InvalidParams("parameter %q must be a string", d.Name)
		}
		return s, nil
	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, InvalidParams("parameter %q must be a boolean", d.Name)
		}
		return b, nil
	case TypeNumber:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, InvalidParams("parameter %q must be a number", d.Name)
		}
		return f, nil
	}
	return nil, InvalidParams("parameter %q has unsupported type", d.Name)
}

func paramIndex(descriptors []Param, name string) int {
	for i, d := range descriptors {
		if d.Name == name {
			return i
		}
	}
	return -1
}

func jsonKind(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

// argString reads a bound string argument, tolerating the nil left by
// an omitted optional parameter.
func argString(args []any, i int) string {
	if s, ok := args[i].(string); ok {
		return s
	}
	return ""
}

func argBool(args []any, i int) bool {
	if b, ok := args[i].(bool); ok {
		return b
	}
	return false
}
