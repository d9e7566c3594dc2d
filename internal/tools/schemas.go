package tools

// Common JSON-Schema building blocks shared by every tool definition.

func stringSchema(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func stringArraySchema(description string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": description}
}

func numberSchema(description string, min, max *float64) map[string]any {
	s := map[string]any{"type": "number", "description": description}
	if min != nil {
		s["minimum"] = *min
	}
	if max != nil {
		s["maximum"] = *max
	}
	return s
}

func integerSchema(description string, min *int) map[string]any {
	s := map[string]any{"type": "integer", "description": description}
	if min != nil {
		s["minimum"] = *min
	}
	return s
}

func booleanSchema(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func objectSchema(description string) map[string]any {
	return map[string]any{"type": "object", "description": description}
}

func enumSchema(description string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

// object builds a top-level tool input schema: an object with the given
// properties and required field names.
func object(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
