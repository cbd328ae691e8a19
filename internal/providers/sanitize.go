package providers

// Declarative JSON-schema sanitisation. Backends disagree about which
// JSON-Schema keywords they accept in tool declarations; rather than
// scattering ad hoc field surgery through an encoder, each backend owns an
// explicit rule list that is applied recursively to every subschema.

// A schemaTransform rewrites one field value. Returning ok=false drops the
// field from the sanitised schema.
type schemaTransform func(value any) (out any, ok bool)

// fieldRule binds a schema field name to its transform.
type fieldRule struct {
	Field     string
	Transform schemaTransform
}

func dropField(any) (any, bool) { return nil, false }

// flattenTypeList reduces a JSON-Schema type union to a single type string:
// "array" wins if present, otherwise the first non-array string entry.
func flattenTypeList(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case []any:
		var first string
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s == "array" {
				return "array", true
			}
			if first == "" {
				first = s
			}
		}
		return first, first != ""
	}
	return nil, false
}

// geminiSchemaRules lists every keyword the Gemini function-declaration
// parser rejects, plus the type-union flattening it requires.
var geminiSchemaRules = []fieldRule{
	{"default", dropField},
	{"additionalProperties", dropField},
	{"oneOf", dropField},
	{"anyOf", dropField},
	{"allOf", dropField},
	{"minItems", dropField},
	{"maxItems", dropField},
	{"minimum", dropField},
	{"maximum", dropField},
	{"pattern", dropField},
	{"format", dropField},
	{"$schema", dropField},
	{"type", flattenTypeList},
}

// sanitizeSchema applies rules to schema and every nested subschema
// (properties, items, and list elements). The input is never mutated.
func sanitizeSchema(schemaMap map[string]any, rules []fieldRule) map[string]any {
	if schemaMap == nil {
		return nil
	}

	ruleFor := make(map[string]schemaTransform, len(rules))
	for _, r := range rules {
		ruleFor[r.Field] = r.Transform
	}

	out := make(map[string]any, len(schemaMap))
	for key, value := range schemaMap {
		if tr, found := ruleFor[key]; found {
			v, ok := tr(value)
			if !ok {
				continue
			}
			value = v
		}

		switch v := value.(type) {
		case map[string]any:
			out[key] = sanitizeSubschemas(v, rules, key)
		case []any:
			cleaned := make([]any, 0, len(v))
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					cleaned = append(cleaned, sanitizeSchema(m, rules))
				} else if item != nil {
					cleaned = append(cleaned, item)
				}
			}
			out[key] = cleaned
		default:
			out[key] = value
		}
	}

	// An array type without items cannot be expressed; drop the type so
	// the declaration stays parseable.
	if out["type"] == "array" {
		if _, ok := out["items"].(map[string]any); !ok {
			delete(out, "type")
		}
	}

	// A schema with properties must declare an object type.
	if _, hasProps := out["properties"]; hasProps {
		if _, hasType := out["type"]; !hasType {
			out["type"] = "object"
		}
	}

	return out
}

// sanitizeSubschemas recurses into a map-valued field. "properties" holds a
// map of subschemas; everything else map-valued is treated as one subschema.
func sanitizeSubschemas(m map[string]any, rules []fieldRule, field string) map[string]any {
	if field != "properties" {
		return sanitizeSchema(m, rules)
	}
	out := make(map[string]any, len(m))
	for name, sub := range m {
		if subMap, ok := sub.(map[string]any); ok {
			out[name] = sanitizeSchema(subMap, rules)
		} else {
			out[name] = sub
		}
	}
	return out
}
