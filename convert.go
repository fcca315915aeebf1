package mcphost

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ParseCommand turns a launch spec into an argument vector. A string is split
// on whitespace; there is no shell-style quoting, matching the simple specs
// used to launch MCP servers ("npx -y some-server").
func ParseCommand(spec string) []string {
	return strings.Fields(spec)
}

// CamelToSnake converts a camelCase or PascalCase identifier to snake_case.
// Runs of capitals are treated as acronyms: "HTTPRequest" becomes
// "http_request" and "getUserID" becomes "get_user_id".
func CamelToSnake(s string) string {
	runes := []rune(s)
	var sb strings.Builder

	for i, r := range runes {
		if unicode.IsUpper(r) {
			// A word boundary sits before an upper rune that follows a lower
			// rune, or before the last upper of an acronym run.
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (unicode.IsUpper(runes[i-1]) && nextLower)) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}

	return sb.String()
}

// SnakeToCamel converts a snake_case identifier to camelCase. Leading,
// trailing, and doubled underscores are dropped.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	var sb strings.Builder

	first := true
	for _, part := range parts {
		if part == "" {
			continue
		}
		if first {
			sb.WriteString(strings.ToLower(part))
			first = false
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(strings.ToLower(part[1:]))
	}

	return sb.String()
}

// GoTypeFor maps a JSON Schema fragment to the Go type used for it in
// generated stubs. Unknown or missing types map to any, since JSON Schema
// leaves them unconstrained.
func GoTypeFor(schema json.RawMessage) string {
	var node struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(schema, &node); err != nil {
		return "any"
	}

	switch node.Type {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		return "[]any"
	case "object":
		return "map[string]any"
	default:
		return "any"
	}
}
