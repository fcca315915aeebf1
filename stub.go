package mcphost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateStub renders a Go source file of strongly-typed wrappers for a
// discovered catalog, so call sites get statically-checked signatures instead
// of name-and-map dispatch. Tool names are converted to exported Go
// identifiers, required parameters become typed arguments in the order the
// schema declares them, and optional parameters are accepted through a
// trailing map.
//
// The generated file wraps a *Server; it never goes behind the generic Call
// path, so the catalog stays the single source of truth at runtime.
func GenerateStub(pkg string, tools []Tool, resources []Resource, prompts []Prompt) (string, error) {
	var sb strings.Builder

	sb.WriteString("// Code generated by mcphost; derived from the server's advertised catalog. DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	sb.WriteString("import (\n")
	sb.WriteString("\t\"context\"\n\n")
	sb.WriteString("\tmcphost \"github.com/MegaGrindStone/go-mcphost\"\n")
	sb.WriteString(")\n\n")

	sb.WriteString("// Server wraps a loaded mcphost session with typed wrappers for every\n")
	sb.WriteString("// tool, resource, and prompt the peer advertised at generation time.\n")
	sb.WriteString("type Server struct {\n")
	sb.WriteString("\tHost *mcphost.Server\n")
	sb.WriteString("}\n")

	for _, tool := range tools {
		if err := writeToolStub(&sb, tool); err != nil {
			return "", err
		}
	}

	for _, resource := range resources {
		sb.WriteString("\n")
		if resource.Description != "" {
			fmt.Fprintf(&sb, "// %s reads %s.\n", goName(resource.Name), resource.Description)
		}
		fmt.Fprintf(&sb, "func (s Server) %s(ctx context.Context) (any, error) {\n", goName(resource.Name))
		fmt.Fprintf(&sb, "\treturn s.Host.ReadResource(ctx, %q)\n", resource.URI)
		sb.WriteString("}\n")
	}

	for _, prompt := range prompts {
		sb.WriteString("\n")
		if prompt.Description != "" {
			fmt.Fprintf(&sb, "// %sPrompt renders %s.\n", goName(prompt.Name), prompt.Description)
		}
		fmt.Fprintf(&sb,
			"func (s Server) %sPrompt(ctx context.Context, arguments map[string]string) (mcphost.GetPromptResult, error) {\n",
			goName(prompt.Name))
		fmt.Fprintf(&sb, "\treturn s.Host.Prompt(ctx, %q, arguments)\n", prompt.Name)
		sb.WriteString("}\n")
	}

	return sb.String(), nil
}

type stubParam struct {
	name   string
	goType string
}

func writeToolStub(sb *strings.Builder, tool Tool) error {
	required, hasOptional, err := stubParams(tool.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %q: %w", tool.Name, err)
	}

	sb.WriteString("\n")
	if tool.Description != "" {
		fmt.Fprintf(sb, "// %s: %s\n", goName(tool.Name), tool.Description)
	}

	fmt.Fprintf(sb, "func (s Server) %s(ctx context.Context", goName(tool.Name))
	for _, p := range required {
		fmt.Fprintf(sb, ", %s %s", SnakeToCamel(p.name), p.goType)
	}
	if hasOptional {
		sb.WriteString(", opts map[string]any")
	}
	sb.WriteString(") (any, error) {\n")

	sb.WriteString("\targs := map[string]any{")
	for i, p := range required {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%q: %s", p.name, SnakeToCamel(p.name))
	}
	sb.WriteString("}\n")

	if hasOptional {
		sb.WriteString("\tfor k, v := range opts {\n")
		sb.WriteString("\t\targs[k] = v\n")
		sb.WriteString("\t}\n")
	}

	fmt.Fprintf(sb, "\treturn s.Host.Call(ctx, %q, args)\n", tool.Name)
	sb.WriteString("}\n")

	return nil
}

// stubParams splits an input schema into its required parameters, in the
// order the schema's required list declares them, and reports whether any
// optional parameters remain.
func stubParams(schema json.RawMessage) ([]stubParam, bool, error) {
	if len(schema) == 0 {
		return nil, false, nil
	}

	var node struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(schema, &node); err != nil {
		return nil, false, fmt.Errorf("invalid input schema: %w", err)
	}

	requiredSet := make(map[string]bool, len(node.Required))
	params := make([]stubParam, 0, len(node.Required))
	for _, name := range node.Required {
		prop, ok := node.Properties[name]
		if !ok {
			// A required name without a property entry is legal JSON Schema;
			// its type is simply unconstrained.
			prop = nil
		}
		requiredSet[name] = true
		params = append(params, stubParam{name: name, goType: GoTypeFor(prop)})
	}

	hasOptional := false
	for name := range node.Properties {
		if !requiredSet[name] {
			hasOptional = true
			break
		}
	}

	return params, hasOptional, nil
}

// goName converts a tool, resource, or prompt name into an exported Go
// identifier: "add_numbers" and "addNumbers" both become "AddNumbers".
func goName(name string) string {
	parts := strings.Split(CamelToSnake(name), "_")
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(strings.ToLower(part[1:]))
	}
	if sb.Len() == 0 {
		return "Tool"
	}
	return sb.String()
}

// StubCachePath returns where the generated stub for the named server is
// cached, under the user's cache directory.
func StubCachePath(serverName string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(base, "mcphost", serverName+".go"), nil
}

// SaveStub writes a generated stub to the cache, creating the directory if
// needed, and returns the path written.
func SaveStub(serverName, stub string) (string, error) {
	path, err := StubCachePath(serverName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
		return "", fmt.Errorf("failed to write stub: %w", err)
	}
	return path, nil
}
