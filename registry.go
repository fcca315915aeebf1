package mcphost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// The registry maps friendly server names to launch commands so callers can
// write Load(ctx, "weather") instead of repeating the full command. It lives
// in a single JSON file under the user's config directory and is shared by
// the library and the CLI.

// registryPath is swapped out by tests.
var registryPath = defaultRegistryPath

func defaultRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mcphost", "servers.json"), nil
}

// LoadRegistry reads the full name-to-command registry. A missing registry
// file is not an error; it reads as empty.
func LoadRegistry() (map[string]string, error) {
	path, err := registryPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	registry := map[string]string{}
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return registry, nil
}

// SaveRegistry writes the full registry, creating the config directory if
// needed.
func SaveRegistry(registry map[string]string) error {
	path, err := registryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// Register stores friendly names for launch commands. Existing names are
// overwritten.
func Register(servers map[string]string) error {
	registry, err := LoadRegistry()
	if err != nil {
		return err
	}
	for name, command := range servers {
		registry[name] = command
	}
	return SaveRegistry(registry)
}

// Unregister removes a friendly name. Removing an unknown name is an error so
// typos do not pass silently.
func Unregister(name string) error {
	registry, err := LoadRegistry()
	if err != nil {
		return err
	}
	if _, ok := registry[name]; !ok {
		return fmt.Errorf("server %q is not registered", name)
	}
	delete(registry, name)
	return SaveRegistry(registry)
}

// Registered returns the sorted list of registered friendly names.
func Registered() ([]string, error) {
	registry, err := LoadRegistry()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Command returns the launch command registered under name.
func Command(name string) (string, error) {
	registry, err := LoadRegistry()
	if err != nil {
		return "", err
	}

	command, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("server %q is not registered", name)
	}
	return command, nil
}
