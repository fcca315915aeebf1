package mcphost

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds host defaults loaded from a YAML file. It is consumed by the
// CLI; library callers pass the same knobs through LoadOptions directly.
type Config struct {
	// Client is the identity announced to peers during the handshake.
	Client struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"client"`

	// ProtocolVersion overrides the protocol version named in the handshake.
	ProtocolVersion string `yaml:"protocol_version"`

	// Roots are filesystem paths exposed to peers via roots/list.
	Roots []string `yaml:"roots"`

	// ShutdownGrace is how long to wait for a peer process to exit before
	// killing it.
	ShutdownGrace Duration `yaml:"shutdown_grace"`

	LogLevel string `yaml:"log_level"`
}

// Duration is a time.Duration that unmarshals from YAML duration strings like
// "5s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ConfigSearchPaths returns the config file search order: ./mcphost.yaml,
// ~/.config/mcphost/config.yaml, /etc/mcphost/config.yaml.
func ConfigSearchPaths() []string {
	paths := []string{"mcphost.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mcphost", "config.yaml"))
	}

	paths = append(paths, "/etc/mcphost/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise the search paths are tried in order and the first that exists
// wins; an empty string with a nil error means no config file is present,
// which is not an error since every field has a usable default.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range ConfigSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// LoadConfig reads and parses the config file at path. An empty path returns
// the zero config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptions translates the config into the options Load understands.
func (c Config) LoadOptions() []LoadOption {
	var opts []LoadOption
	if c.Client.Name != "" {
		opts = append(opts, WithInfo(Info{Name: c.Client.Name, Version: c.Client.Version}))
	}
	if c.ProtocolVersion != "" {
		opts = append(opts, WithHostProtocolVersion(c.ProtocolVersion))
	}
	if len(c.Roots) > 0 {
		opts = append(opts, WithRoots(c.Roots...))
	}
	if c.ShutdownGrace > 0 {
		opts = append(opts, WithShutdownGracePeriod(time.Duration(c.ShutdownGrace)))
	}
	return opts
}
