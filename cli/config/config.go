package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/pithecene-io/macadam/codegen"
	"github.com/pithecene-io/macadam/types"
)

// FileName is the default project configuration file.
const FileName = "macadam.yaml"

// Config represents a macadam.yaml configuration file. Configuration
// errors surface before any file is read or uploaded; CLI flags always
// override config values.
type Config struct {
	Creator CreatorConfig          `yaml:"creator"`
	Codegen CodegenConfig          `yaml:"codegen"`
	Inputs  map[string]InputConfig `yaml:"inputs"`
	Storage *StorageConfig         `yaml:"storage,omitempty"`
	Notify  *NotifyConfig          `yaml:"notify,omitempty"`
}

// CreatorConfig is the identity cloud assets are created under.
type CreatorConfig struct {
	Type string `yaml:"type"` // user or group
	ID   uint64 `yaml:"id"`
}

// Creator converts the config value into the typed creator identity.
func (c CreatorConfig) Creator() (types.Creator, error) {
	creator := types.Creator{Type: types.CreatorType(c.Type), ID: c.ID}
	if err := creator.Validate(); err != nil {
		return types.Creator{}, err
	}
	return creator, nil
}

// CodegenConfig configures binding generation.
type CodegenConfig struct {
	Style           string `yaml:"style"` // flat (default) or nested
	TypeScript      bool   `yaml:"typescript"`
	StripExtensions bool   `yaml:"strip_extensions"`
}

// Options converts the config value into codegen options.
func (c CodegenConfig) Options() (codegen.Options, error) {
	style, err := codegen.ParseStyle(c.Style)
	if err != nil {
		return codegen.Options{}, err
	}
	return codegen.Options{
		Style:           style,
		TypeScript:      c.TypeScript,
		StripExtensions: c.StripExtensions,
	}, nil
}

// InputConfig is one named source of assets.
type InputConfig struct {
	// Path is the glob selecting this input's files.
	Path string `yaml:"path"`
	// OutputPath is the directory generated bindings land in.
	OutputPath string `yaml:"output_path"`
	// Bleed toggles alpha bleeding for this input's images (default true).
	Bleed *bool `yaml:"bleed,omitempty"`
	// WarnEachDuplicate logs every in-run content duplicate.
	WarnEachDuplicate bool `yaml:"warn_each_duplicate"`
	// Web declares already-uploaded assets by relative path. Declared
	// assets join the bindings without being read or uploaded.
	Web map[string]uint64 `yaml:"web,omitempty"`
}

// BleedEnabled reports the effective bleed setting.
func (i InputConfig) BleedEnabled() bool {
	return i.Bleed == nil || *i.Bleed
}

// StorageConfig holds the S3 mirror settings.
type StorageConfig struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// NotifyConfig holds notification adapter settings.
type NotifyConfig struct {
	Type    string            `yaml:"type"` // webhook or redis
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks the configuration before any work starts.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("config declares no inputs")
	}
	for name, in := range c.Inputs {
		if in.Path == "" {
			return fmt.Errorf("input %q has no path", name)
		}
	}
	if _, err := c.Creator.Creator(); err != nil {
		return fmt.Errorf("creator: %w", err)
	}
	if _, err := c.Codegen.Options(); err != nil {
		return fmt.Errorf("codegen: %w", err)
	}
	if c.Notify != nil {
		switch c.Notify.Type {
		case "webhook", "redis":
		default:
			return fmt.Errorf("notify type %q is not supported (want webhook or redis)", c.Notify.Type)
		}
	}
	if c.Storage != nil && c.Storage.Bucket == "" {
		return fmt.Errorf("storage declares no bucket")
	}
	return nil
}

// InputNames returns input names in sorted order, so runs process
// inputs deterministically.
func (c *Config) InputNames() []string {
	names := make([]string, 0, len(c.Inputs))
	for name := range c.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
