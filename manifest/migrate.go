package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// legacyManifest is the version-1 layout: a flat path-keyed map with no
// version field and no input scoping.
type legacyManifest struct {
	Entries map[string]Entry `yaml:"entries"`
}

// Migrate converts a legacy manifest file in place to the current
// schema, nesting all entries under inputName. It refuses files already
// at the current version.
func Migrate(path, inputName string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var p probe
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("manifest %s is not valid YAML: %w", path, err)
	}
	if p.Version == CurrentVersion {
		return nil, fmt.Errorf("manifest %s is already at version %d", path, CurrentVersion)
	}

	var legacy legacyManifest
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("manifest %s is not valid YAML: %w", path, err)
	}
	if legacy.Entries == nil {
		return nil, fmt.Errorf("manifest %s is not in the recognized legacy format", path)
	}

	m := New()
	m.Inputs[inputName] = map[string]Entry{}
	for relPath, entry := range legacy.Entries {
		m.Inputs[inputName][relPath] = entry
	}

	if err := m.Save(path); err != nil {
		return nil, err
	}
	return m, nil
}
