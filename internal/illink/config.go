// Package illink implements the multi-module linker: entry-module
// identification, import resolution, internal-name renaming, extern/global
// merging, module-initialiser injection, and boolean-representation thunk
// generation, all driven from a deterministic export/import index built
// once per link.
package illink

import "gopkg.in/yaml.v3"

// Config is the linker's structured configuration surface. Detecting
// module initializers by a hardcoded name suffix is brittle once a project
// adopts its own naming convention, so the set of init-function name
// patterns is a YAML-loadable list with a built-in default, letting a
// build extend or replace it without a code change.
type Config struct {
	// InitPatterns holds shell-glob patterns (as accepted by
	// path/filepath.Match) matched against a non-entry module's
	// non-import function names to identify module initialisers.
	InitPatterns []string `yaml:"init_patterns"`
}

// DefaultConfig returns the linker configuration matching the built-in
// convention of names ending in "$init".
func DefaultConfig() *Config {
	return &Config{InitPatterns: []string{"*$init"}}
}

// LoadConfig parses a YAML document into a Config, falling back to
// DefaultConfig's pattern set if the document omits init_patterns
// entirely. An empty data slice returns DefaultConfig() unchanged.
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if len(cfg.InitPatterns) == 0 {
		cfg.InitPatterns = DefaultConfig().InitPatterns
	}
	return cfg, nil
}
