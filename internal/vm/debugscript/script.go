// Package debugscript loads a declarative YAML step script that drives a
// debug session without an interactive terminal — used by automated
// regression suites that need to reproduce a particular break/step/print
// sequence deterministically.
package debugscript

import "gopkg.in/yaml.v3"

// Step is one scripted debug action.
type Step struct {
	// Kind is one of: "break-label", "break-line", "step", "continue",
	// "print", "backtrace".
	Kind string `yaml:"kind"`

	Function string `yaml:"function,omitempty"`
	Block    string `yaml:"block,omitempty"`

	File string `yaml:"file,omitempty"`
	Line uint32 `yaml:"line,omitempty"`

	// Count is the step multiplier for "step" (default 1).
	Count int `yaml:"count,omitempty"`

	// Reg is the SSA register id for "print".
	Reg uint64 `yaml:"reg,omitempty"`
}

// Script is an ordered list of Steps, loaded wholesale before a run begins.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Load parses a YAML document into a Script. An empty document yields an
// empty Script (zero steps), not an error.
func Load(data []byte) (*Script, error) {
	if len(data) == 0 {
		return &Script{}, nil
	}
	s := &Script{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	for i := range s.Steps {
		if s.Steps[i].Kind == "step" && s.Steps[i].Count == 0 {
			s.Steps[i].Count = 1
		}
	}
	return s, nil
}
