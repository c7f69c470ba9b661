package illink

import (
	"testing"

	"vil/internal/il"
)

func TestLoadConfigFallsBackToDefaultPatterns(t *testing.T) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig(nil): %v", err)
	}
	if len(cfg.InitPatterns) != 1 || cfg.InitPatterns[0] != "*$init" {
		t.Fatalf("expected the default *$init pattern, got %+v", cfg.InitPatterns)
	}

	cfg, err = LoadConfig([]byte("init_patterns: []\n"))
	if err != nil {
		t.Fatalf("LoadConfig with empty list: %v", err)
	}
	if len(cfg.InitPatterns) != 1 || cfg.InitPatterns[0] != "*$init" {
		t.Fatalf("an explicitly empty init_patterns should still fall back to the default, got %+v", cfg.InitPatterns)
	}
}

func TestLoadConfigHonorsCustomPatterns(t *testing.T) {
	cfg, err := LoadConfig([]byte("init_patterns:\n  - setup_*\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.InitPatterns) != 1 || cfg.InitPatterns[0] != "setup_*" {
		t.Fatalf("expected the custom pattern to replace the default, got %+v", cfg.InitPatterns)
	}
	if !cfg.matchesInit("setup_mod") {
		t.Fatalf("expected setup_mod to match the custom setup_* pattern")
	}
	if cfg.matchesInit("mod$init") {
		t.Fatalf("the default $init pattern should no longer match once overridden")
	}
}

const moduleBCustomInit = `il 0.1
target "x86_64-linux"
func @setup_mod() -> void {
entry:
  ret
}
`

func TestLinkWithConfigUsesCustomInitPattern(t *testing.T) {
	a := parseOrFatal(t, moduleAInitOnly, "a.il")
	b := parseOrFatal(t, moduleBCustomInit, "b.il")

	cfg, err := LoadConfig([]byte("init_patterns:\n  - setup_*\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	merged, diags := LinkWithConfig([]*il.Module{a, b}, cfg)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	mainFn := merged.FindFunction("main")
	entry := mainFn.Block("entry")
	if entry.Instrs[0].Callee != "setup_mod" {
		t.Fatalf("expected the custom-pattern init call to be injected, got %+v", entry.Instrs)
	}
}
