package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(``), "snakec.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.CacheEnabled() {
		t.Fatalf("expected cache enabled by default")
	}
	if cfg.CacheDB != ".snakec-cache.sqlite" {
		t.Fatalf("CacheDB default = %q, want .snakec-cache.sqlite", cfg.CacheDB)
	}
	if got := cfg.EffectiveHeapSlots(); got <= 0 {
		t.Fatalf("EffectiveHeapSlots = %d, want a positive default", got)
	}
}

func TestParseCacheFalseRoundTrips(t *testing.T) {
	cfg, err := Parse([]byte("cache: false\n"), "snakec.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.CacheEnabled() {
		t.Fatalf("expected cache disabled when cache: false is set")
	}
}

func TestParseRejectsNegativeHeapSlots(t *testing.T) {
	_, err := Parse([]byte("heap_slots: -1\n"), "snakec.yaml")
	if err == nil {
		t.Fatalf("expected an error for a negative heap_slots")
	}
}

func TestOutPathDefaultsFromSourceExt(t *testing.T) {
	cfg := &Config{}
	if got := cfg.OutPath("prog.snake"); got != "prog.s" {
		t.Fatalf("OutPath = %q, want prog.s", got)
	}
	cfg2 := &Config{Out: "custom.s"}
	if got := cfg2.OutPath("prog.snake"); got != "custom.s" {
		t.Fatalf("OutPath override = %q, want custom.s", got)
	}
}

func TestHasSourceExt(t *testing.T) {
	if !HasSourceExt("a.snake") {
		t.Fatalf("expected a.snake to have the source extension")
	}
	if HasSourceExt("a.s") {
		t.Fatalf("did not expect a.s to have the source extension")
	}
}

func TestFindWalksUpToParentDirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "snakec.yaml"), []byte("heap_slots: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err := Find(sub)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := filepath.Join(root, "snakec.yaml")
	if found != want {
		t.Fatalf("Find = %q, want %q", found, want)
	}
}

func TestFindReturnsEmptyWhenAbsent(t *testing.T) {
	root := t.TempDir()
	found, err := Find(root)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found != "" {
		t.Fatalf("Find = %q, want empty when no config exists", found)
	}
}
