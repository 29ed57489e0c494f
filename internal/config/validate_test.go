// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// helper to build a block quickly
func block(number int, base uint16) BlockConfig {
	return BlockConfig{
		Number:       number,
		Declarations: "db.db",
		RegisterBase: base,
	}
}

func valid(blocks ...BlockConfig) *Config {
	return &Config{
		Controller: ControllerConfig{Endpoint: "127.0.0.1:502"},
		Blocks:     blocks,
	}
}

// ---- tests ----

func TestValidate_OK(t *testing.T) {
	if err := Validate(valid(block(1, 0), block(2, 100))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingEndpoint(t *testing.T) {
	cfg := valid(block(1, 0))
	cfg.Controller.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected endpoint error, got nil")
	}
}

func TestValidate_NoBlocks(t *testing.T) {
	if err := Validate(valid()); err == nil {
		t.Fatalf("expected no-blocks error, got nil")
	}
}

func TestValidate_DuplicateBlock(t *testing.T) {
	if err := Validate(valid(block(1, 0), block(1, 100))); err == nil {
		t.Fatalf("expected duplicate error, got nil")
	}
}

func TestValidate_BadAlignment(t *testing.T) {
	b := block(1, 0)
	b.Alignment = "word"

	if err := Validate(valid(b)); err == nil {
		t.Fatalf("expected alignment error, got nil")
	}
}

func TestValidate_MissingDeclarations(t *testing.T) {
	b := block(1, 0)
	b.Declarations = ""

	if err := Validate(valid(b)); err == nil {
		t.Fatalf("expected declarations error, got nil")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := valid(block(1, 0))
	cfg.Log.Level = "loud"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected log level error, got nil")
	}
}

func TestValidateSpans_TouchingRangesAllowed(t *testing.T) {
	cfg := valid(block(1, 0), block(2, 4))

	// 8 bytes = registers 0–3, block 2 starts at 4
	if err := ValidateSpans(cfg, map[int]int{1: 8, 2: 8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSpans_OverlapDetected(t *testing.T) {
	cfg := valid(block(1, 0), block(2, 4))

	// 9 bytes round up to 5 registers: 0–4 overlaps 4–7
	if err := ValidateSpans(cfg, map[int]int{1: 9, 2: 8}); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestValidateSpans_EmptyBlockIgnored(t *testing.T) {
	cfg := valid(block(1, 0), block(2, 0))

	if err := ValidateSpans(cfg, map[int]int{1: 0, 2: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSpans_PastRegisterSpace(t *testing.T) {
	cfg := valid(block(1, 0xFFFF))

	if err := ValidateSpans(cfg, map[int]int{1: 4}); err == nil {
		t.Fatalf("expected range error, got nil")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := valid(block(1, 0))
	Normalize(cfg, "/etc/plcdb")

	if cfg.Controller.TimeoutMs != DefaultTimeoutMs {
		t.Fatalf("timeout default: got=%d", cfg.Controller.TimeoutMs)
	}
	if cfg.Poll.IntervalMs != DefaultIntervalMs {
		t.Fatalf("interval default: got=%d", cfg.Poll.IntervalMs)
	}
	if cfg.Blocks[0].Alignment != "even" {
		t.Fatalf("alignment default: got=%q", cfg.Blocks[0].Alignment)
	}
	if want := filepath.Join("/etc/plcdb", "db.db"); cfg.Blocks[0].Declarations != want {
		t.Fatalf("declarations path: got=%q want=%q", cfg.Blocks[0].Declarations, want)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plcdb.yaml")
	src := `
controller:
  endpoint: "10.0.0.5:502"
  unit_id: 3
blocks:
  - number: 1
    declarations: db1.db
    register_base: 200
    alignment: byte
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Controller.UnitID != 3 || len(cfg.Blocks) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Blocks[0].RegisterBase != 200 || cfg.Blocks[0].Alignment != "byte" {
		t.Fatalf("unexpected block: %+v", cfg.Blocks[0])
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plcdb.yaml")
	if err := os.WriteFile(path, []byte("controler:\n  endpoint: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field error, got nil")
	}
}
