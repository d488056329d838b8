package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"bag-end", "Bag End"},
		{"hobbiton", "Hobbiton"},
		{"green_dragon-inn", "Green Dragon Inn"},
		{"", "The Shire"},
		{"--", "The Shire"},
	}
	for _, tt := range tests {
		if got := toTitle(tt.input); got != tt.expected {
			t.Errorf("toTitle(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bag-end")
	data, err := NewData(dir)
	if err != nil {
		t.Fatalf("NewData: %v", err)
	}
	if data.SiteName != "Bag End" || len(data.SessionSecret) != 64 || data.SessionSecret == data.IdentitySecret {
		t.Fatalf("unexpected data: %+v", data)
	}

	var out bytes.Buffer
	if err := Generate(dir, data, &out); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "shire.yaml"))
	if err != nil {
		t.Fatalf("read shire.yaml: %v", err)
	}
	if !strings.Contains(string(cfg), `name: "Bag End"`) {
		t.Errorf("shire.yaml missing site name:\n%s", cfg)
	}
	env, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("read .env: %v", err)
	}
	if !strings.Contains(string(env), "SHIRE_SESSION_SECRET="+data.SessionSecret) {
		t.Errorf(".env missing session secret:\n%s", env)
	}
	if _, err := os.Stat(filepath.Join(dir, "public", "uploads")); err != nil {
		t.Errorf("uploads dir not created: %v", err)
	}

	// A second run keeps the files the first one wrote.
	out.Reset()
	if err := Generate(dir, Data{SiteName: "Other"}, &out); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !strings.Contains(out.String(), "skipped") {
		t.Errorf("expected skipped files, got %q", out.String())
	}
	again, _ := os.ReadFile(filepath.Join(dir, "shire.yaml"))
	if !bytes.Equal(again, cfg) {
		t.Error("existing shire.yaml was overwritten")
	}
}
