package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/loglens/loglens/internal/format"
)

func TestLoadBindsFlags(t *testing.T) {
	defer func(fs *pflag.FlagSet) { pflag.CommandLine = fs }(pflag.CommandLine)
	pflag.CommandLine = pflag.NewFlagSet("loglens", pflag.ContinueOnError)
	viper.Reset()
	t.Cleanup(viper.Reset)

	pflag.String("listen", ":8077", "")
	pflag.String("auth-password", "", "")
	if err := pflag.CommandLine.Parse([]string{"--listen", ":9000", "--auth-password", "s3cret"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q, want :9000", cfg.Listen)
	}
	// The hyphenated flag must land on the underscore config key.
	if cfg.AuthPassword != "s3cret" {
		t.Errorf("AuthPassword = %q, want s3cret", cfg.AuthPassword)
	}
	if cfg.BatchSize != 64 {
		t.Errorf("BatchSize = %d, want default 64", cfg.BatchSize)
	}
}

func TestDefaultProfileCompiles(t *testing.T) {
	instructions, err := DefaultProfile().Instructions()
	if err != nil {
		t.Fatalf("default profile: %v", err)
	}

	p := format.New(instructions)
	defs := p.Columns()

	wantNames := []string{"Date", "Level", "Context", "Thread", "File", "Method", "Object", "Message"}
	if len(defs) != len(wantNames) {
		t.Fatalf("got %d columns, want %d", len(defs), len(wantNames))
	}
	for i, d := range defs {
		if d.Name != wantNames[i] {
			t.Errorf("column %d = %q, want %q", i, d.Name, wantNames[i])
		}
	}
}

func TestLoadProfileTOML(t *testing.T) {
	content := `title = "Simple"

[[syntax]]
op = "begin"

[[syntax]]
op = "skip"
n = 23

[[syntax]]
op = "emit_date"
name = "Time"
width = 23

[[syntax]]
op = "skip"
n = 1

[[syntax]]
op = "begin"

[[syntax]]
op = "emit_remainder"
name = "Message"
width = -1

[[syntax]]
op = "emit_enum"
name = "Level"
width = 5
values = ["INFO", "ERROR"]
`

	path := filepath.Join(t.TempDir(), "simple.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Title != "Simple" {
		t.Errorf("title = %q, want Simple", profile.Title)
	}

	instructions, err := profile.Instructions()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(instructions) != 7 {
		t.Fatalf("got %d instructions, want 7", len(instructions))
	}
	if instructions[2].Op != format.OpEmitDate || instructions[2].Name != "Time" {
		t.Errorf("instruction 2 = %+v, want emit_date Time", instructions[2])
	}
	if instructions[6].Op != format.OpEmitEnum || len(instructions[6].Values) != 2 {
		t.Errorf("instruction 6 = %+v, want emit_enum with 2 values", instructions[6])
	}
}

func TestProfileErrors(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
	}{
		{"unknown op", Profile{Syntax: []Step{{Op: "jump"}}}},
		{"enum without values", Profile{Syntax: []Step{{Op: "emit_enum", Name: "Level"}}}},
		{"skip_until_char without char", Profile{Syntax: []Step{{Op: "skip_until_char"}}}},
		{"skip_until_string without text", Profile{Syntax: []Step{{Op: "skip_until_string"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.profile.Instructions(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
