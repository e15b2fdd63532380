// Package config loads the application settings and log format
// profiles. Settings are layered command line < environment < config
// file, all through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/loglens/loglens/internal/format"
)

// Config holds the application settings.
type Config struct {
	Listen       string `mapstructure:"listen"`
	Format       string `mapstructure:"format"`
	Snapshot     string `mapstructure:"snapshot"`
	AuthPassword string `mapstructure:"auth_password"`
	BatchSize    int    `mapstructure:"batch_size"`
}

// Load binds command-line flags, LOGLENS_* environment variables and an
// optional config file into a Config. Flags must already be defined on
// pflag.CommandLine and parsed.
func Load() (Config, error) {
	viper.SetDefault("listen", ":8077")
	viper.SetDefault("batch_size", 64)

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return Config{}, err
	}
	// BindPFlags registers hyphenated flags under their hyphenated
	// names, which Unmarshal cannot match against the underscore keys.
	if f := pflag.CommandLine.Lookup("auth-password"); f != nil {
		if err := viper.BindPFlag("auth_password", f); err != nil {
			return Config{}, err
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOGLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	return cfg, nil
}

// Profile describes one log format: a title and the instruction
// program that cuts lines into columns.
type Profile struct {
	Title  string `mapstructure:"title"`
	Syntax []Step `mapstructure:"syntax"`
}

// Step is the on-disk form of a format instruction. Op selects the
// instruction; the remaining fields apply per op.
type Step struct {
	Op     string   `mapstructure:"op"`
	N      int      `mapstructure:"n"`
	Char   string   `mapstructure:"char"`
	Text   string   `mapstructure:"text"`
	Name   string   `mapstructure:"name"`
	Width  int      `mapstructure:"width"`
	Values []string `mapstructure:"values"`
}

// LoadProfile reads a format profile from a TOML or YAML file.
func LoadProfile(path string) (Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("reading format profile: %w", err)
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("unable to decode format profile: %w", err)
	}
	if len(p.Syntax) == 0 {
		return Profile{}, fmt.Errorf("format profile %s defines no syntax steps", path)
	}
	return p, nil
}

// Instructions compiles the profile steps into a format program.
func (p Profile) Instructions() ([]format.Instruction, error) {
	instructions := make([]format.Instruction, 0, len(p.Syntax))
	for i, s := range p.Syntax {
		in := format.Instruction{
			N:      s.N,
			Name:   s.Name,
			Width:  s.Width,
			Values: s.Values,
		}

		switch s.Op {
		case "begin":
			in.Op = format.OpBegin
		case "skip":
			in.Op = format.OpSkip
		case "skip_until_char":
			in.Op = format.OpSkipUntilChar
			in.Text = s.Char
			if len(s.Char) == 0 {
				return nil, fmt.Errorf("syntax step %d: skip_until_char needs a char", i)
			}
		case "skip_until_string":
			in.Op = format.OpSkipUntilString
			in.Text = s.Text
			if s.Text == "" {
				return nil, fmt.Errorf("syntax step %d: skip_until_string needs text", i)
			}
		case "emit_date":
			in.Op = format.OpEmitDate
		case "emit_string":
			in.Op = format.OpEmitString
		case "emit_enum":
			in.Op = format.OpEmitEnum
			if len(s.Values) == 0 {
				return nil, fmt.Errorf("syntax step %d: emit_enum needs values", i)
			}
		case "emit_remainder":
			in.Op = format.OpEmitRemainder
		default:
			return nil, fmt.Errorf("syntax step %d: unknown op %q", i, s.Op)
		}

		instructions = append(instructions, in)
	}
	return instructions, nil
}

// DefaultProfile is the built-in Log4Net profile, used when no format
// file is given.
func DefaultProfile() Profile {
	levels := []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	return Profile{
		Title: "Log4Net",
		Syntax: []Step{
			{Op: "begin"},
			{Op: "skip", N: 23},
			{Op: "emit_date", Name: "Date", Width: 23},
			{Op: "skip", N: 2},
			{Op: "begin"},
			{Op: "skip_until_char", Char: " "},
			{Op: "emit_enum", Name: "Level", Width: 5, Values: levels},
			{Op: "skip_until_char", Char: "["},
			{Op: "skip", N: 1},
			{Op: "begin"},
			{Op: "skip_until_char", Char: "]"},
			{Op: "emit_string", Name: "Context", Width: 5},
			{Op: "skip_until_char", Char: "["},
			{Op: "skip", N: 1},
			{Op: "begin"},
			{Op: "skip_until_char", Char: "]"},
			{Op: "emit_string", Name: "Thread", Width: 5},
			{Op: "skip", N: 2},
			{Op: "begin"},
			{Op: "skip_until_char", Char: ","},
			{Op: "emit_string", Name: "File", Width: 5},
			{Op: "skip", N: 3},
			{Op: "begin"},
			{Op: "skip_until_string", Text: " <"},
			{Op: "emit_string", Name: "Method", Width: 5},
			{Op: "skip", N: 2},
			{Op: "begin"},
			{Op: "skip_until_char", Char: ">"},
			{Op: "emit_string", Name: "Object", Width: 5},
			{Op: "skip_until_char", Char: "-"},
			{Op: "skip", N: 2},
			{Op: "begin"},
			{Op: "emit_remainder", Name: "Message", Width: -1},
		},
	}
}
