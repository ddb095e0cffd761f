// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/video360/internal/config"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	case "init":
		return runConfigInit(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  video360d config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  video360d config dump [--file|-f config.yaml] [--format=yaml|json]")
	fmt.Fprintln(w, "  video360d config init --out config.yaml")
}

func configFlags(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	return fs, &file
}

func loadForCLI(file string, stderr io.Writer) (config.AppConfig, bool) {
	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	cfg, err := config.NewLoader(configPath, version).Load()
	if err != nil {
		label := configPath
		if label == "" {
			label = "environment"
		}
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", label, err)
		return cfg, false
	}
	return cfg, true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("video360d config validate", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, ok := loadForCLI(*file, stderr); !ok {
		return 1
	}
	fmt.Fprintln(stdout, "✓ configuration is valid")
	return 0
}

// runConfigDump prints the effective configuration (defaults, file, env)
// with secrets masked.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("video360d config dump", stderr)
	var format string
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, ok := loadForCLI(*file, stderr)
	if !ok {
		return 1
	}
	cfg = config.Redacted(cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		if err := config.Encode(stdout, cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

// runConfigInit writes the defaults to a new file, atomically.
func runConfigInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("video360d config init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	fs.StringVar(&out, "out", "", "destination file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(out) == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 2
	}
	if err := config.WriteFile(out, config.Defaults()); err != nil {
		fmt.Fprintf(stderr, "Failed to write %s: %v\n", out, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", out)
	return 0
}
