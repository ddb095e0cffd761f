// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const redacted = "***"

// Redacted returns a copy of cfg with secrets masked.
func Redacted(cfg AppConfig) AppConfig {
	if cfg.Resume.Redis.Password != "" {
		cfg.Resume.Redis.Password = redacted
	}
	return cfg
}

// Encode writes cfg as YAML. Durations are written in Go notation so the
// output loads back through Loader.
func Encode(w io.Writer, cfg AppConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(reflect.ValueOf(cfg))); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// WriteFile atomically replaces path with the YAML form of cfg.
func WriteFile(path string, cfg AppConfig) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := Encode(pending, cfg); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// toNode mirrors the yaml tags of v; yaml.v3 would encode durations as
// integers, which it refuses to decode again.
func toNode(v reflect.Value) *yaml.Node {
	if v.Type() == durationType {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: time.Duration(v.Int()).String()}
	}
	if v.Kind() == reflect.Slice && v.IsNil() {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	if v.Kind() != reflect.Struct {
		n := &yaml.Node{}
		_ = n.Encode(v.Interface())
		return n
	}
	n := &yaml.Node{Kind: yaml.MappingNode}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			toNode(v.Field(i)))
	}
	return n
}
