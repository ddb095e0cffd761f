// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strings"
)

const maxStderr = 4096

// runFunc executes a binary and returns stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	// #nosec G204 - binary comes from config; args are built here and the URL is passed opaquely
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}

// headerArgs renders request headers for ffmpeg's -headers option. Keys are
// sorted so the command line is stable.
func headerArgs(headers map[string]string) []string {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v := strings.NewReplacer("\r", "", "\n", "").Replace(headers[k])
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	return []string{"-headers", b.String()}
}
