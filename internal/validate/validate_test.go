// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestValidator_HostPort(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"localhost:6379", false},
		{"10.0.0.5:6380", false},
		{":6379", true},
		{"redis", true},
	}
	for _, tt := range tests {
		v := New()
		v.HostPort("resume.redis.addr", tt.value)
		if got := !v.IsValid(); got != tt.wantErr {
			t.Errorf("HostPort(%q) invalid=%v, want %v", tt.value, got, tt.wantErr)
		}
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:9090", false},
		{"localhost", true},
		{"127.0.0.1:", true},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("listen", tt.value)
		if got := !v.IsValid(); got != tt.wantErr {
			t.Errorf("ListenAddr(%q) invalid=%v, want %v", tt.value, got, tt.wantErr)
		}
	}
}

func TestValidator_RangeFloat(t *testing.T) {
	v := New()
	v.RangeFloat("ok", 0.5, 0, 1)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}
	v.RangeFloat("nan", math.NaN(), 0, 1)
	v.RangeFloat("high", 2, 0, 1)
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(v.Errors()))
	}
}

func TestValidator_DurationRange(t *testing.T) {
	v := New()
	v.DurationRange("poll", 500*time.Millisecond, 10*time.Millisecond, 10*time.Second)
	v.DurationRange("tick", 0, time.Millisecond, time.Second)
	if len(v.Errors()) != 1 || v.Errors()[0].Field != "tick" {
		t.Fatalf("expected single tick error, got %v", v.Errors())
	}
}

func TestValidator_ErrAggregates(t *testing.T) {
	v := New()
	if v.Err() != nil {
		t.Fatal("expected nil error for empty validator")
	}
	v.NotEmpty("a", "  ")
	v.OneOf("b", "redis", []string{"memory", "sqlite"})
	v.Range("c", 0, 1, 10)

	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(verr.Errors()))
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := ParseLogLevel("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
