// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package view

import (
	"encoding/json"
	"math"
	"time"
)

// Command names accepted by Invoke.
const (
	MethodInit                   = "init"
	MethodDispose                = "dispose"
	MethodPlay                   = "play"
	MethodStop                   = "stop"
	MethodReset                  = "reset"
	MethodJumpTo                 = "jumpTo"
	MethodSeekTo                 = "seekTo"
	MethodOnPanUpdate            = "onPanUpdate"
	MethodOnPanEnd               = "onPanEnd"
	MethodResize                 = "resize"
	MethodCenterCamera           = "centerCamera"
	MethodSetOrientationTracking = "setOrientationTracking"
)

var knownMethods = map[string]struct{}{
	MethodInit: {}, MethodDispose: {}, MethodPlay: {}, MethodStop: {},
	MethodReset: {}, MethodJumpTo: {}, MethodSeekTo: {}, MethodOnPanUpdate: {},
	MethodOnPanEnd: {}, MethodResize: {}, MethodCenterCamera: {},
	MethodSetOrientationTracking: {},
}

// IsKnownMethod reports whether Invoke dispatches method.
func IsKnownMethod(method string) bool {
	_, ok := knownMethods[method]
	return ok
}

// Args are the decoded arguments of a command.
type Args map[string]any

func (a Args) Bool(key string) (bool, bool) {
	v, ok := a[key].(bool)
	return v, ok
}

func (a Args) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Float accepts any numeric representation a JSON decoder may produce.
func (a Args) Float(key string) (float64, bool) {
	var f float64
	switch v := a[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// Millis reads a millisecond count as a duration. Counts beyond the Duration
// range saturate, so an absurd forward jump still lands past the end.
func (a Args) Millis(key string) (time.Duration, bool) {
	f, ok := a.Float(key)
	if !ok {
		return 0, false
	}
	switch {
	case f >= maxMillis:
		return math.MaxInt64, true
	case f <= -maxMillis:
		return math.MinInt64, true
	}
	return time.Duration(f * float64(time.Millisecond)), true
}

// Headers reads a string map. Non-string values make the argument invalid.
func (a Args) Headers(key string) (map[string]string, bool) {
	switch v := a[key].(type) {
	case map[string]string:
		return v, true
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, raw := range v {
			s, ok := raw.(string)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

type initArgs struct {
	url      string
	headers  map[string]string
	autoplay bool
	repeat   bool
	width    float64
	height   float64
}

func parseInit(a Args) (initArgs, bool) {
	var p initArgs
	var ok [6]bool
	p.url, ok[0] = a.String("url")
	p.headers, ok[1] = a.Headers("headers")
	p.autoplay, ok[2] = a.Bool("isAutoPlay")
	p.repeat, ok[3] = a.Bool("isRepeat")
	p.width, ok[4] = a.Float("width")
	p.height, ok[5] = a.Float("height")
	for _, v := range ok {
		if !v {
			return p, false
		}
	}
	return p, true
}

type seekArgs struct {
	at       time.Duration
	autoplay bool
}

func parseSeek(a Args) (seekArgs, bool) {
	at, ok1 := a.Millis("millisecond")
	autoplay, ok2 := a.Bool("autoplay")
	return seekArgs{at: at, autoplay: autoplay}, ok1 && ok2
}

type panArgs struct {
	start bool
	x, y  float64
}

func parsePan(a Args) (panArgs, bool) {
	start, ok1 := a.Bool("isStart")
	x, ok2 := a.Float("x")
	y, ok3 := a.Float("y")
	return panArgs{start: start, x: x, y: y}, ok1 && ok2 && ok3
}

func parseSize(a Args) (w, h float64, ok bool) {
	w, ok1 := a.Float("width")
	h, ok2 := a.Float("height")
	return w, h, ok1 && ok2
}
