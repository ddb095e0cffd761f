// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	ViewIDKey     = "view.id"
	ViewMethodKey = "view.method"

	MediaHostKey       = "media.host"
	MediaSchemeKey     = "media.scheme"
	MediaDurationKey   = "media.duration_ms"
	MediaResolutionKey = "media.resolution"
	MediaCodecKey      = "media.codec"
	MediaPositionKey   = "media.position_ms"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ViewAttributes tags a span with the view and the command it runs.
func ViewAttributes(viewID, method string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(ViewIDKey, viewID)}
	if method != "" {
		attrs = append(attrs, attribute.String(ViewMethodKey, method))
	}
	return attrs
}

// MediaSourceAttributes never records the full URL; query strings may carry tokens.
func MediaSourceAttributes(scheme, host string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MediaSchemeKey, scheme),
		attribute.String(MediaHostKey, host),
	}
}

func MediaInfoAttributes(durationMS int64, resolution, codec string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(MediaDurationKey, durationMS),
		attribute.String(MediaResolutionKey, resolution),
		attribute.String(MediaCodecKey, codec),
	}
}

func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
