package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestSpanHelpersNilSafe(t *testing.T) {
	// All helpers must tolerate a nil span.
	RecordError(nil, errors.New("boom"))
	SetSpanSuccess(nil)
	SetSpanError(nil, "failed")
	SetSpanAttributes(nil, attribute.String("key", "value"))
	AddSessionAttributes(nil, "zitadel", true, true)
	AddProviderAttributes(nil, "zitadel", "refresh_token")
	AddHTTPAttributes(nil, "POST", "/api/auth/logout", 303)
	AddSecurityAttributes(nil, "192.0.2.1")
}

func TestSpanHelpersWithSpan(t *testing.T) {
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	_, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	SetSpanSuccess(span)
	SetSpanError(span, "failed")
	AddSessionAttributes(span, "", false, false)
	AddSecurityAttributes(span, "")
}
