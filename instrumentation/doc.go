// Package instrumentation provides OpenTelemetry metrics and tracing for the
// session library.
//
// The package wraps the OpenTelemetry SDK behind a single Instrumentation
// type that owns the meter and tracer providers, a Metrics holder with all
// pre-created instruments, and span attribute helpers. When instrumentation
// is disabled the no-op providers are used, so instrumented code paths carry
// no conditionals.
//
// Usage:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//	    ServiceName:    "oidc-session",
//	    ServiceVersion: "1.0.0",
//	    Enabled:        true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer inst.Shutdown(ctx)
//
//	tracer := inst.Tracer("http")
//	ctx, span := tracer.Start(ctx, "session.refresh")
//	defer span.End()
//
//	inst.Metrics().RecordTokenRefresh(ctx, "zitadel", true, false)
//
// Never record token values, session cookie contents, or logout state values
// as span attributes or metric labels. Only metadata such as provider names,
// operation names, status codes, and boolean outcomes is safe to export.
package instrumentation
