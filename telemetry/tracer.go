// ABOUTME: Thin wrapper over the global otel tracer, grounded on
// ABOUTME: kadirpekel-hector's pkg/observability/tracer.go GetTracer helper.

package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope every swarmloom span is recorded
// under; a host application configuring a TracerProvider identifies this
// library's spans by it.
const tracerName = "github.com/2389-research/swarmloom"

// Tracer returns the process-wide otel tracer. Until a host application
// calls otel.SetTracerProvider, every span is a no-op — the core never
// depends on a specific tracing backend.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
