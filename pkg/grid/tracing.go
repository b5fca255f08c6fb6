package grid

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope registered with OTel.
const tracerName = "github.com/goliatone/go-datagrid/pkg/grid"

// defaultTracer resolves against the global provider, which is a noop until
// the application installs one.
func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func (g *Grid) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("datagrid.container", g.key))
	if g.runID != "" {
		attrs = append(attrs, attribute.String("datagrid.run", g.runID))
	}
	return g.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
