// Package tracing wraps scheduler jobs in OpenTelemetry spans.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Swind/go-job-scheduler/core"
)

// tracerName is the instrumentation scope name for job tracing.
const tracerName = "github.com/Swind/go-job-scheduler"

// SpanName is the name of the span started for every job.
const SpanName = "jobscheduler.job.execute"

// Interceptor returns a core.Interceptor that runs every job inside a span of
// the global tracer provider. Without a configured provider the noop tracer is
// used and the interceptor only forwards the call.
func Interceptor() core.Interceptor {
	return InterceptorWithTracer(otel.Tracer(tracerName))
}

// InterceptorWithTracer is Interceptor with an explicit tracer.
//
// Span attributes: jobscheduler.job.id, jobscheduler.job.name,
// jobscheduler.category, jobscheduler.worker, jobscheduler.scheduler.
// A failed or panicking job sets the span status to codes.Error. The panic
// itself keeps propagating to the worker's fault boundary.
func InterceptorWithTracer(tracer trace.Tracer) core.Interceptor {
	return func(ctx context.Context, info core.JobInfo, next func(ctx context.Context) error) error {
		ctx, span := tracer.Start(ctx, SpanName,
			trace.WithAttributes(
				attribute.String("jobscheduler.job.id", info.ID.String()),
				attribute.String("jobscheduler.job.name", info.Name),
				attribute.String("jobscheduler.category", info.Category),
				attribute.Int("jobscheduler.worker", info.WorkerID),
				attribute.String("jobscheduler.scheduler", info.SchedulerID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)

		returned := false
		defer func() {
			if !returned {
				span.SetStatus(codes.Error, "job panicked")
			}
			span.End()
		}()

		err := next(ctx)
		returned = true
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
