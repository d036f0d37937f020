/*
Package tracing provides lightweight request tracing.

# Overview

Every HTTP request gets a trace ID, either taken from the caller's headers
or minted on entry. Spans carry parent-child relationships so one user
action can be followed through the session manager, the model provider and
the render pipeline in the structured log.

# Usage

	// Create tracer
	tracer := tracing.New("backend", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")

# Trace Format

Traces use standard HTTP headers for propagation:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation

# Performance

Spans are buffered (1000 deep) and processed off the request path; when the
buffer is full new spans are dropped rather than blocking a request.
*/
package tracing
