/*
Package tracing provides lightweight request tracing.

Spans are created per HTTP request, carry the trace identity through
the X-Trace-ID and X-Span-ID headers, and are logged through zap with
a buffered collector so tracing never blocks the request path.

# Usage

	tracer := tracing.New("panelhost", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "render")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
