// Package observability connects a proximity.Cache to Prometheus and
// OpenTelemetry.
//
//	reg := prometheus.NewRegistry()
//	mc, _ := observability.NewPrometheusCollector(reg, "products")
//	tp, _ := observability.InitTracing(ctx, &observability.TracingConfig{OTLPEndpoint: "localhost:4317"})
//	defer tp.Shutdown(ctx)
//
//	cache, _ := proximity.New(768, backend,
//	    proximity.WithMetricsCollector(mc),
//	    proximity.WithTracerProvider(tp.Provider()),
//	)
package observability
