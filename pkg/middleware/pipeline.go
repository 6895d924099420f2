package middleware

import (
	"github.com/gantrykit/gantry/pkg/metrics"
)

// Pipeline assembles the stock middleware chain in its canonical order:
//
//	Recovery -> RequestID -> RealIP -> InFlight -> Trace -> Redact ->
//	Logging -> CORS -> Compress -> Timeout -> Metrics -> extra...
//
// Stages disabled by configuration (or by a nil tracker/metrics) are kept
// in the chain as passthroughs, so the pipeline shape is stable regardless
// of configuration. Extra stages, typically authentication, run innermost,
// directly in front of the router.
func Pipeline(cfg Config, tracker *Tracker, m metrics.HTTPMetrics, extra ...Stage) *Chain {
	red := NewRedactor(cfg.RedactedHeaders...)

	compress := passthrough("compress")
	if cfg.Compression {
		compress = Compress(cfg.CompressionLevel)
	}

	chain := NewChain(
		Recovery(m),
		RequestID(),
		RealIP(),
		InFlight(tracker),
		Trace(),
		Redact(red),
		Logging(red),
		CORS(cfg.CORS),
		compress,
		Timeout(cfg.RequestTimeout),
		Metrics(m),
	)
	chain.Use(extra...)
	return chain
}
