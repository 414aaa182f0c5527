// Package metrics records evaluation metrics.
//
// Components receive a Recorder and default to NoopRecorder, so code paths
// never check for a nil recorder. The daemon swaps in a PrometheusRecorder
// and serves it through HTTPHandler:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
