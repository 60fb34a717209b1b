// Package metrics exports pipeline runs as Prometheus metrics.
//
// A Collector implements pipeline.Monitor and registers its metrics on the
// registerer it is given, so tests and embedded deployments can keep them
// off the global registry:
//
//	reg := prometheus.NewRegistry()
//	collector, err := metrics.NewCollector(reg)
//	orch, err := pipeline.New(searcher, generator, pipeline.WithMonitor(collector))
package metrics
