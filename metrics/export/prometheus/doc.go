// Package prometheus exposes engine counters and the authorize latency
// histogram as a prometheus.Collector.
//
// [NewCollector] reads [auth.Engine.MetricsSnapshot] on every scrape. It does
// not register itself; callers add it to their own registry, or mount
// [Collector.Handler], which serves it from a private one.
package prometheus
