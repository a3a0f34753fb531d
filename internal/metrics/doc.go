// Package metrics provides lock-free counters and a latency histogram for the
// auth engine.
//
// Counters are cache-line-padded uint64 slots incremented with
// [sync/atomic.AddUint64]. The authorize histogram uses 8 fixed buckets
// (≤5ms … +Inf). Writes never allocate.
//
// Export (Prometheus, OTel) lives in metrics/export/ and reads [Snapshot]
// values; this package performs no I/O.
package metrics
