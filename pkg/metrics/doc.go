// Package metrics exposes boxchat protocol activity as Prometheus metrics.
//
// A Collector is a log.Logger: plug it into transport.ConnectionConfig (or a
// log.MultiLogger next to a FileLogger) and every frame, message, handshake
// and error a connection emits is counted. Each Collector owns its registry,
// so several can coexist in one process and in tests.
package metrics
