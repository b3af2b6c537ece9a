// Package http serves the operational HTTP endpoints of the key-value server.
// The key-value protocol itself runs over the tcp and unix transports; this
// server only exposes what an operator or a monitoring system needs.
//
// Endpoints:
//
//   - GET /metrics: Prometheus text format. Process metrics of the
//     VictoriaMetrics library followed by every set returned by the SetsFunc
//     (transport, worker pool and store metrics).
//
//   - GET /health: {"status":"ok"} with status 200, or status 503 and the
//     error of the HealthFunc.
//
// With debug logging enabled every request is logged with its status code
// and duration.
package http
