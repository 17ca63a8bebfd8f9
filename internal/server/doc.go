// Package server exposes speech synthesis, the voice catalog and the
// generation history over HTTP, with Prometheus metrics on /metrics.
package server
