// Package diag exposes a local diagnostics HTTP server: health, session
// state, sanitized configuration, upload statistics, and Prometheus
// metrics. It is optional and never participates in the session
// lifecycle.
package diag
