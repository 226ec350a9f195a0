// Package api hosts the HTTP server, middleware, and handlers for the
// waitlist signup surface. Notable routes:
//   - GET /api/health for liveness probes.
//   - POST /api/waitlist for signup submissions (JSON or form-encoded).
//   - OPTIONS /api/waitlist for CORS pre-flight.
//   - GET /metrics for Prometheus scraping.
//   - everything else is delegated to the static asset handler.
package api
