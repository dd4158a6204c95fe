// Package status serves live loader statistics over HTTP.
//
// Sessions register with a Registry while they run; the gin router built by
// NewRouter exposes them:
//
//	GET /healthz      liveness
//	GET /version      build information
//	GET /stats        every tracked session
//	GET /stats/:id    one session, 404 if unknown
package status
