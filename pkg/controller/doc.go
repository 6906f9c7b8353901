// Package controller holds the HTTP middlewares shared by every route:
// WithCORS for browser clients of the JSON API, WithLogger for request IDs and
// access logs, and PprofMux for the profiling endpoints.
package controller
