// Package middleware provides HTTP middleware components for the tattva server.
//
// Available middleware:
//   - RequestID: assigns or propagates X-Request-ID and stores it for logging
//   - RateLimiter: per-client rate limiting using a token bucket
//   - StatusRecorder: captures the response status for logging and metrics
//
// Usage:
//
//	rl := middleware.NewRateLimiter(middleware.ConfigForRate(10))
//	defer rl.Stop()
//	handler = middleware.RequestID(rl.Middleware(handler))
package middleware
