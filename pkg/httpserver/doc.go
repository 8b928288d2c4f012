// Package httpserver wraps net/http's Server with functional options,
// graceful shutdown on context cancellation or SIGINT/SIGTERM, and a
// combined liveness/readiness health handler.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil { ... }
package httpserver
