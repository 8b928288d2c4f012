// Package redis wraps go-redis connection setup with retrying, URL-based
// configuration from the environment, and a healthcheck suitable for HTTP
// readiness probes. The webhook deduplication layer runs on a client opened
// through this package.
package redis
