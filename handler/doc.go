// Package handler exposes the HTTP surface: merchant-facing book management,
// viewer access checks, checkout creation, the inbound payment-provider
// webhook, and health probes.
//
// All API responses are JSON. Domain outcomes that are not errors (a denied
// quota, a missing grant) come back as 200 responses with decision payloads;
// error responses carry {"error": "..."} with a mapped status code.
package handler
