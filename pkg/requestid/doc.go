// Package requestid attaches a correlation identifier to every HTTP request.
//
// Middleware reuses a valid client-supplied X-Request-ID header or generates
// a UUID, stores it in the request context, and echoes it in the response.
// LoggerExtractor feeds the ID into the logger package's context extractors
// so all log records for one request carry the same "request_id" attribute.
package requestid
