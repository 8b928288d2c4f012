// Package logger builds context-aware slog loggers with functional options
// and a small set of attribute constructors that keep key naming consistent
// across the codebase.
//
// New wraps a text or JSON slog.Handler with a decorator that runs registered
// ContextExtractor callbacks on every record, so request-scoped values such
// as a request ID are injected automatically:
//
//	log := logger.New(
//	    logger.WithProduction("bookshelf"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "book created", logger.CompanyID(id))
package logger
