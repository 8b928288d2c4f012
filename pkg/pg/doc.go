// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// retrying startup, goose schema migrations routed through the application
// logger, a readiness probe, and small error-classification helpers.
//
// Config fields are populated from environment variables (see the field tags
// for names and defaults). A typical startup sequence:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//
// IsNotFoundError and IsDuplicateKeyError classify pgx errors so store
// implementations can map them to domain sentinels.
package pg
