package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/httpserver"
	"github.com/shelfworks/bookshelf/pkg/requestid"
	"github.com/shelfworks/bookshelf/pkg/shelf"
)

// RouterOptions carries the services and probes the router mounts. Webhook
// and Healthchecks are optional; everything else is required.
type RouterOptions struct {
	Shelf       shelf.Service
	Entitlement entitlement.Service

	// Webhook receives provider events; mounted at POST /webhooks/payment
	// when set.
	Webhook http.Handler

	// Healthchecks back the readiness probe at /health/ready.
	Healthchecks []func(context.Context) error

	// Logger is used by the probes; defaults to slog.Default().
	Logger *slog.Logger
}

// Router assembles the full HTTP surface.
func Router(opts RouterOptions) chi.Router {
	if opts.Shelf == nil {
		panic("handler: shelf service is required")
	}
	if opts.Entitlement == nil {
		panic("handler: entitlement service is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	books := &booksHandler{shelf: opts.Shelf}
	ent := &entitlementHandler{svc: opts.Entitlement}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)

	r.Get("/health/live", httpserver.HealthCheckHandler(context.Background(), log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(context.Background(), log, opts.Healthchecks...))

	if opts.Webhook != nil {
		r.Method(http.MethodPost, "/webhooks/payment", opts.Webhook)
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Entitlement reads within one request are memoized; the cache dies
		// with the request so webhook-driven changes are never masked.
		api.Use(snapshotCacheMiddleware)

		api.Route("/companies/{companyID}", func(company chi.Router) {
			company.Get("/entitlement", ent.snapshot)
			company.Get("/entitlement/can-create", ent.canCreate)

			company.Get("/books", books.list)
			company.Post("/books", books.create)
			company.Patch("/books/{bookID}", books.update)
			company.Delete("/books/{bookID}", books.delete)
			company.Put("/books/order", books.reorder)

			company.Post("/subscription/checkout", books.subscriptionCheckout)
		})

		api.Route("/books/{bookID}", func(book chi.Router) {
			book.Get("/access", ent.checkAccess)
			book.Post("/grants", ent.grant)
			book.Post("/checkout", books.checkout)
		})
	})

	return r
}

func snapshotCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(entitlement.WithSnapshotCache(r.Context())))
	})
}
