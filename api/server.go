/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the office frontend
  5. Actor:      X-LostTrack-User header -> generic.WithActor

ROUTE GROUPS:
  /api/items/*      Case records, parties, steps, receipts, rewards
  /api/drafts/*     Drafts
  /api/cashbook/*   Cash ledger
  /api/numbers/*    Counter preview
  /api/audit        Audit log
  /healthz          Liveness
  /metrics          Prometheus

SECURITY NOTE:
  No authentication middleware. The actor header is trusted as given;
  deploy behind a proxy that sets it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Streuli81/LostTrack/generic"
)

// ActorHeader carries the acting user name.
const ActorHeader = "X-LostTrack-User"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: true,
	}))
	r.Use(actor)

	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CommitItem)
			r.Get("/search", h.SearchItems)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetItem)
				r.Put("/", h.UpdateItem)
				r.Post("/status", h.ChangeStatus)
				r.Post("/steps", h.AddStep)
				r.Delete("/steps/{stepID}", h.DeleteStep)
				r.Put("/finder", h.UpdateFinder)
				r.Put("/owner", h.UpdateOwner)
				r.Put("/collector", h.UpdateCollector)
				r.Post("/receipts", h.CreateReceipt)
				r.Post("/reward/payout", h.PayFinderReward)
				r.Post("/reward/deposit", h.ReceiveOwnerReward)
				r.Get("/audit", h.ItemAudit)
			})
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", h.ListDrafts)
			r.Post("/", h.SaveDraft)
			r.Get("/{id}", h.GetDraft)
			r.Delete("/{id}", h.DeleteDraft)
		})

		r.Route("/cashbook", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.PostEntry)
			r.Get("/totals", h.Totals)
			r.Get("/verify", h.VerifyChain)
		})

		r.Get("/numbers/next", h.NextNumber)
		r.Get("/audit", h.AuditLog)
	})

	return r
}

// actor puts the X-LostTrack-User header into the request context.
func actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name := strings.TrimSpace(r.Header.Get(ActorHeader)); name != "" {
			r = r.WithContext(generic.WithActor(r.Context(), name))
		}
		next.ServeHTTP(w, r)
	})
}
