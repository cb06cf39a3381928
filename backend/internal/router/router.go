package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pack144/packman-sub000/backend/internal/setup"
	mw "github.com/Pack144/packman-sub000/shared/middleware"
	"github.com/Pack144/packman-sub000/shared/middleware/metrics"
	rl "github.com/Pack144/packman-sub000/shared/middleware/ratelimiter"
)

// New builds the HTTP surface: probes, metrics, list administration,
// message drafting and sending, and per-user mailboxes.
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Public.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(mw.SecurityHeaders(deps.Config.Public.Site.Protocol == "https", mw.APICSP))

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.RateLimit(rl.New(50, 100, time.Hour), mw.ByIP))

		r.Route("/admin", func(r chi.Router) {
			r.Post("/outbox/flush", h.FlushOutbox)
			r.Get("/settings", h.GetListSettings)
			r.Put("/settings", h.PutListSettings)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", h.GetLists)
			r.Post("/", h.CreateList)
			r.Get("/{list}", h.GetList)
			r.Delete("/{list}", h.DeleteList)
			r.Get("/{list}/members", h.GetListMembers)
			r.Post("/{list}/addresses", h.AddListAddress)
			r.Put("/{list}/addresses/default", h.SetDefaultListAddress)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", h.CreateMessage)
			r.Get("/{message}", h.GetMessage)
			r.Put("/{message}", h.UpdateDraft)
			r.Delete("/{message}", h.DeleteDraft)
			r.Get("/{message}/recipients", h.GetRecipients)
			r.Post("/{message}/recipients", h.AddRecipient)
			r.Post("/{message}/distributions", h.AttachDistribution)
			r.Post("/{message}/attachments", h.UploadAttachment)
			r.Post("/{message}/queue", h.QueueMessage)
			r.Post("/{message}/send", h.SendMessage)
		})

		r.Route("/users/{user}", func(r chi.Router) {
			r.Get("/mailbox/counts", h.GetMailboxCounts)
			r.Get("/mailbox/{mailbox}", h.GetMailbox)
			r.Get("/messages/{message}/mailbox", h.GetMessageMailbox)
			r.Post("/messages/{message}/{transition}", h.TransitionMessage)
		})
	})

	return r
}
