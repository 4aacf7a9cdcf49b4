// fedistash/handlers/router.go
package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fedistash/metrics"
)

func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", MakeHandler(app, HandleHealthz))
	mux.Handle("/metrics", metrics.Handler())

	mux.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(app))

		// Timeline
		r.Post("/timeline-sync", MakeHandler(app, HandleTimelineSync))
		r.Get("/timeline", MakeHandler(app, HandleTimeline))
		r.Get("/counts", MakeHandler(app, HandleCategoryCounts))
		r.Get("/server-stats", MakeHandler(app, HandleServerStats))
		r.Get("/account-posts", MakeHandler(app, HandleAccountPosts))
		r.Post("/mark-seen", MakeHandler(app, HandleMarkSeen))
		r.Post("/mark-account-seen", MakeHandler(app, HandleMarkAccountSeen))
		r.Post("/mark-saved", MakeHandler(app, HandleMarkSaved))

		// Curation
		r.Post("/tag-account", MakeHandler(app, HandleTagAccount))
		r.Post("/clear-tag", MakeHandler(app, HandleClearTag))
		r.Get("/tags", MakeHandler(app, HandleGetTags))

		r.Get("/reasons", MakeHandler(app, HandleListReasons))
		r.Post("/reasons", MakeHandler(app, HandleCreateReason))
		r.Put("/reasons/{id}", MakeHandler(app, HandleUpdateReason))
		r.Delete("/reasons/{id}", MakeHandler(app, HandleDeleteReason))

		r.Get("/muted-words", MakeHandler(app, HandleListMutedWords))
		r.Post("/muted-words", MakeHandler(app, HandleCreateMutedWord))
		r.Delete("/muted-words", MakeHandler(app, HandleDeleteMutedWord))

		r.Get("/servers", MakeHandler(app, HandleListServers))
		r.Post("/servers", MakeHandler(app, HandleCreateServer))
		r.Put("/servers/{id}", MakeHandler(app, HandleUpdateServer))
		r.Delete("/servers/{id}", MakeHandler(app, HandleDeleteServer))

		r.Get("/credentials", MakeHandler(app, HandleListCredentials))
		r.Post("/credentials", MakeHandler(app, HandleCreateCredential))
		r.Delete("/credentials", MakeHandler(app, HandleDeleteCredential))
	})

	mux.Route("/admin", func(r chi.Router) {
		r.Use(RequireLAN)
		r.Use(RequireAdmin(app))
		r.Post("/reset-db", MakeHandler(app, HandleResetDatabase))
		r.Post("/backup-db", MakeHandler(app, HandleDatabaseBackup))
	})

	return mux
}
