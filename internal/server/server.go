package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"roomcraft/internal/artifact"
	"roomcraft/internal/auth"
	"roomcraft/internal/design"
)

// New constructs the HTTP server with routes and middleware.
func New(port string, designHandler design.Handler, verifier auth.Verifier, artifactRoot string) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/designs", func(r chi.Router) {
			r.Use(verifier.RequireUser)
			r.Post("/", designHandler.Generate)
			r.Get("/", designHandler.List)
			r.Get("/search", designHandler.Search)
		})
		r.Get("/events", designHandler.StreamEvents)
	})

	// Generated artifacts are served read-only from the storage root.
	fileServer := http.FileServer(http.Dir(artifactRoot))
	router.Handle(artifact.PublicPrefix+"/*", http.StripPrefix(artifact.PublicPrefix+"/", fileServer))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Println("server ready on", srv.Addr)
	return srv
}
