package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"medicare/internal/auth"
	"medicare/internal/config"
	"medicare/internal/http/handler"
	mw "medicare/internal/http/middleware"
	"medicare/internal/medication"
	"medicare/internal/notify"
	"medicare/internal/storage"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, sweeper *notify.Sweeper, evidence *storage.EvidenceStore) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	medSvc := &medication.Service{DB: db}
	medH := &handler.MedicationHandler{Svc: medSvc, DB: db}
	statsH := &handler.StatsHandler{Svc: medSvc, DB: db}
	settingsH := &handler.SettingsHandler{DB: db}
	notifH := &handler.NotificationHandler{Sweeper: sweeper, DB: db}
	evidenceH := &handler.EvidenceHandler{Store: evidence, DB: db}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Route("/medications", func(r chi.Router) {
			r.Get("/", medH.List)
			r.Post("/", medH.Create)
			r.Post("/log-all", medH.LogAll)
			r.Put("/{id}", medH.Update)
			r.Delete("/{id}", medH.Delete)
			r.Post("/{id}/log", medH.LogDose)
		})

		r.Get("/stats", statsH.Get)

		r.Get("/settings/caretaker", settingsH.Get)
		r.Put("/settings/caretaker", settingsH.Update)

		r.Post("/evidence", evidenceH.Upload)

		r.Post("/notifications/check", notifH.Check)
		r.Post("/notifications/test", notifH.Test)
	})

	return r
}
