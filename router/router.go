// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/handlers"
	"github.com/danielhkuo/rango-polls/middleware"
	"github.com/danielhkuo/rango-polls/session"
)

// NewRouter wires every route. The admin JSON API authenticates with
// X-Admin-Key and sits outside CSRF protection; all HTML routes are inside it.
func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()
	site := http.NewServeMux()

	sessions := session.NewStore(db, cfg)

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(db, sessions)
	adminHandler := handlers.NewAdminHandler(db, cfg)
	rangoHandler := handlers.NewRangoHandler(db, sessions)
	accountHandler := handlers.NewAccountHandler(db, cfg, sessions)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll administration (JSON)
	mux.HandleFunc("POST /admin/polls", middleware.WithLogging(adminHandler.CreatePoll))
	mux.HandleFunc("GET /admin/polls/{id}", middleware.WithLogging(adminHandler.GetPoll))
	mux.HandleFunc("POST /admin/polls/{id}/choices", middleware.WithLogging(adminHandler.AddChoice))

	// Polls
	site.HandleFunc("GET /polls/{$}", middleware.WithLogging(pollHandler.Index))
	site.HandleFunc("GET /polls/{id}/{$}", middleware.WithLogging(pollHandler.Detail))
	site.HandleFunc("GET /polls/{id}/results/{$}", middleware.WithLogging(pollHandler.Results))
	site.HandleFunc("POST /polls/{id}/vote/{$}", middleware.WithLogging(pollHandler.Vote))

	// Rango
	site.HandleFunc("GET /rango/{$}", middleware.WithLogging(rangoHandler.Index))
	site.HandleFunc("GET /rango/about/{$}", middleware.WithLogging(rangoHandler.About))
	site.HandleFunc("GET /rango/add_category/{$}", middleware.WithLogging(rangoHandler.AddCategory))
	site.HandleFunc("POST /rango/add_category/{$}", middleware.WithLogging(rangoHandler.AddCategory))
	site.HandleFunc("GET /rango/category/{slug}/{$}", middleware.WithLogging(rangoHandler.Category))
	site.HandleFunc("GET /rango/category/{slug}/add_page/{$}", middleware.WithLogging(rangoHandler.AddPage))
	site.HandleFunc("POST /rango/category/{slug}/add_page/{$}", middleware.WithLogging(rangoHandler.AddPage))
	site.HandleFunc("POST /rango/category/{slug}/like/{$}", middleware.WithLogging(rangoHandler.LikeCategory))
	site.HandleFunc("GET /rango/goto/{$}", middleware.WithLogging(rangoHandler.Goto))

	// Accounts
	site.HandleFunc("GET /rango/register/{$}", middleware.WithLogging(accountHandler.Register))
	site.HandleFunc("POST /rango/register/{$}", middleware.WithLogging(accountHandler.Register))
	site.HandleFunc("GET /rango/login/{$}", middleware.WithLogging(accountHandler.Login))
	site.HandleFunc("POST /rango/login/{$}", middleware.WithLogging(accountHandler.Login))
	site.HandleFunc("GET /rango/restricted/{$}",
		middleware.WithLogging(middleware.RequireLogin(db, sessions, accountHandler.Restricted)))
	site.HandleFunc("GET /rango/logout/{$}",
		middleware.WithLogging(middleware.RequireLogin(db, sessions, accountHandler.Logout)))

	// Uploaded profile pictures
	site.Handle("GET /media/", middleware.NoSniff(http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir)))))

	// Root endpoint
	site.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/rango/", http.StatusFound)
	})

	mux.Handle("/", middleware.CSRF(cfg, site))

	return mux
}
