// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/rango-polls/middleware"
	"github.com/danielhkuo/rango-polls/models"
	"github.com/danielhkuo/rango-polls/session"
	"github.com/danielhkuo/rango-polls/templates"
)

// base carries what every page layout needs
type base struct {
	User      *models.User
	CSRFField template.HTML
}

// notFoundPage is the context of not_found.html
type notFoundPage struct {
	base
	Message string
}

// pageBase resolves the visitor and their session for rendering
func pageBase(r *http.Request, db *sql.DB, store *session.Store) (base, *session.Session, error) {
	user, sess, err := middleware.SessionUser(r, db, store)
	if err != nil {
		return base{}, nil, err
	}
	return base{User: user, CSRFField: middleware.CSRFField(r)}, sess, nil
}

// render writes a template, falling back to a bare 500 if it fails
func render(w http.ResponseWriter, status int, name string, data any) {
	if err := templates.Render(w, status, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func notFound(w http.ResponseWriter, b base, message string) {
	render(w, http.StatusNotFound, "not_found.html", notFoundPage{base: b, Message: message})
}

func serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
