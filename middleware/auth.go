// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/models"
	"github.com/danielhkuo/rango-polls/session"
)

// LoginURL is where anonymous visitors of protected pages are sent
const LoginURL = "/rango/login/"

type contextKey int

const userKey contextKey = iota

// CurrentUser returns the user attached by RequireLogin, if any
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// WithUser attaches user to ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// SessionUser resolves the logged-in user of the request's session.
// Returns nil for anonymous sessions, deleted users and disabled accounts.
func SessionUser(r *http.Request, db *sql.DB, store *session.Store) (*models.User, *session.Session, error) {
	sess, err := store.Get(r)
	if err != nil {
		return nil, nil, err
	}
	if sess.Data.UserID == "" {
		return nil, sess, nil
	}

	user, err := auth.GetUser(r.Context(), db, sess.Data.UserID)
	if err == sql.ErrNoRows {
		return nil, sess, nil
	}
	if err != nil {
		return nil, sess, err
	}
	if !user.IsActive {
		return nil, sess, nil
	}
	return user, sess, nil
}

// RequireLogin redirects anonymous requests to LoginURL with a next
// parameter; authenticated requests get the user in their context.
func RequireLogin(db *sql.DB, store *session.Store, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _, err := SessionUser(r, db, store)
		if err != nil {
			slog.Error("failed to resolve session user", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if user == nil {
			target := LoginURL + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}
