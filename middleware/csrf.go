// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/cliparse"
)

// CSRFFieldName is the hidden form field carrying the token
const CSRFFieldName = "csrfmiddlewaretoken"

// CSRF protects unsafe methods on the wrapped handler. Requests without TLS
// are marked plaintext so the Referer check does not demand https.
func CSRF(cfg cliparse.Config, next http.Handler) http.Handler {
	protect := csrf.Protect(
		auth.DeriveKey(cfg.SecretKey, "csrf"),
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
		csrf.FieldName(CSRFFieldName),
		csrf.CookieName("csrftoken"),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !cfg.SecureCookies {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protect.ServeHTTP(w, r)
	})
}

// CSRFField renders the hidden token input for forms; empty outside CSRF
func CSRFField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	slog.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "CSRF verification failed. Request aborted.", http.StatusForbidden)
}
