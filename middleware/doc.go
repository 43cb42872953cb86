// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helpers.

# Logging

WithLogging logs each request with method, path, status and duration:

	mux.HandleFunc("GET /polls/{$}", middleware.WithLogging(handler))

# CSRF

CSRF wraps the HTML routes; templates render CSRFField inside every form.
Unsafe requests without a valid token get 403.

# Login

RequireLogin sends anonymous visitors to LoginURL with a next parameter and
puts the user in the request context for CurrentUser.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "invalid input")
	err := middleware.ParseJSONBody(r, &req)
*/
package middleware
