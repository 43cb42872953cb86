// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Rango and Polls web server.

One binary serves two small applications: a question-and-choice voting app
under /polls/ and Rango, a directory of categorised links with accounts,
under /rango/.

# Starting the Server

The server requires environment variables or CLI flags for configuration.
A .env file in the working directory is loaded first when present:

	DATABASE_URL=rango.db ADMIN_KEY_SALT=... SECRET_KEY=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -admin-salt ... -secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for the admin key HMAC
  - SECRET_KEY (-secret): Secret the CSRF key is derived from

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or pgx (default: sqlite)
  - MEDIA_DIR (-media): Upload directory (default: media)
  - BCRYPT_COST (-bcrypt-cost), SESSION_AGE (-session-age), SECURE_COOKIES (-secure-cookies)

# Architecture

  - handlers: HTTP request handlers (polls, poll admin, rango, accounts)
  - router: Route definitions using Go 1.22+ routing
  - middleware: Logging, JSON helpers, CSRF, login guard
  - session: Database-backed sessions
  - forms: Form binding and validation
  - templates: Embedded HTML templates
  - models: Domain and request/response types
  - auth: IDs, admin keys, passwords
  - db: Connection, schema, error classification
  - cliparse: Configuration parsing
*/
package main
