// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for both applications.

# Handler Types

Each handler is a struct holding its dependencies:

  - PollHandler: Poll listing, detail, results and voting (HTML)
  - AdminHandler: Poll and choice creation (JSON, X-Admin-Key)
  - RangoHandler: Categories, pages, likes and visit counting (HTML)
  - AccountHandler: Registration, login, logout and the restricted page

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(db, sessions)
	adminHandler := handlers.NewAdminHandler(db, cfg)

# Not Found

A missing or unpublished poll is an HTTP 404. A missing Rango category is
reported inside a normal 200 page instead.

# Voting

	POST /polls/{id}/vote/ → Vote

The vote is a single UPDATE adding one to the chosen row, so concurrent
votes never lose increments. A missing or foreign choice re-renders the
detail page with an error and changes nothing.

# Visits

Rango's index counts a visitor at most once every 24 hours, keeping
last_visit and visits in the session.
*/
package handlers
