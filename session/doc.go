// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package session stores per-visitor state in the session table, keyed by a
// random id carried in the sessionid cookie.
package session
