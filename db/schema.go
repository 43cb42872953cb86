// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL sticks to types both PostgreSQL and SQLite accept.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    pub_date TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_pub_date ON poll(pub_date);

-- Choices
CREATE TABLE IF NOT EXISTS choice (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    choice_text TEXT NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_choice_poll_id ON choice(poll_id);

-- Categories
CREATE TABLE IF NOT EXISTS category (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    likes INTEGER NOT NULL DEFAULT 0,
    views INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_category_likes ON category(likes);

-- Pages
CREATE TABLE IF NOT EXISTS page (
    id TEXT PRIMARY KEY,
    category_id TEXT NOT NULL REFERENCES category(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    views INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_page_category_id ON page(category_id);
CREATE INDEX IF NOT EXISTS idx_page_views ON page(views);

-- Users
CREATE TABLE IF NOT EXISTS auth_user (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    date_joined TIMESTAMP NOT NULL
);

-- Profiles (one per user)
CREATE TABLE IF NOT EXISTS user_profile (
    user_id TEXT PRIMARY KEY REFERENCES auth_user(id) ON DELETE CASCADE,
    website TEXT NOT NULL DEFAULT '',
    picture TEXT NOT NULL DEFAULT ''
);

-- Sessions
CREATE TABLE IF NOT EXISTS session (
    session_key TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_expires_at ON session(expires_at);
`
