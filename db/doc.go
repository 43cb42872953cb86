// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates its schema.

# Drivers

Open picks the driver from the configured database type:

  - sqlite: modernc.org/sqlite (pure Go, default)
  - postgres: github.com/lib/pq
  - pgx: github.com/jackc/pgx/v5/stdlib

All queries use $N placeholders, which every driver accepts.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Relationships

	poll 1──* choice
	category 1──* page
	auth_user 1──1 user_profile

All foreign keys use ON DELETE CASCADE.

# Errors

IsUniqueViolation recognises unique constraint failures from each driver.
*/
package db
