// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication, password hashing and token utilities.

# Admin Key

The poll admin API is guarded by a key derived with HMAC-SHA256 from
ADMIN_KEY_SALT:

	adminKey := auth.GenerateAdminKey(salt)
	err := auth.ValidateAdminKey(headerValue, salt)

The key is URL-safe base64 without padding. Since it's deterministic it
never needs to be stored.

# Passwords

Passwords are stored as bcrypt hashes only:

	hash, err := auth.HashPassword(plain, cfg.BcryptCost)
	ok := auth.CheckPassword(hash, plain)

# Authentication

	user, err := auth.Authenticate(ctx, db, username, password)

Returns ErrInvalidCredentials for unknown users and wrong passwords alike.
A disabled account with the right password returns the user and
ErrInactiveUser.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
