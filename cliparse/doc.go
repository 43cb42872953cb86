// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from flags, environment variables and
an optional .env file.

Flags take precedence over environment variables:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

DATABASE_URL, ADMIN_KEY_SALT and SECRET_KEY are required.
*/
package cliparse
