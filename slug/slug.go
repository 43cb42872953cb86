// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package slug converts category names to and from their URL form.
package slug

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// Toggle flips between a display name and its URL slug: underscores become
// spaces when any are present, otherwise spaces become underscores.
//
//	Toggle("test_url") == "test url"
//	Toggle("test url") == "test_url"
//
// A name holding both spaces and underscores does not round-trip.
func Toggle(s string) string {
	if strings.Contains(s, "_") {
		return strings.ReplaceAll(s, "_", " ")
	}
	return strings.ReplaceAll(s, " ", "_")
}

// Commas formats n with thousands separators, e.g. 1234567 -> "1,234,567".
func Commas(n int64) string {
	return humanize.Comma(n)
}
