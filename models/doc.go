// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain entities shared by both applications and
the JSON types of the poll admin API.

# Domain Types

Polls app:

  - Poll: question and publish timestamp
  - Choice: label and vote counter, owned by a Poll

Rango app:

  - Category: unique name plus likes/views counters
  - Page: title, URL and views counter, owned by a Category
  - User: account with a bcrypt password hash and an active flag
  - UserProfile: one-to-one extension of User (website, picture)

Category.URL is never persisted; views fill it with the slug form of the
name before rendering.

# Admin API Types

  - CreatePollRequest: question, pub_date (optional), choices (optional)
  - AddChoiceRequest: choice_text
  - CreatePollResponse: poll_id, choice_ids
  - AddChoiceResponse: choice_id
  - ErrorResponse: error, message
*/
package models
