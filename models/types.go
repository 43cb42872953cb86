package models

import "time"

// Domain types

type Poll struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	PubDate  time.Time `json:"pub_date"`
}

// WasPublishedBy reports whether the poll is visible at t
func (p Poll) WasPublishedBy(t time.Time) bool {
	return !p.PubDate.After(t)
}

type Choice struct {
	ID         string `json:"id"`
	PollID     string `json:"poll_id"`
	ChoiceText string `json:"choice_text"`
	Votes      int64  `json:"votes"`
}

type PollWithChoices struct {
	Poll    Poll     `json:"poll"`
	Choices []Choice `json:"choices"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Likes int64  `json:"likes"`
	Views int64  `json:"views"`

	// URL is the slug form of Name; filled in by views, never stored
	URL string `json:"-"`
}

type Page struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Views      int64  `json:"views"`
}

type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"` // bcrypt hash, never plaintext
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

type UserProfile struct {
	UserID  string `json:"user_id"`
	Website string `json:"website"`
	Picture string `json:"picture"` // path relative to the media dir
}

// Request types (admin API)

type CreatePollRequest struct {
	Question string     `json:"question"`
	PubDate  *time.Time `json:"pub_date,omitempty"`
	Choices  []string   `json:"choices,omitempty"`
}

type AddChoiceRequest struct {
	ChoiceText string `json:"choice_text"`
}

// Response types (admin API)

type CreatePollResponse struct {
	PollID    string   `json:"poll_id"`
	ChoiceIDs []string `json:"choice_ids"`
}

type AddChoiceResponse struct {
	ChoiceID string `json:"choice_id"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
