// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/rango-polls/db"
	"github.com/danielhkuo/rango-polls/models"
	"github.com/danielhkuo/rango-polls/session"
)

// latestPollsLimit caps the poll index
const latestPollsLimit = 5

const noChoiceMessage = "You didn't select a choice."

type PollHandler struct {
	db       *sql.DB
	sessions *session.Store
	now      func() time.Time
}

func NewPollHandler(db *sql.DB, sessions *session.Store) *PollHandler {
	return &PollHandler{db: db, sessions: sessions, now: time.Now}
}

type pollIndexPage struct {
	base
	Title          string
	LatestPollList []models.Poll
}

type pollDetailPage struct {
	base
	Poll         models.Poll
	Choices      []models.Choice
	ErrorMessage string
}

// Index handles GET /polls/
// Lists the latest published polls, newest first
func (h *PollHandler) Index(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, question, pub_date
		FROM poll
		WHERE pub_date <= $1
		ORDER BY pub_date DESC
		LIMIT $2
	`, db.Timestamp(h.now()), latestPollsLimit)
	if err != nil {
		serverError(w, "failed to query polls", err)
		return
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.PubDate); err != nil {
			serverError(w, "failed to scan poll", err)
			return
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		serverError(w, "failed to iterate polls", err)
		return
	}

	render(w, http.StatusOK, "polls/index.html", pollIndexPage{
		base:           b,
		Title:          "List of polls!",
		LatestPollList: polls,
	})
}

// Detail handles GET /polls/{id}/
// Unpublished polls are indistinguishable from missing ones
func (h *PollHandler) Detail(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	poll, err := getPoll(r.Context(), h.db, r.PathValue("id"))
	if err == sql.ErrNoRows || (err == nil && !poll.WasPublishedBy(h.now())) {
		notFound(w, b, "No poll matches the given query.")
		return
	}
	if err != nil {
		serverError(w, "failed to query poll", err)
		return
	}

	h.renderDetail(w, r, b, poll, "")
}

// Results handles GET /polls/{id}/results/
func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	poll, err := getPoll(r.Context(), h.db, r.PathValue("id"))
	if err == sql.ErrNoRows {
		notFound(w, b, "No poll matches the given query.")
		return
	}
	if err != nil {
		serverError(w, "failed to query poll", err)
		return
	}

	choices, err := getChoices(r.Context(), h.db, poll.ID)
	if err != nil {
		serverError(w, "failed to query choices", err)
		return
	}

	render(w, http.StatusOK, "polls/results.html", pollDetailPage{
		base:    b,
		Poll:    *poll,
		Choices: choices,
	})
}

// Vote handles POST /polls/{id}/vote/
// A missing or foreign choice re-renders the detail page untouched;
// a valid one is counted and redirected to the results.
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	poll, err := getPoll(r.Context(), h.db, r.PathValue("id"))
	if err == sql.ErrNoRows {
		notFound(w, b, "No poll matches the given query.")
		return
	}
	if err != nil {
		serverError(w, "failed to query poll", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderDetail(w, r, b, poll, noChoiceMessage)
		return
	}

	choiceID := r.PostForm.Get("choice")
	if choiceID == "" {
		h.renderDetail(w, r, b, poll, noChoiceMessage)
		return
	}

	// Single statement, so concurrent votes cannot lose updates
	res, err := h.db.ExecContext(r.Context(), `
		UPDATE choice SET votes = votes + 1
		WHERE id = $1 AND poll_id = $2
	`, choiceID, poll.ID)
	if err != nil {
		serverError(w, "failed to record vote", err)
		return
	}

	n, err := res.RowsAffected()
	if err != nil {
		serverError(w, "failed to record vote", err)
		return
	}
	if n == 0 {
		h.renderDetail(w, r, b, poll, noChoiceMessage)
		return
	}

	http.Redirect(w, r, "/polls/"+poll.ID+"/results/", http.StatusFound)
}

func (h *PollHandler) renderDetail(w http.ResponseWriter, r *http.Request, b base, poll *models.Poll, errorMessage string) {
	choices, err := getChoices(r.Context(), h.db, poll.ID)
	if err != nil {
		serverError(w, "failed to query choices", err)
		return
	}

	render(w, http.StatusOK, "polls/detail.html", pollDetailPage{
		base:         b,
		Poll:         *poll,
		Choices:      choices,
		ErrorMessage: errorMessage,
	})
}

// getPoll returns sql.ErrNoRows unwrapped when the poll does not exist
func getPoll(ctx context.Context, conn *sql.DB, pollID string) (*models.Poll, error) {
	var p models.Poll
	err := conn.QueryRowContext(ctx, `
		SELECT id, question, pub_date FROM poll WHERE id = $1
	`, pollID).Scan(&p.ID, &p.Question, &p.PubDate)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func getChoices(ctx context.Context, conn *sql.DB, pollID string) ([]models.Choice, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, poll_id, choice_text, votes
		FROM choice
		WHERE poll_id = $1
		ORDER BY choice_text, id
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	choices := []models.Choice{}
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.PollID, &c.ChoiceText, &c.Votes); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}
