// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/db"
	"github.com/danielhkuo/rango-polls/middleware"
	"github.com/danielhkuo/rango-polls/models"
)

const maxPollText = 200

// AdminHandler serves the JSON API used to manage polls
type AdminHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAdminHandler(db *sql.DB, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg}
}

func (h *AdminHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

func validPollText(s string) bool {
	return s != "" && utf8.RuneCountInString(s) <= maxPollText
}

// CreatePoll handles POST /admin/polls
func (h *AdminHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if !validPollText(req.Question) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is required (max 200 characters)")
		return
	}
	for i, c := range req.Choices {
		req.Choices[i] = strings.TrimSpace(c)
		if !validPollText(req.Choices[i]) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "choices must be non-empty (max 200 characters)")
			return
		}
	}

	pubDate := time.Now()
	if req.PubDate != nil {
		pubDate = *req.PubDate
	}

	pollID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate poll ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO poll (id, question, pub_date)
		VALUES ($1, $2, $3)
	`, pollID, req.Question, db.Timestamp(pubDate))
	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	choiceIDs := []string{}
	for _, text := range req.Choices {
		choiceID, err := auth.GenerateID(12)
		if err != nil {
			slog.Error("failed to generate choice ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO choice (id, poll_id, choice_text, votes)
			VALUES ($1, $2, $3, 0)
		`, choiceID, pollID, text)
		if err != nil {
			slog.Error("failed to insert choice", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}
		choiceIDs = append(choiceIDs, choiceID)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "choices", len(choiceIDs))

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:    pollID,
		ChoiceIDs: choiceIDs,
	})
}

// AddChoice handles POST /admin/polls/{id}/choices
func (h *AdminHandler) AddChoice(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	pollID := r.PathValue("id")

	var req models.AddChoiceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.ChoiceText = strings.TrimSpace(req.ChoiceText)
	if !validPollText(req.ChoiceText) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choice_text is required (max 200 characters)")
		return
	}

	if _, err := getPoll(r.Context(), h.db, pollID); err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	} else if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	choiceID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate choice ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create choice")
		return
	}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO choice (id, poll_id, choice_text, votes)
		VALUES ($1, $2, $3, 0)
	`, choiceID, pollID, req.ChoiceText)
	if err != nil {
		slog.Error("failed to insert choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create choice")
		return
	}

	slog.Info("choice added", "poll_id", pollID, "choice_id", choiceID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddChoiceResponse{
		ChoiceID: choiceID,
	})
}

// GetPoll handles GET /admin/polls/{id}
// Returns the poll with every choice and its vote count, published or not
func (h *AdminHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	poll, err := getPoll(r.Context(), h.db, r.PathValue("id"))
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	choices, err := getChoices(r.Context(), h.db, poll.ID)
	if err != nil {
		slog.Error("failed to query choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollWithChoices{
		Poll:    *poll,
		Choices: choices,
	})
}
