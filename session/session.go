// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/db"
)

// CookieName is the cookie carrying the session key
const CookieName = "sessionid"

// Data is the per-client key/value bag persisted for a session
type Data struct {
	LastVisit string `json:"last_visit,omitempty"`
	Visits    int    `json:"visits,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type Session struct {
	Key  string
	Data Data

	isNew  bool
	oldKey string
}

// IsNew reports whether the session has never been saved
func (s *Session) IsNew() bool {
	return s.isNew
}

// Cycle gives the session a fresh key, keeping its data. The old row is
// removed on the next Save.
func (s *Session) Cycle() {
	if !s.isNew && s.oldKey == "" {
		s.oldKey = s.Key
	}
	s.Key = uuid.NewString()
}

// Store keeps sessions in the session table
type Store struct {
	db     *sql.DB
	maxAge time.Duration
	secure bool

	// now is swapped in tests
	now func() time.Time
}

func NewStore(conn *sql.DB, cfg cliparse.Config) *Store {
	maxAge := cfg.SessionAge
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	return &Store{db: conn, maxAge: maxAge, secure: cfg.SecureCookies, now: time.Now}
}

// SetClock replaces the store's time source
func (st *Store) SetClock(now func() time.Time) {
	st.now = now
}

// Now returns the store's notion of the current time
func (st *Store) Now() time.Time {
	return st.now()
}

// Get returns the session named by the request cookie, or a new unsaved
// session when there is no cookie or the stored one has expired.
func (st *Store) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return st.newSession(), nil
	}

	var raw string
	var expiresAt time.Time
	err = st.db.QueryRowContext(r.Context(), `
		SELECT data, expires_at FROM session WHERE session_key = $1
	`, cookie.Value).Scan(&raw, &expiresAt)

	if err == sql.ErrNoRows {
		return st.newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !expiresAt.After(st.now()) {
		return st.newSession(), nil
	}

	s := &Session{Key: cookie.Value}
	if err := json.Unmarshal([]byte(raw), &s.Data); err != nil {
		// Corrupt payloads are discarded rather than failing the request
		return st.newSession(), nil
	}
	return s, nil
}

// Save persists the session and (re)sets its cookie. It must run before the
// response body is written.
func (st *Store) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	payload, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	expiresAt := db.Timestamp(st.now().Add(st.maxAge))

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO session (session_key, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_key) DO UPDATE SET
			data = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at
	`, s.Key, string(payload), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if s.oldKey != "" {
		if _, err := st.db.ExecContext(ctx, `DELETE FROM session WHERE session_key = $1`, s.oldKey); err != nil {
			return fmt.Errorf("failed to drop cycled session: %w", err)
		}
		s.oldKey = ""
	}
	s.isNew = false

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Key,
		Path:     "/",
		MaxAge:   int(st.maxAge / time.Second),
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy deletes the session and expires its cookie
func (st *Store) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if _, err := st.db.ExecContext(ctx, `DELETE FROM session WHERE session_key = $1`, s.Key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.Data = Data{}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Purge removes expired sessions and returns how many were deleted
func (st *Store) Purge(ctx context.Context) (int64, error) {
	res, err := st.db.ExecContext(ctx, `DELETE FROM session WHERE expires_at <= $1`, db.Timestamp(st.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// RunPurger calls Purge every interval until ctx is done
func (st *Store) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.Purge(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("session purge failed", "error", err)
				}
				continue
			}
			if n > 0 {
				slog.Info("Expired sessions purged", "count", n)
			}
		}
	}
}

func (st *Store) newSession() *Session {
	return &Session{Key: uuid.NewString(), isNew: true}
}
