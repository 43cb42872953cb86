// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/db"
)

// SetupTestDB creates a fresh in-memory database with the full schema.
// The connection is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(cliparse.Config{
		DatabaseType: cliparse.DatabaseSQLite,
		DatabaseURL:  ":memory:",
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration with a per-test media dir
func GetTestConfig(t *testing.T) cliparse.Config {
	t.Helper()
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: cliparse.DatabaseSQLite,
		AdminKeySalt: "test-admin-salt",
		SecretKey:    "test-secret-key",
		MediaDir:     t.TempDir(),
		BcryptCost:   bcrypt.MinCost,
		SessionAge:   14 * 24 * time.Hour,
	}
}

func newID(t *testing.T) string {
	t.Helper()
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("Failed to generate ID: %v", err)
	}
	return hex.EncodeToString(b)
}

// CreateTestPoll inserts a poll published at pubDate and returns its ID
func CreateTestPoll(t *testing.T, conn *sql.DB, question string, pubDate time.Time) string {
	t.Helper()

	pollID := newID(t)
	_, err := conn.Exec(`
		INSERT INTO poll (id, question, pub_date)
		VALUES ($1, $2, $3)
	`, pollID, question, db.Timestamp(pubDate))
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// AddTestChoice adds a choice with zero votes and returns its ID
func AddTestChoice(t *testing.T, conn *sql.DB, pollID, text string) string {
	t.Helper()

	choiceID := newID(t)
	_, err := conn.Exec(`
		INSERT INTO choice (id, poll_id, choice_text, votes)
		VALUES ($1, $2, $3, 0)
	`, choiceID, pollID, text)
	if err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}

	return choiceID
}

// ChoiceVotes returns the stored vote counter of a choice
func ChoiceVotes(t *testing.T, conn *sql.DB, choiceID string) int64 {
	t.Helper()

	var votes int64
	if err := conn.QueryRow(`SELECT votes FROM choice WHERE id = $1`, choiceID).Scan(&votes); err != nil {
		t.Fatalf("Failed to read votes: %v", err)
	}
	return votes
}

// CreateTestCategory inserts a category and returns its ID
func CreateTestCategory(t *testing.T, conn *sql.DB, name string, likes int64) string {
	t.Helper()

	categoryID := newID(t)
	_, err := conn.Exec(`
		INSERT INTO category (id, name, likes, views)
		VALUES ($1, $2, $3, 0)
	`, categoryID, name, likes)
	if err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}

	return categoryID
}

// AddTestPage inserts a page under a category and returns its ID
func AddTestPage(t *testing.T, conn *sql.DB, categoryID, title, pageURL string, views int64) string {
	t.Helper()

	pageID := newID(t)
	_, err := conn.Exec(`
		INSERT INTO page (id, category_id, title, url, views)
		VALUES ($1, $2, $3, $4, $5)
	`, pageID, categoryID, title, pageURL, views)
	if err != nil {
		t.Fatalf("Failed to create test page: %v", err)
	}

	return pageID
}

// CreateTestUser inserts a user with a bcrypt-hashed password and returns its ID
func CreateTestUser(t *testing.T, conn *sql.DB, username, password string, active bool) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	userID := newID(t)
	_, err = conn.Exec(`
		INSERT INTO auth_user (id, username, email, password, is_active, date_joined)
		VALUES ($1, $2, '', $3, $4, $5)
	`, userID, username, string(hash), active, db.Timestamp(time.Now()))
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// PostForm builds a urlencoded POST request
func PostForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// MultipartForm builds a multipart POST request with text fields and, when
// fileName is set, a "picture" file part
func MultipartForm(t *testing.T, path string, fields map[string]string, fileName string, fileBody []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("picture", fileName)
		if err != nil {
			t.Fatalf("Failed to create file part: %v", err)
		}
		if _, err := fw.Write(fileBody); err != nil {
			t.Fatalf("Failed to write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithCookies copies the cookies set on a previous response onto req
func WithCookies(req *http.Request, w *httptest.ResponseRecorder) *http.Request {
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertContains checks that the response body contains want
func AssertContains(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("Expected body to contain %q. Body: %s", want, w.Body.String())
	}
}

// AssertNotContains checks that the response body does not contain unwanted
func AssertNotContains(t *testing.T, w *httptest.ResponseRecorder, unwanted string) {
	t.Helper()
	if strings.Contains(w.Body.String(), unwanted) {
		t.Errorf("Expected body not to contain %q. Body: %s", unwanted, w.Body.String())
	}
}
