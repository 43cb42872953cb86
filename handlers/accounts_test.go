// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/middleware"
	"github.com/danielhkuo/rango-polls/session"
	"github.com/danielhkuo/rango-polls/testutil"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newAccountHandler(t *testing.T, db *sql.DB) (*AccountHandler, cliparse.Config) {
	t.Helper()
	cfg := testutil.GetTestConfig(t)
	return NewAccountHandler(db, cfg, session.NewStore(db, cfg)), cfg
}

func TestRegister(t *testing.T) {
	t.Run("blank forms", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler, _ := newAccountHandler(t, db)

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest("GET", "/rango/register/", nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, `id="user_form"`)
	})

	t.Run("valid registration hashes the password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler, _ := newAccountHandler(t, db)

		form := url.Values{
			"username": {"leifos"},
			"email":    {"leifos@example.com"},
			"password": {"s3cret-pass"},
			"website":  {"http://www.leifos.com"},
		}
		w := httptest.NewRecorder()
		handler.Register(w, testutil.PostForm("/rango/register/", form))

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, "Thank you for registering!")

		var userID, hash string
		err := db.QueryRow(`SELECT id, password FROM auth_user WHERE username = $1`, "leifos").Scan(&userID, &hash)
		if err != nil {
			t.Fatalf("Expected user to be stored: %v", err)
		}
		if hash == "s3cret-pass" {
			t.Error("Password stored in plaintext")
		}
		if !auth.CheckPassword(hash, "s3cret-pass") {
			t.Error("Stored hash does not match password")
		}

		var website string
		if err := db.QueryRow(`SELECT website FROM user_profile WHERE user_id = $1`, userID).Scan(&website); err != nil {
			t.Fatalf("Expected profile to be stored: %v", err)
		}
		if website != "http://www.leifos.com" {
			t.Errorf("Expected website to be stored, got %q", website)
		}
	})

	t.Run("picture upload", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler, cfg := newAccountHandler(t, db)

		fields := map[string]string{"username": "pic_user", "password": "pw"}
		w := httptest.NewRecorder()
		handler.Register(w, testutil.MultipartForm(t, "/rango/register/", fields, "Me.PNG", pngHeader))

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, "Thank you for registering!")

		var picture string
		err := db.QueryRow(`
			SELECT p.picture FROM user_profile p JOIN auth_user u ON u.id = p.user_id
			WHERE u.username = $1
		`, "pic_user").Scan(&picture)
		if err != nil {
			t.Fatalf("Expected profile to be stored: %v", err)
		}
		if !strings.HasPrefix(picture, ProfileImageDir+"/") || !strings.HasSuffix(picture, ".png") {
			t.Errorf("Unexpected picture path %q", picture)
		}
		if _, err := os.Stat(filepath.Join(cfg.MediaDir, filepath.FromSlash(picture))); err != nil {
			t.Errorf("Expected picture on disk: %v", err)
		}
	})

	t.Run("picture extension follows content, not file name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler, cfg := newAccountHandler(t, db)

		fields := map[string]string{"username": "gif_user", "password": "pw"}
		body := []byte("GIF89a<script>alert(document.cookie)</script>")
		w := httptest.NewRecorder()
		handler.Register(w, testutil.MultipartForm(t, "/rango/register/", fields, "x.html", body))

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, "Thank you for registering!")

		var picture string
		err := db.QueryRow(`
			SELECT p.picture FROM user_profile p JOIN auth_user u ON u.id = p.user_id
			WHERE u.username = $1
		`, "gif_user").Scan(&picture)
		if err != nil {
			t.Fatalf("Expected profile to be stored: %v", err)
		}
		if !strings.HasSuffix(picture, ".gif") {
			t.Errorf("Expected .gif picture path, got %q", picture)
		}

		entries, err := os.ReadDir(filepath.Join(cfg.MediaDir, ProfileImageDir))
		if err != nil {
			t.Fatalf("Failed to read media dir: %v", err)
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".html") {
				t.Errorf("Stored file %q keeps the uploaded extension", e.Name())
			}
		}
	})

	invalid := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		contains string
	}{
		{
			name: "missing password",
			req: func(t *testing.T) *http.Request {
				return testutil.PostForm("/rango/register/", url.Values{"username": {"someone"}})
			},
			contains: "This field is required.",
		},
		{
			name: "bad username",
			req: func(t *testing.T) *http.Request {
				return testutil.PostForm("/rango/register/", url.Values{"username": {"no spaces"}, "password": {"pw"}})
			},
			contains: "Enter a valid username.",
		},
		{
			name: "bad website",
			req: func(t *testing.T) *http.Request {
				return testutil.PostForm("/rango/register/", url.Values{"username": {"someone"}, "password": {"pw"}, "website": {"not a url"}})
			},
			contains: "Enter a valid URL.",
		},
		{
			name: "picture is not an image",
			req: func(t *testing.T) *http.Request {
				fields := map[string]string{"username": "someone", "password": "pw"}
				return testutil.MultipartForm(t, "/rango/register/", fields, "notes.png", []byte("plain text, honest"))
			},
			contains: "Upload a valid image.",
		},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			handler, cfg := newAccountHandler(t, db)

			w := httptest.NewRecorder()
			handler.Register(w, tt.req(t))

			testutil.AssertStatus(t, w, http.StatusOK)
			testutil.AssertContains(t, w, tt.contains)
			testutil.AssertNotContains(t, w, "Thank you for registering!")

			if n := testutil.CountRows(t, db, "auth_user"); n != 0 {
				t.Errorf("Expected no users, got %d", n)
			}
			if n := testutil.CountRows(t, db, "user_profile"); n != 0 {
				t.Errorf("Expected no profiles, got %d", n)
			}
			if entries, _ := os.ReadDir(filepath.Join(cfg.MediaDir, ProfileImageDir)); len(entries) != 0 {
				t.Errorf("Expected no stored pictures, got %d", len(entries))
			}
		})
	}

	t.Run("duplicate username", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler, _ := newAccountHandler(t, db)
		testutil.CreateTestUser(t, db, "taken", "pw", true)

		w := httptest.NewRecorder()
		handler.Register(w, testutil.PostForm("/rango/register/", url.Values{"username": {"taken"}, "password": {"pw2"}}))

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, "A user with that username already exists.")

		if n := testutil.CountRows(t, db, "auth_user"); n != 1 {
			t.Errorf("Expected 1 user, got %d", n)
		}
	})
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler, _ := newAccountHandler(t, db)

	activeID := testutil.CreateTestUser(t, db, "active", "right-password", true)
	testutil.CreateTestUser(t, db, "disabled", "right-password", false)

	t.Run("form", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Login(w, httptest.NewRequest("GET", "/rango/login/", nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, `id="login_form"`)
	})

	failures := []struct {
		name     string
		username string
		password string
		contains string
	}{
		{"unknown user", "nobody", "right-password", "Invalid login details supplied."},
		{"wrong password", "active", "wrong-password", "Invalid login details supplied."},
		{"disabled account", "disabled", "right-password", "Your Rango account is disabled."},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"username": {tt.username}, "password": {tt.password}}
			w := httptest.NewRecorder()
			handler.Login(w, testutil.PostForm("/rango/login/", form))

			testutil.AssertStatus(t, w, http.StatusOK)
			testutil.AssertContains(t, w, tt.contains)

			if len(w.Result().Cookies()) != 0 {
				t.Error("Expected no session cookie on failed login")
			}
		})
	}

	t.Run("success stores user in session", func(t *testing.T) {
		form := url.Values{"username": {"active"}, "password": {"right-password"}}
		w := httptest.NewRecorder()
		handler.Login(w, testutil.PostForm("/rango/login/", form))

		testutil.AssertStatus(t, w, http.StatusFound)
		if loc := w.Header().Get("Location"); loc != "/rango/" {
			t.Errorf("Expected redirect to /rango/, got %q", loc)
		}

		req := testutil.WithCookies(httptest.NewRequest("GET", "/rango/", nil), w)
		user, _, err := middleware.SessionUser(req, db, handler.sessions)
		if err != nil {
			t.Fatalf("SessionUser failed: %v", err)
		}
		if user == nil || user.ID != activeID {
			t.Errorf("Expected session user %s, got %+v", activeID, user)
		}
	})
}

func TestLoginRotatesSessionKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler, _ := newAccountHandler(t, db)
	testutil.CreateTestUser(t, db, "active", "pw", true)

	rango := NewRangoHandler(db, handler.sessions)
	visit := httptest.NewRecorder()
	rango.Index(visit, httptest.NewRequest("GET", "/rango/", nil))
	before := visit.Result().Cookies()[0].Value

	req := testutil.WithCookies(testutil.PostForm("/rango/login/", url.Values{"username": {"active"}, "password": {"pw"}}), visit)
	w := httptest.NewRecorder()
	handler.Login(w, req)
	testutil.AssertStatus(t, w, http.StatusFound)

	after := w.Result().Cookies()[0].Value
	if after == before {
		t.Error("Expected a new session key after login")
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM session WHERE session_key = $1`, before).Scan(&n); err != nil {
		t.Fatalf("Failed to query session: %v", err)
	}
	if n != 0 {
		t.Error("Expected the pre-login session row to be removed")
	}
}

func TestRestrictedAndLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler, _ := newAccountHandler(t, db)
	testutil.CreateTestUser(t, db, "active", "pw", true)

	login := httptest.NewRecorder()
	handler.Login(login, testutil.PostForm("/rango/login/", url.Values{"username": {"active"}, "password": {"pw"}}))
	testutil.AssertStatus(t, login, http.StatusFound)

	restricted := middleware.RequireLogin(db, handler.sessions, handler.Restricted)
	logout := middleware.RequireLogin(db, handler.sessions, handler.Logout)

	w := httptest.NewRecorder()
	restricted(w, testutil.WithCookies(httptest.NewRequest("GET", "/rango/restricted/", nil), login))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertContains(t, w, "you can see this text!")
	testutil.AssertContains(t, w, "Welcome, active!")

	w = httptest.NewRecorder()
	logout(w, testutil.WithCookies(httptest.NewRequest("GET", "/rango/logout/", nil), login))
	testutil.AssertStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != "/rango/" {
		t.Errorf("Expected redirect to /rango/, got %q", loc)
	}

	if n := testutil.CountRows(t, db, "session"); n != 0 {
		t.Errorf("Expected session to be destroyed, got %d rows", n)
	}

	// The old cookie no longer grants access
	w = httptest.NewRecorder()
	restricted(w, testutil.WithCookies(httptest.NewRequest("GET", "/rango/restricted/", nil), login))
	testutil.AssertStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, middleware.LoginURL) {
		t.Errorf("Expected redirect to login, got %q", loc)
	}
}
