// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/middleware"
	"github.com/danielhkuo/rango-polls/testutil"
)

var csrfFieldRe = regexp.MustCompile(`name="` + middleware.CSRFFieldName + `" value="([^"]+)"`)

func TestHealthEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootRedirectsToRango(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	testutil.AssertStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != "/rango/" {
		t.Errorf("Expected redirect to /rango/, got %q", loc)
	}
}

func TestRouteExistence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	pollID := testutil.CreateTestPoll(t, db, "Routed?", time.Now().Add(-time.Hour))
	testutil.CreateTestCategory(t, db, "Go Web", 0)

	testCases := []struct {
		path     string
		expected int
	}{
		{"/polls/", http.StatusOK},
		{"/polls/" + pollID + "/", http.StatusOK},
		{"/polls/" + pollID + "/results/", http.StatusOK},
		{"/polls/missing/", http.StatusNotFound},
		{"/rango/", http.StatusOK},
		{"/rango/about/", http.StatusOK},
		{"/rango/category/Go_Web/", http.StatusOK},
		{"/rango/category/Go_Web/add_page/", http.StatusOK},
		{"/rango/add_category/", http.StatusOK},
		{"/rango/register/", http.StatusOK},
		{"/rango/login/", http.StatusOK},
		{"/rango/goto/", http.StatusFound},
		{"/rango/restricted/", http.StatusFound},
		{"/rango/logout/", http.StatusFound},
		{"/rango/nothing-here/", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run("GET "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", tc.path, nil))

			testutil.AssertStatus(t, w, tc.expected)
		})
	}
}

func TestEscapedCategorySlugRoutes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	testutil.CreateTestCategory(t, db, "C# tips", 0)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/rango/category/C%23_tips/", nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertNotContains(t, w, "does not exist")
}

func TestRestrictedRedirectCarriesNext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/rango/restricted/", nil))

	testutil.AssertStatus(t, w, http.StatusFound)
	want := middleware.LoginURL + "?next=%2Frango%2Frestricted%2F"
	if loc := w.Header().Get("Location"); loc != want {
		t.Errorf("Expected redirect to %q, got %q", want, loc)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/rango/about/"},
		{"PUT", "/polls/"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))

			// Either the mux rejects the method or CSRF rejects the unsafe request
			if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusForbidden {
				t.Errorf("Expected 405 or 403, got %d", w.Code)
			}
		})
	}
}

func TestFormPostRequiresCSRFToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	t.Run("without token", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.PostForm("/rango/add_category/", url.Values{"name": {"Sneaky"}}))

		testutil.AssertStatus(t, w, http.StatusForbidden)
		if n := testutil.CountRows(t, db, "category"); n != 0 {
			t.Errorf("Expected no categories, got %d", n)
		}
	})

	t.Run("with token", func(t *testing.T) {
		get := httptest.NewRecorder()
		mux.ServeHTTP(get, httptest.NewRequest("GET", "/rango/add_category/", nil))
		testutil.AssertStatus(t, get, http.StatusOK)

		m := csrfFieldRe.FindStringSubmatch(get.Body.String())
		if m == nil {
			t.Fatalf("Expected a CSRF field in the form. Body: %s", get.Body.String())
		}

		form := url.Values{"name": {"Go Web"}, middleware.CSRFFieldName: {m[1]}}
		req := testutil.WithCookies(testutil.PostForm("/rango/add_category/", form), get)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		testutil.AssertContains(t, w, "/rango/category/Go_Web/")
	})
}

func TestAdminAPIBypassesCSRF(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig(t)
	mux := NewRouter(db, cfg)

	body := bytes.NewBufferString(`{"question": "Through the router?", "choices": ["yes", "no"]}`)
	req := httptest.NewRequest("POST", "/admin/polls", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", auth.GenerateAdminKey(cfg.AdminKeySalt))
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)
	if !strings.Contains(w.Body.String(), "poll_id") {
		t.Errorf("Expected poll_id in response, got %s", w.Body.String())
	}
}

func TestUploadedPictureServedAsImage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig(t))

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest("GET", "/rango/register/", nil))
	testutil.AssertStatus(t, get, http.StatusOK)

	m := csrfFieldRe.FindStringSubmatch(get.Body.String())
	if m == nil {
		t.Fatalf("Expected a CSRF field in the form. Body: %s", get.Body.String())
	}

	fields := map[string]string{
		"username":               "mallory",
		"password":               "pw",
		middleware.CSRFFieldName: m[1],
	}
	body := []byte("GIF89a<script>alert(document.cookie)</script>")
	req := testutil.WithCookies(testutil.MultipartForm(t, "/rango/register/", fields, "x.html", body), get)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertContains(t, w, "Thank you for registering!")

	var picture string
	err := db.QueryRow(`
		SELECT p.picture FROM user_profile p JOIN auth_user u ON u.id = p.user_id
		WHERE u.username = $1
	`, "mallory").Scan(&picture)
	if err != nil {
		t.Fatalf("Expected profile to be stored: %v", err)
	}
	if strings.HasSuffix(picture, ".html") {
		t.Fatalf("Picture stored with uploaded extension: %q", picture)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/media/"+picture, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		t.Errorf("Expected an image content type, got %q", ct)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("Expected X-Content-Type-Options nosniff, got %q", got)
	}
}
