// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/db"
	"github.com/danielhkuo/rango-polls/forms"
	"github.com/danielhkuo/rango-polls/middleware"
	"github.com/danielhkuo/rango-polls/session"
)

// ProfileImageDir is the media subdirectory holding uploaded pictures
const ProfileImageDir = "profile_images"

const (
	msgUsernameTaken      = "A user with that username already exists."
	msgInvalidLogin       = "Invalid login details supplied."
	msgDisabledAccount    = "Your Rango account is disabled."
	maxRegisterFormMemory = forms.MaxPictureBytes + 1<<20
)

type AccountHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *session.Store
}

func NewAccountHandler(db *sql.DB, cfg cliparse.Config, sessions *session.Store) *AccountHandler {
	return &AccountHandler{db: db, cfg: cfg, sessions: sessions}
}

type registerPage struct {
	base
	Registered  bool
	UserForm    *forms.UserForm
	ProfileForm *forms.UserProfileForm
}

type loginPage struct {
	base
	Message string
}

// Register handles GET and POST /rango/register/
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	page := registerPage{
		base:        b,
		UserForm:    forms.NewUserForm(),
		ProfileForm: forms.NewUserProfileForm(),
	}

	if r.Method != http.MethodPost {
		render(w, http.StatusOK, "rango/register.html", page)
		return
	}

	picture, err := parseRegisterForm(r)
	if err != nil {
		slog.Warn("registration form unreadable", "error", err)
		page.UserForm.Errors.Add("username", "Malformed form submission.")
		render(w, http.StatusOK, "rango/register.html", page)
		return
	}

	page.UserForm = forms.BindUserForm(r.PostForm)
	page.ProfileForm = forms.BindUserProfileForm(r.PostForm, picture)

	// Both forms are validated so every error is reported at once
	userOK := page.UserForm.Validate()
	profileOK := page.ProfileForm.Validate()

	if userOK && profileOK {
		err := h.createUser(r.Context(), page.UserForm, page.ProfileForm)
		switch {
		case err == nil:
			slog.Info("user registered", "username", page.UserForm.Username)
			page.Registered = true
		case errors.Is(err, errUsernameTaken):
			page.UserForm.Errors.Add("username", msgUsernameTaken)
		default:
			serverError(w, "failed to register user", err)
			return
		}
	}

	if !page.Registered {
		slog.Warn("registration form invalid",
			"user_errors", page.UserForm.Errors,
			"profile_errors", page.ProfileForm.Errors)
	}

	render(w, http.StatusOK, "rango/register.html", page)
}

var errUsernameTaken = errors.New("username taken")

// parseRegisterForm accepts multipart and urlencoded bodies and returns the
// picture upload, if any.
func parseRegisterForm(r *http.Request) (*multipart.FileHeader, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxRegisterFormMemory); err != nil {
			return nil, err
		}
		if files := r.MultipartForm.File["picture"]; len(files) > 0 {
			return files[0], nil
		}
		return nil, nil
	}
	return nil, r.ParseForm()
}

// createUser stores the user and profile in one transaction. The picture is
// written first and removed again if the transaction does not commit.
func (h *AccountHandler) createUser(ctx context.Context, uf *forms.UserForm, pf *forms.UserProfileForm) error {
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM auth_user WHERE username = $1)
	`, uf.Username).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return errUsernameTaken
	}

	userID, err := auth.GenerateID(12)
	if err != nil {
		return fmt.Errorf("failed to generate user ID: %w", err)
	}

	hash, err := auth.HashPassword(uf.Password, h.cfg.BcryptCost)
	if err != nil {
		return err
	}

	var picturePath, pictureFile string
	if pf.Picture != nil {
		picturePath, pictureFile, err = h.savePicture(userID, pf.Picture, pf.PictureExt)
		if err != nil {
			return err
		}
	}

	committed := false
	defer func() {
		if !committed && pictureFile != "" {
			if err := os.Remove(pictureFile); err != nil {
				slog.Warn("failed to remove orphaned picture", "path", pictureFile, "error", err)
			}
		}
	}()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO auth_user (id, username, email, password, is_active, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, uf.Username, uf.Email, hash, true, db.Timestamp(time.Now()))
	if db.IsUniqueViolation(err) {
		return errUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_profile (user_id, website, picture)
		VALUES ($1, $2, $3)
	`, userID, pf.Website, picturePath)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	committed = true
	return nil
}

// savePicture copies the upload to MEDIA_DIR/profile_images/<userID><ext>,
// where ext comes from the validated image type. It returns the
// media-relative path stored on the profile and the file's location on disk.
func (h *AccountHandler) savePicture(userID string, fh *multipart.FileHeader, ext string) (string, string, error) {
	if ext == "" {
		return "", "", errors.New("picture has no validated image type")
	}

	dir := filepath.Join(h.cfg.MediaDir, ProfileImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create media directory: %w", err)
	}

	name := userID + ext
	dest := filepath.Join(dir, name)

	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", "", fmt.Errorf("failed to create picture: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return "", "", fmt.Errorf("failed to write picture: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", "", fmt.Errorf("failed to write picture: %w", err)
	}

	return ProfileImageDir + "/" + name, dest, nil
}

// Login handles GET and POST /rango/login/
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	b, sess, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	if r.Method != http.MethodPost {
		render(w, http.StatusOK, "rango/login.html", loginPage{base: b})
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := auth.Authenticate(r.Context(), h.db, username, password)
	switch {
	case errors.Is(err, auth.ErrInactiveUser):
		slog.Warn("login to disabled account", "username", username, "ip", middleware.GetClientIP(r))
		render(w, http.StatusOK, "rango/login.html", loginPage{base: b, Message: msgDisabledAccount})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		slog.Warn("invalid login details", "username", username, "ip", middleware.GetClientIP(r))
		render(w, http.StatusOK, "rango/login.html", loginPage{base: b, Message: msgInvalidLogin})
		return
	case err != nil:
		serverError(w, "failed to authenticate", err)
		return
	}

	sess.Cycle()
	sess.Data.UserID = user.ID
	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		serverError(w, "failed to save session", err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	http.Redirect(w, r, "/rango/", http.StatusFound)
}

// Restricted handles GET /rango/restricted/ behind RequireLogin
func (h *AccountHandler) Restricted(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())
	render(w, http.StatusOK, "rango/restricted.html", base{
		User:      user,
		CSRFField: middleware.CSRFField(r),
	})
}

// Logout handles GET /rango/logout/ behind RequireLogin
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	if err := h.sessions.Destroy(r.Context(), w, sess); err != nil {
		serverError(w, "failed to destroy session", err)
		return
	}

	http.Redirect(w, r, "/rango/", http.StatusFound)
}
