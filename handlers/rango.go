// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danielhkuo/rango-polls/auth"
	"github.com/danielhkuo/rango-polls/db"
	"github.com/danielhkuo/rango-polls/forms"
	"github.com/danielhkuo/rango-polls/models"
	"github.com/danielhkuo/rango-polls/session"
	"github.com/danielhkuo/rango-polls/slug"
)

const (
	topCategoriesLimit = 5
	topPagesLimit      = 5

	// visitInterval is how long before a returning visit counts again
	visitInterval = 24 * time.Hour
)

type RangoHandler struct {
	db       *sql.DB
	sessions *session.Store
}

func NewRangoHandler(db *sql.DB, sessions *session.Store) *RangoHandler {
	return &RangoHandler{db: db, sessions: sessions}
}

type rangoIndexPage struct {
	base
	BoldMessage string
	Categories  []models.Category
	CatURLs     []string
	Pages       []models.Page
}

type aboutPage struct {
	base
	BoldMessage string
	Visits      int
	LastVisit   *time.Time
}

type categoryPage struct {
	base
	CategoryName    string
	CategoryNameURL string
	Category        *models.Category
	Pages           []models.Page
	Error           bool
}

type addCategoryPage struct {
	base
	Form *forms.CategoryForm
}

type addPagePage struct {
	base
	CategoryName    string
	CategoryNameURL string
	Form            *forms.PageForm
	Error           bool
}

// Index handles GET /rango/
// Shows the most liked categories and most viewed pages, and counts the
// visitor at most once per day.
func (h *RangoHandler) Index(w http.ResponseWriter, r *http.Request) {
	b, sess, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	categories, err := h.topCategories(r.Context())
	if err != nil {
		serverError(w, "failed to query categories", err)
		return
	}

	pages, err := h.topPages(r.Context())
	if err != nil {
		serverError(w, "failed to query pages", err)
		return
	}

	catURLs := []string{}
	for i := range categories {
		categories[i].URL = slug.Toggle(categories[i].Name)
		catURLs = append(catURLs, categories[i].URL)
	}

	if countVisit(&sess.Data, h.sessions.Now()) {
		if err := h.sessions.Save(r.Context(), w, sess); err != nil {
			serverError(w, "failed to save session", err)
			return
		}
	}

	render(w, http.StatusOK, "rango/index.html", rangoIndexPage{
		base:        b,
		BoldMessage: "There are no categories present.",
		Categories:  categories,
		CatURLs:     catURLs,
		Pages:       pages,
	})
}

// countVisit applies the visit bookkeeping to data and reports whether it
// changed. First visits start at 1; later ones count only once
// visitInterval has passed since the recorded last visit.
func countVisit(data *session.Data, now time.Time) bool {
	stamp := now.UTC().Format(time.RFC3339Nano)

	if data.LastVisit == "" {
		data.LastVisit = stamp
		data.Visits = 1
		return true
	}

	last, err := time.Parse(time.RFC3339Nano, data.LastVisit)
	if err != nil {
		slog.Warn("discarding unparseable last_visit", "value", data.LastVisit)
		data.LastVisit = stamp
		data.Visits = 1
		return true
	}

	if now.Sub(last) >= visitInterval {
		data.Visits++
		data.LastVisit = stamp
		return true
	}

	return false
}

// About handles GET /rango/about/
func (h *RangoHandler) About(w http.ResponseWriter, r *http.Request) {
	b, sess, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	page := aboutPage{
		base:        b,
		BoldMessage: "Rango is put together with Go, html/template and a pinch of SQL.",
		Visits:      sess.Data.Visits,
	}
	if last, err := time.Parse(time.RFC3339Nano, sess.Data.LastVisit); err == nil {
		page.LastVisit = &last
	}

	render(w, http.StatusOK, "rango/about.html", page)
}

// Category handles GET /rango/category/{slug}/
// An unknown category is reported in the page, not as a 404.
func (h *RangoHandler) Category(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	categoryNameURL := r.PathValue("slug")
	page := categoryPage{
		base:            b,
		CategoryName:    slug.Toggle(categoryNameURL),
		CategoryNameURL: categoryNameURL,
	}

	category, err := getCategoryByName(r.Context(), h.db, page.CategoryName)
	switch {
	case err == sql.ErrNoRows:
		page.Error = true
	case err != nil:
		serverError(w, "failed to query category", err)
		return
	default:
		pages, err := getCategoryPages(r.Context(), h.db, category.ID)
		if err != nil {
			serverError(w, "failed to query pages", err)
			return
		}
		page.Category = category
		page.Pages = pages
	}

	render(w, http.StatusOK, "rango/category.html", page)
}

// AddCategory handles GET and POST /rango/add_category/
func (h *RangoHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	form := forms.NewCategoryForm()

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			form.Errors.Add("name", "Malformed form submission.")
		} else {
			form = forms.BindCategoryForm(r.PostForm)
		}

		if !form.Errors.Any() && form.Validate() {
			created, err := h.createCategory(r.Context(), form)
			if err != nil {
				serverError(w, "failed to insert category", err)
				return
			}
			if created {
				slog.Info("category created", "name", form.Name)
				h.Index(w, r)
				return
			}
		}

		slog.Warn("category form invalid", "errors", form.Errors)
	}

	render(w, http.StatusOK, "rango/add_category.html", addCategoryPage{base: b, Form: form})
}

// createCategory inserts the category; a duplicate name becomes a form
// error and created=false.
func (h *RangoHandler) createCategory(ctx context.Context, form *forms.CategoryForm) (bool, error) {
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM category WHERE name = $1)
	`, form.Name).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		form.Errors.Add("name", "Category with this Name already exists.")
		return false, nil
	}

	categoryID, err := auth.GenerateID(12)
	if err != nil {
		return false, err
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO category (id, name, likes, views)
		VALUES ($1, $2, 0, 0)
	`, categoryID, form.Name)
	if db.IsUniqueViolation(err) {
		form.Errors.Add("name", "Category with this Name already exists.")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddPage handles GET and POST /rango/category/{slug}/add_page/
func (h *RangoHandler) AddPage(w http.ResponseWriter, r *http.Request) {
	b, _, err := pageBase(r, h.db, h.sessions)
	if err != nil {
		serverError(w, "failed to load session", err)
		return
	}

	categoryNameURL := r.PathValue("slug")
	categoryName := slug.Toggle(categoryNameURL)

	category, err := getCategoryByName(r.Context(), h.db, categoryName)
	if err == sql.ErrNoRows {
		render(w, http.StatusOK, "rango/add_page.html", addPagePage{base: b, Error: true})
		return
	}
	if err != nil {
		serverError(w, "failed to query category", err)
		return
	}

	form := forms.NewPageForm()

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			form.Errors.Add("url", "Malformed form submission.")
		} else {
			form = forms.BindPageForm(r.PostForm)
		}

		if !form.Errors.Any() && form.Validate() {
			pageID, err := auth.GenerateID(12)
			if err != nil {
				serverError(w, "failed to generate page ID", err)
				return
			}

			_, err = h.db.ExecContext(r.Context(), `
				INSERT INTO page (id, category_id, title, url, views)
				VALUES ($1, $2, $3, $4, 0)
			`, pageID, category.ID, form.Title, form.URL)
			if err != nil {
				serverError(w, "failed to insert page", err)
				return
			}

			slog.Info("page created", "category", category.Name, "page_id", pageID)
			h.Category(w, r)
			return
		}

		slog.Warn("page form invalid", "errors", form.Errors)
	}

	render(w, http.StatusOK, "rango/add_page.html", addPagePage{
		base:            b,
		CategoryName:    categoryName,
		CategoryNameURL: categoryNameURL,
		Form:            form,
	})
}

// Goto handles GET /rango/goto/?page_id=
// Counts a view and sends the visitor on to the page's URL
func (h *RangoHandler) Goto(w http.ResponseWriter, r *http.Request) {
	pageID := r.URL.Query().Get("page_id")
	if pageID == "" {
		http.Redirect(w, r, "/rango/", http.StatusFound)
		return
	}

	var target string
	err := h.db.QueryRowContext(r.Context(), `SELECT url FROM page WHERE id = $1`, pageID).Scan(&target)
	if err == sql.ErrNoRows {
		http.Redirect(w, r, "/rango/", http.StatusFound)
		return
	}
	if err != nil {
		serverError(w, "failed to query page", err)
		return
	}

	if _, err := h.db.ExecContext(r.Context(), `UPDATE page SET views = views + 1 WHERE id = $1`, pageID); err != nil {
		serverError(w, "failed to count page view", err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// LikeCategory handles POST /rango/category/{slug}/like/
func (h *RangoHandler) LikeCategory(w http.ResponseWriter, r *http.Request) {
	categoryNameURL := r.PathValue("slug")

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE category SET likes = likes + 1 WHERE name = $1
	`, slug.Toggle(categoryNameURL))
	if err != nil {
		serverError(w, "failed to like category", err)
		return
	}

	n, err := res.RowsAffected()
	if err != nil {
		serverError(w, "failed to like category", err)
		return
	}
	if n == 0 {
		b, _, err := pageBase(r, h.db, h.sessions)
		if err != nil {
			serverError(w, "failed to load session", err)
			return
		}
		notFound(w, b, "No category matches the given query.")
		return
	}

	http.Redirect(w, r, "/rango/category/"+url.PathEscape(categoryNameURL)+"/", http.StatusFound)
}

func (h *RangoHandler) topCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, name, likes, views
		FROM category
		ORDER BY likes DESC, name
		LIMIT $1
	`, topCategoriesLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Likes, &c.Views); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (h *RangoHandler) topPages(ctx context.Context) ([]models.Page, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, category_id, title, url, views
		FROM page
		ORDER BY views DESC, title
		LIMIT $1
	`, topPagesLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPages(rows)
}

// getCategoryByName returns sql.ErrNoRows unwrapped when there is no match
func getCategoryByName(ctx context.Context, conn *sql.DB, name string) (*models.Category, error) {
	var c models.Category
	err := conn.QueryRowContext(ctx, `
		SELECT id, name, likes, views FROM category WHERE name = $1
	`, name).Scan(&c.ID, &c.Name, &c.Likes, &c.Views)
	if err != nil {
		return nil, err
	}
	c.URL = slug.Toggle(c.Name)
	return &c, nil
}

func getCategoryPages(ctx context.Context, conn *sql.DB, categoryID string) ([]models.Page, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, category_id, title, url, views
		FROM page
		WHERE category_id = $1
		ORDER BY views DESC, title
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPages(rows)
}

func scanPages(rows *sql.Rows) ([]models.Page, error) {
	pages := []models.Page{}
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &p.URL, &p.Views); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
