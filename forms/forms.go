// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package forms

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits match the stored column sizes
const (
	MaxCategoryName = 128
	MaxPageTitle    = 128
	MaxPageURL      = 200
	MaxUsername     = 150
	MaxPictureBytes = 5 << 20
)

const requiredMsg = "This field is required."

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// Errors maps a field name to its validation messages
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get returns the messages for field; used by templates
func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Any() bool {
	return len(e) > 0
}

func checkLength(errs Errors, field, value string, limit int) {
	if n := utf8.RuneCountInString(value); n > limit {
		errs.Add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", limit, n))
	}
}

// CategoryForm binds the add-category form
type CategoryForm struct {
	Name   string
	Errors Errors
}

func NewCategoryForm() *CategoryForm {
	return &CategoryForm{Errors: Errors{}}
}

func BindCategoryForm(values url.Values) *CategoryForm {
	return &CategoryForm{
		Name:   strings.TrimSpace(values.Get("name")),
		Errors: Errors{},
	}
}

// Validate checks field rules; uniqueness is checked against the database by
// the caller.
func (f *CategoryForm) Validate() bool {
	if f.Name == "" {
		f.Errors.Add("name", requiredMsg)
	}
	checkLength(f.Errors, "name", f.Name, MaxCategoryName)
	return !f.Errors.Any()
}

// PageForm binds the add-page form
type PageForm struct {
	Title  string
	URL    string
	Errors Errors
}

func NewPageForm() *PageForm {
	return &PageForm{Errors: Errors{}}
}

func BindPageForm(values url.Values) *PageForm {
	return &PageForm{
		Title:  strings.TrimSpace(values.Get("title")),
		URL:    strings.TrimSpace(values.Get("url")),
		Errors: Errors{},
	}
}

// Validate checks the fields and prefixes a bare URL with http://
func (f *PageForm) Validate() bool {
	if f.Title == "" {
		f.Errors.Add("title", requiredMsg)
	}
	checkLength(f.Errors, "title", f.Title, MaxPageTitle)

	if f.URL == "" {
		f.Errors.Add("url", requiredMsg)
	} else {
		if !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
			f.URL = "http://" + f.URL
		}
		checkLength(f.Errors, "url", f.URL, MaxPageURL)
		if !isAbsoluteURL(f.URL) {
			f.Errors.Add("url", "Enter a valid URL.")
		}
	}

	return !f.Errors.Any()
}

// UserForm binds the account half of the registration form
type UserForm struct {
	Username string
	Email    string
	Password string
	Errors   Errors
}

func NewUserForm() *UserForm {
	return &UserForm{Errors: Errors{}}
}

func BindUserForm(values url.Values) *UserForm {
	return &UserForm{
		Username: strings.TrimSpace(values.Get("username")),
		Email:    strings.TrimSpace(values.Get("email")),
		Password: values.Get("password"),
		Errors:   Errors{},
	}
}

// Validate checks field rules; the caller checks username uniqueness
func (f *UserForm) Validate() bool {
	if f.Username == "" {
		f.Errors.Add("username", requiredMsg)
	} else {
		checkLength(f.Errors, "username", f.Username, MaxUsername)
		if !usernameRe.MatchString(f.Username) {
			f.Errors.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
		}
	}

	if f.Email != "" {
		if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != f.Email {
			f.Errors.Add("email", "Enter a valid email address.")
		}
	}

	if f.Password == "" {
		f.Errors.Add("password", requiredMsg)
	}

	return !f.Errors.Any()
}

// UserProfileForm binds the profile half of the registration form
type UserProfileForm struct {
	Website string
	Picture *multipart.FileHeader
	Errors  Errors

	// PictureExt is the file extension for the sniffed image type, set by
	// Validate. The uploaded file name is never consulted.
	PictureExt string
}

func NewUserProfileForm() *UserProfileForm {
	return &UserProfileForm{Errors: Errors{}}
}

// BindUserProfileForm binds the text fields and the optional picture upload
func BindUserProfileForm(values url.Values, picture *multipart.FileHeader) *UserProfileForm {
	return &UserProfileForm{
		Website: strings.TrimSpace(values.Get("website")),
		Picture: picture,
		Errors:  Errors{},
	}
}

func (f *UserProfileForm) Validate() bool {
	if f.Website != "" && !isAbsoluteURL(f.Website) {
		f.Errors.Add("website", "Enter a valid URL.")
	}

	if f.Picture != nil {
		if f.Picture.Size > MaxPictureBytes {
			f.Errors.Add("picture", "Image files may be at most 5 MB.")
		} else if ext, err := imageExtension(f.Picture); err != nil || ext == "" {
			f.Errors.Add("picture", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		} else {
			f.PictureExt = ext
		}
	}

	return !f.Errors.Any()
}

func isAbsoluteURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// imageExtensions are the upload types accepted, keyed by sniffed type
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// imageExtension sniffs the upload and returns the extension for its image
// type, or "" when it is not one of imageExtensions.
func imageExtension(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return imageExtensions[http.DetectContentType(head[:n])], nil
}
