package view

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title         string
	CSRFToken     string
	Flash         *shared.FlashMessage
	CurrentPath   string
	Authenticated bool
	UserName      string
	Data          any
}

// Pager feeds the pagination partial.
type Pager struct {
	BasePath   string
	Pagination shared.Pagination
}

// PageURL links to page n of the pager's list.
func (p Pager) PageURL(n int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	return p.BasePath + "?" + q.Encode()
}

// PrevURL links to the previous page.
func (p Pager) PrevURL() string {
	return p.PageURL(p.Pagination.PrevPage())
}

// NextURL links to the next page.
func (p Pager) NextURL() string {
	return p.PageURL(p.Pagination.NextPage())
}

var counts = message.NewPrinter(language.English)

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatCount": func(n int) string {
			return counts.Sprintf("%d", n)
		},
		"fieldError": func(errs map[string]string, field string) string {
			if errs == nil {
				return ""
			}
			return errs[field]
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a named template after writing status.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return e.templates.ExecuteTemplate(w, name, data)
}
