package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/playbook"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

type MenuItem struct {
	Name string
	Link string
}

// Menu is the sidebar, in display order.
var Menu = []MenuItem{
	{Name: "Home", Link: "/"},
	{Name: "Strategic Alignment", Link: "/strategic-alignment"},
	{Name: "Matrix", Link: "/matrix"},
	{Name: "Data Product Playbook", Link: "/playbook"},
	{Name: "Chat", Link: "/chat"},
}

// Page is the data every page template receives.
type Page struct {
	Title  string
	Active string
	Menu   []MenuItem
	// WSPath is set on pages that keep a live connection open.
	WSPath string
	// CookieName is where the browser keeps its session token.
	CookieName string
	Content    interface{}
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"score": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}

// NewRenderer parses the layout together with each page template.
func NewRenderer() (*Renderer, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".html")
		if name == "layout" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, layoutFile, "templates/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes the named page inside the layout.
func (r *Renderer) Render(name string, page Page) ([]byte, error) {
	tmpl, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	if page.Menu == nil {
		page.Menu = Menu
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

type PlaybookContent struct {
	Playbook *playbook.Playbook
	Error    string
}

type AlignmentContent struct {
	Summary *dto.AnalyticsSummary
	Error   string
}
