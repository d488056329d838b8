// Package views is the default set of page components for a shire site.
// Each page is an html/template pair (layout.html plus the page file)
// wrapped as a templ.Component so sites can swap any of them for their own.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/shire"
	"github.com/eringen/shire/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"markdown": func(content string) template.HTML {
		return template.HTML(markdown.RenderSafe(content))
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
	"jsonld": func(s string) template.JS {
		return template.JS(s)
	},
	"joinTags": shire.JoinTags,
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{
		"landing", "about", "contact", "blog", "post",
		"login", "dashboard", "form", "images", "notfound", "error",
	} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
}

// render executes the named page into a buffer first so a template error
// never leaves a half-written response.
func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %q", name)
		}
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
			return fmt.Errorf("views: render %s: %w", name, err)
		}
		_, err := buf.WriteTo(w)
		return err
	})
}

func Landing(p shire.LandingPage) templ.Component { return render("landing", p) }
func About(p shire.Page) templ.Component { return render("about", p) }
func Contact(p shire.ContactPage) templ.Component { return render("contact", p) }
func Blog(p shire.BlogPage) templ.Component { return render("blog", p) }
func Post(p shire.PostPage) templ.Component { return render("post", p) }
func AdminLogin(p shire.LoginPage) templ.Component { return render("login", p) }
func AdminForm(p shire.PostFormPage) templ.Component { return render("form", p) }
func AdminImages(p shire.ImagesPage) templ.Component { return render("images", p) }
func NotFound(p shire.Page) templ.Component { return render("notfound", p) }
func ServerError(p shire.Page) templ.Component { return render("error", p) }
func AdminDashboard(p shire.DashboardPage) templ.Component { return render("dashboard", p) }

// Default returns the built-in views.
func Default() shire.ViewFuncs {
	return shire.ViewFuncs{
		Landing:        Landing,
		About:          About,
		Contact:        Contact,
		Blog:           Blog,
		Post:           Post,
		AdminLogin:     AdminLogin,
		AdminDashboard: AdminDashboard,
		AdminForm:      AdminForm,
		AdminImages:    AdminImages,
		NotFound:       NotFound,
		ServerError:    ServerError,
	}
}
