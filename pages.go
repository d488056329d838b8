package shire

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/shire/markdown"
)

// ViewFuncs holds the components the app calls when rendering pages. Sites
// supply their own (see the views package for the default set), which keeps
// every template under the site's control.
type ViewFuncs struct {
	Landing        func(LandingPage) templ.Component
	About          func(Page) templ.Component
	Contact        func(ContactPage) templ.Component
	Blog           func(BlogPage) templ.Component
	Post           func(PostPage) templ.Component
	AdminLogin     func(LoginPage) templ.Component
	AdminDashboard func(DashboardPage) templ.Component
	AdminForm      func(PostFormPage) templ.Component
	AdminImages    func(ImagesPage) templ.Component
	NotFound       func(Page) templ.Component
	ServerError    func(Page) templ.Component
}

// SiteInfo is the public part of SiteConfig that templates may show.
type SiteInfo struct {
	Name        string
	URL         string
	Description string
	Author      string
	Email       string
}

// Page is the data every page template receives.
type Page struct {
	Site          SiteInfo
	Meta          PageMeta
	CSRFToken     string
	Authenticated bool
	JSONLD        string
}

type LandingPage struct {
	Page
	Recent []BlogPost
}

type BlogPage struct {
	Page
	Posts      []BlogPost
	Query      string
	Tag        string
	Tags       []string
	Pagination Pagination
}

// PageURL builds the blog listing link for page n, keeping the query and tag.
func (p BlogPage) PageURL(n int) string {
	u := "/blog/?page=" + strconv.Itoa(n)
	if p.Query != "" {
		u += "&q=" + url.QueryEscape(p.Query)
	}
	if p.Tag != "" {
		u += "&tag=" + url.QueryEscape(p.Tag)
	}
	return u
}

type PostPage struct {
	Page
	Post    BlogPost
	Related []BlogPost
}

type ContactPage struct {
	Page
	Subjects []Subject
	Form     NewContactMessage
	Error    *ValidationError
	Sent     bool
	Limited  bool
}

type LoginPage struct {
	Page
	Failed  bool
	Limited bool
}

// DashboardStats summarises the content shown on the admin dashboard.
type DashboardStats struct {
	Total     int
	Published int
	Drafts    int
	Messages  int
}

type DashboardPage struct {
	Page
	Section  string
	Flash    string
	Stats    DashboardStats
	Posts    []BlogPost
	Messages []ContactMessage
	Form     *PostFormPage
}

type PostFormPage struct {
	Page
	Post    BlogPost
	IsNew   bool
	Error   *ValidationError
	Actions []markdown.Action
}

type ImagesPage struct {
	Page
	Images []Image
	Error  string
}

func (a *App) siteInfo() SiteInfo {
	return SiteInfo{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Email:       a.Config.Email,
	}
}

// page builds the common page data, filling unset metadata from the site.
func (a *App) page(c echo.Context, meta PageMeta) Page {
	if meta.Title == "" {
		meta.Title = a.Config.Name
	} else if meta.Title != a.Config.Name {
		meta.Title = meta.Title + " | " + a.Config.Name
	}
	if meta.Description == "" {
		meta.Description = a.Config.Description
	}
	if meta.URL == "" {
		meta.URL = BuildURL(a.Config.URL) + strings.TrimPrefix(c.Request().URL.Path, "/")
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	return Page{
		Site:          a.siteInfo(),
		Meta:          meta,
		CSRFToken:     CsrfToken(c),
		Authenticated: IsAuthenticated(c),
	}
}
