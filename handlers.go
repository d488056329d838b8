package shire

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	landingRecent = 3
	relatedLimit  = 3
)

func (a *App) handleLanding(c echo.Context) error {
	recent, err := a.Cache.Recent(c.Request().Context(), landingRecent)
	if err != nil {
		return err
	}
	page := a.page(c, PageMeta{})
	page.JSONLD = WebsiteJsonLD(a.Config)
	return Render(c, a.Views.Landing(LandingPage{Page: page, Recent: recent}))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.page(c, PageMeta{Title: "About"})))
}

func (a *App) contactPage(c echo.Context) ContactPage {
	return ContactPage{
		Page:     a.page(c, PageMeta{Title: "Contact"}),
		Subjects: Subjects(),
	}
}

func (a *App) handleContact(c echo.Context) error {
	p := a.contactPage(c)
	p.Sent = c.QueryParam("sent") == "1"
	return Render(c, a.Views.Contact(p))
}

func (a *App) handleContactSubmit(c echo.Context) error {
	p := a.contactPage(c)
	p.Form = NewContactMessage{
		Name:    c.FormValue("name"),
		Email:   c.FormValue("email"),
		Subject: Subject(c.FormValue("subject")),
		Message: c.FormValue("message"),
	}

	ip := c.RealIP()
	if !a.contactLimiter.Allow(ip) {
		a.Logger.Warn().Str("ip", ip).Msg("contact form rate limited")
		p.Limited = true
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.Contact(p))
	}

	msg, err := a.Store.CreateContactMessage(c.Request().Context(), p.Form)
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			p.Error = ve
			return RenderStatus(c, http.StatusBadRequest, a.Views.Contact(p))
		}
		return err
	}
	a.Logger.Info().Str("id", msg.ID).Str("subject", string(msg.Subject)).Msg("contact message received")
	return c.Redirect(http.StatusSeeOther, "/contact/?sent=1")
}

func (a *App) handleBlog(c echo.Context) error {
	ctx := c.Request().Context()
	query := strings.TrimSpace(c.QueryParam("q"))
	tag := normalizeTag(c.QueryParam("tag"))

	var posts []BlogPost
	var err error
	if query != "" {
		var found []BlogPost
		if found, err = a.Store.SearchPosts(ctx, query); err != nil {
			return err
		}
		posts = publishedOnly(found)
	} else if posts, err = a.Cache.ListPosts(ctx, tag); err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}

	pageNum, _ := strconv.Atoi(c.QueryParam("page"))
	pg := Paginate(len(posts), pageNum, a.Config.PostsPerPage)

	title := "Blog"
	if query != "" {
		title = "Search: " + query
	}
	return Render(c, a.Views.Blog(BlogPage{
		Page:       a.page(c, PageMeta{Title: title, URL: BuildURL(a.Config.URL, "blog")}),
		Posts:      posts[pg.Start:pg.End],
		Query:      query,
		Tag:        tag,
		Tags:       tags,
		Pagination: pg,
	}))
}

func publishedOnly(posts []BlogPost) []BlogPost {
	out := make([]BlogPost, 0, len(posts))
	for _, p := range posts {
		if p.Published {
			out = append(out, p)
		}
	}
	return out
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, ok, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, PageMeta{Title: "Not found"})))
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	related := FilterRelatedPosts(post, posts)
	if len(related) > relatedLimit {
		related = related[:relatedLimit]
	}

	page := a.page(c, PageMeta{
		Title:       post.Title,
		Description: post.Summary(),
		URL:         BuildURL(a.Config.URL, "blog", post.Slug),
		OGType:      "article",
	})
	page.JSONLD = BlogPostingJsonLD(post, a.Config)
	return Render(c, a.Views.Post(PostPage{Page: page, Post: post, Related: related}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\nSitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}
