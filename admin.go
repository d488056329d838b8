package shire

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/shire/markdown"
)

var adminFlashes = map[string]string{
	"saved":   "Post saved.",
	"created": "Post created.",
	"deleted": "Post deleted.",
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAuthenticated(c) {
		return Render(c, a.Views.AdminLogin(LoginPage{Page: a.page(c, PageMeta{Title: "Sign in"})}))
	}
	ctx := c.Request().Context()

	posts, err := a.Store.ListPosts(ctx, nil)
	if err != nil {
		return err
	}
	messages, err := a.Store.ListContactMessages(ctx)
	if err != nil {
		return err
	}

	section := c.QueryParam("section")
	switch section {
	case "posts", "messages", "new":
	default:
		section = "posts"
	}

	dp := DashboardPage{
		Page:     a.page(c, PageMeta{Title: "Admin"}),
		Section:  section,
		Flash:    adminFlashes[c.QueryParam("msg")],
		Stats:    dashboardStats(posts, messages),
		Posts:    posts,
		Messages: messages,
	}
	if section == "new" {
		dp.Form = &PostFormPage{Page: dp.Page, IsNew: true, Actions: markdown.Actions()}
	}
	return Render(c, a.Views.AdminDashboard(dp))
}

func dashboardStats(posts []BlogPost, messages []ContactMessage) DashboardStats {
	st := DashboardStats{Total: len(posts), Messages: len(messages)}
	for _, p := range posts {
		if p.Published {
			st.Published++
		}
	}
	st.Drafts = st.Total - st.Published
	return st
}

func (a *App) handleAdminPost(c echo.Context) error {
	post, ok, err := a.Store.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return Render(c, a.Views.AdminForm(PostFormPage{
		Page:    a.page(c, PageMeta{Title: "Edit " + post.Title}),
		Post:    post,
		Actions: markdown.Actions(),
	}))
}

// handleAdminSave creates a post when the form has no id and updates the
// post with that id otherwise.
func (a *App) handleAdminSave(c echo.Context) error {
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.FormValue("id"))
	title := c.FormValue("title")
	excerpt := c.FormValue("excerpt")
	content := c.FormValue("content")
	image := c.FormValue("featured_image")
	published := c.FormValue("published") != ""
	tags := ParseTagInput(c.FormValue("tags"))

	var (
		post BlogPost
		err  error
		msg  = "saved"
	)
	if id == "" {
		msg = "created"
		post, err = a.Store.CreatePost(ctx, NewPost{
			Title:         title,
			Excerpt:       excerpt,
			Content:       content,
			FeaturedImage: image,
			AuthorID:      UserID(c),
			Published:     published,
			Tags:          tags,
		})
	} else {
		post, err = a.Store.UpdatePost(ctx, id, PostPatch{
			Title:         &title,
			Excerpt:       &excerpt,
			Content:       &content,
			FeaturedImage: &image,
			Published:     &published,
			Tags:          &tags,
		})
	}
	if err != nil {
		ve, ok := AsValidationError(err)
		if !ok && errors.Is(err, ErrSlugConflict) {
			ve, ok = &ValidationError{Field: "title", Message: "produces a slug that is already taken"}, true
		}
		if !ok {
			return err
		}
		return RenderStatus(c, http.StatusBadRequest, a.Views.AdminForm(PostFormPage{
			Page: a.page(c, PageMeta{Title: "Edit post"}),
			Post: BlogPost{
				ID:            id,
				Title:         title,
				Excerpt:       excerpt,
				Content:       content,
				FeaturedImage: image,
				Published:     published,
				Tags:          tags,
			},
			IsNew:   id == "",
			Error:   ve,
			Actions: markdown.Actions(),
		}))
	}
	a.Cache.Invalidate()
	a.Logger.Info().Str("id", post.ID).Str("slug", post.Slug).Str("user", UserID(c)).Msg("post " + msg)
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+msg)
}

func (a *App) handleAdminDelete(c echo.Context) error {
	id := c.Param("id")
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Logger.Info().Str("id", id).Str("user", UserID(c)).Msg("post deleted")
	return c.NoContent(http.StatusNoContent)
}
