package shire

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/shire/markdown"
)

// TagList accepts tags as a JSON array or as one comma-separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = ParseTagInput(s)
		return nil
	}
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return &ValidationError{Field: "tags", Message: "must be an array or a comma-separated string"}
	}
	*t = NormalizeTags(tags)
	return nil
}

// postRequest is the body of POST and PUT /api/blog-posts.
type postRequest struct {
	Title         *string  `json:"title"`
	Excerpt       *string  `json:"excerpt"`
	Content       *string  `json:"content"`
	FeaturedImage *string  `json:"featuredImage"`
	Published     *bool    `json:"published"`
	Tags          *TagList `json:"tags"`
}

func (r postRequest) newPost(authorID string) NewPost {
	p := NewPost{AuthorID: authorID}
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Excerpt != nil {
		p.Excerpt = *r.Excerpt
	}
	if r.Content != nil {
		p.Content = *r.Content
	}
	if r.FeaturedImage != nil {
		p.FeaturedImage = *r.FeaturedImage
	}
	if r.Published != nil {
		p.Published = *r.Published
	}
	if r.Tags != nil {
		p.Tags = *r.Tags
	}
	return p
}

func (r postRequest) patch() PostPatch {
	p := PostPatch{
		Title:         r.Title,
		Excerpt:       r.Excerpt,
		Content:       r.Content,
		FeaturedImage: r.FeaturedImage,
		Published:     r.Published,
	}
	if r.Tags != nil {
		tags := []string(*r.Tags)
		p.Tags = &tags
	}
	return p
}

func decodeJSON(c echo.Context, v any) error {
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(v); err != nil {
		if ve, ok := AsValidationError(err); ok {
			return ve
		}
		return &ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

func (a *App) handleAPIListPosts(c echo.Context) error {
	var published *bool
	if v := c.QueryParam("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apiMessage(c, http.StatusBadRequest, "published must be true or false", "published")
		}
		published = &b
	}
	if !IsAuthenticated(c) {
		pub := true
		published = &pub
	}
	posts, err := a.Store.ListPosts(c.Request().Context(), published)
	if err != nil {
		return a.apiError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// visible reports whether the caller may see post. Drafts are only shown to
// signed-in users.
func visible(c echo.Context, post BlogPost) bool {
	return post.Published || IsAuthenticated(c)
}

func (a *App) handleAPIGetPost(c echo.Context) error {
	post, ok, err := a.Store.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return a.apiError(c, err)
	}
	if !ok || !visible(c, post) {
		return apiMessage(c, http.StatusNotFound, notFoundMessage("post"), "")
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAPIGetPostBySlug(c echo.Context) error {
	post, ok, err := a.Store.GetPostBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return a.apiError(c, err)
	}
	if !ok || !visible(c, post) {
		return apiMessage(c, http.StatusNotFound, notFoundMessage("post"), "")
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAPISearchPosts(c echo.Context) error {
	posts, err := a.Store.SearchPosts(c.Request().Context(), c.Param("query"))
	if err != nil {
		return a.apiError(c, err)
	}
	if !IsAuthenticated(c) {
		posts = publishedOnly(posts)
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleAPICreatePost(c echo.Context) error {
	var req postRequest
	if err := decodeJSON(c, &req); err != nil {
		return a.apiError(c, err)
	}
	post, err := a.Store.CreatePost(c.Request().Context(), req.newPost(UserID(c)))
	if err != nil {
		return a.apiError(c, err)
	}
	a.Cache.Invalidate()
	a.Logger.Info().Str("id", post.ID).Str("slug", post.Slug).Str("user", UserID(c)).Msg("post created")
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handleAPIUpdatePost(c echo.Context) error {
	var req postRequest
	if err := decodeJSON(c, &req); err != nil {
		return a.apiError(c, err)
	}
	post, err := a.Store.UpdatePost(c.Request().Context(), c.Param("id"), req.patch())
	if err != nil {
		return a.apiError(c, err)
	}
	a.Cache.Invalidate()
	a.Logger.Info().Str("id", post.ID).Str("user", UserID(c)).Msg("post updated")
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAPIDeletePost(c echo.Context) error {
	id := c.Param("id")
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		return a.apiError(c, err)
	}
	a.Cache.Invalidate()
	a.Logger.Info().Str("id", id).Str("user", UserID(c)).Msg("post deleted")
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAPICreateContact(c echo.Context) error {
	ip := c.RealIP()
	if !a.contactLimiter.Allow(ip) {
		return apiMessage(c, http.StatusTooManyRequests, "Too many messages. Try again later.", "")
	}
	var in NewContactMessage
	if err := decodeJSON(c, &in); err != nil {
		return a.apiError(c, err)
	}
	msg, err := a.Store.CreateContactMessage(c.Request().Context(), in)
	if err != nil {
		return a.apiError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (a *App) handleAPIListContacts(c echo.Context) error {
	msgs, err := a.Store.ListContactMessages(c.Request().Context())
	if err != nil {
		return a.apiError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

type insertRequest struct {
	Text      string             `json:"text"`
	Selection markdown.Selection `json:"selection"`
	Action    string             `json:"action"`
}

type insertResponse struct {
	Text      string             `json:"text"`
	Selection markdown.Selection `json:"selection"`
}

func (a *App) handleAPIEditorInsert(c echo.Context) error {
	var req insertRequest
	if err := decodeJSON(c, &req); err != nil {
		return a.apiError(c, err)
	}
	action, err := markdown.ParseAction(req.Action)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("editor insert")
		return apiMessage(c, http.StatusBadRequest, "action must be one of "+actionNames(), "action")
	}
	ed := markdown.NewEditor(req.Text)
	ed.Select(req.Selection.Start, req.Selection.End)
	ed.Apply(action)
	return c.JSON(http.StatusOK, insertResponse{Text: ed.Text, Selection: ed.Selection})
}

func actionNames() string {
	names := make([]string, 0, len(markdown.Actions()))
	for _, act := range markdown.Actions() {
		names = append(names, act.String())
	}
	return strings.Join(names, ", ")
}

type previewRequest struct {
	Text string `json:"text"`
}

type previewResponse struct {
	HTML string `json:"html"`
}

func (a *App) handleAPIEditorPreview(c echo.Context) error {
	var req previewRequest
	if err := decodeJSON(c, &req); err != nil {
		return a.apiError(c, err)
	}
	ed := markdown.NewEditor(req.Text)
	ed.TogglePreview()
	return c.JSON(http.StatusOK, previewResponse{HTML: ed.View()})
}
