package shire_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/shire"
)

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(shire.NewPost{
		Title:     "Concerning Hobbits",
		Content:   "Hobbits are an **unobtrusive** people.",
		Published: true,
		Tags:      []string{"lore"},
	})
	env.createPost(shire.NewPost{Title: "Secret draft", Content: "shh"})

	res := env.get("/")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Shire Test")
	assert.Contains(t, res.body, "Concerning Hobbits")
	assert.NotContains(t, res.body, "Secret draft")
	assert.Contains(t, res.body, `application/ld+json`)

	res = env.get("/about/")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Bilbo Baggins")

	res = env.get("/blog/")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Concerning Hobbits")
	assert.NotContains(t, res.body, "Secret draft")

	res = env.get(post.Link())
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "<strong>unobtrusive</strong>")
	assert.Contains(t, res.body, "1 min read")
	assert.Contains(t, res.body, "<title>Concerning Hobbits | Shire Test</title>")

	res = env.get("/blog/secret-draft/")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Contains(t, res.body, "Not found")

	res = env.get("/no-such-page/")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Contains(t, res.body, "Not found")
}

func TestFeedsAndRobots(t *testing.T) {
	env := newTestEnv(t)
	env.createPost(shire.NewPost{Title: "Riddles in the Dark", Excerpt: "What has it got in its pocketses?", Published: true})

	res := env.get("/feed.xml")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.header.Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, res.body, "<title>Riddles in the Dark</title>")
	assert.Contains(t, res.body, "http://shire.test/blog/riddles-in-the-dark/")
	assert.Contains(t, res.body, "pocketses")

	res = env.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "<loc>http://shire.test/blog/riddles-in-the-dark/</loc>")

	res = env.get("/robots.txt")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Sitemap: http://shire.test/sitemap.xml")
	assert.Contains(t, res.body, "Disallow: /admin/")
}

func TestBlogSearchAndPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 8; i++ {
		env.createPost(shire.NewPost{Title: fmt.Sprintf("Chapter %d", i), Content: "Walking.", Published: true, Tags: []string{"journey"}})
	}
	env.createPost(shire.NewPost{Title: "Mushrooms", Content: "Farmer Maggot's crop.", Published: true, Tags: []string{"food"}})
	env.createPost(shire.NewPost{Title: "Hidden mushrooms", Content: "Draft notes."})

	res := env.get("/blog/")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Page 1 of 2")

	res = env.get("/blog/?page=2")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Page 2 of 2")

	// Out of range pages clamp to the last page.
	res = env.get("/blog/?page=99")
	assert.Contains(t, res.body, "Page 2 of 2")

	res = env.get("/blog/?q=" + url.QueryEscape("MUSHROOM"))
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Mushrooms")
	assert.NotContains(t, res.body, "Hidden mushrooms")
	assert.NotContains(t, res.body, "Chapter 1")

	res = env.get("/blog/?tag=food")
	assert.Contains(t, res.body, "Mushrooms")
	assert.NotContains(t, res.body, "Chapter 1")
}

func TestContactForm(t *testing.T) {
	env := newTestEnv(t)

	res := env.get("/contact/")
	require.Equal(t, http.StatusOK, res.code)
	assert.Contains(t, res.body, "Share a Story")
	assert.Equal(t, "no-store", res.header.Get("Cache-Control"))

	res = env.postForm("/contact/", url.Values{
		"name":    {"Farmer Maggot"},
		"email":   {"maggot@bamfurlong.test"},
		"subject": {"question"},
		"message": {"Who is stealing my mushrooms?"},
	})
	require.Equal(t, http.StatusSeeOther, res.code, res.body)
	assert.Equal(t, "/contact/?sent=1", res.location)

	res = env.get("/contact/?sent=1")
	assert.Contains(t, res.body, "Your message has been sent")

	res = env.postForm("/contact/", url.Values{
		"name":    {"Farmer Maggot"},
		"email":   {"nope"},
		"subject": {"question"},
		"message": {"Again?"},
	})
	require.Equal(t, http.StatusBadRequest, res.code)
	assert.Contains(t, res.body, "email")
	assert.Contains(t, res.body, "Farmer Maggot")

	// Forms without the CSRF token are refused.
	res = env.postForm("/contact/", url.Values{"_csrf": {"forged"}, "name": {"Orc"}})
	assert.Equal(t, http.StatusForbidden, res.code)
}

func TestTrailingSlashRedirect(t *testing.T) {
	env := newTestEnv(t)
	res := env.get("/about")
	assert.Equal(t, http.StatusMovedPermanently, res.code)
	assert.Equal(t, "/about/", res.location)
}
