package shire

import (
	"context"
	"testing"
	"time"
)

func TestPostCache(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, NewPost{Title: "Old Forest", Published: true, Tags: []string{"Travel"}})
	mustCreate(t, s, NewPost{Title: "Barrow Downs", Published: true, Tags: []string{"travel", "danger"}})
	mustCreate(t, s, NewPost{Title: "Unfinished", Tags: []string{"secret"}})

	c := NewPostCache(s, time.Hour)

	posts, err := c.ListPosts(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := slugs(posts); !equalStrings(got, []string{"barrow-downs", "old-forest"}) {
		t.Errorf("ListPosts = %v", got)
	}

	posts, _ = c.ListPosts(ctx, " DANGER ")
	if got := slugs(posts); !equalStrings(got, []string{"barrow-downs"}) {
		t.Errorf("ListPosts(danger) = %v", got)
	}

	tags, _ := c.ListTags(ctx)
	if !equalStrings(tags, []string{"danger", "travel"}) {
		t.Errorf("ListTags = %v", tags)
	}

	recent, _ := c.Recent(ctx, 1)
	if got := slugs(recent); !equalStrings(got, []string{"barrow-downs"}) {
		t.Errorf("Recent = %v", got)
	}

	if _, ok, _ := c.GetPost(ctx, "unfinished"); ok {
		t.Error("drafts must not be served from the cache")
	}

	// Writes are invisible until the cache is invalidated.
	mustCreate(t, s, NewPost{Title: "Tom Bombadil", Published: true})
	if _, ok, _ := c.GetPost(ctx, "tom-bombadil"); ok {
		t.Error("expected stale cache before Invalidate")
	}
	c.Invalidate()
	if _, ok, err := c.GetPost(ctx, "tom-bombadil"); err != nil || !ok {
		t.Errorf("GetPost after Invalidate = %v, %v", ok, err)
	}
}

func TestPostCacheExpires(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := NewPostCache(s, time.Nanosecond)

	if posts, err := c.ListPosts(ctx, ""); err != nil || len(posts) != 0 {
		t.Fatalf("ListPosts = %v, %v", posts, err)
	}
	mustCreate(t, s, NewPost{Title: "Rivendell", Published: true})
	time.Sleep(time.Millisecond)
	posts, _ := c.ListPosts(ctx, "")
	if got := slugs(posts); !equalStrings(got, []string{"rivendell"}) {
		t.Errorf("ListPosts after ttl = %v", got)
	}
}
