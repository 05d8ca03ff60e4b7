// Package feed composes the paginated post listings: the global feed, a
// group's feed, an author's profile and the feed of followed authors.
package feed

import (
	"context"
	"fmt"

	"backend-yatube/internal/author"
	"backend-yatube/internal/group"
	"backend-yatube/internal/pagination"
	"backend-yatube/internal/post"
	"backend-yatube/internal/shared/apperr"
	"backend-yatube/internal/subscription"
)

type PostPager interface {
	Page(ctx context.Context, f post.Filter, requested string) (pagination.Page, []post.Post, error)
}

type GroupFinder interface {
	BySlug(ctx context.Context, slug string) (group.Group, error)
}

type AuthorFinder interface {
	ByUsername(ctx context.Context, username string) (author.Author, error)
}

type Subscriptions interface {
	IsFollowing(ctx context.Context, userID, authorID string) (bool, error)
	Counts(ctx context.Context, authorID string) (subscription.Counts, error)
}

// Feed is one page of posts, newest first.
type Feed struct {
	Page  pagination.Page `json:"page"`
	Posts []post.Post     `json:"posts"`
}

type GroupFeed struct {
	Group group.Group `json:"group"`
	Feed
}

type AuthorFeed struct {
	Author    author.Author       `json:"author"`
	Following bool                `json:"following"`
	Counts    subscription.Counts `json:"counts"`
	Feed
}

type Composer struct {
	posts   PostPager
	groups  GroupFinder
	authors AuthorFinder
	subs    Subscriptions
}

func NewComposer(posts PostPager, groups GroupFinder, authors AuthorFinder, subs Subscriptions) *Composer {
	return &Composer{posts: posts, groups: groups, authors: authors, subs: subs}
}

func (c *Composer) Global(ctx context.Context, requested string) (Feed, error) {
	return c.page(ctx, post.Filter{}, requested)
}

func (c *Composer) Group(ctx context.Context, slug, requested string) (GroupFeed, error) {
	g, err := c.groups.BySlug(ctx, slug)
	if err != nil {
		return GroupFeed{}, err
	}
	f, err := c.page(ctx, post.Filter{GroupID: &g.ID}, requested)
	if err != nil {
		return GroupFeed{}, err
	}
	return GroupFeed{Group: g, Feed: f}, nil
}

// Author builds an author's profile feed. viewer may be empty; an anonymous
// viewer never follows anyone.
func (c *Composer) Author(ctx context.Context, username, viewer, requested string) (AuthorFeed, error) {
	a, err := c.authors.ByUsername(ctx, username)
	if err != nil {
		return AuthorFeed{}, err
	}
	f, err := c.page(ctx, post.Filter{AuthorID: a.ID}, requested)
	if err != nil {
		return AuthorFeed{}, err
	}
	following, err := c.subs.IsFollowing(ctx, viewer, a.ID)
	if err != nil {
		return AuthorFeed{}, err
	}
	counts, err := c.subs.Counts(ctx, a.ID)
	if err != nil {
		return AuthorFeed{}, err
	}
	return AuthorFeed{Author: a, Following: following, Counts: counts, Feed: f}, nil
}

// Following lists posts by the authors viewer follows.
func (c *Composer) Following(ctx context.Context, viewer, requested string) (Feed, error) {
	if viewer == "" {
		return Feed{}, fmt.Errorf("%w: sign in to see followed authors", apperr.ErrUnauthorized)
	}
	return c.page(ctx, post.Filter{FollowerID: viewer}, requested)
}

func (c *Composer) page(ctx context.Context, f post.Filter, requested string) (Feed, error) {
	page, posts, err := c.posts.Page(ctx, f, requested)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Page: page, Posts: posts}, nil
}
