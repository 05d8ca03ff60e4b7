package post

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"backend-yatube/internal/db"
	"backend-yatube/internal/group"
	"backend-yatube/internal/pagination"
	"backend-yatube/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

const selectPosts = `
	SELECT p.id, p.text, p.author_id, u.username, p.group_id, g.slug, g.title, p.image, p.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN groups g ON g.id = p.group_id`

const feedOrder = ` ORDER BY p.created_at DESC, p.id DESC`

// Filter narrows a post listing. Zero fields do not filter.
type Filter struct {
	GroupID  *int64
	AuthorID string
	// FollowerID restricts the listing to authors the user follows.
	FollowerID string
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.GroupID != nil {
		args = append(args, *f.GroupID)
		conds = append(conds, fmt.Sprintf("p.group_id = $%d", len(args)))
	}
	if f.AuthorID != "" {
		args = append(args, f.AuthorID)
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if f.FollowerID != "" {
		args = append(args, f.FollowerID)
		conds = append(conds, fmt.Sprintf("p.author_id IN (SELECT author_id FROM follows WHERE user_id = $%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type Service struct {
	db       db.DB
	pageSize int
}

func NewService(db db.DB, pageSize int) *Service {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Service{db: db, pageSize: pageSize}
}

func (s *Service) PageSize() int {
	return s.pageSize
}

func (s *Service) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM posts p`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// List returns up to limit posts matching f, newest first, with their tags.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]Post, error) {
	where, args := f.where()
	args = append(args, limit, offset)
	query := selectPosts + where + feedOrder + fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	var ids []int64
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := s.loadTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Tags = tags[posts[i].ID]
	}
	return posts, nil
}

// Page resolves the requested page of the listing described by f.
func (s *Service) Page(ctx context.Context, f Filter, requested string) (pagination.Page, []Post, error) {
	total, err := s.Count(ctx, f)
	if err != nil {
		return pagination.Page{}, nil, err
	}
	page := pagination.New(total, s.pageSize, requested)
	if total == 0 {
		return page, []Post{}, nil
	}
	posts, err := s.List(ctx, f, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Page{}, nil, err
	}
	return page, posts, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	p, err := scanPost(s.db.QueryRow(ctx, selectPosts+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, fmt.Errorf("%w: post %d", apperr.ErrNotFound, id)
		}
		return Post{}, err
	}
	tags, err := s.loadTags(ctx, []int64{id})
	if err != nil {
		return Post{}, err
	}
	p.Tags = tags[id]
	return p, nil
}

// Upsert creates a post for authorID when existing is nil, or applies
// payload to the post identified by existing otherwise. The post row, its
// group and its tag links change together in a single transaction.
//
// On update the row is re-read under a lock and only supplied fields
// change. Tags, when supplied, replace the whole tag set of the post.
func (s *Service) Upsert(ctx context.Context, existing *Post, authorID string, payload Payload) (Post, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Post{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Post
	if existing == nil {
		p, err = create(ctx, tx, authorID, payload)
	} else {
		p, err = update(ctx, tx, existing.ID, payload)
	}
	if err != nil {
		return Post{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Post{}, err
	}
	return p, nil
}

func create(ctx context.Context, tx pgx.Tx, authorID string, payload Payload) (Post, error) {
	if payload.Text == nil || strings.TrimSpace(*payload.Text) == "" {
		return Post{}, fmt.Errorf("%w: text is required", apperr.ErrValidation)
	}

	p := Post{Text: *payload.Text, AuthorID: authorID}
	if payload.Image != nil {
		p.Image = *payload.Image
	}
	if err := applyGroup(ctx, tx, &p, payload.Group); err != nil {
		return Post{}, err
	}

	row := tx.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO posts (text, author_id, group_id, image)
			VALUES ($1,$2,$3,$4)
			RETURNING id, author_id, created_at
		)
		SELECT ins.id, ins.created_at, u.username
		FROM ins JOIN users u ON u.id = ins.author_id
	`, p.Text, p.AuthorID, p.GroupID, p.Image)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.Author); err != nil {
		if db.IsForeignKeyViolation(err) || errors.Is(err, pgx.ErrNoRows) {
			return Post{}, fmt.Errorf("%w: author %s", apperr.ErrNotFound, authorID)
		}
		return Post{}, err
	}

	names := payload.tagNames()
	if p.GroupID == nil && len(names) == 0 {
		p.Tags = names
		return p, nil
	}
	if err := attachTags(ctx, tx, p.ID, names); err != nil {
		return Post{}, err
	}
	p.Tags = append([]string(nil), names...)
	slices.Sort(p.Tags)
	return p, nil
}

func update(ctx context.Context, tx pgx.Tx, id int64, payload Payload) (Post, error) {
	p, err := scanPost(tx.QueryRow(ctx, selectPosts+` WHERE p.id = $1 FOR UPDATE OF p`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, fmt.Errorf("%w: post %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return Post{}, err
	}

	if payload.Text != nil {
		if strings.TrimSpace(*payload.Text) == "" {
			return Post{}, fmt.Errorf("%w: text may not be blank", apperr.ErrValidation)
		}
		p.Text = *payload.Text
	}
	if payload.Image != nil {
		p.Image = *payload.Image
	}
	if err := applyGroup(ctx, tx, &p, payload.Group); err != nil {
		return Post{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE posts SET text=$1, group_id=$2, image=$3
		WHERE id=$4
	`, p.Text, p.GroupID, p.Image, p.ID); err != nil {
		return Post{}, err
	}

	names := payload.tagNames()
	if names == nil {
		tags, err := tagsOf(ctx, tx, []int64{p.ID})
		if err != nil {
			return Post{}, err
		}
		p.Tags = tags[p.ID]
		return p, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id=$1`, p.ID); err != nil {
		return Post{}, err
	}
	if err := attachTags(ctx, tx, p.ID, names); err != nil {
		return Post{}, err
	}
	p.Tags = append([]string(nil), names...)
	slices.Sort(p.Tags)
	return p, nil
}

// applyGroup resolves a supplied group slug onto p. A null or empty slug
// detaches the post from its group; an unset one leaves it as is.
func applyGroup(ctx context.Context, tx pgx.Tx, p *Post, slug OptionalString) error {
	if !slug.Set {
		return nil
	}
	if slug.Value == nil || strings.TrimSpace(*slug.Value) == "" {
		p.GroupID, p.GroupSlug, p.GroupTitle = nil, nil, nil
		return nil
	}
	g, err := group.Find(ctx, tx, strings.TrimSpace(*slug.Value))
	if err != nil {
		return err
	}
	p.GroupID, p.GroupSlug, p.GroupTitle = &g.ID, &g.Slug, &g.Title
	return nil
}

// attachTags links every named tag to the post, creating missing tags.
func attachTags(ctx context.Context, tx pgx.Tx, postID int64, names []string) error {
	for _, name := range names {
		var tagID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name).Scan(&tagID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO post_tags (post_id, tag_id) VALUES ($1,$2)
			ON CONFLICT DO NOTHING
		`, postID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: post %d", apperr.ErrNotFound, id)
	}
	return nil
}

func (s *Service) loadTags(ctx context.Context, postIDs []int64) (map[int64][]string, error) {
	return tagsOf(ctx, s.db, postIDs)
}

// tagsOf returns tag names per post, sorted by name.
func tagsOf(ctx context.Context, q db.Querier, postIDs []int64) (map[int64][]string, error) {
	if len(postIDs) == 0 {
		return map[int64][]string{}, nil
	}
	rows, err := q.Query(ctx, `
		SELECT pt.post_id, t.name
		FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY t.name
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := map[int64][]string{}
	for rows.Next() {
		var postID int64
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return nil, err
		}
		tags[postID] = append(tags[postID], name)
	}
	return tags, rows.Err()
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Text, &p.AuthorID, &p.Author, &p.GroupID, &p.GroupSlug, &p.GroupTitle, &p.Image, &p.CreatedAt)
	return p, err
}
