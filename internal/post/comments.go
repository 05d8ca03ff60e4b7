package post

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-yatube/internal/db"
	"backend-yatube/internal/pagination"
	"backend-yatube/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

// Details is a single post together with one page of its comments.
type Details struct {
	Post     Post            `json:"post"`
	Title    string          `json:"title"`
	Comments []Comment       `json:"comments"`
	Page     pagination.Page `json:"page"`
}

func (s *Service) AddComment(ctx context.Context, postID int64, authorID, text string) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, fmt.Errorf("%w: comment text is required", apperr.ErrValidation)
	}

	c := Comment{PostID: postID, AuthorID: authorID, Text: text}
	row := s.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO comments (post_id, author_id, text)
			VALUES ($1,$2,$3)
			RETURNING id, author_id, created_at
		)
		SELECT ins.id, ins.created_at, u.username
		FROM ins JOIN users u ON u.id = ins.author_id
	`, postID, authorID, text)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.Author); err != nil {
		if db.IsForeignKeyViolation(err) || errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, fmt.Errorf("%w: post %d", apperr.ErrNotFound, postID)
		}
		return Comment{}, err
	}
	return c, nil
}

// Comments lists the comments of a post, newest first.
func (s *Service) Comments(ctx context.Context, postID int64) ([]Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, u.username, c.text, c.created_at
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Service) Details(ctx context.Context, id int64, requested string) (Details, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Details{}, err
	}
	comments, err := s.Comments(ctx, id)
	if err != nil {
		return Details{}, err
	}
	page, onPage := pagination.Paginate(comments, s.pageSize, requested)
	return Details{
		Post:     p,
		Title:    p.Title(),
		Comments: onPage,
		Page:     page,
	}, nil
}
