package group

import (
	"context"
	"errors"
	"fmt"

	"backend-yatube/internal/db"
	"backend-yatube/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Group is a named collection posts may optionally belong to. Slug is the
// stable external key.
type Group struct {
	ID          int64  `json:"-"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Find looks a group up by slug through q, which may be a transaction.
func Find(ctx context.Context, q db.Querier, slug string) (Group, error) {
	row := q.QueryRow(ctx, `
		SELECT id, slug, title, description
		FROM groups WHERE slug=$1
	`, slug)
	var g Group
	if err := row.Scan(&g.ID, &g.Slug, &g.Title, &g.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, fmt.Errorf("%w: group %q", apperr.ErrNotFound, slug)
		}
		return Group{}, err
	}
	return g, nil
}

func (s *Service) BySlug(ctx context.Context, slug string) (Group, error) {
	return Find(ctx, s.db, slug)
}

func (s *Service) List(ctx context.Context) ([]Group, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, slug, title, description
		FROM groups ORDER BY title, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Slug, &g.Title, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		groups, err := svc.List(c.Context())
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(groups)
	})

	r.Get("/:slug", func(c *fiber.Ctx) error {
		g, err := svc.BySlug(c.Context(), c.Params("slug"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(g)
	})
}
