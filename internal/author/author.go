package author

import (
	"context"
	"errors"
	"fmt"

	"backend-yatube/internal/db"
	"backend-yatube/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

// Author is the public view of a registered user.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) ByUsername(ctx context.Context, username string) (Author, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, full_name, avatar_url
		FROM users WHERE username=$1
	`, username)
	var a Author
	if err := row.Scan(&a.ID, &a.Username, &a.FullName, &a.AvatarURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, fmt.Errorf("%w: author %q", apperr.ErrNotFound, username)
		}
		return Author{}, err
	}
	return a, nil
}
