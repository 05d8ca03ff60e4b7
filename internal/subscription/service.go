// Package subscription manages which authors a user follows.
package subscription

import (
	"context"
	"fmt"

	"backend-yatube/internal/db"
	"backend-yatube/internal/shared/apperr"
)

// Counts are the follower and following totals shown on a profile.
type Counts struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Follow subscribes userID to authorID. Following oneself and following the
// same author twice are conflicts; concurrent duplicates are resolved by
// the store constraints.
func (s *Service) Follow(ctx context.Context, userID, authorID string) error {
	if userID == authorID {
		return fmt.Errorf("%w: cannot follow yourself", apperr.ErrConflict)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO follows (user_id, author_id)
		VALUES ($1,$2)
	`, userID, authorID)
	if err != nil {
		if db.IsConstraintViolation(err) {
			return fmt.Errorf("%w: already following", apperr.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: author", apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// Unfollow removes the subscription if there is one.
func (s *Service) Unfollow(ctx context.Context, userID, authorID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM follows WHERE user_id=$1 AND author_id=$2
	`, userID, authorID)
	return err
}

// IsFollowing is always false for an anonymous viewer.
func (s *Service) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var following bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id=$1 AND author_id=$2)
	`, userID, authorID).Scan(&following)
	return following, err
}

func (s *Service) Counts(ctx context.Context, authorID string) (Counts, error) {
	var followers, following int64
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM follows WHERE author_id=$1),
			(SELECT count(*) FROM follows WHERE user_id=$1)
	`, authorID).Scan(&followers, &following)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Followers: int(followers), Following: int(following)}, nil
}
