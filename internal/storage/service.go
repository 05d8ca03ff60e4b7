package storage

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"backend-yatube/internal/db"

	"github.com/google/uuid"
)

const (
	KindImage  = "image"
	KindAvatar = "avatar"
)

// Media is an uploaded object a post image or avatar can point to.
type Media struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db      db.Querier
	baseURL string
}

func NewService(db db.Querier, baseURL string) *Service {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Service{db: db, baseURL: baseURL}
}

// ObjectURL is the public address of fileName stored under id.
func (s *Service) ObjectURL(id, fileName string) string {
	name := path.Base("/" + fileName)
	if name == "/" || name == "." {
		name = "upload"
	}
	return s.baseURL + id + "/" + url.PathEscape(name)
}

func (s *Service) SaveObject(ctx context.Context, userID, fileName, kind string) (Media, error) {
	m := Media{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
	}
	m.URL = s.ObjectURL(m.ID, fileName)

	row := s.db.QueryRow(ctx, `
		INSERT INTO media_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, m.ID, m.UserID, m.URL, m.Kind)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return Media{}, err
	}
	return m, nil
}
