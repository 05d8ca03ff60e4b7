package post

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

const titleLength = 30

type Post struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"author_id"`
	Author     string    `json:"author"`
	GroupID    *int64    `json:"-"`
	GroupSlug  *string   `json:"group"`
	GroupTitle *string   `json:"group_title,omitempty"`
	Image      string    `json:"image"`
	Tags       []string  `json:"tag"`
	CreatedAt  time.Time `json:"publication_date"`
}

// CharacterQuantity is derived from the current text whenever a post is
// serialized. It is never stored.
type CharacterQuantity struct {
	AllCharacters int `json:"all_characters"`
	WithoutSpaces int `json:"without_spaces"`
}

func CountCharacters(text string) CharacterQuantity {
	all := utf8.RuneCountInString(text)
	return CharacterQuantity{
		AllCharacters: all,
		WithoutSpaces: all - strings.Count(text, " "),
	}
}

func (p Post) CharacterQuantity() CharacterQuantity {
	return CountCharacters(p.Text)
}

func (p Post) OwnedBy(userID string) bool {
	return userID != "" && p.AuthorID == userID
}

// Title is the leading part of the text used as a page heading.
func (p Post) Title() string {
	if utf8.RuneCountInString(p.Text) <= titleLength {
		return p.Text
	}
	return string([]rune(p.Text)[:titleLength])
}

func (p Post) MarshalJSON() ([]byte, error) {
	type plain Post
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	aux := struct {
		plain
		Tags              []string          `json:"tag"`
		CharacterQuantity CharacterQuantity `json:"character_quantity"`
	}{
		plain:             plain(p),
		Tags:              tags,
		CharacterQuantity: p.CharacterQuantity(),
	}
	return json.Marshal(aux)
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created"`
}

// OptionalString tells an absent JSON key apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func Some(v string) OptionalString { return OptionalString{Set: true, Value: &v} }

func Null() OptionalString { return OptionalString{Set: true} }

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Payload carries the writable fields of a post. Nil pointers and an unset
// Group mean "not supplied"; a nil Tags slice leaves tags untouched on
// update, while a non-nil one (even empty) replaces them.
type Payload struct {
	Text  *string        `json:"text" validate:"omitempty,max=10000"`
	Group OptionalString `json:"group"`
	Image *string        `json:"image" validate:"omitempty,max=2048"`
	Tags  []TagInput     `json:"tag" validate:"omitempty,dive"`
}

type TagInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

func (p Payload) tagNames() []string {
	if p.Tags == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(p.Tags))
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
