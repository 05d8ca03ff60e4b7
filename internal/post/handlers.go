package post

import (
	"fmt"
	"strconv"
	"strings"

	"backend-yatube/internal/auth"
	"backend-yatube/internal/shared/apperr"
	"backend-yatube/internal/shared/request"

	"github.com/gofiber/fiber/v2"
)

// postForm is the form submitted by the create and edit pages. Tags are a
// comma separated list. Group and tags change only when their field was
// submitted, and an empty image keeps the stored one.
type postForm struct {
	Text  string `form:"text" json:"text" validate:"required"`
	Group string `form:"group" json:"group"`
	Image string `form:"image" json:"image"`
	Tags  string `form:"tags" json:"tags"`
}

func (f postForm) payload(submitted func(field string) bool) Payload {
	p := Payload{Text: &f.Text}
	if submitted("group") {
		p.Group = Some(f.Group)
	}
	if f.Image != "" {
		p.Image = &f.Image
	}
	if submitted("tags") {
		p.Tags = []TagInput{}
		for _, name := range strings.Split(f.Tags, ",") {
			if name = strings.TrimSpace(name); name != "" {
				p.Tags = append(p.Tags, TagInput{Name: name})
			}
		}
	}
	return p
}

// formHas reports whether field was present in a urlencoded or multipart
// form body, even if empty.
func formHas(c *fiber.Ctx) func(string) bool {
	return func(field string) bool {
		if c.Request().PostArgs().Has(field) {
			return true
		}
		if mf, err := c.MultipartForm(); err == nil {
			_, ok := mf.Value[field]
			return ok
		}
		return false
	}
}

type commentForm struct {
	Text string `form:"text" json:"text"`
}

// RegisterRoutes mounts the page-style post routes. Successful writes
// redirect the way the pages do.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/posts/:id", func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return apperr.Fiber(err)
		}
		details, err := svc.Details(c.Context(), id, c.Query("page"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(details)
	})

	r.Post("/create", authMiddleware, func(c *fiber.Ctx) error {
		var form postForm
		if err := request.Bind(c, &form); err != nil {
			return apperr.Fiber(err)
		}
		p, err := svc.Upsert(c.Context(), nil, auth.UserID(c), form.payload(formHas(c)))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Redirect("/profile/"+p.Author, fiber.StatusFound)
	})

	r.Post("/posts/:id/edit", authMiddleware, func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return apperr.Fiber(err)
		}
		existing, err := svc.Get(c.Context(), id)
		if err != nil {
			return apperr.Fiber(err)
		}
		detail := fmt.Sprintf("/posts/%d", id)
		if !existing.OwnedBy(auth.UserID(c)) {
			return c.Redirect(detail, fiber.StatusFound)
		}

		var form postForm
		if err := request.Bind(c, &form); err != nil {
			return apperr.Fiber(err)
		}
		if _, err := svc.Upsert(c.Context(), &existing, existing.AuthorID, form.payload(formHas(c))); err != nil {
			return apperr.Fiber(err)
		}
		return c.Redirect(detail, fiber.StatusFound)
	})

	r.Post("/posts/:id/comment", authMiddleware, func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return apperr.Fiber(err)
		}
		var form commentForm
		if err := request.Bind(c, &form); err != nil {
			return apperr.Fiber(err)
		}
		if _, err := svc.AddComment(c.Context(), id, auth.UserID(c), form.Text); err != nil {
			return apperr.Fiber(err)
		}
		return c.Redirect(fmt.Sprintf("/posts/%d", id), fiber.StatusFound)
	})
}

// RegisterAPIRoutes mounts the JSON post API. Reads are public; writes need
// authentication and only the author may change or delete a post.
func RegisterAPIRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		page, posts, err := svc.Page(c.Context(), Filter{}, c.Query("page"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"page": page, "results": posts})
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var payload Payload
		if err := request.Bind(c, &payload); err != nil {
			return apperr.Fiber(err)
		}
		p, err := svc.Upsert(c.Context(), nil, auth.UserID(c), payload)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		id, err := postID(c)
		if err != nil {
			return apperr.Fiber(err)
		}
		p, err := svc.Get(c.Context(), id)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(p)
	})

	update := func(full bool) fiber.Handler {
		return func(c *fiber.Ctx) error {
			existing, err := ownedPost(c, svc)
			if err != nil {
				return apperr.Fiber(err)
			}
			var payload Payload
			if err := request.Bind(c, &payload); err != nil {
				return apperr.Fiber(err)
			}
			if full && payload.Text == nil {
				return apperr.Fiber(fmt.Errorf("%w: text is required", apperr.ErrValidation))
			}
			p, err := svc.Upsert(c.Context(), &existing, existing.AuthorID, payload)
			if err != nil {
				return apperr.Fiber(err)
			}
			return c.JSON(p)
		}
	}
	r.Put("/:id", authMiddleware, update(true))
	r.Patch("/:id", authMiddleware, update(false))

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		existing, err := ownedPost(c, svc)
		if err != nil {
			return apperr.Fiber(err)
		}
		if err := svc.Delete(c.Context(), existing.ID); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func ownedPost(c *fiber.Ctx, svc *Service) (Post, error) {
	id, err := postID(c)
	if err != nil {
		return Post{}, err
	}
	p, err := svc.Get(c.Context(), id)
	if err != nil {
		return Post{}, err
	}
	if !p.OwnedBy(auth.UserID(c)) {
		return Post{}, fmt.Errorf("%w: only the author may change this post", apperr.ErrForbidden)
	}
	return p, nil
}

func postID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: post %q", apperr.ErrNotFound, c.Params("id"))
	}
	return id, nil
}
