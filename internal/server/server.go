package server

import (
	"backend-yatube/internal/auth"
	"backend-yatube/internal/author"
	"backend-yatube/internal/cache"
	"backend-yatube/internal/config"
	"backend-yatube/internal/feed"
	"backend-yatube/internal/group"
	"backend-yatube/internal/post"
	"backend-yatube/internal/storage"
	"backend-yatube/internal/subscription"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App   *fiber.App
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
	Cache cache.Cache
	Log   *zap.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:   app,
		Cfg:   cfg,
		DB:    db,
		Redis: redisClient,
		Cache: cache.New(cfg, redisClient),
		Log:   log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	optionalAuth := auth.OptionalJWTMiddleware(s.Cfg.JWTSecret)

	posts := post.NewService(s.DB, s.Cfg.PageSize)
	groups := group.NewService(s.DB)
	authors := author.NewService(s.DB)
	subs := subscription.NewService(s.DB)
	composer := feed.NewComposer(posts, groups, authors, subs)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	feed.RegisterRoutes(s.App, composer, s.Cache, s.Log, optionalAuth, jwtMiddleware)
	subscription.RegisterRoutes(s.App, subs, authors, jwtMiddleware)
	post.RegisterRoutes(s.App, posts, jwtMiddleware)
	post.RegisterAPIRoutes(s.App.Group("/api/v1/posts"), posts, jwtMiddleware)
	group.RegisterRoutes(s.App.Group("/api/v1/groups"), groups)
	storage.RegisterRoutes(s.App.Group("/storage"), storage.NewService(s.DB, s.Cfg.MediaBaseURL), jwtMiddleware)
}
