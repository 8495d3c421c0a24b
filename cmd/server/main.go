package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/campuslink/campuslink-backend/internal/cache"
	"github.com/campuslink/campuslink-backend/internal/handlers"
	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/middleware"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/campuslink/campuslink-backend/internal/signal"
	"github.com/campuslink/campuslink-backend/internal/storage"
	"github.com/campuslink/campuslink-backend/internal/stream"
	"github.com/campuslink/campuslink-backend/internal/unread"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName: "CampusLink Backend",
		// Support avatar uploads up to 5MB + overhead.
		BodyLimit: 8 * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// One Redis connection pool serves the event stream and the caches.
	redisClient := newRedisClient()
	var redisCache *cache.RedisCache
	var subscriber stream.Subscriber
	var publisher *stream.Publisher
	if redisClient != nil {
		redisCache = cache.NewRedisCache(redisClient)
		subscriber = stream.NewRedisSubscriber(redisClient)
		publisher = stream.NewPublisher(redisClient)
	} else {
		log.Println("WARNING: Redis unavailable. Running without event stream or cache; unread badges stay hidden.")
	}
	unreadCache := cache.NewUnreadCache(redisCache)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	postRepo := repository.NewPostRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	startupRepo := repository.NewStartupRepository(db)

	// Local signal bus: in-process fan-out for "conversations-updated".
	bus := signal.NewBus()

	// Unread sessions: one aggregator per connected user, snapshots mirrored
	// to the cache so the REST fallback can serve a recent value.
	unreadManager := unread.NewManager(participationRepo, subscriber, bus, func(userID uint) []unread.Option {
		return []unread.Option{
			unread.WithSnapshotSink(func(snap unread.Snapshot) {
				if err := unreadCache.Put(userID, snap); err != nil {
					log.Printf("unread cache put failed for user %d: %v", userID, err)
				}
			}),
		}
	})

	// Services
	chatService := service.NewChatService(messageRepo, participationRepo, conversationRepo, publisher, bus)
	userService := service.NewUserService(userRepo)
	feedService := service.NewFeedService(postRepo)
	qnaService := service.NewQnAService(questionRepo)
	startupService := service.NewStartupService(startupRepo)

	// MinIO media storage (best-effort; media endpoints return 503 if missing)
	var mediaStore *storage.MediaStore
	if cfg, err := storage.LoadMediaConfigFromEnv(); err != nil {
		log.Printf("WARNING: media storage not configured: %v", err)
	} else if st, err := storage.NewMediaStore(cfg); err != nil {
		log.Printf("WARNING: failed to initialize media storage: %v", err)
	} else {
		mediaStore = st
		log.Printf("Media storage initialized (bucket=%s)", cfg.Bucket)
	}
	mediaService := service.NewMediaService(mediaStore, userRepo)

	// Handlers
	wsHandler := handlers.NewWebSocketHandler(chatService, unreadManager)
	chatHandler := handlers.NewChatHandler(chatService, wsHandler.GetHub())
	unreadHandler := handlers.NewUnreadHandler(unreadManager, unreadCache)
	userHandler := handlers.NewUserHandler(userService)
	feedHandler := handlers.NewFeedHandler(feedService)
	qnaHandler := handlers.NewQnAHandler(qnaService)
	startupHandler := handlers.NewStartupHandler(startupService)
	mediaHandler := handlers.NewMediaHandler(mediaService)

	api := app.Group("/api", middleware.OriginAllowed())
	protected := api.Group("/", middleware.AuthRequired())

	// Profiles
	protected.Get("/users/me", userHandler.GetMe)
	protected.Put("/users/me", userHandler.UpdateMe)
	protected.Post(
		"/users/me/avatar",
		limiter.New(limiter.Config{
			Max:        10,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "avatar:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
		mediaHandler.UploadMyAvatar,
	)
	protected.Delete("/users/me/avatar", mediaHandler.DeleteMyAvatar)
	protected.Get("/media/*", mediaHandler.ServeMedia)
	protected.Get("/users/search", userHandler.SearchUsers)
	protected.Get("/users/:identifier", userHandler.GetUser)

	// Chat
	protected.Get("/conversations", chatHandler.GetConversations)
	protected.Post("/conversations", chatHandler.CreateConversation)
	protected.Get("/conversations/:id/messages", chatHandler.GetMessages)
	protected.Post("/conversations/:id/messages", chatHandler.SendMessage)
	protected.Post("/conversations/:id/read", chatHandler.MarkConversationRead)
	protected.Get("/unread", unreadHandler.GetUnread)

	// Feed
	protected.Get("/posts", feedHandler.ListPosts)
	protected.Post("/posts", feedHandler.CreatePost)
	protected.Delete("/posts/:id", feedHandler.DeletePost)

	// Q&A board
	protected.Get("/questions", qnaHandler.ListQuestions)
	protected.Post("/questions", qnaHandler.AskQuestion)
	protected.Get("/questions/:id", qnaHandler.GetQuestion)
	protected.Delete("/questions/:id", qnaHandler.DeleteQuestion)
	protected.Post("/questions/:id/answers", qnaHandler.AnswerQuestion)

	// Startups hub
	protected.Get("/startups", startupHandler.ListListings)
	protected.Post("/startups", startupHandler.CreateListing)
	protected.Get("/startups/:id", startupHandler.GetListing)
	protected.Put("/startups/:id", startupHandler.UpdateListing)
	protected.Delete("/startups/:id", startupHandler.DeleteListing)
	protected.Post("/startups/:id/offers", startupHandler.AddOffer)
	protected.Delete("/startups/offers/:offerID", startupHandler.RemoveOffer)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"unread_sessions": unreadManager.Active(),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// newRedisClient connects the shared pool, or returns nil when Redis is
// unreachable so the server can still serve the database-backed routes.
func newRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			db = parsed
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	log.Println("Redis connected successfully")
	return client
}
