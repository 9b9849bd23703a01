package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/pulsechat/pulse-backend/internal/cache"
	"github.com/pulsechat/pulse-backend/internal/handlers"
	"github.com/pulsechat/pulse-backend/internal/middleware"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/repository"
	"github.com/pulsechat/pulse-backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName:   "Pulse Chat Backend",
		BodyLimit: 1 * 1024 * 1024, // 1MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Pulse-CSRF",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Database
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
		defer redisCache.Close()
	}

	chatListCache := cache.NewChatListCache(redisCache)
	userCache := cache.NewUserCache(redisCache)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	receiptRepo := repository.NewReadReceiptRepository(db)
	pinRepo := repository.NewPinRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	// Realtime hub; services broadcast through it after commits.
	hub := realtime.NewHub()
	defer hub.Close()

	// Services
	authService := service.NewAuthService(userRepo)
	friendService := service.NewFriendService(friendRepo, userRepo, hub)
	userService := service.NewUserService(userRepo, friendService, hub, userCache)
	readStateService := service.NewReadStateService(chatRepo, messageRepo, receiptRepo, userRepo, hub, chatListCache)
	messageService := service.NewMessageService(messageRepo, chatRepo, reactionRepo, receiptRepo, pinRepo, userRepo, readStateService, hub, chatListCache)
	chatService := service.NewChatService(chatRepo, messageRepo, receiptRepo, userRepo, messageService, hub, chatListCache)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	chatHandler := handlers.NewChatHandler(chatService, readStateService)
	messageHandler := handlers.NewMessageHandler(messageService, readStateService)
	friendHandler := handlers.NewFriendHandler(friendService)
	wsHandler := handlers.NewWebSocketHandler(hub, chatService, userService)

	// Public routes
	api := app.Group("/api", middleware.OriginAllowed())
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	api.Get("/users/check-username", userHandler.CheckUsername)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(), middleware.CSRFRequired())
	protected.Get("/users/me", userHandler.GetCurrentUser)
	protected.Get("/users/search", userHandler.SearchUsers)
	protected.Get("/users/:identifier", userHandler.GetUser)

	protected.Get("/chats", chatHandler.ListChats)
	protected.Post("/chats/direct", chatHandler.CreateDirectChat)
	protected.Post("/chats/group", chatHandler.CreateGroupChat)
	protected.Get("/chats/:chatId", chatHandler.GetChat)
	protected.Patch("/chats/:chatId", chatHandler.RenameGroup)
	protected.Post("/chats/:chatId/leave", chatHandler.LeaveChat)
	protected.Get("/chats/:chatId/members", chatHandler.GetMembers)
	protected.Post("/chats/:chatId/members", chatHandler.AddMember)
	protected.Delete("/chats/:chatId/members/:userId", chatHandler.RemoveMember)
	protected.Patch("/chats/:chatId/members/:userId/role", chatHandler.UpdateRole)
	protected.Get("/chats/:chatId/unread", chatHandler.UnreadCount)

	protected.Get("/chats/:chatId/messages", messageHandler.ListMessages)
	protected.Post("/chats/:chatId/messages", messageHandler.SendMessage)
	protected.Post("/chats/:chatId/messages/forward", messageHandler.ForwardMessage)
	protected.Get("/chats/:chatId/messages/search", messageHandler.SearchMessages)
	protected.Get("/chats/:chatId/pins", messageHandler.ListPinned)
	protected.Patch("/messages/:messageId", messageHandler.EditMessage)
	protected.Delete("/messages/:messageId", messageHandler.DeleteMessage)
	protected.Get("/messages/:messageId/replies", messageHandler.GetReplies)
	protected.Post("/messages/:messageId/read", messageHandler.MarkAsRead)
	protected.Get("/messages/:messageId/readers", messageHandler.GetReaders)
	protected.Post("/messages/:messageId/reactions", messageHandler.AddReaction)
	protected.Delete("/messages/:messageId/reactions/:emoji", messageHandler.RemoveReaction)
	protected.Post("/messages/:messageId/pin", messageHandler.PinMessage)
	protected.Delete("/messages/:messageId/pin", messageHandler.UnpinMessage)

	protected.Get("/friends", friendHandler.ListFriends)
	protected.Delete("/friends/:userId", friendHandler.RemoveFriend)
	protected.Get("/friends/invites", friendHandler.ListInvites)
	protected.Post("/friends/invites", friendHandler.SendInvite)
	protected.Post("/friends/invites/:inviteId/accept", friendHandler.AcceptInvite)
	protected.Post("/friends/invites/:inviteId/reject", friendHandler.RejectInvite)

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
			"status":       "ok",
			"connections":  hub.ConnectionCount(),
			"online_users": userService.OnlineCount(),
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
