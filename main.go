package main

import (
	"log"
	"net/http"
	"time"

	"quizmaster/internal/config"
	"quizmaster/internal/db"
	"quizmaster/internal/event"
	"quizmaster/internal/handlers"
	"quizmaster/internal/middleware"
	"quizmaster/internal/repository"
	"quizmaster/internal/service"
	"quizmaster/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg := config.New()
	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(cfg.MongoURI)
	defer db.DisconnectMongo()

	// Durable session state: Redis when configured, in-memory otherwise.
	var sessionStore session.Store
	if cfg.RedisAddr != "" {
		sessionStore = session.NewRedisStore(db.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	} else {
		log.Println("Redis not configured, session state will not survive restarts")
		sessionStore = session.NewMemoryStore()
	}

	// RabbitMQ event publisher
	var publisher *event.EventPublisher
	if cfg.RabbitURL != "" && cfg.RabbitExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, quiz events will not be published")
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	database := db.Client.Database(cfg.MongoDatabase)

	// Users and auth
	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	authHandler := handlers.NewAuthHandler(authService)

	// Questions
	questionRepo := repository.NewQuestionRepository(database)
	questionService := service.NewQuestionService(questionRepo)
	questionHandler := handlers.NewQuestionHandler(questionService)

	// Results
	resultRepo := repository.NewResultRepository(database)
	resultService := service.NewResultService(resultRepo)
	resultHandler := handlers.NewResultHandler(resultService)

	// Quiz sessions
	sessionService := service.NewSessionService(questionService, resultService, sessionStore, publisher)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	profileHandler := handlers.NewProfileHandler(userRepo, resultService)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	questions := r.Group("/api/questions")
	{
		questions.GET("/:subject", func(c *gin.Context) {
			questionHandler.GetBySubject(c)
			if publisher != nil {
				publisher.Publish("question.fetched", gin.H{
					"subject":    c.Param("subject"),
					"difficulty": c.Query("difficulty"),
				})
			}
		})
		questions.POST("/bulk", middleware.RequireAuth(authService), questionHandler.BulkInsert)
	}

	r.GET("/api/interview/questions", questionHandler.GetForInterview)

	results := r.Group("/api/results")
	{
		results.POST("/submit", resultHandler.Submit)
		results.GET("/detail/:id", resultHandler.GetDetail)
		results.GET("/leaderboard", func(c *gin.Context) {
			resultHandler.Leaderboard(c)
			if publisher != nil {
				publisher.Publish("leaderboard.viewed", gin.H{
					"branch":  c.Query("branch"),
					"subject": c.Query("subject"),
				})
			}
		})
		results.GET("/user/:username", resultHandler.GetByUser)
		results.DELETE("/:username", middleware.RequireAuth(authService), resultHandler.DeleteByUser)
	}

	r.GET("/api/profile", middleware.RequireAuth(authService), profileHandler.Get)

	setupSessionRoutes(r, sessionHandler, authService)

	// Health check endpoint for platform probes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Run(":" + cfg.Port)
}

func setupSessionRoutes(r *gin.Engine, sessionHandler *handlers.SessionHandler, authService *service.AuthService) {
	quiz := r.Group("/api/session")
	quiz.Use(middleware.RequireAuth(authService))
	{
		quiz.POST("/start", sessionHandler.Start)
		quiz.GET("/status", sessionHandler.Status)
		quiz.POST("/answer", sessionHandler.Answer)
		quiz.POST("/next", sessionHandler.Next)
		quiz.POST("/jump", sessionHandler.Jump)
		quiz.POST("/submit", sessionHandler.Submit)
		quiz.GET("/attempt", sessionHandler.Attempt)
		quiz.POST("/retry-save", sessionHandler.RetrySave)
	}
}
