package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	_ "investorportal/api/swagger" // swagger docs
	"investorportal/internal/cache"
	"investorportal/internal/database"
	"investorportal/internal/handler"
	"investorportal/internal/middleware"
	"investorportal/internal/render"
	"investorportal/internal/repository"
	"investorportal/internal/service"
	"investorportal/internal/storage"
	"investorportal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Investor Closure Portal API
// @version         1.0
// @description     Backend for the investor-facing closure portal: OTP login, closure form drafts with autosave, document uploads and the admin review queue.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := getenv("DB_HOST", "localhost")
	dbPort := getenv("DB_PORT", "5432")
	dbUser := getenv("DB_USER", "postgres")
	dbPassword := getenv("DB_PASSWORD", "postgres")
	dbName := getenv("DB_NAME", "postgres")
	dbSslMode := getenv("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	redisDB, _ := strconv.Atoi(getenv("REDIS_DB", "0"))
	codes, err := cache.New(cache.Config{
		Addr:        getenv("REDIS_ADDR", "localhost:6379"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          redisDB,
		MaxRetries:  3,
		DialTimeout: 5 * time.Second,
		Timeout:     3 * time.Second,
	})
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer codes.Close()

	store, err := storage.NewObjectStore(context.Background(), storage.Config{
		Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("S3_SECRET_KEY"),
		Bucket:          getenv("S3_BUCKET", "investor-documents"),
		UseSSL:          os.Getenv("S3_USE_SSL") == "true",
		Region:          os.Getenv("S3_REGION"),
		Prefix:          "submissions/",
		PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
	})
	if err != nil {
		log.Fatalf("Object store setup failed: %v", err)
	}

	autosaveInterval := 3 * time.Second
	if v, convErr := strconv.Atoi(os.Getenv("AUTOSAVE_INTERVAL_SECONDS")); convErr == nil && v > 0 {
		autosaveInterval = time.Duration(v) * time.Second
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	investorRepo := repository.NewInvestorRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authService := service.NewAuthService(investorRepo, codes, service.NewLogOtpSender())
	submissionService := service.NewSubmissionService(submissionRepo, auditRepo, txManager, wsHub)
	documentService := service.NewDocumentService(submissionRepo, auditRepo, txManager, store)
	auditService := service.NewAuditService(auditRepo)
	renderer := render.NewHTMLRenderer()

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	submissionHandler := handler.NewSubmissionHandler(submissionService, documentService, renderer)
	adminHandler := handler.NewAdminHandler(submissionService, auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoints: lifecycle events and the draft autosave session
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})
	router.GET("/ws/draft", func(c *gin.Context) {
		websocket.ServeDraftWs(c, submissionService, middleware.GetJWTSecret(), autosaveInterval)
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	submissionHandler.RegisterRoutes(router.Group(""))
	adminHandler.RegisterRoutes(router.Group(""))

	port := getenv("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
