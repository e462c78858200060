package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/softvence-omega/wellness-backend-sub000/middleware"
	"github.com/softvence-omega/wellness-backend-sub000/models"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/cache"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/config"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/gateway"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/quota"
	svc "github.com/softvence-omega/wellness-backend-sub000/pkg/services"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"
	"github.com/softvence-omega/wellness-backend-sub000/routes"
)

func openDatabase() (*gorm.DB, error) {
	if config.DatabaseDSN != "" {
		return gorm.Open(mysql.Open(config.DatabaseDSN), &gorm.Config{})
	}
	// local development fallback
	return gorm.Open(sqlite.Open(config.SQLitePath), &gorm.Config{})
}

func main() {
	db, err := openDatabase()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Subscription{},
		&models.QuotaUsage{},
	); err != nil {
		log.Fatalf("failed migrate: %v", err)
	}

	middleware.SetRateLimitConfig(
		time.Duration(config.RateLimitWindowSeconds)*time.Second,
		config.RateLimitCapacity,
	)

	conversationStore := store.NewConversationStore(db)
	ledger := quota.NewLedger(db, map[string]quota.Limits{
		models.TierFree: {Prompts: config.FreePromptLimit, DocScans: config.FreeDocScanLimit},
		models.TierPro:  {Prompts: config.ProPromptLimit, DocScans: config.ProDocScanLimit},
	})
	assistant := svc.NewAssistantClient(
		config.AssistantBaseURL,
		time.Duration(config.AssistantTimeoutSeconds)*time.Second,
		cache.New(config.ReplyCacheMaxItems),
		time.Duration(config.ReplyCacheTTLSeconds)*time.Second,
		time.Duration(config.StreamDelayMillis)*time.Millisecond,
	)
	chat := svc.NewChatService(conversationStore, ledger, assistant)
	hub := gateway.NewHub(conversationStore, chat, config.HistoryLimit)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, conversationStore, ledger, chat, hub)

	if err := r.Run(":" + config.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
