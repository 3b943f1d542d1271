package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"deliciouskitchen/frontend/internal/api"
	"deliciouskitchen/frontend/internal/config"
	"deliciouskitchen/frontend/internal/database"
	"deliciouskitchen/frontend/internal/services"
	"deliciouskitchen/frontend/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	// Игнорируем ошибку, если файл не найден (для production окружений)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	cfg := config.Load()
	log.Printf("📋 API_BASE_URL: %s", cfg.APIBaseURL)
	if cfg.FirebaseAPIKey == "" {
		log.Printf("⚠️ FIREBASE_API_KEY не установлен, вход персонала работать не будет")
	}

	// Хранилище сессии: Redis общий для всех терминалов одного origin,
	// без Redis каждый процесс хранит сессию в памяти
	var storage interface {
		services.LocalStorage
		Close() error
	}
	redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.RedisSentinelAddrs, cfg.RedisMasterName)
	if err != nil {
		log.Printf("⚠️ Failed to connect to Redis: %v", err)
		log.Println("⚠️ Continuing with in-memory session storage (сессия не делится между терминалами)")
		storage = database.NewMemoryLocalStorage()
	} else {
		defer database.CloseRedis(redisClient)
		storage = database.NewRedisLocalStorage(utils.NewRedisClient(redisClient), cfg.StorageOrigin)
		log.Printf("✅ Session storage: Redis (origin=%s)", cfg.StorageOrigin)
	}
	defer storage.Close()

	firebase := services.NewFirebaseClient(services.FirebaseConfig{
		APIKey:   cfg.FirebaseAPIKey,
		AuthURL:  cfg.FirebaseAuthURL,
		TokenURL: cfg.FirebaseTokenURL,
	}, storage)
	defer firebase.Close()

	sessions := services.NewSessionManager(firebase, storage,
		services.WithRenewalMargin(cfg.TokenRenewalMargin),
		services.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	unsubscribe := sessions.Subscribe()
	defer unsubscribe()

	// Восстановление сессии из сохраненного refresh токена
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := firebase.Restore(ctx); err != nil {
			log.Printf("⚠️ Не удалось восстановить сессию: %v", err)
		}
	}()

	backend := services.NewBackendClient(cfg.APIBaseURL, sessions)
	preferences := services.NewPreferenceStore(storage)

	hub := api.NewHub()
	go hub.Run()
	defer hub.Stop()
	removeSessionListener := sessions.OnChange(func(s services.Session) {
		api.PublishSession(hub, s)
	})
	defer removeSessionListener()

	// Kafka статусы заказов (опционально)
	if brokers := api.ParseKafkaBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		consumer := api.NewOrderStatusConsumer(brokers, cfg.OrderStatusTopic, cfg.KafkaGroupID, api.KafkaAuth{
			Username: cfg.KafkaUsername,
			Password: cfg.KafkaPassword,
			CACert:   cfg.KafkaCACert,
		}, hub)
		consumer.Start()
		defer consumer.Stop()
	} else {
		log.Println("⚠️ KAFKA_BROKERS не установлен, live статусы заказов отключены")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Логирование всех запросов
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, status, latency)
	})

	// CORS для фронтенда
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api.SetupRoutes(r, api.Deps{
		Auth:        firebase,
		Sessions:    sessions,
		Backend:     backend,
		Preferences: preferences,
		Hub:         hub,
	})

	// Периодическое логирование статистики памяти
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			logMemoryStats()
		}
	}()

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.ServerPort)
		log.Printf("📡 API доступен на http://0.0.0.0:%s/api/v1", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Завершение работы...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}
}

// logMemoryStats логирует текущую статистику использования памяти
func logMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	heapAllocMB := float64(m.HeapAlloc) / 1024 / 1024
	numGoroutines := runtime.NumGoroutine()

	log.Printf("💾 Memory Stats: HeapAlloc=%.2f MB, GC=%d, Goroutines=%d", heapAllocMB, m.NumGC, numGoroutines)

	// Предупреждение при большом количестве горутин (хаб и подписчики держат по горутине)
	if numGoroutines > 100 {
		log.Printf("⚠️ WARNING: High number of goroutines detected: %d (possible goroutine leak)", numGoroutines)
	}
}
